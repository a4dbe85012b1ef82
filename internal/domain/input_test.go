package domain

import (
	"encoding/json"
	"testing"
)

func TestApplicationPatch_AbsentNullValue(t *testing.T) {
	var p ApplicationPatch
	if err := json.Unmarshal([]byte(`{"status":"offer","link":null,"salaryMin":1000}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !p.Status.Set || p.Status.Value == nil || *p.Status.Value != StatusOffer {
		t.Fatalf("status = %+v", p.Status)
	}
	if !p.Link.Set || p.Link.Value != nil {
		t.Fatalf("link should be an explicit null: %+v", p.Link)
	}
	if !p.SalaryMin.Set || *p.SalaryMin.Value != 1000 {
		t.Fatalf("salaryMin = %+v", p.SalaryMin)
	}
	if p.Company.Set || p.Rating.Set || p.Tags.Set {
		t.Fatalf("absent fields must stay unset: %+v", p)
	}
	if p.Empty() {
		t.Fatalf("patch with fields reported empty")
	}
}

func TestApplicationPatch_MarshalKeepsNulls(t *testing.T) {
	p := ApplicationPatch{Role: Some("Staff"), Rating: Null[int]()}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(m) != 2 || m["role"] != "Staff" {
		t.Fatalf("unexpected body %s", b)
	}
	if v, ok := m["rating"]; !ok || v != nil {
		t.Fatalf("rating must be present and null: %s", b)
	}
	if !(ApplicationPatch{}).Empty() {
		t.Fatalf("zero patch should be empty")
	}
}
