package domain

import (
	"bytes"
	"encoding/json"
)

// NewApplication is the payload accepted when creating an application. An
// empty Status means DefaultStatus.
type NewApplication struct {
	Company   string   `json:"company"   validate:"required,max=255"`
	Role      string   `json:"role"      validate:"required,max=255"`
	Status    Status   `json:"status"    validate:"omitempty,status"`
	Link      *string  `json:"link"      validate:"omitnil,http_url,max=2048"`
	SalaryMin *int64   `json:"salaryMin" validate:"omitnil,gte=0"`
	SalaryMax *int64   `json:"salaryMax" validate:"omitnil,gte=0"`
	Tags      []string `json:"tags"      validate:"max=20,dive,required,max=50"`
	Rating    *int     `json:"rating"    validate:"omitnil,min=1,max=5"`
}

// ApplicationPatch is a partial update. A field that is absent from the JSON
// body is left untouched; an explicit null clears the nullable fields (link,
// salaries, rating). Company, role, status and tags cannot be cleared.
type ApplicationPatch struct {
	Company   Optional[string]   `json:"company"`
	Role      Optional[string]   `json:"role"`
	Status    Optional[Status]   `json:"status"`
	Link      Optional[string]   `json:"link"`
	SalaryMin Optional[int64]    `json:"salaryMin"`
	SalaryMax Optional[int64]    `json:"salaryMax"`
	Tags      Optional[[]string] `json:"tags"`
	Rating    Optional[int]      `json:"rating"`
}

// Empty reports whether the patch carries no field at all.
func (p ApplicationPatch) Empty() bool {
	return !p.Company.Set && !p.Role.Set && !p.Status.Set && !p.Link.Set &&
		!p.SalaryMin.Set && !p.SalaryMax.Set && !p.Tags.Set && !p.Rating.Set
}

// MarshalJSON emits only the fields that are set, so a patch survives a
// round trip through the wire with absent and null kept apart.
func (p ApplicationPatch) MarshalJSON() ([]byte, error) {
	m := map[string]any{}
	put := func(name string, set bool, v any) {
		if set {
			m[name] = v
		}
	}
	put("company", p.Company.Set, p.Company.Value)
	put("role", p.Role.Set, p.Role.Value)
	put("status", p.Status.Set, p.Status.Value)
	put("link", p.Link.Set, p.Link.Value)
	put("salaryMin", p.SalaryMin.Set, p.SalaryMin.Value)
	put("salaryMax", p.SalaryMax.Set, p.SalaryMax.Value)
	put("tags", p.Tags.Set, p.Tags.Value)
	put("rating", p.Rating.Set, p.Rating.Value)
	return json.Marshal(m)
}

// Optional distinguishes an absent JSON field (Set=false) from an explicit
// null (Set=true, Value=nil) and from a value.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: &v} }

// Null returns an Optional that clears the field.
func Null[T any]() Optional[T] { return Optional[T]{Set: true} }

// UnmarshalJSON is only invoked for keys present in the body, which is what
// makes Set meaningful.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// NewNote is the payload accepted when attaching a note to an application.
type NewNote struct {
	ApplicationID uint         `json:"applicationId" validate:"required"`
	Category      NoteCategory `json:"category"      validate:"omitempty,category"`
	Content       string       `json:"content"       validate:"required,max=10000"`
}
