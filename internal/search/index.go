// Package search provides a small, deterministic, concurrency-safe in-memory
// index over job applications and their notes.
//
//   - No logging in the library (callers decide how/what to log)
//   - Functional options (Option pattern)
//   - Unicode-aware, accent- and case-insensitive tokenization
//   - Immutable, read-only index after construction (safe for concurrent use)
//   - Deterministic scoring and sorting (stable order for ties)
//
// Scoring uses Jaccard similarity between the query token set and each
// document's token set: score = |Q ∩ D| / |Q ∪ D|. With prefix matching on
// (the default) a query token also matches any document token it prefixes,
// so "acm" finds "Acme".
package search

import (
	"sort"
	"strings"
)

// Document is one searchable unit; ID is the application id it describes.
type Document struct {
	ID    uint
	Title string
	Text  string
}

// Result is a ranked document with its similarity score.
type Result struct {
	ID      uint    `json:"id"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	TopK(query string, k int) []Result
	Len() int
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	stopwords     map[string]struct{}
	maxDocs       int
	prefix        bool
	snippetRunes  int
	minTokenRunes int
}

func defaultConfig() config {
	return config{
		stopwords:     nil,
		maxDocs:       0,
		prefix:        true,
		snippetRunes:  160,
		minTokenRunes: 2,
	}
}

func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = Fold(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

// WithPrefixMatch toggles prefix matching of query tokens.
func WithPrefixMatch(on bool) Option {
	return func(c *config) { c.prefix = on }
}

// WithSnippetRunes caps the snippet length; values <= 0 are ignored.
func WithSnippetRunes(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.snippetRunes = n
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	id     uint
	title  string
	text   string
	tokens map[string]struct{}
}

type index struct {
	cfg  config
	docs []doc
}

// NewIndex builds an Index from docs. Documents without any token are
// skipped; insertion order breaks score ties.
func NewIndex(docs []Document, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	out := make([]doc, 0, len(docs))
	for _, d := range docs {
		text := strings.TrimSpace(normalizeWhitespace(d.Text))
		toks := tokenize(d.Title+" "+text, cfg)
		if len(toks) == 0 {
			continue
		}
		out = append(out, doc{id: d.ID, title: strings.TrimSpace(d.Title), text: text, tokens: toks})
		if cfg.maxDocs > 0 && len(out) >= cfg.maxDocs {
			break
		}
	}
	return &index{cfg: cfg, docs: out}
}

func (i *index) Len() int { return len(i.docs) }

// TopK returns up to k best-matching documents. k <= 0 means 10.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 10
	}
	qTokens := tokenize(q, i.cfg)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	type scored struct {
		pos   int
		score float64
	}
	buf := make([]scored, 0, len(i.docs))
	for pos, d := range i.docs {
		over := i.overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(qLen + len(d.tokens) - over)
		if union <= 0 {
			continue
		}
		buf = append(buf, scored{pos: pos, score: float64(over) / union})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		return buf[a].score > buf[b].score
	})

	if k > len(buf) {
		k = len(buf)
	}
	out := make([]Result, k)
	for n := 0; n < k; n++ {
		d := i.docs[buf[n].pos]
		out[n] = Result{ID: d.id, Title: d.title, Snippet: clip(d.text, i.cfg.snippetRunes), Score: buf[n].score}
	}
	return out
}

// overlap counts query tokens present in the document, exactly or (when
// enabled) as a prefix of some document token.
func (i *index) overlap(q, d map[string]struct{}) int {
	n := 0
	for t := range q {
		if _, ok := d[t]; ok {
			n++
			continue
		}
		if !i.cfg.prefix {
			continue
		}
		for dt := range d {
			if strings.HasPrefix(dt, t) {
				n++
				break
			}
		}
	}
	return n
}

// ----------------------------------------------------------------------------
// Helpers

func tokenize(s string, cfg config) map[string]struct{} {
	words := Words(s)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len([]rune(w)) < cfg.minTokenRunes {
			continue
		}
		if cfg.stopwords != nil {
			if _, skip := cfg.stopwords[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func clip(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}
