package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/tokenizer"
)

// DefaultFields are the text fields indexed when none are configured.
var DefaultFields = []string{
	"title", "abstract", "zh_title", "translation", "tldr", "ai_comments", "comment",
}

// Projection is everything the build needs from one record.
type Projection struct {
	DocID      string
	Tokens     tokenizer.Set
	Categories []string
	TimeBucket string
	Date       string
	// Payload is the normalized Paper as JSON.
	Payload    []byte
	Degraded   bool
}

// Projector turns raw records into projections. It holds no mutable state
// and is safe for concurrent use.
type Projector struct {
	tokenizer *tokenizer.Tokenizer
	fields    []string
}

// NewProjector creates a Projector indexing the named fields. Unknown field
// names are rejected.
func NewProjector(tok *tokenizer.Tokenizer, fields []string) (*Projector, error) {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	for _, f := range fields {
		if !KnownField(f) {
			return nil, fmt.Errorf("unknown indexed field %q", f)
		}
	}
	return &Projector{tokenizer: tok, fields: fields}, nil
}

// Project decodes, validates and tokenizes one record. Any returned error
// wraps ErrMalformedRecord and means the record must be skipped.
func (p *Projector) Project(raw []byte) (*Projection, error) {
	doc, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	tokens := make(tokenizer.Set)
	degraded := false
	for _, f := range p.fields {
		text := doc.Field(f)
		if strings.TrimSpace(text) == "" {
			continue
		}
		res := p.tokenizer.Tokenize(text)
		tokens.Union(res.Tokens)
		degraded = degraded || res.Degraded
	}
	tokens.Union(p.tokenizer.Keywords(doc.Keywords))

	categories := cleanCategories(doc.Categories)
	payload, err := NewPaper(doc, categories).Marshal()
	if err != nil {
		return nil, err
	}
	return &Projection{
		DocID:      doc.ID,
		Tokens:     tokens,
		Categories: categories,
		TimeBucket: TimeBucket(doc.Date),
		Date:       doc.Date,
		Payload:    payload,
		Degraded:   degraded,
	}, nil
}

// cleanCategories trims, drops blanks and removes duplicates, keeping first
// occurrence order.
func cleanCategories(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01",
}

// TimeBucket returns the YYYY-MM month of date, or "" when date does not
// parse.
func TimeBucket(date string) string {
	date = strings.TrimSpace(date)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Format("2006-01")
		}
	}
	return ""
}
