// Package record decodes raw document records and projects them into the
// token set, categories and time bucket the index build consumes.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	apperrors "github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/errors"
)

// Document is one decoded record. Optional text fields may be empty.
type Document struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Abstract    string   `json:"abstract"`
	ZhTitle     string   `json:"zh_title"`
	Translation string   `json:"translation"`
	TLDR        string   `json:"tldr"`
	AIComments  string   `json:"ai_comments"`
	Comment     string   `json:"comment"`
	Keywords    Keywords `json:"keywords"`
	Categories  []string `json:"categories"`
	Date        string   `json:"date"`
	Updated     string   `json:"updated"`
	Authors     Authors  `json:"authors"`
	URL         string   `json:"url"`
	PDFLink     string   `json:"pdf_link"`

	Summary  string        `json:"summary"`
	Comments string        `json:"comments"`
	AI       *AIEnrichment `json:"AI"`
}

// AIEnrichment is the nested enrichment object produced by the upstream
// enhancement step. Its values fill any flat field left empty.
type AIEnrichment struct {
	TitleTranslation string   `json:"title_translation"`
	Translation      string   `json:"translation"`
	TLDR             string   `json:"tldr"`
	Comments         string   `json:"comments"`
	Keywords         Keywords `json:"keywords"`
	Motivation       string   `json:"motivation"`
	Method           string   `json:"method"`
	Result           string   `json:"result"`
	Conclusion       string   `json:"conclusion"`
}

// Keywords decodes either a JSON array of strings or a single
// comma-separated string. Blank entries are dropped.
type Keywords []string

func (k *Keywords) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*k = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = splitKeywords(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("keywords must be a string or an array of strings: %w", err)
	}
	out := make(Keywords, 0, len(list))
	for _, kw := range list {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	*k = out
	return nil
}

// Authors decodes either a JSON array of names or a comma-separated string.
type Authors []string

func (a *Authors) UnmarshalJSON(data []byte) error {
	return (*Keywords)(a).UnmarshalJSON(data)
}

func splitKeywords(s string) Keywords {
	var out Keywords
	for _, kw := range strings.Split(s, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// Decode parses raw into a Document and folds the nested enrichment object
// and legacy field names into the flat fields. Absent and null fields decode
// as empty.
func Decode(raw []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedRecord, err)
	}
	if doc.Abstract == "" {
		doc.Abstract = doc.Summary
	}
	if doc.Comment == "" {
		doc.Comment = doc.Comments
	}
	if ai := doc.AI; ai != nil {
		if doc.ZhTitle == "" {
			doc.ZhTitle = ai.TitleTranslation
		}
		if doc.Translation == "" {
			doc.Translation = ai.Translation
		}
		if doc.TLDR == "" {
			doc.TLDR = ai.TLDR
		}
		if doc.AIComments == "" {
			doc.AIComments = ai.Comments
		}
		if len(doc.Keywords) == 0 {
			doc.Keywords = ai.Keywords
		}
	}
	doc.Summary, doc.Comments = "", ""
	return &doc, nil
}

// ValidationError holds per-field validation failure messages. It wraps the
// sentinel that classifies the failure.
type ValidationError struct {
	Fields map[string]string
	Err    error
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	return []error{e.Err, apperrors.ErrMalformedRecord}
}

// Validate checks the document id. Ids end up in line-oriented spill files,
// so whitespace and control characters are rejected.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return &ValidationError{
			Fields: map[string]string{"id": "id is required"},
			Err:    apperrors.ErrMissingID,
		}
	}
	for _, r := range d.ID {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return &ValidationError{
				Fields: map[string]string{"id": fmt.Sprintf("id %q contains whitespace or control characters", d.ID)},
				Err:    apperrors.ErrMalformedID,
			}
		}
	}
	return nil
}

// Field returns the text of a named field, or "" for unknown names.
func (d *Document) Field(name string) string {
	switch name {
	case "title":
		return d.Title
	case "abstract":
		return d.Abstract
	case "zh_title":
		return d.ZhTitle
	case "translation":
		return d.Translation
	case "tldr":
		return d.TLDR
	case "ai_comments":
		return d.AIComments
	case "comment":
		return d.Comment
	default:
		return ""
	}
}

// KnownField reports whether name is an indexable text field.
func KnownField(name string) bool {
	switch name {
	case "title", "abstract", "zh_title", "translation", "tldr", "ai_comments", "comment":
		return true
	}
	return false
}
