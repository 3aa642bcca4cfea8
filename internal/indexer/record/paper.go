package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/errors"
)

const (
	absURLPrefix = "http://arxiv.org/abs/"
	pdfURLPrefix = "http://arxiv.org/pdf/"
)

// Paper is the normalized record written to the monthly database files.
// Enrichment fields are flattened and absent ones are omitted.
type Paper struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Date           string   `json:"date"`
	URL            string   `json:"url"`
	PDFURL         string   `json:"pdf_url"`
	Authors        string   `json:"authors"`
	Abstract       string   `json:"abstract"`
	Comment        string   `json:"comment"`
	Categories     []string `json:"categories"`
	Updated        string   `json:"updated"`
	FirstPublished string   `json:"first_published"`
	ZhTitle        string   `json:"zh_title,omitempty"`
	Translation    string   `json:"translation,omitempty"`
	Keywords       []string `json:"keywords"`
	TLDR           string   `json:"tldr,omitempty"`
	AIComments     string   `json:"ai_comments,omitempty"`
	Motivation     string   `json:"motivation,omitempty"`
	Method         string   `json:"method,omitempty"`
	Results        string   `json:"results,omitempty"`
	Conclusion     string   `json:"conclusion,omitempty"`
}

// NewPaper normalizes a decoded document. Missing links default to the
// arXiv abstract and PDF pages of the id, and a missing update date to the
// publication date.
func NewPaper(d *Document, categories []string) Paper {
	p := Paper{
		ID:             d.ID,
		Title:          strings.TrimSpace(d.Title),
		Date:           d.Date,
		URL:            d.URL,
		PDFURL:         d.PDFLink,
		Authors:        strings.Join(d.Authors, ", "),
		Abstract:       d.Abstract,
		Comment:        d.Comment,
		Categories:     categories,
		Updated:        d.Updated,
		FirstPublished: d.Date,
		ZhTitle:        d.ZhTitle,
		Translation:    d.Translation,
		Keywords:       d.Keywords,
		TLDR:           d.TLDR,
		AIComments:     d.AIComments,
	}
	if p.URL == "" {
		p.URL = absURLPrefix + d.ID
	}
	if p.PDFURL == "" {
		p.PDFURL = pdfURLPrefix + d.ID
	}
	if p.Updated == "" {
		p.Updated = d.Date
	}
	if p.Categories == nil {
		p.Categories = []string{}
	}
	if p.Keywords == nil {
		p.Keywords = []string{}
	}
	if ai := d.AI; ai != nil {
		p.Motivation = ai.Motivation
		p.Method = ai.Method
		p.Results = ai.Result
		p.Conclusion = ai.Conclusion
	}
	return p
}

// Marshal encodes p as compact JSON without HTML escaping.
func (p Paper) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("%w: encoding paper %s: %v", apperrors.ErrMalformedRecord, p.ID, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
