package record

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/errors"
)

func TestDecodeKeywordShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"array", `{"id":"A","keywords":["graph", " ", "model compression "]}`, []string{"graph", "model compression"}},
		{"string", `{"id":"A","keywords":"graph, ,model compression"}`, []string{"graph", "model compression"}},
		{"null", `{"id":"A","keywords":null}`, nil},
		{"absent", `{"id":"A"}`, nil},
		{"nested", `{"id":"A","AI":{"keywords":"pruning,distillation"}}`, []string{"pruning", "distillation"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Decode([]byte(tt.raw))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(doc.Keywords) != len(tt.want) || (len(tt.want) > 0 && !reflect.DeepEqual([]string(doc.Keywords), tt.want)) {
				t.Errorf("Keywords = %q, want %q", doc.Keywords, tt.want)
			}
		})
	}
}

func TestDecodeFoldsEnrichment(t *testing.T) {
	raw := `{"id":"2401.00001","summary":"abs","comments":"10 pages",
		"AI":{"title_translation":"模型压缩","translation":"译文","tldr":"short","comments":"review"}}`
	doc, err := Decode([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Abstract != "abs" || doc.Comment != "10 pages" || doc.ZhTitle != "模型压缩" ||
		doc.Translation != "译文" || doc.TLDR != "short" || doc.AIComments != "review" {
		t.Errorf("decoded = %+v", doc)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, raw := range []string{`{`, `[]`, `{"id":"A","keywords":42}`} {
		if _, err := Decode([]byte(raw)); !errors.Is(err, apperrors.ErrMalformedRecord) {
			t.Errorf("Decode(%s) = %v, want ErrMalformedRecord", raw, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		id   string
		want error
	}{
		{"2401.00001v2", nil},
		{"", apperrors.ErrMissingID},
		{"   ", apperrors.ErrMissingID},
		{"A B", apperrors.ErrMalformedID},
		{"A\tB", apperrors.ErrMalformedID},
	}
	for _, tt := range tests {
		err := (&Document{ID: tt.id}).Validate()
		if tt.want == nil {
			if err != nil {
				t.Errorf("Validate(%q) = %v", tt.id, err)
			}
			continue
		}
		if !errors.Is(err, tt.want) || !errors.Is(err, apperrors.ErrMalformedRecord) {
			t.Errorf("Validate(%q) = %v, want %v", tt.id, err, tt.want)
		}
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Fields["id"] == "" {
			t.Errorf("Validate(%q) did not report the id field", tt.id)
		}
	}
}

func TestTimeBucket(t *testing.T) {
	tests := map[string]string{
		"2024-03-15":           "2024-03",
		"2024-03-15T08:00:00Z": "2024-03",
		"2024-03":              "2024-03",
		"":                     "",
		"March 2024":           "",
	}
	for in, want := range tests {
		if got := TimeBucket(in); got != want {
			t.Errorf("TimeBucket(%q) = %q, want %q", in, got, want)
		}
	}
}

func newProjector(t *testing.T, fields []string) *Projector {
	t.Helper()
	p, err := NewProjector(tokenizer.New(tokenizer.Capabilities{}), fields)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestProject(t *testing.T) {
	p := newProjector(t, nil)
	raw := []byte(`{"id":"A","title":"Robust Model Compression","keywords":["Knowledge Distillation"],
		"categories":[" cs.LG","cs.CV","cs.LG",""],"date":"2024-03-15"}`)
	proj, err := p.Project(raw)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	for _, tok := range []string{"robust", "model", "compression", "robust model", "model compression", "robust model compression", "knowledge distillation"} {
		if !proj.Tokens.Has(tok) {
			t.Errorf("missing token %q in %v", tok, proj.Tokens.Sorted())
		}
	}
	if !reflect.DeepEqual(proj.Categories, []string{"cs.LG", "cs.CV"}) {
		t.Errorf("Categories = %v", proj.Categories)
	}
	if proj.DocID != "A" || proj.TimeBucket != "2024-03" || proj.Degraded {
		t.Errorf("projection = %+v", proj)
	}
	var paper Paper
	if err := json.Unmarshal(proj.Payload, &paper); err != nil {
		t.Fatalf("payload is not a paper: %v", err)
	}
	if !reflect.DeepEqual(paper.Categories, []string{"cs.LG", "cs.CV"}) || paper.Title != "Robust Model Compression" {
		t.Errorf("paper = %+v", paper)
	}
}

func TestNewPaperNormalizes(t *testing.T) {
	raw := `{"id":"2403.01234v2","title":" Sparse <Attention> ","date":"2024-03-04",
		"authors":["Ada Lovelace","Alan Turing"],"summary":"abs","comments":"12 pages",
		"AI":{"title_translation":"稀疏注意力","tldr":"short","keywords":"sparse, attention",
			"motivation":"why","method":"how","result":"what","conclusion":"so"}}`
	doc, err := Decode([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	got := NewPaper(doc, nil)
	want := Paper{
		ID:             "2403.01234v2",
		Title:          "Sparse <Attention>",
		Date:           "2024-03-04",
		URL:            "http://arxiv.org/abs/2403.01234v2",
		PDFURL:         "http://arxiv.org/pdf/2403.01234v2",
		Authors:        "Ada Lovelace, Alan Turing",
		Abstract:       "abs",
		Comment:        "12 pages",
		Categories:     []string{},
		Updated:        "2024-03-04",
		FirstPublished: "2024-03-04",
		ZhTitle:        "稀疏注意力",
		Keywords:       []string{"sparse", "attention"},
		TLDR:           "short",
		Motivation:     "why",
		Method:         "how",
		Results:        "what",
		Conclusion:     "so",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NewPaper =\n%+v\nwant\n%+v", got, want)
	}

	data, err := got.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	for _, frag := range []string{`"title":"Sparse <Attention>"`, `"authors":"Ada Lovelace, Alan Turing"`, `"results":"what"`} {
		if !strings.Contains(string(data), frag) {
			t.Errorf("marshalled paper lacks %s: %s", frag, data)
		}
	}
	if strings.Contains(string(data), "translation") || strings.HasSuffix(string(data), "\n") {
		t.Errorf("unexpected encoding: %q", data)
	}
}

func TestNewPaperKeepsExplicitLinks(t *testing.T) {
	doc, err := Decode([]byte(`{"id":"A","url":"https://example.org/a","pdf_link":"https://example.org/a.pdf","updated":"2024-05-01","date":"2024-04-01","authors":"X, Y"}`))
	if err != nil {
		t.Fatal(err)
	}
	p := NewPaper(doc, []string{"cs.LG"})
	if p.URL != "https://example.org/a" || p.PDFURL != "https://example.org/a.pdf" || p.Updated != "2024-05-01" || p.Authors != "X, Y" {
		t.Errorf("paper = %+v", p)
	}
}

func TestProjectFieldSelection(t *testing.T) {
	p := newProjector(t, []string{"title"})
	proj, err := p.Project([]byte(`{"id":"A","title":"graph","abstract":"network"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !proj.Tokens.Has("graph") || proj.Tokens.Has("network") {
		t.Errorf("tokens = %v", proj.Tokens.Sorted())
	}
}

func TestProjectRejects(t *testing.T) {
	p := newProjector(t, nil)
	tests := []struct {
		raw    string
		reason string
	}{
		{`{"title":"no id"}`, "missing_id"},
		{`{"id":"two words"}`, "malformed_id"},
		{`not json`, "malformed"},
	}
	for _, tt := range tests {
		_, err := p.Project([]byte(tt.raw))
		if got := apperrors.SkipReason(err); got != tt.reason {
			t.Errorf("Project(%s) reason = %q (%v), want %q", tt.raw, got, err, tt.reason)
		}
		if apperrors.IsFatal(err) {
			t.Errorf("Project(%s) error is fatal: %v", tt.raw, err)
		}
	}
}

func TestNewProjectorUnknownField(t *testing.T) {
	if _, err := NewProjector(tokenizer.New(tokenizer.Capabilities{}), []string{"title", "body"}); err == nil {
		t.Error("expected error for unknown field")
	}
}
