package tokenizer

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	"github.com/huichen/sego"
	"github.com/kljensen/snowball"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/config"
)

// Lemmatizer reduces an inflected Latin word to its base form.
type Lemmatizer interface {
	Lemma(word string) (string, error)
}

// Segmenter splits a run of CJK text into words in search mode: besides the
// best segmentation it also yields the overlapping sub-words of compounds.
type Segmenter interface {
	Cut(text string) ([]string, error)
}

// Capabilities is the optional language tooling available to a Tokenizer.
// It is built once at startup and passed in explicitly; a nil member means
// the capability is absent.
type Capabilities struct {
	Lemmatizer Lemmatizer
	Segmenter  Segmenter
}

// Lemmatization reports whether Latin words are reduced to base forms.
func (c Capabilities) Lemmatization() bool {
	return c.Lemmatizer != nil
}

// CJKSegmentation reports whether CJK free text is segmented into words.
// Without it CJK text is searchable only through keyword phrases.
func (c Capabilities) CJKSegmentation() bool {
	return c.Segmenter != nil
}

// LoadCapabilities constructs the tooling named by cfg. "dictionary"
// reduces words to dictionary base forms; "stemmer" strips suffixes and
// may yield non-words.
func LoadCapabilities(cfg config.TokenizerConfig) (Capabilities, error) {
	var caps Capabilities
	switch cfg.Lemmatizer {
	case config.LemmatizerDictionary:
		lem, err := NewDictionaryLemmatizer()
		if err != nil {
			return caps, fmt.Errorf("loading lemma dictionary: %w", err)
		}
		caps.Lemmatizer = lem
	case config.LemmatizerStemmer:
		caps.Lemmatizer = SnowballStemmer{}
	case "", config.LemmatizerNone:
	default:
		return caps, fmt.Errorf("unknown lemmatizer %q", cfg.Lemmatizer)
	}
	if len(cfg.SegmenterDicts) > 0 {
		seg, err := NewSegoSegmenter(cfg.SegmenterDicts)
		if err != nil {
			return caps, fmt.Errorf("loading cjk segmenter: %w", err)
		}
		caps.Segmenter = seg
	}
	slog.Default().With("component", "tokenizer").Info("tokenizer capabilities loaded",
		"lemmatization", caps.Lemmatization(),
		"cjk_segmentation", caps.CJKSegmentation(),
	)
	return caps, nil
}

// DictionaryLemmatizer maps inflected English words to their dictionary
// lemma ("studies" to "study"). Unknown words are returned unchanged.
type DictionaryLemmatizer struct {
	lem *golem.Lemmatizer
}

func NewDictionaryLemmatizer() (*DictionaryLemmatizer, error) {
	lem, err := golem.New(en.New())
	if err != nil {
		return nil, err
	}
	return &DictionaryLemmatizer{lem: lem}, nil
}

func (d *DictionaryLemmatizer) Lemma(word string) (string, error) {
	return d.lem.Lemma(word), nil
}

// SnowballStemmer reduces words with the Snowball English stemmer. Stems
// are not always words ("compression" becomes "compress").
type SnowballStemmer struct{}

func (SnowballStemmer) Lemma(word string) (string, error) {
	return snowball.Stem(word, "english", true)
}

// SegoSegmenter wraps a dictionary-based sego segmenter.
type SegoSegmenter struct {
	seg sego.Segmenter
}

// NewSegoSegmenter loads the given dictionary files. Missing files are
// reported up front since sego itself does not return load errors.
func NewSegoSegmenter(dicts []string) (*SegoSegmenter, error) {
	paths := make([]string, 0, len(dicts))
	for _, d := range dicts {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if _, err := os.Stat(d); err != nil {
			return nil, fmt.Errorf("segmenter dictionary: %w", err)
		}
		paths = append(paths, d)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no segmenter dictionaries given")
	}
	s := &SegoSegmenter{}
	s.seg.LoadDictionary(strings.Join(paths, ","))
	return s, nil
}

func (s *SegoSegmenter) Cut(text string) (out []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sego panic: %v", r)
		}
	}()
	segments := s.seg.Segment([]byte(text))
	return sego.SegmentsToSlice(segments, true), nil
}

// FromConfig loads the configured capabilities and builds a Tokenizer with
// the configured filtering options.
func FromConfig(cfg config.TokenizerConfig) (*Tokenizer, error) {
	caps, err := LoadCapabilities(cfg)
	if err != nil {
		return nil, err
	}
	return New(caps,
		WithStopWords(cfg.ExtraStopWords...),
		WithMinLength(cfg.MinTokenLength),
		WithMaxArity(cfg.MaxNGram),
	), nil
}
