// Package tokenizer provides text tokenisation for the search index builder.
// It normalises and lower-cases input, segments it with UAX#29 word
// boundaries (handing CJK runs to an optional dictionary segmenter),
// lemmatises Latin words when a lemmatizer is configured, removes stop-words,
// and expands the cleaned word sequence into unigrams, bigrams and trigrams.
package tokenizer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultMinLength = 2
	DefaultMaxArity  = 3
)

// Set is a deduplicated collection of tokens.
type Set map[string]struct{}

func (s Set) Add(token string) {
	s[token] = struct{}{}
}

func (s Set) Has(token string) bool {
	_, ok := s[token]
	return ok
}

// Union adds every token of other to s.
func (s Set) Union(other Set) {
	for tok := range other {
		s[tok] = struct{}{}
	}
}

// Sorted returns the tokens in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for tok := range s {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Result is the outcome of tokenising one text. Degraded is set when the
// optional language tooling failed and the regex fallback was used.
type Result struct {
	Tokens   Set
	Degraded bool
}

// Tokenizer turns free text and keyword phrases into token sets. It holds
// no mutable state after construction and is safe for concurrent use.
type Tokenizer struct {
	caps      Capabilities
	stopWords map[string]struct{}
	minLength int
	maxArity  int
}

type Option func(*Tokenizer)

// WithStopWords adds words to the built-in stop-word set.
func WithStopWords(extra ...string) Option {
	return func(t *Tokenizer) {
		for _, w := range extra {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				t.stopWords[w] = struct{}{}
			}
		}
	}
}

// WithMinLength sets the minimum token length in runes.
func WithMinLength(n int) Option {
	return func(t *Tokenizer) {
		if n > 0 {
			t.minLength = n
		}
	}
}

// WithMaxArity sets the longest n-gram generated from free text.
func WithMaxArity(n int) Option {
	return func(t *Tokenizer) {
		if n > 0 {
			t.maxArity = n
		}
	}
}

func New(caps Capabilities, opts ...Option) *Tokenizer {
	t := &Tokenizer{
		caps:      caps,
		stopWords: make(map[string]struct{}, len(defaultStopWords)),
		minLength: DefaultMinLength,
		maxArity:  DefaultMaxArity,
	}
	for w := range defaultStopWords {
		t.stopWords[w] = struct{}{}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Capabilities returns the language tooling this tokenizer was built with.
func (t *Tokenizer) Capabilities() Capabilities {
	return t.caps
}

// Tokenize returns every unigram, bigram and trigram of the cleaned word
// sequence of text.
func (t *Tokenizer) Tokenize(text string) Result {
	res := Result{Tokens: make(Set)}
	if strings.TrimSpace(text) == "" {
		return res
	}
	normalized := normalize(text)
	seq, err := t.words(normalized)
	if err != nil {
		seq = t.fallbackWords(normalized)
		res.Degraded = true
	}
	for _, gram := range NGrams(t.clean(seq), t.maxArity) {
		res.Tokens.Add(gram)
	}
	return res
}

// Words returns the cleaned, order-preserving word sequence of text, before
// n-gram expansion.
func (t *Tokenizer) Words(text string) []string {
	normalized := normalize(text)
	seq, err := t.words(normalized)
	if err != nil {
		seq = t.fallbackWords(normalized)
	}
	return t.clean(seq)
}

// Keywords tokenises pre-extracted keyword phrases. Each phrase is lower-cased
// and whitespace-collapsed, checked against the stop-words as a whole, and
// kept verbatim without n-gram expansion.
func (t *Tokenizer) Keywords(phrases []string) Set {
	out := make(Set, len(phrases))
	for _, phrase := range phrases {
		p := strings.ToLower(norm.NFKC.String(phrase))
		p = strings.Join(strings.Fields(p), " ")
		if p == "" {
			continue
		}
		if _, stop := t.stopWords[p]; stop {
			continue
		}
		out.Add(p)
	}
	return out
}

// words segments normalised text. CJK runs go to the segmenter; without one
// they are left out of free-text tokens.
func (t *Tokenizer) words(text string) (seq []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tokenizer panic: %v", r)
		}
	}()
	var cjk strings.Builder
	flush := func() error {
		if cjk.Len() == 0 {
			return nil
		}
		run := cjk.String()
		cjk.Reset()
		if t.caps.Segmenter == nil {
			return nil
		}
		parts, err := t.caps.Segmenter.Cut(run)
		if err != nil {
			return fmt.Errorf("segmenting %q: %w", run, err)
		}
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				seq = append(seq, p)
			}
		}
		return nil
	}

	segs := words.FromString(text)
	for segs.Next() {
		seg := segs.Value()
		if isCJK(seg) {
			cjk.WriteString(seg)
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}
		parts := strings.FieldsFunc(seg, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range parts {
			if _, stop := t.stopWords[w]; stop {
				continue
			}
			if t.caps.Lemmatizer != nil && isLatinWord(w) {
				lemma, err := t.caps.Lemmatizer.Lemma(w)
				if err != nil {
					return nil, fmt.Errorf("lemmatizing %q: %w", w, err)
				}
				if lemma != "" {
					w = lemma
				}
			}
			seq = append(seq, w)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return seq, nil
}

// clean drops stop-words, purely numeric tokens and tokens shorter than the
// minimum length, preserving order.
func (t *Tokenizer) clean(seq []string) []string {
	out := make([]string, 0, len(seq))
	for _, w := range seq {
		if utf8.RuneCountInString(w) < t.minLength {
			continue
		}
		if _, stop := t.stopWords[w]; stop {
			continue
		}
		if isNumeric(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// NGrams returns all contiguous n-grams of seq for n in 1..maxArity, words
// joined by a single space. Repeated grams are returned as often as they
// occur.
func NGrams(seq []string, maxArity int) []string {
	if maxArity < 1 {
		maxArity = 1
	}
	total := 0
	for n := 1; n <= maxArity && n <= len(seq); n++ {
		total += len(seq) - n + 1
	}
	out := make([]string, 0, total)
	for n := 1; n <= maxArity; n++ {
		for i := 0; i+n <= len(seq); i++ {
			out = append(out, strings.Join(seq[i:i+n], " "))
		}
	}
	return out
}

// Arity is the number of space-separated words in token.
func Arity(token string) int {
	if token == "" {
		return 0
	}
	return strings.Count(token, " ") + 1
}

var hyphens = strings.NewReplacer("-", " ", "_", " ", "‐", " ")

func normalize(text string) string {
	return hyphens.Replace(strings.ToLower(norm.NFKC.String(text)))
}

var fallbackPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// fallbackWords splits text on anything but letters and digits, without
// lemmatization or segmentation. CJK runs stay whole when a segmenter is
// configured and are dropped otherwise, as in words.
func (t *Tokenizer) fallbackWords(text string) []string {
	matches := fallbackPattern.FindAllString(text, -1)
	if t.caps.CJKSegmentation() {
		return matches
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.FieldsFunc(m, isCJKRune)...)
	}
	return out
}

func isCJKRune(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) || r == 'ー'
}

func isCJK(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isCJKRune(r) {
			return false
		}
	}
	return true
}

func isLatinWord(s string) bool {
	for _, r := range s {
		if !unicode.Is(unicode.Latin, r) {
			return false
		}
	}
	return s != ""
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
