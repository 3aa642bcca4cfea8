package merge

import (
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/config"
)

// ArityThresholds is the minimum posting-list length a token needs to be
// kept, by the number of words it spans.
type ArityThresholds struct {
	Unigram int
	Bigram  int
	Phrase  int
}

// Thresholds holds one set of arity thresholds for the CJK catch-all bucket
// and one for every other bucket.
type Thresholds struct {
	Latin ArityThresholds
	CJK   ArityThresholds
}

// DefaultThresholds returns latin 3/2/2 and cjk 10/6/4.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Latin: ArityThresholds{Unigram: 3, Bigram: 2, Phrase: 2},
		CJK:   ArityThresholds{Unigram: 10, Bigram: 6, Phrase: 4},
	}
}

// ThresholdsFromConfig converts the configured thresholds.
func ThresholdsFromConfig(cfg config.ThresholdConfig) Thresholds {
	return Thresholds{
		Latin: ArityThresholds(cfg.Latin),
		CJK:   ArityThresholds(cfg.CJK),
	}
}

// Min returns the minimum posting-list length for a token of the given
// arity. Values below 1 are treated as 1.
func (t Thresholds) Min(arity int, cjk bool) int {
	set := t.Latin
	if cjk {
		set = t.CJK
	}
	var n int
	switch {
	case arity <= 1:
		n = set.Unigram
	case arity == 2:
		n = set.Bigram
	default:
		n = set.Phrase
	}
	if n < 1 {
		return 1
	}
	return n
}
