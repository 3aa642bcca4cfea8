// Package partition assigns tokens to partition buckets. A bucket is keyed by
// the token's leading character: one bucket per ASCII letter, one for digits,
// and a catch-all for every other script (CJK included). Buckets shard both
// the spill storage and the final index chunks.
package partition

import (
	"unicode/utf8"
)

// Key identifies a partition bucket.
type Key string

const (
	DigitKey Key = "0"
	CJKKey   Key = "zh"
)

var allKeys = func() []Key {
	keys := []Key{DigitKey}
	for c := 'a'; c <= 'z'; c++ {
		keys = append(keys, Key(string(c)))
	}
	return append(keys, CJKKey)
}()

// Keys returns every bucket key in sorted order.
func Keys() []Key {
	out := make([]Key, len(allKeys))
	copy(out, allKeys)
	return out
}

// For returns the bucket of token. It is total: the empty string and any
// leading rune that is not an ASCII letter or digit map to CJKKey.
func For(token string) Key {
	r, _ := utf8.DecodeRuneInString(token)
	switch {
	case r >= 'a' && r <= 'z':
		return Key(string(r))
	case r >= 'A' && r <= 'Z':
		return Key(string(r + 'a' - 'A'))
	case r >= '0' && r <= '9':
		return DigitKey
	default:
		return CJKKey
	}
}

// IsCJK reports whether k is the catch-all bucket.
func (k Key) IsCJK() bool {
	return k == CJKKey
}

// Valid reports whether k is one of the fixed bucket keys.
func (k Key) Valid() bool {
	for _, known := range allKeys {
		if k == known {
			return true
		}
	}
	return false
}

// Group splits tokens by bucket.
func Group(tokens []string) map[Key][]string {
	out := make(map[Key][]string)
	for _, tok := range tokens {
		k := For(tok)
		out[k] = append(out[k], tok)
	}
	return out
}
