package partition

import (
	"sort"
	"testing"
)

func TestFor(t *testing.T) {
	tests := []struct {
		token string
		want  Key
	}{
		{"model", "m"},
		{"model compression", "m"},
		{"Zebra", "z"},
		{"a", "a"},
		{"3d vision", DigitKey},
		{"0day", DigitKey},
		{"模型压缩", CJKKey},
		{"トランスフォーマー", CJKKey},
		{"한국어", CJKKey},
		{"éclair", CJKKey},
		{"αβ", CJKKey},
		{"", CJKKey},
		{" leading space", CJKKey},
		{"\xff", CJKKey},
	}
	for _, tt := range tests {
		if got := For(tt.token); got != tt.want {
			t.Errorf("For(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}

func TestForIsTotalAndDeterministic(t *testing.T) {
	samples := []string{"", "x", "X", "9", "中", "ü", "-", "\t", "zz top", "\u0000"}
	for r := rune(0); r < 0x3000; r += 7 {
		samples = append(samples, string(r)+"tail")
	}
	for _, tok := range samples {
		first := For(tok)
		if !first.Valid() {
			t.Fatalf("For(%q) = %q, not a known key", tok, first)
		}
		for i := 0; i < 3; i++ {
			if again := For(tok); again != first {
				t.Fatalf("For(%q) changed from %q to %q", tok, first, again)
			}
		}
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	if len(keys) != 28 {
		t.Fatalf("len(Keys()) = %d, want 28", len(keys))
	}
	if !sort.SliceIsSorted(keys, func(i, j int) bool { return keys[i] < keys[j] }) {
		t.Errorf("keys not sorted: %v", keys)
	}
	keys[0] = "mutated"
	if Keys()[0] != DigitKey {
		t.Error("Keys() must return a copy")
	}
}

func TestGroup(t *testing.T) {
	groups := Group([]string{"model", "模型", "mask", "3d", "attention"})
	if len(groups["m"]) != 2 || len(groups[CJKKey]) != 1 || len(groups[DigitKey]) != 1 || len(groups["a"]) != 1 {
		t.Errorf("Group = %v", groups)
	}
}
