// Package doctable interns document ids into dense uint32 ordinals so that
// posting sets can be held as compressed bitmaps. A Table is written only by
// the build coordinator during the partition phase and is read-only (and
// therefore safe for concurrent readers) once frozen.
package doctable

import (
	"fmt"
)

type Table struct {
	ords   map[string]uint32
	ids    []string
	frozen bool
}

func New() *Table {
	return &Table{ords: make(map[string]uint32)}
}

// Intern returns the ordinal of id, assigning the next one on first sight.
func (t *Table) Intern(id string) (uint32, error) {
	if ord, ok := t.ords[id]; ok {
		return ord, nil
	}
	if t.frozen {
		return 0, fmt.Errorf("doctable is frozen, cannot intern %q", id)
	}
	ord := uint32(len(t.ids))
	t.ords[id] = ord
	t.ids = append(t.ids, id)
	return ord, nil
}

// Freeze forbids further interning.
func (t *Table) Freeze() {
	t.frozen = true
}

func (t *Table) Lookup(id string) (uint32, bool) {
	ord, ok := t.ords[id]
	return ord, ok
}

func (t *Table) ID(ord uint32) (string, bool) {
	if int(ord) >= len(t.ids) {
		return "", false
	}
	return t.ids[ord], true
}

func (t *Table) Len() int {
	return len(t.ids)
}
