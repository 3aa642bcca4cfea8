// Package catalog keeps the per-build browse structures alongside the search
// index: the category index and the month-partitioned record database with
// its index.json listing.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/doctable"
	apperrors "github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/errors"
)

const (
	CategoryIndexFile = "category_index.json"
	ListingFile       = "index.json"
	monthFilePrefix   = "database-"
	monthFileExt      = ".json"
)

type entry struct {
	id      string
	date    string
	month   string
	payload json.RawMessage
}

// Catalog accumulates categories and record payloads during the partition
// phase. It is owned by the build coordinator and not safe for concurrent
// use.
type Catalog struct {
	docs       *doctable.Table
	categories map[string]*roaring.Bitmap
	entries    map[uint32]*entry
}

func New(docs *doctable.Table) *Catalog {
	return &Catalog{
		docs:       docs,
		categories: make(map[string]*roaring.Bitmap),
		entries:    make(map[uint32]*entry),
	}
}

// Add records one document. Categories of repeated ids accumulate. Of
// several payloads for one id the one with the latest date wins, ties broken
// by payload bytes so the result does not depend on arrival order.
func (c *Catalog) Add(ord uint32, id string, categories []string, date, month string, payload []byte) {
	for _, cat := range categories {
		bm, ok := c.categories[cat]
		if !ok {
			bm = roaring.New()
			c.categories[cat] = bm
		}
		bm.Add(ord)
	}
	e := &entry{
		id:      id,
		date:    date,
		month:   month,
		payload: json.RawMessage(bytes.TrimSpace(payload)),
	}
	if old, ok := c.entries[ord]; ok {
		if old.date > e.date || (old.date == e.date && bytes.Compare(old.payload, e.payload) >= 0) {
			return
		}
	}
	c.entries[ord] = e
}

// Documents is the number of distinct documents added.
func (c *Catalog) Documents() int {
	return len(c.entries)
}

// Categories returns each category with its sorted document ids.
func (c *Catalog) Categories() (map[string][]string, error) {
	out := make(map[string][]string, len(c.categories))
	for cat, bm := range c.categories {
		ids := make([]string, 0, bm.GetCardinality())
		it := bm.Iterator()
		for it.HasNext() {
			ord := it.Next()
			id, ok := c.docs.ID(ord)
			if !ok {
				return nil, fmt.Errorf("category %q references unknown ordinal %d", cat, ord)
			}
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out[cat] = ids
	}
	return out, nil
}

// Months groups payloads by month, each month sorted by date descending and
// then id ascending. Records without a month are left out.
func (c *Catalog) Months() map[string][]json.RawMessage {
	grouped := make(map[string][]*entry)
	for _, e := range c.entries {
		if e.month == "" {
			continue
		}
		grouped[e.month] = append(grouped[e.month], e)
	}
	out := make(map[string][]json.RawMessage, len(grouped))
	for month, list := range grouped {
		sort.Slice(list, func(i, j int) bool {
			if list[i].date != list[j].date {
				return list[i].date > list[j].date
			}
			return list[i].id < list[j].id
		})
		payloads := make([]json.RawMessage, len(list))
		for i, e := range list {
			payloads[i] = e.payload
		}
		out[month] = payloads
	}
	return out
}

// Listing is the content of index.json.
type Listing struct {
	AvailableMonths []string `json:"availableMonths"`
	TotalPaperCount int      `json:"totalPaperCount"`
	LastUpdated     string   `json:"lastUpdated"`
}

// Summary reports what Write produced.
type Summary struct {
	Categories int
	Months     []string
	Files      []string
}

// Write emits category_index.json, one database-YYYY-MM.json per month and
// index.json into dir.
func (c *Catalog) Write(dir string, now time.Time) (Summary, error) {
	var sum Summary
	cats, err := c.Categories()
	if err != nil {
		return sum, apperrors.NewBucket(apperrors.ErrOutputWrite, apperrors.StageCatalog, "", filepath.Join(dir, CategoryIndexFile), err)
	}
	if err := writeJSON(filepath.Join(dir, CategoryIndexFile), cats, false); err != nil {
		return sum, err
	}
	sum.Categories = len(cats)
	sum.Files = append(sum.Files, CategoryIndexFile)

	months := c.Months()
	for month, payloads := range months {
		name := MonthFile(month)
		if err := writeJSON(filepath.Join(dir, name), payloads, true); err != nil {
			return sum, err
		}
		sum.Months = append(sum.Months, month)
		sum.Files = append(sum.Files, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(sum.Months)))

	listing := Listing{
		AvailableMonths: sum.Months,
		TotalPaperCount: c.Documents(),
		LastUpdated:     now.Format("2006-01-02"),
	}
	if listing.AvailableMonths == nil {
		listing.AvailableMonths = []string{}
	}
	if err := writeJSON(filepath.Join(dir, ListingFile), listing, true); err != nil {
		return sum, err
	}
	sum.Files = append(sum.Files, ListingFile)
	sort.Strings(sum.Files)
	return sum, nil
}

// MonthFile returns the database file name of month.
func MonthFile(month string) string {
	return monthFilePrefix + month + monthFileExt
}

// RemoveOutputs deletes the catalog files a previous build left in dir.
func RemoveOutputs(dir string) (int, error) {
	names := []string{CategoryIndexFile, ListingFile}
	months, _ := filepath.Glob(filepath.Join(dir, monthFilePrefix+"*"+monthFileExt))
	for _, m := range months {
		names = append(names, filepath.Base(m))
	}
	removed := 0
	for _, name := range names {
		err := os.Remove(filepath.Join(dir, name))
		if err == nil {
			removed++
			continue
		}
		if !os.IsNotExist(err) {
			return removed, apperrors.NewBucket(apperrors.ErrOutputWrite, apperrors.StagePrepare, "", filepath.Join(dir, name), err)
		}
	}
	return removed, nil
}

func writeJSON(path string, v any, indent bool) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return apperrors.NewBucket(apperrors.ErrOutputWrite, apperrors.StageCatalog, "", path, err)
	}
	data := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewBucket(apperrors.ErrOutputWrite, apperrors.StageCatalog, "", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return apperrors.NewBucket(apperrors.ErrOutputWrite, apperrors.StageCatalog, "", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.NewBucket(apperrors.ErrOutputWrite, apperrors.StageCatalog, "", path, err)
	}
	return nil
}
