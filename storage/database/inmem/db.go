// Package inmemdb implements the repositories on top of in-memory tables.
// It backs the TEST environment and local runs without Postgres.
package inmemdb

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/bmi"
	"github.com/genzugar/backend/core/ebook"
	"github.com/genzugar/backend/core/glossary"
	"github.com/genzugar/backend/core/module"
	"github.com/genzugar/backend/core/user"
	"github.com/genzugar/backend/core/video"
)

type (
	// DB holds every table behind a single lock, so that cascades and joins see a consistent state.
	DB struct {
		sync.RWMutex
		seq int64

		users         *table[user.User]
		bmiHistory    *table[bmi.Record]
		ebooks        *table[ebook.Ebook]
		ebookProgress *table[ebook.Progress]
		videos        *table[video.Video]
		videoProgress *table[video.Progress]
		glossary      *table[glossary.Term]
		modules       *table[module.Module]
		contents      *table[module.ContentItem]
		progress      *table[module.Progress]
	}

	row[T any] struct {
		seq int64 // insertion order
		val T
	}

	table[T any] struct {
		rows map[string]*row[T]
	}

	// comparators of the fields a table may be ordered by
	comparators[T any] map[string]func(a, b T) int
)

func Open() *DB {
	db := new(DB)
	db.Truncate()
	return db
}

// Truncate empties every table.
func (db *DB) Truncate() {
	db.Lock()
	defer db.Unlock()

	db.seq = 0
	db.users = newTable[user.User]()
	db.bmiHistory = newTable[bmi.Record]()
	db.ebooks = newTable[ebook.Ebook]()
	db.ebookProgress = newTable[ebook.Progress]()
	db.videos = newTable[video.Video]()
	db.videoProgress = newTable[video.Progress]()
	db.glossary = newTable[glossary.Term]()
	db.modules = newTable[module.Module]()
	db.contents = newTable[module.ContentItem]()
	db.progress = newTable[module.Progress]()
}

func newID() string { return uuid.New().String() }

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]*row[T])}
}

func (t *table[T]) insert(db *DB, id string, val T) {
	db.seq++
	t.rows[id] = &row[T]{seq: db.seq, val: val}
}

func (t *table[T]) get(id string) (T, bool) {
	r, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, false
	}
	return r.val, true
}

// set replaces an existing row, keeping its insertion order.
func (t *table[T]) set(id string, val T) bool {
	r, ok := t.rows[id]
	if !ok {
		return false
	}
	r.val = val
	return true
}

func (t *table[T]) delete(id string) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	return true
}

// deleteWhere deletes the rows matching match.
func (t *table[T]) deleteWhere(match func(T) bool) {
	for id, r := range t.rows {
		if match(r.val) {
			delete(t.rows, id)
		}
	}
}

// list returns the rows matching keep (every row if keep is nil), oldest first.
func (t *table[T]) list(keep func(T) bool) []T {
	rows := make([]*row[T], 0, len(t.rows))
	for _, r := range t.rows {
		if keep == nil || keep(r.val) {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	vals := make([]T, 0, len(rows))
	for _, r := range rows {
		vals = append(vals, r.val)
	}
	return vals
}

func (t *table[T]) count(keep func(T) bool) int {
	if keep == nil {
		return len(t.rows)
	}
	var n int
	for _, r := range t.rows {
		if keep(r.val) {
			n++
		}
	}
	return n
}

// sortBy orders vals by the given orderings, falling back to defaults. Unknown fields are ignored.
// vals must be oldest first: ties keep that order.
func sortBy[T any](vals []T, cmps comparators[T], ordering []core.DBOrdering, defaults ...core.DBOrdering) {
	ordering = core.CleanOrdering(ordering, cmps.fields()...)
	if len(ordering) == 0 {
		ordering = defaults
	}
	if len(ordering) == 0 {
		return
	}
	sort.SliceStable(vals, func(i, j int) bool {
		for _, ord := range ordering {
			c := cmps[ord.Field](vals[i], vals[j])
			if !ord.Ascending {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
}

func (cmps comparators[T]) fields() []string {
	fields := make([]string, 0, len(cmps))
	for f := range cmps {
		fields = append(fields, f)
	}
	return fields
}

// contains reports whether any of fields contains q, ignoring case. q must be lower-cased.
func contains(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func reverse[T any](s []T) []T {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
	return s
}

func limit[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
