// Package glossary manages the dictionary of diabetes terms shown to learners.
package glossary

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/volatiletech/null/v8"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/genzugar/backend/core"
)

// lang is the language terms are written in.
var lang = language.Indonesian

type Term struct {
	ID         string      `json:"id" db:"id"`
	Term       string      `json:"term" db:"term"`
	Definition string      `json:"definition" db:"definition"`
	Category   null.String `json:"category" db:"category"`
	Example    null.String `json:"example" db:"example"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

// NewTerm is the payload of both create and update.
type NewTerm struct {
	Term       string `json:"term" validate:"required,notblank,max=255"`
	Definition string `json:"definition" validate:"required,notblank"`
	Category   string `json:"category" validate:"max=100"`
	Example    string `json:"example"`
}

func (nt *NewTerm) Validate() error {
	nt.Term = core.CleanString(nt.Term)
	nt.Definition = core.CleanString(nt.Definition)
	nt.Category = core.CleanString(nt.Category)
	nt.Example = core.CleanString(nt.Example)
	return core.Validate.Struct(nt)
}

func (nt NewTerm) apply(t *Term) {
	t.Term = nt.Term
	t.Definition = nt.Definition
	t.Category = null.NewString(nt.Category, nt.Category != "")
	t.Example = null.NewString(nt.Example, nt.Example != "")
}

// Group holds the terms starting with Letter.
type Group struct {
	Letter string `json:"letter"`
	Terms  []Term `json:"terms"`
}

// Search returns the terms whose term or definition contains q, ignoring case. A blank q matches everything.
func Search(terms []Term, q string) []Term {
	q = strings.TrimSpace(q)
	if q == "" {
		return terms
	}
	lower := cases.Lower(lang)
	q = lower.String(q)

	found := make([]Term, 0, len(terms))
	for _, t := range terms {
		if strings.Contains(lower.String(t.Term), q) || strings.Contains(lower.String(t.Definition), q) {
			found = append(found, t)
		}
	}
	return found
}

// GroupByLetter groups terms by the upper-cased first letter of Term. Terms keep their order within a group;
// groups are sorted by letter using the collation rules of lang.
func GroupByLetter(terms []Term) []Group {
	upper := cases.Upper(lang)
	index := make(map[string]int)
	groups := make([]Group, 0)

	for _, t := range terms {
		r, size := utf8.DecodeRuneInString(t.Term)
		if size == 0 {
			continue
		}
		letter := upper.String(string(r))
		i, ok := index[letter]
		if !ok {
			i = len(groups)
			index[letter] = i
			groups = append(groups, Group{Letter: letter})
		}
		groups[i].Terms = append(groups[i].Terms, t)
	}

	col := collate.New(lang)
	sort.SliceStable(groups, func(i, j int) bool { return col.CompareString(groups[i].Letter, groups[j].Letter) < 0 })
	return groups
}
