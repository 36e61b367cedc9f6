package htmltable

import (
	"strings"

	"github.com/refcal/refcal/internal/textutil"
)

// Column describes one semantic column of a listing. Aliases are matched
// against header text after folding (case, accents, punctuation). Position is
// the fallback cell index used when the table has no header or the header
// text is not recognized; -1 means no fallback.
type Column struct {
	Name     string
	Aliases  []string
	Position int
}

// Mapping resolves semantic column names to cell indexes.
type Mapping map[string]int

// Resolve maps columns onto the table. Header matches win; a column whose
// header is missing falls back to its Position unless that index was already
// claimed by another column's header.
func (t *Table) Resolve(columns []Column) Mapping {
	m := make(Mapping, len(columns))
	claimed := make(map[int]bool)

	if len(t.Headers) > 0 {
		for _, col := range columns {
			if idx := t.headerIndex(col, claimed); idx >= 0 {
				m[col.Name] = idx
				claimed[idx] = true
			}
		}
	}

	for _, col := range columns {
		if _, ok := m[col.Name]; ok {
			continue
		}
		if col.Position >= 0 && !claimed[col.Position] {
			m[col.Name] = col.Position
			claimed[col.Position] = true
		}
	}
	return m
}

func (t *Table) headerIndex(col Column, claimed map[int]bool) int {
	// Exact matches first so "Nom" never lands on "Prénom".
	for _, alias := range col.Aliases {
		for i, h := range t.Headers {
			if claimed[i] {
				continue
			}
			if strings.TrimSpace(h) == alias {
				return i
			}
			if fa := textutil.Fold(alias); fa != "" && textutil.Fold(h) == fa {
				return i
			}
		}
	}
	for _, alias := range col.Aliases {
		fa := textutil.Fold(alias)
		if len(fa) < 3 {
			continue
		}
		for i, h := range t.Headers {
			if !claimed[i] && strings.Contains(textutil.Fold(h), fa) {
				return i
			}
		}
	}
	return -1
}

// Has reports whether the column resolved to a cell index.
func (m Mapping) Has(name string) bool {
	_, ok := m[name]
	return ok
}

// Text returns the text of the named column in row, or "" when unmapped.
func (m Mapping) Text(row Row, name string) string {
	idx, ok := m[name]
	if !ok {
		return ""
	}
	return row.Cell(idx).Text
}

// Link returns the first link of the named column in row, or "".
func (m Mapping) Link(row Row, name string) string {
	idx, ok := m[name]
	if !ok {
		return ""
	}
	return row.Cell(idx).Link
}
