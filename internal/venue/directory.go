package venue

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/refcal/refcal/internal/htmltable"
	"github.com/refcal/refcal/internal/logger"
)

// Columns of the address listing. The site publishes a school name, a free-text
// address and a map link; some exports carry a numeric id as well.
var Columns = []htmltable.Column{
	{Name: "id", Aliases: []string{"venue_id", "Numéro", "No", "ID", "Code"}, Position: -1},
	{Name: "name", Aliases: []string{"School Name", "École", "Ecole", "Terrain", "Nom", "Name"}, Position: 0},
	{Name: "address", Aliases: []string{"Address", "Adresse"}, Position: 1},
	{Name: "map", Aliases: []string{"Map Link", "Carte", "Google Maps", "Lien"}, Position: 2},
}

// Directory is the venue lookup table. Iteration order is the order in which
// ids were first seen so output stays stable across runs.
type Directory struct {
	byID      map[string]Venue
	order     []string
	threshold float64
}

// NewDirectory builds a directory from venues; a repeated id replaces the
// earlier entry.
func NewDirectory(venues []Venue) *Directory {
	d := &Directory{byID: make(map[string]Venue), threshold: DefaultThreshold}
	for _, v := range venues {
		d.Add(v)
	}
	return d
}

// SetThreshold changes the minimum overlap score of fuzzy matches.
func (d *Directory) SetThreshold(t float64) {
	d.threshold = t
}

// Add stores v under its id and reports whether an earlier venue was replaced.
func (d *Directory) Add(v Venue) bool {
	_, exists := d.byID[v.ID]
	if !exists {
		d.order = append(d.order, v.ID)
	}
	d.byID[v.ID] = v
	return exists
}

// Get returns the venue with exactly this id.
func (d *Directory) Get(id string) (Venue, bool) {
	v, ok := d.byID[id]
	return v, ok
}

// Resolve looks ref up by id, then by fuzzy name match.
func (d *Directory) Resolve(ref string) (Venue, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Venue{}, false
	}
	if v, ok := d.Get(ref); ok {
		return v, true
	}
	if id, ok := d.fuzzyMatch(ref); ok {
		return d.Get(id)
	}
	return Venue{}, false
}

// Venues returns every venue in first-seen id order.
func (d *Directory) Venues() []Venue {
	out := make([]Venue, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byID[id])
	}
	return out
}

// Len returns the number of distinct venues.
func (d *Directory) Len() int {
	return len(d.order)
}

// Parse reads the address listing page. Rows without a venue name or id are
// skipped; addresses that cannot be split are kept raw and counted as degraded.
func Parse(r io.Reader, log *logger.Logger) (*Directory, htmltable.Stats, error) {
	if log == nil {
		log = logger.Default()
	}
	var stats htmltable.Stats

	tbl, err := htmltable.Parse(r)
	if err != nil {
		return nil, stats, errors.Wrap(err, "address listing")
	}
	cols := tbl.Resolve(Columns)

	d := NewDirectory(nil)
	for _, row := range tbl.Rows {
		name := cols.Text(row, "name")
		id := cols.Text(row, "id")
		if id == "" {
			id = name
		}
		if id == "" || row.Empty() {
			stats.Skipped++
			log.Debug("Skipping address row", logger.Fields{"row": row.Index})
			continue
		}

		raw := cols.Text(row, "address")
		v := ParseAddress(raw)
		v.ID = id
		v.Name = name
		v.MapLink = cols.Link(row, "map")
		if v.MapLink == "" {
			if text := cols.Text(row, "map"); strings.HasPrefix(text, "http") {
				v.MapLink = text
			}
		}

		if !v.Structured() {
			stats.Degraded++
			log.Warn("Address not split, keeping raw text", logger.Fields{
				"row":         row.Index,
				"venue_id":    id,
				"raw_address": raw,
			})
		}
		if d.Add(v) {
			stats.Duplicates++
			log.Warn("Duplicate venue id, keeping last", logger.Fields{"row": row.Index, "venue_id": id})
		}
		stats.Parsed++
	}

	log.Info("Parsed address listing", logger.Fields{
		"venues":   d.Len(),
		"skipped":  stats.Skipped,
		"degraded": stats.Degraded,
	})
	return d, stats, nil
}
