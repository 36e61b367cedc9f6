// Package referee parses the association's referee roster into a lookup
// table from referee id to display name.
package referee

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/refcal/refcal/internal/htmltable"
	"github.com/refcal/refcal/internal/logger"
)

// Unknown is the display name used when a referee has no name or is not listed.
const Unknown = "Unknown"

// Referee is one roster entry.
type Referee struct {
	ID          string
	DisplayName string
}

// Columns of the roster. The site lists Numéro, Nom, Prénom, Ville,
// two phone numbers and an email; only the id and name are kept.
var Columns = []htmltable.Column{
	{Name: "id", Aliases: []string{"referee_id", "Numéro", "No", "#"}, Position: 0},
	{Name: "last", Aliases: []string{"Nom", "Last name"}, Position: 1},
	{Name: "first", Aliases: []string{"Prénom", "First name"}, Position: 2},
	{Name: "display", Aliases: []string{"display_name", "Nom complet", "Arbitre"}, Position: -1},
}

// Directory maps referee ids to referees, in first-seen order.
type Directory struct {
	byID  map[string]Referee
	order []string
}

// NewDirectory builds a directory; a repeated id replaces the earlier entry.
func NewDirectory(refs []Referee) *Directory {
	d := &Directory{byID: make(map[string]Referee)}
	for _, r := range refs {
		d.Add(r)
	}
	return d
}

// Add stores r and reports whether an earlier entry was replaced.
func (d *Directory) Add(r Referee) bool {
	_, exists := d.byID[r.ID]
	if !exists {
		d.order = append(d.order, r.ID)
	}
	d.byID[r.ID] = r
	return exists
}

// Get returns the referee with this id.
func (d *Directory) Get(id string) (Referee, bool) {
	r, ok := d.byID[strings.TrimSpace(id)]
	return r, ok
}

// Name returns the display name for id, or Unknown.
func (d *Directory) Name(id string) string {
	if r, ok := d.Get(id); ok && r.DisplayName != "" {
		return r.DisplayName
	}
	return Unknown
}

// Referees returns every referee in first-seen order.
func (d *Directory) Referees() []Referee {
	out := make([]Referee, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byID[id])
	}
	return out
}

// Len returns the number of distinct referees.
func (d *Directory) Len() int {
	return len(d.order)
}

// DisplayName joins last and first name the way the roster prints them.
func DisplayName(last, first string) string {
	name := strings.TrimSpace(strings.TrimSpace(last) + " " + strings.TrimSpace(first))
	if name == "" {
		return Unknown
	}
	return name
}

// Parse reads the referee roster page. Rows without an id are skipped; rows
// without a name keep the Unknown placeholder and count as degraded.
func Parse(r io.Reader, log *logger.Logger) (*Directory, htmltable.Stats, error) {
	if log == nil {
		log = logger.Default()
	}
	var stats htmltable.Stats

	tbl, err := htmltable.Parse(r)
	if err != nil {
		return nil, stats, errors.Wrap(err, "referee listing")
	}
	cols := tbl.Resolve(Columns)

	d := NewDirectory(nil)
	for _, row := range tbl.Rows {
		id := cols.Text(row, "id")
		if id == "" {
			stats.Skipped++
			log.Debug("Skipping referee row", logger.Fields{"row": row.Index})
			continue
		}

		name := cols.Text(row, "display")
		if name == "" {
			name = DisplayName(cols.Text(row, "last"), cols.Text(row, "first"))
		}
		if name == Unknown {
			stats.Degraded++
			log.Warn("Referee has no name", logger.Fields{"row": row.Index, "referee_id": id})
		}

		if d.Add(Referee{ID: id, DisplayName: name}) {
			stats.Duplicates++
			log.Warn("Duplicate referee id, keeping last", logger.Fields{"row": row.Index, "referee_id": id})
		}
		stats.Parsed++
	}

	log.Info("Parsed referee listing", logger.Fields{
		"referees": d.Len(),
		"skipped":  stats.Skipped,
		"degraded": stats.Degraded,
	})
	return d, stats, nil
}
