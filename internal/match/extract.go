package match

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/refcal/refcal/internal/htmltable"
	"github.com/refcal/refcal/internal/logger"
	"github.com/refcal/refcal/internal/referee"
	"github.com/refcal/refcal/internal/venue"
)

// Columns of the "Mes assignations" listing. Positions follow the site's
// layout, where a hidden cell sits between Calibre and Jour.
var Columns = []htmltable.Column{
	{Name: "id", Aliases: []string{"match_id", "#", "No", "Numéro", "No match"}, Position: 0},
	{Name: "league", Aliases: []string{"Ligue", "League"}, Position: 1},
	{Name: "level", Aliases: []string{"Calibre", "Niveau", "Level"}, Position: 2},
	{Name: "date", Aliases: []string{"Date"}, Position: 5},
	{Name: "time", Aliases: []string{"Heure", "start_time", "Time"}, Position: 6},
	{Name: "teams", Aliases: []string{"Équipes", "Equipes", "Teams"}, Position: 7},
	{Name: "home", Aliases: []string{"home_team", "Domicile", "Receveur"}, Position: -1},
	{Name: "away", Aliases: []string{"away_team", "Visiteur", "Visiteurs"}, Position: -1},
	{Name: "venue", Aliases: []string{"Terrain", "venue_id", "Lieu", "Gymnase"}, Position: 8},
	{Name: "referee", Aliases: []string{"Autre arbitre", "referee_id", "Arbitre"}, Position: 9},
	{Name: "role", Aliases: []string{"role", "Rôle", "Fonction"}, Position: -1},
}

// minCells is the smallest row that can carry a match: pagination and
// empty-state rows are a single spanning cell.
const minCells = 2

// Extractor turns the match listing into records, resolving venue and
// referee references against the other two listings.
type Extractor struct {
	Venues   *venue.Directory
	Referees *referee.Directory
	Log      *logger.Logger
}

// Extract parses the match listing page. Each row yields at most one record.
// Rows without a usable date or time are dropped; unresolved venues and
// referees are kept and counted as degraded.
func (x *Extractor) Extract(r io.Reader) ([]Record, htmltable.Stats, error) {
	log := x.Log
	if log == nil {
		log = logger.Default()
	}
	var stats htmltable.Stats

	tbl, err := htmltable.Parse(r)
	if err != nil {
		return nil, stats, errors.Wrap(err, "match listing")
	}
	cols := tbl.Resolve(Columns)

	var records []Record
	for _, row := range tbl.Rows {
		if len(row.Cells) < minCells || row.Empty() || isRepeatedHeader(tbl, row) {
			stats.Skipped++
			log.Debug("Skipping non-match row", logger.Fields{"row": row.Index, "cells": len(row.Cells)})
			continue
		}

		id := cols.Text(row, "id")
		fields := logger.Fields{"row": row.Index, "match_id": id}

		if keep, reason := assignmentState(row); !keep {
			stats.Filtered++
			fields["reason"] = reason
			log.Debug("Filtering match row", fields)
			continue
		}

		date, err := ParseDate(cols.Text(row, "date"))
		if err != nil {
			stats.Skipped++
			log.Warn("Dropping match row with unusable date", withErr(fields, err))
			continue
		}
		start, err := ParseTime(cols.Text(row, "time"))
		if err != nil {
			stats.Skipped++
			log.Warn("Dropping match row with unusable time", withErr(fields, err))
			continue
		}

		rec := Record{
			MatchID:   id,
			Date:      date,
			StartTime: start,
			League:    cols.Text(row, "league"),
			Level:     cols.Text(row, "level"),
			Role:      ParseRole(cols.Text(row, "role")),
			RefereeID: cols.Text(row, "referee"),
		}
		rec.HomeTeam, rec.AwayTeam = cols.Text(row, "home"), cols.Text(row, "away")
		if rec.HomeTeam == "" && rec.AwayTeam == "" {
			rec.HomeTeam, rec.AwayTeam = SplitTeams(cols.Text(row, "teams"))
		}

		degraded := false
		venueRef := cols.Text(row, "venue")
		rec.VenueID = venueRef
		if venueRef != "" {
			if v, ok := x.resolveVenue(venueRef); ok {
				rec.VenueID = v.ID
			} else {
				degraded = true
				log.Warn("Venue not found, event will have no location", logger.Fields{
					"row": row.Index, "match_id": id, "venue_id": venueRef,
				})
			}
		}
		if rec.RefereeID != "" && !x.knownReferee(rec.RefereeID) {
			degraded = true
			log.Warn("Referee not found", logger.Fields{
				"row": row.Index, "match_id": id, "referee_id": rec.RefereeID,
			})
		}
		if rec.MatchID == "" {
			degraded = true
			rec.MatchID = GenerateID(rec.Date, rec.StartTime, rec.Teams(), venueRef)
			log.Warn("Match row has no id, derived one", logger.Fields{"row": row.Index, "match_id": rec.MatchID})
		}
		if degraded {
			stats.Degraded++
		}

		records = append(records, rec)
		stats.Parsed++
	}

	log.Info("Parsed match listing", logger.Fields{
		"records":  stats.Parsed,
		"skipped":  stats.Skipped,
		"filtered": stats.Filtered,
		"degraded": stats.Degraded,
	})
	return records, stats, nil
}

func (x *Extractor) resolveVenue(ref string) (venue.Venue, bool) {
	if x.Venues == nil {
		return venue.Venue{}, false
	}
	return x.Venues.Resolve(ref)
}

func (x *Extractor) knownReferee(id string) bool {
	if x.Referees == nil {
		return false
	}
	_, ok := x.Referees.Get(id)
	return ok
}

// assignmentState applies the accept/refuse radio group and the "game done"
// checkbox. Rows without those controls are always kept.
func assignmentState(row htmltable.Row) (keep bool, reason string) {
	hasRadio, accepted, done := false, false, false
	for _, in := range row.Inputs() {
		switch {
		case in.Type == "radio" && strings.Contains(in.Name, "isgameaccepted"):
			hasRadio = true
			if in.Checked && in.Value == "1" {
				accepted = true
			}
		case in.Type == "checkbox" && strings.Contains(in.Name, "isgamedone") && !strings.Contains(in.Name, "isgamedonealone"):
			if in.Checked {
				done = true
			}
		}
	}
	if hasRadio && !accepted {
		return false, "not accepted"
	}
	if done {
		return false, "already played"
	}
	return true, ""
}

// isRepeatedHeader catches header rows repeated as <td> rows between pages.
func isRepeatedHeader(tbl *htmltable.Table, row htmltable.Row) bool {
	if len(tbl.Headers) == 0 || len(row.Cells) != len(tbl.Headers) {
		return false
	}
	for i, h := range tbl.Headers {
		if row.Cells[i].Text != h {
			return false
		}
	}
	return true
}

func withErr(fields logger.Fields, err error) logger.Fields {
	out := make(logger.Fields, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["reason"] = err.Error()
	return out
}
