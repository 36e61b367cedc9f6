// Package normalize validates, deduplicates and sorts extracted match records
// before they are turned into calendar events.
package normalize

import (
	"sort"

	"github.com/refcal/refcal/internal/logger"
	"github.com/refcal/refcal/internal/match"
)

// Stats counts what normalization removed.
type Stats struct {
	Input      int `json:"input"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
	Output     int `json:"output"`
}

// Normalize returns one record per (match id, role), sorted by date, start
// time, match id and role. Among duplicates the record with the most non-empty
// fields wins, the first one on ties. Records with neither a date nor a start
// time are rejected; missing venue or referee never rejects a record.
// The input slice is not modified.
func Normalize(records []match.Record, log *logger.Logger) ([]match.Record, Stats) {
	if log == nil {
		log = logger.Default()
	}
	stats := Stats{Input: len(records)}

	index := make(map[string]int, len(records))
	out := make([]match.Record, 0, len(records))

	for _, r := range records {
		if r.Date == "" && r.StartTime == "" {
			stats.Rejected++
			log.Warn("Rejecting record without date and time", logger.Fields{"match_id": r.MatchID, "role": string(r.Role)})
			continue
		}

		key := r.Key()
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, r)
			continue
		}

		stats.Duplicates++
		kept := out[i]
		if r.Completeness() > kept.Completeness() {
			out[i] = r
		}
		if r != kept {
			log.Warn("Conflicting duplicate assignment", logger.Fields{
				"match_id": r.MatchID,
				"role":     string(r.Role),
				"kept":     out[i].Completeness(),
			})
		} else {
			log.Debug("Dropping duplicate assignment", logger.Fields{"match_id": r.MatchID, "role": string(r.Role)})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return match.Less(out[i], out[j]) })
	stats.Output = len(out)
	return out, stats
}
