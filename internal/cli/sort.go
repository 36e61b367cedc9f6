package cli

import (
	"sort"
	"strings"

	"github.com/refcal/refcal/internal/match"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate  SortOrder = "date"
	SortByVenue SortOrder = "venue"
	SortByRole  SortOrder = "role"
)

func (o SortOrder) valid() bool {
	switch o {
	case SortByDate, SortByVenue, SortByRole:
		return true
	}
	return false
}

// sortRecords orders assignments for display. Ties always fall back to
// chronological order.
func sortRecords(records []match.Record, order SortOrder) {
	switch order {
	case SortByDate:
		sort.SliceStable(records, func(i, j int) bool {
			return match.Less(records[i], records[j])
		})
	case SortByVenue:
		sort.SliceStable(records, func(i, j int) bool {
			vi, vj := strings.ToLower(records[i].VenueID), strings.ToLower(records[j].VenueID)
			if vi != vj {
				// Unknown venues last
				if vi == "" || vj == "" {
					return vj == ""
				}
				return vi < vj
			}
			return match.Less(records[i], records[j])
		})
	case SortByRole:
		sort.SliceStable(records, func(i, j int) bool {
			if records[i].Role != records[j].Role {
				return records[i].Role < records[j].Role
			}
			return match.Less(records[i], records[j])
		})
	}
}
