package match

import (
	"sort"
)

// Change is a field that moved between two runs for the same assignment.
type Change struct {
	MatchID  string `json:"match_id"`
	Role     Role   `json:"role"`
	Field    string `json:"field"` // "date", "start_time", "venue_id"
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// DiffResult compares the assignments of two runs.
type DiffResult struct {
	Added   []Record `json:"added"`
	Removed []Record `json:"removed"`
	Changed []Change `json:"changed"`
}

// Empty reports whether nothing changed.
func (d *DiffResult) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Diff compares current records against the previous run's records.
// A nil previous slice means there was no previous run: everything is added.
func Diff(previous, current []Record) *DiffResult {
	result := &DiffResult{
		Added:   make([]Record, 0),
		Removed: make([]Record, 0),
		Changed: make([]Change, 0),
	}

	prev := make(map[string]Record, len(previous))
	for _, r := range previous {
		prev[r.Key()] = r
	}
	seen := make(map[string]bool, len(current))

	for _, r := range current {
		seen[r.Key()] = true
		old, exists := prev[r.Key()]
		if !exists {
			result.Added = append(result.Added, r)
			continue
		}
		result.Changed = append(result.Changed, DetectChanges(old, r)...)
	}

	for _, r := range previous {
		if !seen[r.Key()] {
			result.Removed = append(result.Removed, r)
			seen[r.Key()] = true
		}
	}

	sort.SliceStable(result.Added, func(i, j int) bool { return Less(result.Added[i], result.Added[j]) })
	sort.SliceStable(result.Removed, func(i, j int) bool { return Less(result.Removed[i], result.Removed[j]) })
	return result
}

// DetectChanges lists the schedule fields that differ between two versions of
// the same assignment.
func DetectChanges(previous, current Record) []Change {
	var changes []Change
	add := func(field, oldValue, newValue string) {
		if oldValue != newValue {
			changes = append(changes, Change{
				MatchID:  current.MatchID,
				Role:     current.Role,
				Field:    field,
				OldValue: oldValue,
				NewValue: newValue,
			})
		}
	}
	add("date", previous.Date, current.Date)
	add("start_time", previous.StartTime, current.StartTime)
	add("venue_id", previous.VenueID, current.VenueID)
	return changes
}
