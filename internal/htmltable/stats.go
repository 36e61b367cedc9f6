package htmltable

// Stats counts what happened to the rows of one listing.
type Stats struct {
	Parsed     int `json:"parsed"`
	Skipped    int `json:"skipped"`
	Filtered   int `json:"filtered"`
	Degraded   int `json:"degraded"`
	Duplicates int `json:"duplicates"`
}

// Add returns the field-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Parsed:     s.Parsed + o.Parsed,
		Skipped:    s.Skipped + o.Skipped,
		Filtered:   s.Filtered + o.Filtered,
		Degraded:   s.Degraded + o.Degraded,
		Duplicates: s.Duplicates + o.Duplicates,
	}
}
