package match

import (
	"regexp"
	"strings"

	"github.com/refcal/refcal/internal/textutil"
)

var (
	teamSeparator = regexp.MustCompile(`(?i)\s+(?:vs\.?|v\.|c\.|contre)\s+|\s+-\s+`)
	awayAtHome    = regexp.MustCompile(`\s+@\s+`)
)

// SplitTeams splits a combined "Équipes" cell into home and away teams.
// "A vs B", "A c. B", "A contre B" and "A - B" list the home team first;
// "A @ B" lists the visitor first. A cell without a separator is returned
// as the home team.
func SplitTeams(s string) (home, away string) {
	s = textutil.Collapse(s)
	if s == "" {
		return "", ""
	}
	if parts := awayAtHome.Split(s, 2); len(parts) == 2 {
		return strings.TrimSpace(parts[1]), strings.TrimSpace(parts[0])
	}
	if parts := teamSeparator.Split(s, 2); len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return s, ""
}
