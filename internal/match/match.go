package match

import (
	"crypto/sha1"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/refcal/refcal/internal/textutil"
)

// Role is the officiating function assigned for a match.
type Role string

const (
	RoleReferee Role = "REFEREE"
	RoleScorer  Role = "SCORER"
	RoleTimer   Role = "TIMER"
	RoleOther   Role = "OTHER"
)

// otherPrefix marks a role the listing names but refcal does not know. The
// listing's text follows it so distinct unknown roles stay distinct.
const otherPrefix = string(RoleOther) + ":"

// ParseRole maps the listing's role text onto a Role. An empty cell means the
// referee role; unrecognized text becomes "OTHER:<TEXT>".
func ParseRole(s string) Role {
	text := strings.ToUpper(textutil.Collapse(s))
	if strings.HasPrefix(text, otherPrefix) {
		return Role(text)
	}

	f := textutil.Fold(s)
	switch {
	case f == "":
		return RoleReferee
	case strings.Contains(f, "marq") || strings.Contains(f, "scor"):
		return RoleScorer
	case strings.Contains(f, "chrono") || strings.Contains(f, "timer") || strings.Contains(f, "time keeper"):
		return RoleTimer
	case strings.Contains(f, "arbitre") || strings.Contains(f, "referee") || f == "ref":
		return RoleReferee
	case f == "other" || f == "autre":
		return RoleOther
	}
	return Role(otherPrefix + text)
}

// Label is the role as shown in event titles: "Referee", "Scorer", ...
// Unknown roles show the listing's text: "Juge de ligne".
func (r Role) Label() string {
	s := strings.ToLower(strings.TrimPrefix(string(r), otherPrefix))
	if s == "" {
		return "Referee"
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + s[size:]
}

// Record is one match assignment. Date is YYYY-MM-DD and StartTime is HH:MM
// in the association's local time; both sort lexicographically.
type Record struct {
	MatchID   string `json:"match_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	VenueID   string `json:"venue_id,omitempty"`
	RefereeID string `json:"referee_id,omitempty"`
	Role      Role   `json:"role"`
	League    string `json:"league,omitempty"`
	Level     string `json:"level,omitempty"`
}

// Key is the deduplication key: one assignment per match and role.
func (r Record) Key() string {
	return r.MatchID + "|" + string(r.Role)
}

// Completeness counts non-empty fields.
func (r Record) Completeness() int {
	n := 0
	for _, f := range []string{r.MatchID, r.Date, r.StartTime, r.HomeTeam, r.AwayTeam, r.VenueID, r.RefereeID, string(r.Role), r.League, r.Level} {
		if f != "" {
			n++
		}
	}
	return n
}

// Teams renders the pairing for display.
func (r Record) Teams() string {
	switch {
	case r.HomeTeam != "" && r.AwayTeam != "":
		return r.HomeTeam + " vs " + r.AwayTeam
	case r.HomeTeam != "":
		return r.HomeTeam
	default:
		return r.AwayTeam
	}
}

// Less orders records by date, start time, match id and role.
func Less(a, b Record) bool {
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	if a.StartTime != b.StartTime {
		return a.StartTime < b.StartTime
	}
	if a.MatchID != b.MatchID {
		return a.MatchID < b.MatchID
	}
	return a.Role < b.Role
}

// GenerateID derives a deterministic match id for rows that carry none.
func GenerateID(date, startTime, teams, venue string) string {
	h := sha1.New()
	h.Write([]byte(date + "|" + startTime + "|" + teams + "|" + venue))
	return fmt.Sprintf("auto-%x", h.Sum(nil)[:6])
}
