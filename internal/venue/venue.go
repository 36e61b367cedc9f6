package venue

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/refcal/refcal/internal/textutil"
)

// Venue is one entry of the address listing. RawAddress is always kept
// verbatim; Street, City and PostalCode are filled only when the address
// could be split.
type Venue struct {
	ID         string
	Name       string
	RawAddress string
	Street     string
	City       string
	PostalCode string
	MapLink    string
}

var (
	caPostal = regexp.MustCompile(`(?i)\b([A-Z]\d[A-Z])[ -]?(\d[A-Z]\d)\s*$`)
	usZip    = regexp.MustCompile(`\b(\d{5}(?:-\d{4})?)\s*$`)
	// A trailing "(Québec)" after the city name.
	parenRegion = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
	stateCode   = regexp.MustCompile(`^[A-Z]{2}$`)
)

var regions = map[string]bool{
	"qc": true, "quebec": true, "que": true, "pq": true,
	"on": true, "ontario": true,
	"nb": true, "new brunswick": true, "nouveau brunswick": true,
	"ns": true, "nova scotia": true, "nouvelle ecosse": true,
	"pe": true, "pei": true,
	"nl": true, "mb": true, "manitoba": true,
	"sk": true, "saskatchewan": true,
	"ab": true, "alberta": true,
	"bc": true, "british columbia": true,
	"yt": true, "nt": true, "nu": true,
}

func isRegion(s string) bool {
	s = strings.TrimSpace(s)
	return stateCode.MatchString(s) || regions[textutil.Fold(s)]
}

// ParseAddress splits a free-text address into street, city and postal code.
// The postal code must be the trailing token, the city is the last
// comma-separated segment before it (province tokens are dropped) and
// everything before the city is the street. When the pattern does not hold,
// only RawAddress is set.
func ParseAddress(raw string) Venue {
	v := Venue{RawAddress: raw}
	s := textutil.Collapse(raw)

	var postal string
	if m := caPostal.FindStringSubmatchIndex(s); m != nil {
		postal = strings.ToUpper(s[m[2]:m[3]] + " " + s[m[4]:m[5]])
		s = s[:m[0]]
	} else if m := usZip.FindStringSubmatchIndex(s); m != nil {
		postal = s[m[2]:m[3]]
		s = s[:m[0]]
	} else {
		return v
	}

	var segs []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			segs = append(segs, p)
		}
	}
	if len(segs) > 0 && isRegion(segs[len(segs)-1]) {
		segs = segs[:len(segs)-1]
	}
	if len(segs) < 2 {
		return v
	}

	city := parenRegion.ReplaceAllString(segs[len(segs)-1], "")
	if words := strings.Fields(city); len(words) > 1 && isRegion(words[len(words)-1]) {
		city = strings.Join(words[:len(words)-1], " ")
	}
	if city == "" {
		return v
	}

	v.Street = strings.Join(segs[:len(segs)-1], ", ")
	v.City = city
	v.PostalCode = postal
	return v
}

// Structured reports whether the address was split into fields.
func (v Venue) Structured() bool {
	return v.Street != "" && v.City != "" && v.PostalCode != ""
}

// Location is the printable address: "street, city postal_code" when the
// address was split, otherwise the raw text.
func (v Venue) Location() string {
	if !v.Structured() {
		return textutil.Collapse(v.RawAddress)
	}
	return v.Street + ", " + v.City + " " + v.PostalCode
}

// DisplayName is the venue name, falling back to its id.
func (v Venue) DisplayName() string {
	if v.Name != "" {
		return v.Name
	}
	return v.ID
}

// Maps returns the venue's map link, or a Google Maps search URL built from
// the address. Empty when there is nothing to search for.
func (v Venue) Maps() string {
	if v.MapLink != "" {
		return v.MapLink
	}
	q := v.Location()
	if q == "" {
		return ""
	}
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(q)
}
