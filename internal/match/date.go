package match

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/refcal/refcal/internal/textutil"
)

// Canonical layouts of Record.Date and Record.StartTime.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Numeric date layouts seen on the site and in exported pages. Single-digit
// layout elements accept two digits too.
var dateLayouts = []string{
	"2006-1-2",
	"2/1/2006",
	"2-1-2006",
	"2006/1/2",
	"2.1.2006",
}

var frenchMonths = map[string]time.Month{
	"janvier": time.January, "janv": time.January, "jan": time.January,
	"fevrier": time.February, "fevr": time.February, "fev": time.February,
	"mars": time.March,
	"avril": time.April, "avr": time.April,
	"mai":  time.May,
	"juin": time.June,
	"juillet": time.July, "juil": time.July,
	"aout":      time.August,
	"septembre": time.September, "sept": time.September,
	"octobre": time.October, "oct": time.October,
	"novembre": time.November, "nov": time.November,
	"decembre": time.December, "dec": time.December,
}

var (
	// "10 mars 2024", optionally preceded by a weekday.
	frenchDate = regexp.MustCompile(`^(?:[a-z]+ )?(\d{1,2}) ([a-z]+) (\d{4})$`)
	// A leading weekday token before a numeric date: "dim. 10/03/2024".
	weekdayPrefix = regexp.MustCompile(`^\pL+\.?,?\s+`)

	clock24 = regexp.MustCompile(`^(\d{1,2})\s*[:hH]\s*(\d{2})?(?::\d{2})?$`)
	clock12 = regexp.MustCompile(`^(\d{1,2})(?:[:hH](\d{2}))?\s*([AaPp])\.?\s*[Mm]\.?$`)
)

// ParseDate normalizes a listing date to YYYY-MM-DD. It accepts the numeric
// layouts the site uses (day first unless the year leads) and French
// "10 mars 2024" dates.
func ParseDate(s string) (string, error) {
	s = textutil.Collapse(s)
	if s == "" {
		return "", errors.New("empty date")
	}

	candidates := []string{s}
	if stripped := weekdayPrefix.ReplaceAllString(s, ""); stripped != s {
		candidates = append(candidates, stripped)
	}
	for _, c := range candidates {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, c); err == nil {
				return t.Format(DateLayout), nil
			}
		}
	}

	if m := frenchDate.FindStringSubmatch(textutil.Fold(s)); m != nil {
		if month, ok := frenchMonths[m[2]]; ok {
			day, _ := strconv.Atoi(m[1])
			year, _ := strconv.Atoi(m[3])
			t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
			if t.Day() == day {
				return t.Format(DateLayout), nil
			}
		}
	}

	return "", errors.Newf("unrecognized date %q", s)
}

// ParseTime normalizes a listing time to 24-hour HH:MM. It accepts "18:30",
// "18h30", "18h", "18:30:00" and 12-hour "6:30 PM".
func ParseTime(s string) (string, error) {
	s = textutil.Collapse(s)
	if s == "" {
		return "", errors.New("empty time")
	}

	if m := clock12.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour < 1 || hour > 12 || minute > 59 {
			return "", errors.Newf("time out of range %q", s)
		}
		hour %= 12
		if strings.EqualFold(m[3], "p") {
			hour += 12
		}
		return formatClock(hour, minute), nil
	}

	if m := clock24.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour > 23 || minute > 59 {
			return "", errors.Newf("time out of range %q", s)
		}
		return formatClock(hour, minute), nil
	}

	return "", errors.Newf("unrecognized time %q", s)
}

func formatClock(hour, minute int) string {
	return time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC).Format(TimeLayout)
}

// Start combines a record's date and start time in loc.
func (r Record) Start(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, r.Date+" "+r.StartTime, loc)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "match %s", r.MatchID)
	}
	return t, nil
}
