// Package calendar builds iCalendar events from normalized match records.
package calendar

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/cockroachdb/errors"
)

// DefaultProductID identifies the generator in PRODID.
const DefaultProductID = "-//refcal//Referee Assignments//FR"

var unsafeUID = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// UID returns the stable identifier of one assignment. Re-importing a
// regenerated calendar updates events instead of duplicating them.
// Distinct (match id, role) pairs always give distinct UIDs.
func UID(matchID, role, domain string) string {
	return uidPart(matchID, "match") + "-" + uidPart(strings.ToLower(role), "role") + "@" + domain
}

// uidPart returns s when it is already UID-safe. Otherwise the sanitized text
// is suffixed with a short hash of s, so ids that sanitize alike stay apart.
func uidPart(s, fallback string) string {
	clean := strings.Trim(unsafeUID.ReplaceAllString(s, "-"), "-")
	if clean == s && s != "" {
		return s
	}
	if clean == "" {
		clean = fallback
	}
	sum := sha1.Sum([]byte(s))
	return clean + "-" + hex.EncodeToString(sum[:4])
}

// Calendar renders events into a single VCALENDAR, in the given order.
func (b *Builder) Calendar(events []Event) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetProductId(b.productID)
	cal.SetMethod(ics.MethodPublish)
	if b.name != "" {
		cal.SetName(b.name)
	}

	stamp := b.stamp()
	for _, e := range events {
		ve := cal.AddEvent(e.UID)
		ve.SetDtStampTime(stamp)
		if e.AllDay {
			ve.SetAllDayStartAt(e.Start)
			ve.SetAllDayEndAt(e.End)
		} else {
			ve.SetStartAt(e.Start)
			ve.SetEndAt(e.End)
		}
		ve.SetSummary(e.Summary)
		ve.SetLocation(e.Location)
		ve.SetDescription(e.Description)
		ve.SetStatus(ics.ObjectStatusConfirmed)
	}
	return cal
}

// Serialize renders events as iCalendar text with CRLF line endings.
func (b *Builder) Serialize(events []Event) ([]byte, error) {
	out := b.Calendar(events).Serialize()
	if !strings.HasPrefix(out, "BEGIN:VCALENDAR") || !strings.Contains(out, "END:VCALENDAR") {
		return nil, errors.New("serialized calendar is incomplete")
	}
	return []byte(out), nil
}

// stamp is the DTSTAMP of every event: the clock truncated to the day, so
// identical input produces identical bytes all day long.
func (b *Builder) stamp() time.Time {
	return b.clock.Now().UTC().Truncate(24 * time.Hour)
}
