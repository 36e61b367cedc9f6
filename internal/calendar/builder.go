package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/refcal/refcal/internal/logger"
	"github.com/refcal/refcal/internal/match"
	"github.com/refcal/refcal/internal/referee"
	"github.com/refcal/refcal/internal/venue"
)

// DefaultDuration is the length of a match; the listing publishes no end time.
const DefaultDuration = 90 * time.Minute

// Event is one calendar entry, built from exactly one record.
type Event struct {
	UID         string
	Summary     string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Location    string
	Description string
}

// Options configures a Builder. Zero values fall back to defaults.
type Options struct {
	Location  *time.Location
	Duration  time.Duration
	UIDDomain string
	Name      string
	ProductID string
	Clock     clockwork.Clock
	Log       *logger.Logger
}

// Builder turns normalized records into calendar events.
type Builder struct {
	loc       *time.Location
	duration  time.Duration
	uidDomain string
	name      string
	productID string
	clock     clockwork.Clock
	log       *logger.Logger
}

// NewBuilder returns a builder with defaults applied.
func NewBuilder(opts Options) *Builder {
	b := &Builder{
		loc:       opts.Location,
		duration:  opts.Duration,
		uidDomain: opts.UIDDomain,
		name:      opts.Name,
		productID: opts.ProductID,
		clock:     opts.Clock,
		log:       opts.Log,
	}
	if b.loc == nil {
		b.loc = time.UTC
	}
	if b.duration <= 0 {
		b.duration = DefaultDuration
	}
	if b.uidDomain == "" {
		b.uidDomain = "refcal.local"
	}
	if b.productID == "" {
		b.productID = DefaultProductID
	}
	if b.clock == nil {
		b.clock = clockwork.NewRealClock()
	}
	if b.log == nil {
		b.log = logger.Default()
	}
	return b
}

// Build maps every record to an event, keeping the record order. A record
// with a date but no start time becomes an all-day event; one without a date
// cannot be placed and is skipped.
func (b *Builder) Build(records []match.Record, venues *venue.Directory, refs *referee.Directory) ([]Event, int) {
	events := make([]Event, 0, len(records))
	skipped := 0
	for _, r := range records {
		e, ok := b.Event(r, venues, refs)
		if !ok {
			skipped++
			continue
		}
		events = append(events, e)
	}
	return events, skipped
}

// Event builds the calendar entry of a single record.
func (b *Builder) Event(r match.Record, venues *venue.Directory, refs *referee.Directory) (Event, bool) {
	e := Event{
		UID:     UID(r.MatchID, string(r.Role), b.uidDomain),
		Summary: Summary(r),
	}

	switch {
	case r.Date != "" && r.StartTime != "":
		start, err := r.Start(b.loc)
		if err != nil {
			b.log.Warn("Skipping event with invalid start", logger.Fields{"match_id": r.MatchID, "reason": err.Error()})
			return Event{}, false
		}
		e.Start = start
		e.End = start.Add(b.duration)
	case r.Date != "":
		day, err := time.ParseInLocation(match.DateLayout, r.Date, b.loc)
		if err != nil {
			b.log.Warn("Skipping event with invalid date", logger.Fields{"match_id": r.MatchID, "reason": err.Error()})
			return Event{}, false
		}
		e.AllDay = true
		e.Start = day
		e.End = day.AddDate(0, 0, 1)
	default:
		b.log.Warn("Skipping event without date", logger.Fields{"match_id": r.MatchID})
		return Event{}, false
	}

	var v venue.Venue
	resolved := false
	if venues != nil && r.VenueID != "" {
		v, resolved = venues.Resolve(r.VenueID)
	}
	if resolved {
		e.Location = v.Location()
	}

	refName := referee.Unknown
	if refs != nil && r.RefereeID != "" {
		refName = refs.Name(r.RefereeID)
	}

	e.Description = description(r, refName, v, resolved)
	return e, true
}

// Summary is the event title: "Home vs Away (Role)", prefixed with league and
// level when the listing gives them.
func Summary(r match.Record) string {
	teams := r.Teams()
	if teams == "" {
		teams = "Match " + r.MatchID
	}
	s := fmt.Sprintf("%s (%s)", teams, r.Role.Label())

	if prefix := strings.TrimSpace(r.League + " " + r.Level); prefix != "" {
		s = prefix + " · " + s
	}
	return s
}

func description(r match.Record, refName string, v venue.Venue, resolved bool) string {
	lines := []string{
		"Role: " + r.Role.Label(),
		"Referee: " + refName,
	}
	if r.League != "" {
		lines = append(lines, "League: "+r.League)
	}
	if r.Level != "" {
		lines = append(lines, "Level: "+r.Level)
	}
	if teams := r.Teams(); teams != "" {
		lines = append(lines, "Teams: "+teams)
	}
	lines = append(lines, "Match: "+r.MatchID)

	switch {
	case resolved:
		lines = append(lines, "Venue: "+v.DisplayName())
		if v.RawAddress != "" {
			lines = append(lines, "Address: "+v.RawAddress)
		}
		if link := v.Maps(); link != "" {
			lines = append(lines, "Map: "+link)
		}
	case r.VenueID != "":
		lines = append(lines, "Venue: "+r.VenueID+" (address unknown)")
	}
	return strings.Join(lines, "\n")
}
