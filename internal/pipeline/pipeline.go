// Package pipeline runs one conversion: listing pages in, CSV artifacts and an
// iCalendar file out.
package pipeline

import (
	"bytes"
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	"github.com/refcal/refcal/internal/calendar"
	"github.com/refcal/refcal/internal/htmltable"
	"github.com/refcal/refcal/internal/logger"
	"github.com/refcal/refcal/internal/match"
	"github.com/refcal/refcal/internal/metrics"
	"github.com/refcal/refcal/internal/normalize"
	"github.com/refcal/refcal/internal/referee"
	"github.com/refcal/refcal/internal/storage"
	"github.com/refcal/refcal/internal/venue"
)

// ErrNoMatches is returned when the match listing yields no usable record.
var ErrNoMatches = errors.New("no valid matches found")

// Fetcher retrieves a page body. *fetch.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Pages are the three listing URLs.
type Pages struct {
	Matches   string
	Addresses string
	Referees  string
}

// Config carries every input of a run. Nothing is read from globals.
type Config struct {
	Store *storage.Storage

	// Fetcher is nil for offline runs, which reuse the HTML saved by the
	// previous online run, or its addresses.csv and referees.csv when the
	// address or referee page is gone.
	Fetcher Fetcher
	Pages   Pages

	Location       *time.Location
	Duration       time.Duration
	UIDDomain      string
	CalendarName   string
	VenueThreshold float64

	Clock   clockwork.Clock
	Log     *logger.Logger
	Metrics *metrics.Metrics
}

// Summary reports what a run did.
type Summary struct {
	Matches   htmltable.Stats `json:"matches"`
	Addresses htmltable.Stats `json:"addresses"`
	Referees  htmltable.Stats `json:"referees"`

	Duplicates    int `json:"duplicates"`
	Rejected      int `json:"rejected"`
	Events        int `json:"events"`
	SkippedEvents int `json:"skipped_events"`

	Records      []match.Record    `json:"records"`
	FirstRun     bool              `json:"first_run"`
	Diff         *match.DiffResult `json:"diff"`
	CalendarPath string            `json:"calendar_path"`
}

// Totals sums the row counters of the three listings.
func (s *Summary) Totals() htmltable.Stats {
	return s.Matches.Add(s.Addresses).Add(s.Referees)
}

type runner struct {
	cfg Config
	log *logger.Logger
	m   *metrics.Metrics
}

// Run executes the pipeline. Any returned error aborts the run; artifacts
// written before the failure are left in place.
func Run(ctx context.Context, cfg Config) (*Summary, error) {
	if cfg.Store == nil {
		return nil, errors.New("pipeline: no storage configured")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	r := &runner{cfg: cfg, log: cfg.Log, m: cfg.Metrics}
	if r.log == nil {
		r.log = logger.Default()
	}
	if r.m == nil {
		r.m = metrics.New()
	}
	return r.run(ctx)
}

func (r *runner) run(ctx context.Context) (*Summary, error) {
	sum := &Summary{}

	venues, vstats, err := r.loadVenues(ctx)
	if err != nil {
		return nil, err
	}
	if r.cfg.VenueThreshold > 0 {
		venues.SetThreshold(r.cfg.VenueThreshold)
	}
	refs, rstats, err := r.loadReferees(ctx)
	if err != nil {
		return nil, err
	}
	matchHTML, err := r.page(ctx, r.cfg.Pages.Matches, storage.MatchesHTML)
	if err != nil {
		return nil, err
	}

	start := r.cfg.Clock.Now()
	x := &match.Extractor{Venues: venues, Referees: refs, Log: r.log}
	records, mstats, err := x.Extract(bytes.NewReader(matchHTML))
	if err != nil {
		return nil, err
	}
	r.m.ObserveStage("parse", start, r.cfg.Clock.Now())
	sum.Addresses, sum.Referees, sum.Matches = vstats, rstats, mstats
	r.recordRows("addresses", vstats)
	r.recordRows("referees", rstats)
	r.recordRows("matches", mstats)

	start = r.cfg.Clock.Now()
	records, nstats := normalize.Normalize(records, r.log)
	r.m.ObserveStage("normalize", start, r.cfg.Clock.Now())
	sum.Duplicates, sum.Rejected = nstats.Duplicates, nstats.Rejected
	r.m.Duplicates.Add(float64(nstats.Duplicates))
	r.m.Rejected.Add(float64(nstats.Rejected))

	if len(records) == 0 {
		r.log.Error("No valid matches found", logger.Fields{
			"rows_skipped":  mstats.Skipped,
			"rows_filtered": mstats.Filtered,
			"rejected":      nstats.Rejected,
		}, ErrNoMatches)
		return sum, ErrNoMatches
	}
	sum.Records = records

	previous, err := r.cfg.Store.ReadMatches()
	if err != nil {
		return nil, errors.Wrap(err, "reading previous matches")
	}
	sum.FirstRun = previous == nil

	start = r.cfg.Clock.Now()
	if err := r.cfg.Store.WriteAddresses(venues.Venues()); err != nil {
		return nil, err
	}
	if err := r.cfg.Store.WriteReferees(refs.Referees()); err != nil {
		return nil, err
	}
	if err := r.cfg.Store.WriteMatches(records); err != nil {
		return nil, err
	}
	r.m.ObserveStage("csv", start, r.cfg.Clock.Now())

	start = r.cfg.Clock.Now()
	b := calendar.NewBuilder(calendar.Options{
		Location:  r.cfg.Location,
		Duration:  r.cfg.Duration,
		UIDDomain: r.cfg.UIDDomain,
		Name:      r.cfg.CalendarName,
		Clock:     r.cfg.Clock,
		Log:       r.log,
	})
	events, skipped := b.Build(records, venues, refs)
	data, err := b.Serialize(events)
	if err != nil {
		return nil, errors.Wrap(err, "serializing calendar")
	}
	if err := r.cfg.Store.WriteCalendar(data); err != nil {
		return nil, err
	}
	r.m.ObserveStage("calendar", start, r.cfg.Clock.Now())
	sum.Events, sum.SkippedEvents = len(events), skipped
	sum.CalendarPath = r.cfg.Store.Path(storage.CalendarFile)
	r.m.EventsWritten.Set(float64(len(events)))

	sum.Diff = match.Diff(previous, records)

	r.log.Info("Calendar written", logger.Fields{
		"path":       sum.CalendarPath,
		"events":     sum.Events,
		"duplicates": sum.Duplicates,
		"rejected":   sum.Rejected,
		"added":      len(sum.Diff.Added),
		"removed":    len(sum.Diff.Removed),
		"changed":    len(sum.Diff.Changed),
	})
	return sum, nil
}

// page returns the HTML for one listing: fetched and saved when online,
// loaded from the previous run otherwise. A login page is still saved so it
// can be inspected.
func (r *runner) page(ctx context.Context, url, name string) ([]byte, error) {
	if r.cfg.Fetcher == nil {
		body, err := r.cfg.Store.LoadHTML(name)
		if err != nil {
			return nil, errors.Wrap(err, "offline run")
		}
		r.log.Debug("Loaded saved page", logger.Fields{"file": name, "bytes": len(body)})
		return body, nil
	}

	start := r.cfg.Clock.Now()
	body, fetchErr := r.cfg.Fetcher.Fetch(ctx, url)
	r.m.ObserveStage("fetch", start, r.cfg.Clock.Now())
	if body != nil {
		if err := r.cfg.Store.SaveHTML(name, body); err != nil {
			return nil, err
		}
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	return body, nil
}

// loadVenues parses the address listing. An offline run whose saved page is
// missing falls back to the addresses.csv of an earlier run.
func (r *runner) loadVenues(ctx context.Context) (*venue.Directory, htmltable.Stats, error) {
	body, err := r.page(ctx, r.cfg.Pages.Addresses, storage.AddressesHTML)
	if err == nil {
		start := r.cfg.Clock.Now()
		defer func() { r.m.ObserveStage("parse", start, r.cfg.Clock.Now()) }()
		return venue.Parse(bytes.NewReader(body), r.log)
	}
	if !r.canFallBack(err) {
		return nil, htmltable.Stats{}, err
	}
	saved, cerr := r.cfg.Store.ReadAddresses()
	if cerr != nil {
		return nil, htmltable.Stats{}, cerr
	}
	if saved == nil {
		return nil, htmltable.Stats{}, err
	}
	r.log.Warn("Saved address page missing, using addresses.csv", logger.Fields{"venues": len(saved)})
	return venue.NewDirectory(saved), htmltable.Stats{Parsed: len(saved)}, nil
}

// loadReferees is loadVenues for the referee roster and referees.csv.
func (r *runner) loadReferees(ctx context.Context) (*referee.Directory, htmltable.Stats, error) {
	body, err := r.page(ctx, r.cfg.Pages.Referees, storage.RefereesHTML)
	if err == nil {
		start := r.cfg.Clock.Now()
		defer func() { r.m.ObserveStage("parse", start, r.cfg.Clock.Now()) }()
		return referee.Parse(bytes.NewReader(body), r.log)
	}
	if !r.canFallBack(err) {
		return nil, htmltable.Stats{}, err
	}
	saved, cerr := r.cfg.Store.ReadReferees()
	if cerr != nil {
		return nil, htmltable.Stats{}, cerr
	}
	if saved == nil {
		return nil, htmltable.Stats{}, err
	}
	r.log.Warn("Saved referee page missing, using referees.csv", logger.Fields{"referees": len(saved)})
	return referee.NewDirectory(saved), htmltable.Stats{Parsed: len(saved)}, nil
}

func (r *runner) canFallBack(err error) bool {
	return r.cfg.Fetcher == nil && errors.Is(err, storage.ErrNotFound)
}

func (r *runner) recordRows(listing string, s htmltable.Stats) {
	r.m.AddRows(listing, "parsed", s.Parsed)
	r.m.AddRows(listing, "skipped", s.Skipped)
	r.m.AddRows(listing, "filtered", s.Filtered)
	r.m.AddRows(listing, "degraded", s.Degraded)
	r.m.AddRows(listing, "duplicate", s.Duplicates)
}
