package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/refcal/refcal/internal/calendar"
	"github.com/refcal/refcal/internal/htmltable"
	"github.com/refcal/refcal/internal/match"
	"github.com/refcal/refcal/internal/pipeline"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult is the run report
type OutputResult struct {
	RanAt        time.Time `json:"ran_at"`
	Offline      bool      `json:"offline"`
	CalendarPath string    `json:"calendar_path"`
	Events       int       `json:"events"`

	Rows       htmltable.Stats `json:"rows"`
	Duplicates int             `json:"duplicates"`
	Rejected   int             `json:"rejected"`

	FirstRun bool           `json:"first_run"`
	Added    []match.Record `json:"added"`
	Removed  []match.Record `json:"removed"`
	Changed  []match.Change `json:"changed"`

	Assignments []match.Record `json:"assignments"`
}

// NewOutputResult builds the report of a successful run.
func NewOutputResult(sum *pipeline.Summary, ranAt time.Time, offline bool) *OutputResult {
	res := &OutputResult{
		RanAt:        ranAt,
		Offline:      offline,
		CalendarPath: sum.CalendarPath,
		Events:       sum.Events,
		Rows:         sum.Totals(),
		Duplicates:   sum.Duplicates,
		Rejected:     sum.Rejected,
		FirstRun:     sum.FirstRun,
		Assignments:  append([]match.Record(nil), sum.Records...),
	}
	if sum.Diff != nil {
		res.Added = sum.Diff.Added
		res.Removed = sum.Diff.Removed
		res.Changed = sum.Diff.Changed
	}
	return res
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return errors.Newf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	fmt.Fprintf(w, "Calendar written: %s (%d events)\n", result.CalendarPath, result.Events)
	r := result.Rows
	fmt.Fprintf(w, "Rows: %d parsed, %d skipped, %d filtered, %d degraded\n", r.Parsed, r.Skipped, r.Filtered, r.Degraded)
	fmt.Fprintf(w, "Records: %d duplicates removed, %d rejected\n", result.Duplicates, result.Rejected)

	switch {
	case result.FirstRun:
		fmt.Fprintf(w, "\nFirst run: %d assignments recorded.\n", len(result.Assignments))
	case len(result.Added) == 0 && len(result.Removed) == 0 && len(result.Changed) == 0:
		fmt.Fprintln(w, "\nNo changes since last run.")
	default:
		fmt.Fprintln(w)
		for _, rec := range result.Added {
			fmt.Fprintf(w, "NEW: %s\n", recordLine(rec))
		}
		for _, rec := range result.Removed {
			fmt.Fprintf(w, "REMOVED: %s\n", recordLine(rec))
		}
		for _, c := range result.Changed {
			fmt.Fprintf(w, "CHANGED: %s (%s) %s %s -> %s\n", c.MatchID, c.Role.Label(), c.Field, c.OldValue, c.NewValue)
		}
	}

	if verbose && len(result.Assignments) > 0 {
		fmt.Fprintf(w, "\nAssignments (%d):\n", len(result.Assignments))
		for _, rec := range result.Assignments {
			fmt.Fprintf(w, "  %s\n", recordLine(rec))
			if rec.VenueID != "" {
				fmt.Fprintf(w, "       Venue: %s\n", rec.VenueID)
			}
		}
	}
	return nil
}

func recordLine(r match.Record) string {
	when := r.Date
	if r.StartTime != "" {
		when += " " + r.StartTime
	}
	return fmt.Sprintf("%s  %s  [%s]", when, calendar.Summary(r), r.MatchID)
}
