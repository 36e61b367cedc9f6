package pipeline

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/refcal/refcal/internal/fetch"
	"github.com/refcal/refcal/internal/htmltable"
	"github.com/refcal/refcal/internal/logger"
	"github.com/refcal/refcal/internal/match"
	"github.com/refcal/refcal/internal/metrics"
	"github.com/refcal/refcal/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addressesPage = `<html><body><table>
<tr><th>venue_id</th><th>School Name</th><th>Address</th></tr>
<tr><td>V1</td><td>École Une</td><td>123 Main St, Springfield, A1B 2C3</td></tr>
<tr><td>V2</td><td>Gym Deux</td><td>Derrière l'aréna</td></tr>
</table></body></html>`

const refereesPage = `<html><body><table>
<tr><th>referee_id</th><th>Nom</th><th>Prénom</th></tr>
<tr><td>R1</td><td>Doe</td><td>Jane</td></tr>
</table></body></html>`

const matchesHeader = `<tr><th>match_id</th><th>date</th><th>start_time</th><th>home_team</th>` +
	`<th>away_team</th><th>venue_id</th><th>referee_id</th><th>role</th></tr>`

func matchesPage(rows ...string) string {
	return `<html><body><table>` + matchesHeader + strings.Join(rows, "\n") + `</table></body></html>`
}

func row(cells ...string) string {
	return `<tr><td>` + strings.Join(cells, `</td><td>`) + `</td></tr>`
}

var defaultMatches = matchesPage(
	row("M1", "2024-03-10", "18:30", "Lévis", "L'Odyssée", "V1", "R1", "Arbitre"),
	row("M2", "09/03/2024", "19h00", "A", "B", "V9", "R1", "Marqueur"),
	row("M1", "2024-03-10", "18:30", "Lévis", "L'Odyssée", "", "R1", "Arbitre"),
	row("M3", "", "18:30", "C", "D", "V1", "R1", "Arbitre"),
)

var testPages = Pages{
	Matches:   "https://site.test/matches",
	Addresses: "https://site.test/addresses",
	Referees:  "https://site.test/referees",
}

type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
	calls []string
}

func newFakeFetcher(matches string) *fakeFetcher {
	return &fakeFetcher{
		pages: map[string]string{
			testPages.Matches:   matches,
			testPages.Addresses: addressesPage,
			testPages.Referees:  refereesPage,
		},
		errs: map[string]error{},
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	body, ok := f.pages[url]
	if !ok {
		return nil, errors.Newf("unexpected url %s", url)
	}
	return []byte(body), f.errs[url]
}

func testConfig(t *testing.T, f Fetcher, clock clockwork.Clock) Config {
	t.Helper()
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	loc, err := time.LoadLocation("America/Toronto")
	require.NoError(t, err)

	return Config{
		Store:        store,
		Fetcher:      f,
		Pages:        testPages,
		Location:     loc,
		Duration:     90 * time.Minute,
		UIDDomain:    "refcal.test",
		CalendarName: "Mes assignations",
		Clock:        clock,
		Log:          logger.NewNop(),
		Metrics:      metrics.New(),
	}
}

func readArtifact(t *testing.T, s *storage.Storage, name string) string {
	t.Helper()
	data, err := os.ReadFile(s.Path(name))
	require.NoError(t, err)
	return string(data)
}

func TestRun_EndToEnd(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC))
	f := newFakeFetcher(defaultMatches)
	cfg := testConfig(t, f, clock)

	sum, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{testPages.Addresses, testPages.Referees, testPages.Matches}, f.calls)

	assert.Equal(t, 3, sum.Matches.Parsed)
	assert.Equal(t, 1, sum.Matches.Skipped)
	assert.Equal(t, 1, sum.Matches.Degraded)
	assert.Equal(t, 2, sum.Addresses.Parsed)
	assert.Equal(t, 1, sum.Addresses.Degraded)
	assert.Equal(t, 1, sum.Duplicates)
	assert.Equal(t, 2, sum.Events)
	assert.True(t, sum.FirstRun)
	assert.Len(t, sum.Diff.Added, 2)

	require.Len(t, sum.Records, 2)
	assert.Equal(t, "M2", sum.Records[0].MatchID)
	assert.Equal(t, match.RoleScorer, sum.Records[0].Role)
	assert.Equal(t, "M1", sum.Records[1].MatchID)
	assert.Equal(t, "V1", sum.Records[1].VenueID)

	for _, name := range []string{storage.MatchesHTML, storage.AddressesHTML, storage.RefereesHTML} {
		assert.FileExists(t, cfg.Store.Path(name))
	}

	csv := readArtifact(t, cfg.Store, storage.MatchesCSV)
	assert.True(t, strings.HasPrefix(csv, "match_id,date,start_time,home_team,away_team,venue_id,referee_id,role"), csv)
	assert.Less(t, strings.Index(csv, "M2,"), strings.Index(csv, "M1,"))

	cal := strings.ReplaceAll(readArtifact(t, cfg.Store, storage.CalendarFile), "\r\n ", "")
	assert.Contains(t, cal, "UID:M1-referee@refcal.test")
	assert.Contains(t, cal, "UID:M2-scorer@refcal.test")
	assert.Contains(t, cal, `LOCATION:123 Main St\, Springfield A1B 2C3`)
	assert.Less(t, strings.Index(cal, "UID:M2-"), strings.Index(cal, "UID:M1-"))
	assert.Equal(t, sum.CalendarPath, cfg.Store.Path(storage.CalendarFile))

	assert.Equal(t, 2.0, testutil.ToFloat64(cfg.Metrics.EventsWritten))
	assert.Equal(t, 3.0, testutil.ToFloat64(cfg.Metrics.Rows.WithLabelValues("matches", "parsed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(cfg.Metrics.Duplicates))
}

func TestRun_OfflineRerunIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	cfg := testConfig(t, newFakeFetcher(defaultMatches), clock)

	_, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	firstCSV := readArtifact(t, cfg.Store, storage.MatchesCSV)
	firstICS := readArtifact(t, cfg.Store, storage.CalendarFile)

	clock.Advance(3 * time.Hour)
	cfg.Fetcher = nil
	sum, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, firstCSV, readArtifact(t, cfg.Store, storage.MatchesCSV))
	assert.Equal(t, firstICS, readArtifact(t, cfg.Store, storage.CalendarFile))
	assert.False(t, sum.FirstRun)
	assert.True(t, sum.Diff.Empty())
}

func TestRun_ReportsChangesSincePreviousRun(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	f := newFakeFetcher(defaultMatches)
	cfg := testConfig(t, f, clock)

	_, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	f.pages[testPages.Matches] = matchesPage(
		row("M1", "2024-03-10", "19:30", "Lévis", "L'Odyssée", "V1", "R1", "Arbitre"),
		row("M4", "2024-03-12", "20:00", "E", "F", "V2", "R1", "Arbitre"),
	)
	sum, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, sum.Diff.Added, 1)
	assert.Equal(t, "M4", sum.Diff.Added[0].MatchID)
	require.Len(t, sum.Diff.Removed, 1)
	assert.Equal(t, "M2", sum.Diff.Removed[0].MatchID)
	require.Len(t, sum.Diff.Changed, 1)
	assert.Equal(t, match.Change{
		MatchID: "M1", Role: match.RoleReferee, Field: "start_time", OldValue: "18:30", NewValue: "19:30",
	}, sum.Diff.Changed[0])
}

func TestRun_NoMatches(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cfg := testConfig(t, newFakeFetcher(matchesPage(
		row("M3", "", "18:30", "C", "D", "V1", "R1", "Arbitre"),
	)), clock)

	_, err := Run(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoMatches))
	assert.NoFileExists(t, cfg.Store.Path(storage.MatchesCSV))
	assert.NoFileExists(t, cfg.Store.Path(storage.CalendarFile))
}

func TestRun_NoTable(t *testing.T) {
	cfg := testConfig(t, newFakeFetcher("<html><body><p>Aucune assignation</p></body></html>"), clockwork.NewFakeClock())

	_, err := Run(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, htmltable.ErrNoTable))
}

func TestRun_SessionExpired(t *testing.T) {
	login := `<form><label>Identifiant</label><button>Se connecter</button></form>`
	f := newFakeFetcher(login)
	f.errs[testPages.Matches] = fetch.ErrSessionExpired
	cfg := testConfig(t, f, clockwork.NewFakeClock())

	_, err := Run(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fetch.ErrSessionExpired))
	assert.Equal(t, login, readArtifact(t, cfg.Store, storage.MatchesHTML))
	assert.NoFileExists(t, cfg.Store.Path(storage.CalendarFile))
}

func TestRun_OfflineWithoutSavedPages(t *testing.T) {
	cfg := testConfig(t, nil, clockwork.NewFakeClock())

	_, err := Run(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestSummary_Totals(t *testing.T) {
	s := Summary{
		Matches:   htmltable.Stats{Parsed: 3, Skipped: 1},
		Addresses: htmltable.Stats{Parsed: 2, Degraded: 1},
		Referees:  htmltable.Stats{Parsed: 1, Duplicates: 1},
	}
	assert.Equal(t, htmltable.Stats{Parsed: 6, Skipped: 1, Degraded: 1, Duplicates: 1}, s.Totals())
}

func TestRun_OfflineFallsBackToSavedCSV(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	cfg := testConfig(t, newFakeFetcher(defaultMatches), clock)

	_, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	firstICS := readArtifact(t, cfg.Store, storage.CalendarFile)

	require.NoError(t, os.Remove(cfg.Store.Path(storage.AddressesHTML)))
	require.NoError(t, os.Remove(cfg.Store.Path(storage.RefereesHTML)))

	cfg.Fetcher = nil
	sum, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Addresses.Parsed)
	assert.Equal(t, 1, sum.Referees.Parsed)
	assert.Equal(t, 2, sum.Events)
	assert.Equal(t, firstICS, readArtifact(t, cfg.Store, storage.CalendarFile))
}

func TestRun_DistinctAssignmentsKeepDistinctEvents(t *testing.T) {
	page := matchesPage(
		row("M5", "2024-03-10", "18:30", "A", "B", "V1", "R1", "Juge de ligne"),
		row("M5", "2024-03-10", "18:30", "A", "B", "V1", "R1", "Assistant"),
		row("A 1", "2024-03-11", "18:30", "C", "D", "V1", "R1", "Arbitre"),
		row("A/1", "2024-03-12", "18:30", "E", "F", "V1", "R1", "Arbitre"),
	)
	cfg := testConfig(t, newFakeFetcher(page), clockwork.NewFakeClock())

	sum, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Duplicates)
	assert.Equal(t, 4, sum.Events)

	cal := strings.ReplaceAll(readArtifact(t, cfg.Store, storage.CalendarFile), "\r\n ", "")
	uids := make(map[string]bool)
	for _, line := range strings.Split(cal, "\r\n") {
		if strings.HasPrefix(line, "UID:") {
			assert.False(t, uids[line], "duplicate %s", line)
			uids[line] = true
		}
	}
	assert.Len(t, uids, 4)
}
