package match

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/refcal/refcal/internal/logger"
	"github.com/refcal/refcal/internal/referee"
	"github.com/refcal/refcal/internal/venue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHeader = `<thead><tr>
  <th>#</th><th>Ligue</th><th>Calibre</th><th></th><th>Jour</th><th>Date</th><th>Heure</th>
  <th>Équipes</th><th>Terrain</th><th>Autre arbitre</th><th>Accepté/Refusé</th><th>Match fait</th>
</tr></thead>`

func listingPage(rows ...string) string {
	return `<html><body><form><table class="adminlist">` + listingHeader +
		`<tbody>` + strings.Join(rows, "\n") + `</tbody></table></form></body></html>`
}

func matchRow(id, date, hour, teams, terrain, ref, controls string) string {
	return `<tr><td>` + id + `<input type="hidden" name="cid[]" value="` + id + `"></td>` +
		`<td>BSLQ</td><td>Benjamin</td><td></td><td>Dimanche</td>` +
		`<td>` + date + `</td><td>` + hour + `</td><td>` + teams + `</td>` +
		`<td>` + terrain + `</td><td>` + ref + `</td>` + controls + `</tr>`
}

func accepted(id string) string {
	return `<td><input type="radio" name="isgameaccepted[` + id + `]" value="1" checked="checked">` +
		`<input type="radio" name="isgameaccepted[` + id + `]" value="2"></td>` +
		`<td><input type="checkbox" name="isgamedone[` + id + `]" value="1">` +
		`<input type="checkbox" name="isgamedonealone[` + id + `]" value="1" checked></td>`
}

func refused(id string) string {
	return `<td><input type="radio" name="isgameaccepted[` + id + `]" value="1">` +
		`<input type="radio" name="isgameaccepted[` + id + `]" value="2" checked="checked"></td><td></td>`
}

func played(id string) string {
	return `<td><input type="radio" name="isgameaccepted[` + id + `]" value="1" checked="checked"></td>` +
		`<td><input type="checkbox" name="isgamedone[` + id + `]" value="1" checked="checked"></td>`
}

func testExtractor(log *logger.Logger) *Extractor {
	return &Extractor{
		Venues: venue.NewDirectory([]venue.Venue{
			{ID: "Collège Saint-Charles-Garnier", Name: "Collège Saint-Charles-Garnier", RawAddress: "1150 Bd René-Lévesque O, Québec, G1S 1V7"},
			{ID: "V1", Name: "Polyvalente de Charlesbourg", RawAddress: "900 Rue de la Sorbonne, Québec, G1H 1H1"},
		}),
		Referees: referee.NewDirectory([]referee.Referee{{ID: "R1", DisplayName: "Doe Jane"}}),
		Log:      log,
	}
}

func TestExtract(t *testing.T) {
	page := listingPage(
		matchRow("4411", "10/03/2024", "18h30", "Rochebelle vs Charlesbourg", "Coll. St-Charles-Garnier", "R1", accepted("4411")),
		`<tr><td colspan="12">Page 1 de 2</td></tr>`,
		matchRow("4412", "2024-03-09", "9:00 AM", "Lévis c. L'Odyssée", "V1", "", accepted("4412")),
		matchRow("4413", "2024-03-11", "19:00", "A vs B", "V1", "R1", refused("4413")),
		matchRow("4414", "2024-03-12", "19:00", "A vs B", "V1", "R1", played("4414")),
		matchRow("4415", "", "19:00", "A vs B", "V1", "R1", accepted("4415")),
		matchRow("4416", "2024-03-13", "TBD", "A vs B", "V1", "R1", accepted("4416")),
		matchRow("4417", "2024-03-14", "20:00", "C vs D", "Aréna inconnu", "R9", accepted("4417")),
	)

	var buf bytes.Buffer
	x := testExtractor(logger.New(logger.LevelDebug, &buf))

	records, stats, err := x.Extract(strings.NewReader(page))
	require.NoError(t, err)

	want := []Record{
		{MatchID: "4411", Date: "2024-03-10", StartTime: "18:30", HomeTeam: "Rochebelle", AwayTeam: "Charlesbourg",
			VenueID: "Collège Saint-Charles-Garnier", RefereeID: "R1", Role: RoleReferee, League: "BSLQ", Level: "Benjamin"},
		{MatchID: "4412", Date: "2024-03-09", StartTime: "09:00", HomeTeam: "Lévis", AwayTeam: "L'Odyssée",
			VenueID: "V1", Role: RoleReferee, League: "BSLQ", Level: "Benjamin"},
		{MatchID: "4417", Date: "2024-03-14", StartTime: "20:00", HomeTeam: "C", AwayTeam: "D",
			VenueID: "Aréna inconnu", RefereeID: "R9", Role: RoleReferee, League: "BSLQ", Level: "Benjamin"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 3, stats.Parsed)
	assert.Equal(t, 3, stats.Skipped)
	assert.Equal(t, 2, stats.Filtered)
	assert.Equal(t, 1, stats.Degraded)

	out := buf.String()
	assert.Contains(t, out, "Dropping match row with unusable date")
	assert.Contains(t, out, "Dropping match row with unusable time")
	assert.Contains(t, out, "Venue not found, event will have no location")
	assert.Contains(t, out, `"match_id":"4415"`)
}

func TestExtract_EmptyDateNeverProducesRecord(t *testing.T) {
	for _, date := range []string{"", " ", "&nbsp;"} {
		page := listingPage(matchRow("M1", date, "18:30", "A vs B", "V1", "R1", ""))

		records, stats, err := testExtractor(logger.NewNop()).Extract(strings.NewReader(page))
		require.NoError(t, err)
		assert.Empty(t, records)
		assert.Equal(t, 1, stats.Skipped)
	}
}

func TestExtract_DerivesMissingID(t *testing.T) {
	page := listingPage(matchRow("", "2024-03-10", "18:30", "A vs B", "V1", "R1", ""))

	first, stats, err := testExtractor(logger.NewNop()).Extract(strings.NewReader(page))
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, strings.HasPrefix(first[0].MatchID, "auto-"))
	assert.Equal(t, 1, stats.Degraded)

	second, _, err := testExtractor(logger.NewNop()).Extract(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, first[0].MatchID, second[0].MatchID)
}

func TestExtract_HeaderDrivenColumns(t *testing.T) {
	page := `<table>
	  <tr><th>match_id</th><th>date</th><th>start_time</th><th>home_team</th><th>away_team</th><th>venue_id</th><th>referee_id</th><th>role</th></tr>
	  <tr><td>M1</td><td>2024-03-10</td><td>18:30</td><td>Home</td><td>Away</td><td>V1</td><td>R1</td><td>Marqueur</td></tr>
	  <tr><td>match_id</td><td>date</td><td>start_time</td><td>home_team</td><td>away_team</td><td>venue_id</td><td>referee_id</td><td>role</td></tr>
	</table>`

	records, stats, err := testExtractor(logger.NewNop()).Extract(strings.NewReader(page))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, Record{
		MatchID: "M1", Date: "2024-03-10", StartTime: "18:30", HomeTeam: "Home", AwayTeam: "Away",
		VenueID: "V1", RefereeID: "R1", Role: RoleScorer,
	}, records[0])
	assert.Equal(t, 1, stats.Skipped)
}

func TestExtract_NoTable(t *testing.T) {
	_, _, err := testExtractor(logger.NewNop()).Extract(strings.NewReader(`<p>Identifiant</p>`))
	require.Error(t, err)
}
