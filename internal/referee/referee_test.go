package referee

import (
	"strings"
	"testing"

	"github.com/refcal/refcal/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rosterPage = `<html><body>
<table class="adminlist">
  <thead><tr><th>Numéro</th><th>Nom</th><th>Prénom</th><th>Ville</th><th>Téléphone 1</th><th>Téléphone 2</th><th>Courriel</th></tr></thead>
  <tbody>
    <tr><td>R1</td><td>Doe</td><td>Jane</td><td>Québec</td><td>418-555-0101</td><td></td><td>jane@example.com</td></tr>
    <tr><td>R2</td><td>Côté</td><td>Frédérique</td><td>Lévis</td><td></td><td></td><td></td></tr>
    <tr><td>R3</td><td></td><td></td><td>Québec</td><td></td><td></td><td></td></tr>
    <tr><td></td><td>Orphan</td><td>Row</td><td></td><td></td><td></td><td></td></tr>
    <tr><td>R1</td><td>Doe</td><td>Janet</td><td>Québec</td><td></td><td></td><td></td></tr>
  </tbody>
</table>
</body></html>`

func TestParse(t *testing.T) {
	d, stats, err := Parse(strings.NewReader(rosterPage), logger.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 3, d.Len())
	assert.Equal(t, 4, stats.Parsed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Degraded)
	assert.Equal(t, 1, stats.Duplicates)

	assert.Equal(t, "Doe Janet", d.Name("R1"))
	assert.Equal(t, "Côté Frédérique", d.Name("R2"))
	assert.Equal(t, Unknown, d.Name("R3"))
	assert.Equal(t, Unknown, d.Name("R404"))
	assert.Equal(t, Unknown, d.Name(""))

	refs := d.Referees()
	require.Len(t, refs, 3)
	assert.Equal(t, []string{"R1", "R2", "R3"}, []string{refs[0].ID, refs[1].ID, refs[2].ID})
}

func TestParse_PositionFallback(t *testing.T) {
	page := `<table><tr><td>7</td><td>Tremblay</td><td>Luc</td></tr></table>`

	d, _, err := Parse(strings.NewReader(page), logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "Tremblay Luc", d.Name("7"))
}

func TestParse_SingleNameColumn(t *testing.T) {
	page := `<table>
	  <tr><th>referee_id</th><th>display_name</th></tr>
	  <tr><td>R1</td><td>Jane Doe</td></tr>
	</table>`

	d, _, err := Parse(strings.NewReader(page), logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", d.Name("R1"))
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		last, first string
		want        string
	}{
		{"Doe", "Jane", "Doe Jane"},
		{" Doe ", "", "Doe"},
		{"", "Jane", "Jane"},
		{"", "  ", Unknown},
	}

	for _, tt := range tests {
		if got := DisplayName(tt.last, tt.first); got != tt.want {
			t.Errorf("DisplayName(%q, %q) = %q, want %q", tt.last, tt.first, got, tt.want)
		}
	}
}

func TestDirectory_Get(t *testing.T) {
	d := NewDirectory([]Referee{{ID: "R1", DisplayName: "Jane Doe"}, {ID: "R2"}})

	r, ok := d.Get(" R1 ")
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", r.DisplayName)
	assert.Equal(t, Unknown, d.Name("R2"))
}
