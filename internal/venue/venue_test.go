package venue

import (
	"bytes"
	"strings"
	"testing"

	"github.com/refcal/refcal/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		raw        string
		street     string
		city       string
		postalCode string
	}{
		{"123 Main St, Springfield, A1B 2C3", "123 Main St", "Springfield", "A1B 2C3"},
		{"456 Rue Principale, Lévis, QC G6V 1A1", "456 Rue Principale", "Lévis", "G6V 1A1"},
		{"456 Rue Principale, Lévis QC G6V1A1", "456 Rue Principale", "Lévis", "G6V 1A1"},
		{"1000, rue des Érables, Québec (Québec) g1r 2b5", "1000, rue des Érables", "Québec", "G1R 2B5"},
		{"1 Infinite Loop, Cupertino, CA 95014", "1 Infinite Loop", "Cupertino", "95014"},
		{"2 Elm St,   Lakeview ,  12345-6789", "2 Elm St", "Lakeview", "12345-6789"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v := ParseAddress(tt.raw)
			assert.Equal(t, tt.raw, v.RawAddress)
			assert.Equal(t, tt.street, v.Street)
			assert.Equal(t, tt.city, v.City)
			assert.Equal(t, tt.postalCode, v.PostalCode)
			assert.True(t, v.Structured())
		})
	}
}

func TestParseAddress_Unsplittable(t *testing.T) {
	tests := []string{
		"Gymnase de l'École Jean-de-Brébeuf",
		"123 Main St, Springfield",
		"Springfield A1B 2C3",
		"",
	}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			v := ParseAddress(raw)
			assert.Equal(t, raw, v.RawAddress)
			assert.Empty(t, v.Street)
			assert.Empty(t, v.City)
			assert.Empty(t, v.PostalCode)
			assert.False(t, v.Structured())
		})
	}
}

func TestVenue_Location(t *testing.T) {
	v := ParseAddress("123 Main St, Springfield, A1B 2C3")
	assert.Equal(t, "123 Main St, Springfield A1B 2C3", v.Location())

	raw := ParseAddress("Gymnase de l'École  Jean-de-Brébeuf")
	assert.Equal(t, "Gymnase de l'École Jean-de-Brébeuf", raw.Location())

	assert.Equal(t, "", Venue{}.Location())
}

func TestVenue_Maps(t *testing.T) {
	v := ParseAddress("123 Main St, Springfield, A1B 2C3")
	assert.Equal(t, "https://www.google.com/maps/search/?api=1&query=123+Main+St%2C+Springfield+A1B+2C3", v.Maps())

	v.MapLink = "https://maps.app.goo.gl/abc"
	assert.Equal(t, "https://maps.app.goo.gl/abc", v.Maps())

	assert.Equal(t, "", Venue{}.Maps())
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Coll. St-Charles-Garnier (gym B)", "college saint charles garnier"},
		{"Sém. de Québec", "seminaire de quebec"},
		{"École Ste-Famille", "ecole sainte famille"},
		{"CFP Fierbourg", "centre de formation professionnel fierbourg"},
		{"École Le May", "ecole lemay"},
		{"L.-J. Casault", "louis jacques casault"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizeName(tt.in); got != tt.want {
			t.Errorf("normalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOverlap(t *testing.T) {
	assert.Equal(t, 1.0, overlap("a b", "b a"))
	assert.Equal(t, 0.5, overlap("a b", "a c"))
	assert.Equal(t, 0.0, overlap("", "a"))
	assert.InDelta(t, 1.0/3.0, overlap("a", "a b c"), 1e-9)
}

func testDirectory() *Directory {
	return NewDirectory([]Venue{
		{ID: "Collège Saint-Charles-Garnier", Name: "Collège Saint-Charles-Garnier", RawAddress: "1150 Bd René-Lévesque O, Québec, G1S 1V7"},
		{ID: "Séminaire de Québec", Name: "Séminaire de Québec", RawAddress: "1 Rue des Remparts, Québec, G1R 5L7"},
		{ID: "École secondaire De Rochebelle", Name: "École secondaire De Rochebelle", RawAddress: "1095 Av. De Rochebelle, Québec, G1V 4P8"},
		{ID: "V1", Name: "Polyvalente de Charlesbourg", RawAddress: "900 Rue de la Sorbonne, Québec, G1H 1H1"},
	})
}

func TestDirectory_Resolve(t *testing.T) {
	d := testDirectory()

	tests := []struct {
		ref    string
		wantID string
		found  bool
	}{
		{"V1", "V1", true},
		{"Coll. St-Charles-Garnier", "Collège Saint-Charles-Garnier", true},
		{"Sém. de Québec (gymnase)", "Séminaire de Québec", true},
		{"Rochebelle", "École secondaire De Rochebelle", true},
		{"Polyvalente Charlesbourg", "V1", true},
		{"Aréna de Beauport", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			v, ok := d.Resolve(tt.ref)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.wantID, v.ID)
		})
	}
}

func TestDirectory_Threshold(t *testing.T) {
	d := testDirectory()
	// "polyvalente beauport" shares one of three words with "polyvalente de charlesbourg"
	_, ok := d.Resolve("Polyvalente Beauport")
	assert.False(t, ok)

	d.SetThreshold(0.3)
	v, ok := d.Resolve("Polyvalente Beauport")
	assert.True(t, ok)
	assert.Equal(t, "V1", v.ID)
}

func TestDirectory_AddReplaces(t *testing.T) {
	d := NewDirectory(nil)
	assert.False(t, d.Add(Venue{ID: "A", RawAddress: "first"}))
	assert.False(t, d.Add(Venue{ID: "B", RawAddress: "b"}))
	assert.True(t, d.Add(Venue{ID: "A", RawAddress: "second"}))

	venues := d.Venues()
	require.Len(t, venues, 2)
	assert.Equal(t, "A", venues[0].ID)
	assert.Equal(t, "second", venues[0].RawAddress)
	assert.Equal(t, 2, d.Len())
}

const addressPage = `<html><body>
<table class="adminlist">
  <tr><th>School Name</th><th>Address</th><th>Map Link</th></tr>
  <tr><td>École L'Odyssée</td><td>123 Main St, Springfield, A1B 2C3</td><td><a href="https://maps.example/odyssee">Carte</a></td></tr>
  <tr><td>Gymnase Saint-Jean</td><td>Derrière l'église</td><td></td></tr>
  <tr><td></td><td></td><td></td></tr>
  <tr><td>École L'Odyssée</td><td>125 Main St, Springfield, A1B 2C3</td><td>https://maps.example/new</td></tr>
</table>
</body></html>`

func TestParse(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.LevelDebug, &buf)

	d, stats, err := Parse(strings.NewReader(addressPage), log)
	require.NoError(t, err)

	assert.Equal(t, 2, d.Len())
	assert.Equal(t, 3, stats.Parsed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Degraded)
	assert.Equal(t, 1, stats.Duplicates)

	odyssee, ok := d.Get("École L'Odyssée")
	require.True(t, ok)
	assert.Equal(t, "125 Main St", odyssee.Street)
	assert.Equal(t, "https://maps.example/new", odyssee.MapLink)

	gym, ok := d.Get("Gymnase Saint-Jean")
	require.True(t, ok)
	assert.Equal(t, "Derrière l'église", gym.RawAddress)
	assert.Equal(t, "Derrière l'église", gym.Location())

	out := buf.String()
	assert.Contains(t, out, "Duplicate venue id, keeping last")
	assert.Contains(t, out, "Address not split, keeping raw text")
}

func TestParse_NoTable(t *testing.T) {
	_, _, err := Parse(strings.NewReader("<p>Se connecter</p>"), logger.NewNop())
	require.Error(t, err)
}
