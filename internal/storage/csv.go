package storage

import (
	"bytes"
	"encoding/csv"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/refcal/refcal/internal/match"
	"github.com/refcal/refcal/internal/referee"
	"github.com/refcal/refcal/internal/venue"
)

// CSV schemas. Optional columns trail the required ones; readers accept files
// that stop after the required columns.
var (
	matchColumns        = []string{"match_id", "date", "start_time", "home_team", "away_team", "venue_id", "referee_id", "role"}
	matchOptionalCols   = []string{"league", "level"}
	addressColumns      = []string{"venue_id", "raw_address", "street", "city", "postal_code"}
	addressOptionalCols = []string{"name", "map_link"}
	refereeColumns      = []string{"referee_id", "display_name"}
)

// WriteMatches stores records as matches.csv.
func (s *Storage) WriteMatches(records []match.Record) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.MatchID, r.Date, r.StartTime, r.HomeTeam, r.AwayTeam,
			r.VenueID, r.RefereeID, string(r.Role), r.League, r.Level,
		})
	}
	return s.writeCSV(MatchesCSV, append(matchColumns, matchOptionalCols...), rows)
}

// ReadMatches loads matches.csv. A missing file yields no records and no error.
func (s *Storage) ReadMatches() ([]match.Record, error) {
	rows, err := s.readCSV(MatchesCSV, matchColumns)
	if err != nil || rows == nil {
		return nil, err
	}
	records := make([]match.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, match.Record{
			MatchID:   row["match_id"],
			Date:      row["date"],
			StartTime: row["start_time"],
			HomeTeam:  row["home_team"],
			AwayTeam:  row["away_team"],
			VenueID:   row["venue_id"],
			RefereeID: row["referee_id"],
			Role:      match.ParseRole(row["role"]),
			League:    row["league"],
			Level:     row["level"],
		})
	}
	return records, nil
}

// WriteAddresses stores venues as addresses.csv.
func (s *Storage) WriteAddresses(venues []venue.Venue) error {
	rows := make([][]string, 0, len(venues))
	for _, v := range venues {
		rows = append(rows, []string{v.ID, v.RawAddress, v.Street, v.City, v.PostalCode, v.Name, v.MapLink})
	}
	return s.writeCSV(AddressesCSV, append(addressColumns, addressOptionalCols...), rows)
}

// ReadAddresses loads addresses.csv. A missing file yields no venues.
func (s *Storage) ReadAddresses() ([]venue.Venue, error) {
	rows, err := s.readCSV(AddressesCSV, addressColumns)
	if err != nil || rows == nil {
		return nil, err
	}
	venues := make([]venue.Venue, 0, len(rows))
	for _, row := range rows {
		venues = append(venues, venue.Venue{
			ID:         row["venue_id"],
			Name:       row["name"],
			RawAddress: row["raw_address"],
			Street:     row["street"],
			City:       row["city"],
			PostalCode: row["postal_code"],
			MapLink:    row["map_link"],
		})
	}
	return venues, nil
}

// WriteReferees stores referees as referees.csv.
func (s *Storage) WriteReferees(refs []referee.Referee) error {
	rows := make([][]string, 0, len(refs))
	for _, r := range refs {
		rows = append(rows, []string{r.ID, r.DisplayName})
	}
	return s.writeCSV(RefereesCSV, refereeColumns, rows)
}

// ReadReferees loads referees.csv. A missing file yields no referees.
func (s *Storage) ReadReferees() ([]referee.Referee, error) {
	rows, err := s.readCSV(RefereesCSV, refereeColumns)
	if err != nil || rows == nil {
		return nil, err
	}
	refs := make([]referee.Referee, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, referee.Referee{ID: row["referee_id"], DisplayName: row["display_name"]})
	}
	return refs, nil
}

func (s *Storage) writeCSV(name string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return errors.Wrapf(err, "encoding %s", name)
	}
	if err := w.WriteAll(rows); err != nil {
		return errors.Wrapf(err, "encoding %s", name)
	}
	return s.write(name, buf.Bytes())
}

// readCSV returns one map per data row keyed by header name. It returns nil
// rows without error when the file does not exist.
func (s *Storage) readCSV(name string, required []string) ([]map[string]string, error) {
	f, err := os.Open(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "opening %s", name)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", name)
	}
	if len(records) == 0 {
		return []map[string]string{}, nil
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	present := make(map[string]bool, len(header))
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
		present[header[i]] = true
	}
	for _, col := range required {
		if !present[col] {
			return nil, errors.Newf("%s: missing column %q", name, col)
		}
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
