package storage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// Artifact file names inside the output directory.
const (
	MatchesHTML   = "matches_response.html"
	AddressesHTML = "addresses_response.html"
	RefereesHTML  = "referees_response.html"
	MatchesCSV    = "matches.csv"
	AddressesCSV  = "addresses.csv"
	RefereesCSV   = "referees.csv"
	CalendarFile  = "matches_calendar.ics"
)

// ErrNotFound is returned when a saved artifact does not exist yet.
var ErrNotFound = errors.New("artifact not found")

// Storage reads and writes run artifacts in one directory.
type Storage struct {
	dir string
}

// New creates a Storage rooted at dir, expanding a leading "~/" and creating
// the directory when missing.
func New(dir string) (*Storage, error) {
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "getting home directory")
		}
		dir = filepath.Join(home, dir[2:])
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating output directory")
	}

	return &Storage{dir: dir}, nil
}

// Dir returns the resolved output directory.
func (s *Storage) Dir() string {
	return s.dir
}

// Path returns the path of an artifact.
func (s *Storage) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// SaveHTML stores a fetched page under name.
func (s *Storage) SaveHTML(name string, body []byte) error {
	return s.write(name, body)
}

// LoadHTML returns a previously saved page, or ErrNotFound.
func (s *Storage) LoadHTML(name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "%s", name)
		}
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	return data, nil
}

// WriteCalendar stores the serialized calendar.
func (s *Storage) WriteCalendar(data []byte) error {
	return s.write(CalendarFile, data)
}

// write replaces an artifact atomically: a reader never sees a partial file.
func (s *Storage) write(name string, data []byte) error {
	path := s.Path(name)

	tmp, err := os.CreateTemp(s.dir, "."+name+"-*.tmp")
	if err != nil {
		return errors.Wrapf(err, "writing %s", name)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "writing %s", name)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "writing %s", name)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", name)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "writing %s", name)
	}
	return nil
}
