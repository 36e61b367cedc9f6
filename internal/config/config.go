// Package config loads refcal settings from an optional YAML file and the
// environment.
package config

import (
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // the venues' timezone must resolve on hosts without zoneinfo

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Pages holds the three listing URLs.
type Pages struct {
	Matches   string `yaml:"matches" validate:"required,url"`
	Addresses string `yaml:"addresses" validate:"required,url"`
	Referees  string `yaml:"referees" validate:"required,url"`
}

// Config is the complete run configuration.
type Config struct {
	// Domain selects which exported cookies are sent.
	Domain string `yaml:"domain" validate:"required"`
	Pages  Pages  `yaml:"pages"`

	CookiesFile string `yaml:"cookies_file" validate:"required"`
	OutputDir   string `yaml:"output_dir" validate:"required"`

	// Timezone of the association's venues; every match starts in it.
	Timezone      string        `yaml:"timezone" validate:"required"`
	MatchDuration time.Duration `yaml:"match_duration" validate:"gt=0"`

	UIDDomain    string `yaml:"uid_domain" validate:"required"`
	CalendarName string `yaml:"calendar_name"`

	// VenueMatchThreshold is the word-overlap score a fuzzy venue match must exceed.
	VenueMatchThreshold float64 `yaml:"venue_match_threshold" validate:"gt=0,lte=1"`

	FetchTimeout  time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
	LoginKeywords []string      `yaml:"login_keywords"`

	// MetricsFile, when set, receives a Prometheus textfile after each run.
	MetricsFile string `yaml:"metrics_file"`
	LogLevel    string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

const defaultDomain = "aabrq.ca"

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	base := "https://" + defaultDomain + "/arbitres/index.php?option=com_aabrq"
	return &Config{
		Domain: defaultDomain,
		Pages: Pages{
			Matches:   base + "&view=assignmentlist&Itemid=78",
			Addresses: base + "&view=schoollist&id=47&Itemid=54",
			Referees:  base + "&view=addressbook&Itemid=80",
		},
		CookiesFile:         "data/cookies.json",
		OutputDir:           "output",
		Timezone:            "America/Toronto",
		MatchDuration:       90 * time.Minute,
		UIDDomain:           "refcal." + defaultDomain,
		CalendarName:        "Mes assignations",
		VenueMatchThreshold: 0.45,
		FetchTimeout:        10 * time.Second,
		LoginKeywords:       []string{"se connecter", "mot de passe", "identifiant"},
		LogLevel:            "info",
	}
}

// Normalize fills zero values from DefaultConfig so partial files still work.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Domain == "" {
		c.Domain = d.Domain
	}
	if c.Pages.Matches == "" {
		c.Pages.Matches = d.Pages.Matches
	}
	if c.Pages.Addresses == "" {
		c.Pages.Addresses = d.Pages.Addresses
	}
	if c.Pages.Referees == "" {
		c.Pages.Referees = d.Pages.Referees
	}
	if c.CookiesFile == "" {
		c.CookiesFile = d.CookiesFile
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.MatchDuration == 0 {
		c.MatchDuration = d.MatchDuration
	}
	if c.UIDDomain == "" {
		c.UIDDomain = "refcal." + c.Domain
	}
	if c.VenueMatchThreshold == 0 {
		c.VenueMatchThreshold = d.VenueMatchThreshold
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	if c.LoginKeywords == nil {
		c.LoginKeywords = d.LoginKeywords
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Load reads the YAML file at path, applies environment overrides and
// defaults, then validates the result. An empty path or a missing file
// means defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, errors.Wrapf(err, "reading config %s", path)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "parsing config %s", path)
			}
		}
	}

	cfg.applyEnv()
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets the environment override the file for the settings that
// usually differ between machines.
func (c *Config) applyEnv() {
	if v := os.Getenv("REFCAL_COOKIES"); v != "" {
		c.CookiesFile = v
	}
	if v := os.Getenv("REFCAL_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("REFCAL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("REFCAL_METRICS_FILE"); v != "" {
		c.MetricsFile = v
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and that the timezone exists.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fe.Namespace()+": failed "+fe.Tag())
			}
			return errors.Newf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return errors.Wrap(err, "invalid config")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return errors.Wrapf(err, "invalid config: timezone %q", c.Timezone)
	}
	return nil
}

// Location returns the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "loading timezone %q", c.Timezone)
	}
	return loc, nil
}
