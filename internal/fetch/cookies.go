package fetch

import (
	"encoding/json"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/refcal/refcal/internal/logger"
)

// ErrNoCookies is returned when the cookie export holds no usable cookie for
// the site.
var ErrNoCookies = errors.New("no usable cookies for site")

// browserCookie is one entry of a browser cookie export (the JSON array
// written by the usual "export cookies" extensions).
type browserCookie struct {
	Name           string   `json:"name"`
	Value          string   `json:"value"`
	Domain         string   `json:"domain"`
	Path           string   `json:"path"`
	Secure         bool     `json:"secure"`
	HTTPOnly       bool     `json:"httpOnly"`
	Session        bool     `json:"session"`
	ExpirationDate *float64 `json:"expirationDate"`
}

// LoadCookies reads a browser cookie export and keeps the cookies whose
// domain contains domain. Expired cookies are dropped with a warning.
func LoadCookies(path, domain string, now time.Time, log *logger.Logger) ([]*http.Cookie, error) {
	if log == nil {
		log = logger.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNoCookies, "%s not found, export your cookies from the browser", path)
		}
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	var raw []browserCookie
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}

	var cookies []*http.Cookie
	for _, c := range raw {
		if c.Name == "" || !strings.Contains(c.Domain, domain) {
			continue
		}

		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		if c.ExpirationDate != nil && !c.Session {
			sec, frac := math.Modf(*c.ExpirationDate)
			hc.Expires = time.Unix(int64(sec), int64(frac*1e9)).UTC()
			if hc.Expires.Before(now) {
				log.Warn("Dropping expired cookie", logger.Fields{"cookie": c.Name, "expired_at": hc.Expires.Format(time.RFC3339)})
				continue
			}
			log.Debug("Cookie loaded", logger.Fields{"cookie": c.Name, "expires_at": hc.Expires.Format(time.RFC3339)})
		} else {
			log.Debug("Session cookie loaded", logger.Fields{"cookie": c.Name})
		}
		cookies = append(cookies, hc)
	}

	if len(cookies) == 0 {
		return nil, errors.Wrapf(ErrNoCookies, "%s has no valid cookie for %s, log in and export again", path, domain)
	}
	log.Info("Loaded cookies", logger.Fields{"count": len(cookies), "domain": domain})
	return cookies, nil
}
