// Package fetch retrieves the association's listing pages with the session
// cookies of a logged-in browser.
package fetch

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"
	"github.com/refcal/refcal/internal/logger"
)

// ErrSessionExpired is returned when the site answers with its login page.
var ErrSessionExpired = errors.New("session expired, export fresh cookies from the browser")

// DefaultLoginKeywords only appear on the site's login form.
var DefaultLoginKeywords = []string{"se connecter", "mot de passe", "identifiant"}

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Options configures a Client.
type Options struct {
	Cookies       []*http.Cookie
	Timeout       time.Duration
	LoginKeywords []string
	Log           *logger.Logger
}

// Client fetches authenticated pages.
type Client struct {
	http     *resty.Client
	keywords []string
	log      *logger.Logger
}

// New returns a client that sends opts.Cookies with every request.
func New(opts Options) *Client {
	client := resty.New()
	client.SetCookies(opts.Cookies)
	client.SetHeader("User-Agent", userAgent)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client.SetTimeout(timeout)

	keywords := opts.LoginKeywords
	if len(keywords) == 0 {
		keywords = DefaultLoginKeywords
	}
	log := opts.Log
	if log == nil {
		log = logger.Default()
	}

	return &Client{http: client, keywords: keywords, log: log}
}

// Fetch GETs url and returns the body. A non-2xx status is an error, and so
// is a login page, reported as ErrSessionExpired.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", url)
	}

	c.log.Info("Fetched page", logger.Fields{
		"url":         url,
		"status":      resp.StatusCode(),
		"bytes":       len(resp.Body()),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.IsError() {
		return nil, errors.Newf("fetching %s: HTTP %d", url, resp.StatusCode())
	}
	body := resp.Body()
	if IsLoginPage(body, c.keywords) {
		return body, errors.Wrapf(ErrSessionExpired, "fetching %s", url)
	}
	return body, nil
}

// IsLoginPage reports whether body contains any login keyword, ignoring case.
func IsLoginPage(body []byte, keywords []string) bool {
	lower := bytes.ToLower(body)
	for _, k := range keywords {
		if k != "" && bytes.Contains(lower, bytes.ToLower([]byte(k))) {
			return true
		}
	}
	return false
}
