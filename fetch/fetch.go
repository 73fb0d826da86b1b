// Package fetch issues the single HTTP GET per missing sub-range
// against the upstream Synoptic Data timeseries feed and streams the
// response body back for ingest to consume.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nimbuswx/obsdb/internal/obserr"
	"github.com/nimbuswx/obsdb/timerange"
)

const (
	userAgent  = "obsdb/1.0"
	timeLayout = "200601021504"
)

// apiBase is the upstream endpoint. It's a var rather than a baked-in
// constant so tests can point it at an httptest server.
var apiBase = "https://api.synopticdata.com/v2/stations/timeseries"

const urlFormat = "%s?stid=%s&vars=air_temp,precip_accum_one_hour&units=english&output=csv&start=%s&end=%s&hfmetars=0&token=%s"

// Fetcher owns the single HTTP client handle reused across calls, as
// the original cache's global one-time curl init did.
type Fetcher struct {
	base   string
	client *http.Client
}

// New constructs a Fetcher with a client tuned for one request at a
// time against a single upstream host.
func New() *Fetcher {
	return newWithBase(apiBase)
}

// NewWithBase constructs a Fetcher against an arbitrary base URL
// instead of the production Synoptic Data endpoint. It exists for
// callers (and their tests) that need to point a Store at a stand-in
// server; obsdb.Connect always uses New.
func NewWithBase(base string) *Fetcher {
	return newWithBase(base)
}

func newWithBase(base string) *Fetcher {
	return &Fetcher{
		base: base,
		client: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        2,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// URL builds the bit-exact upstream request URL for site over tr.
func URL(site string, tr timerange.TimeRange, apiKey string) string {
	return buildURL(apiBase, site, tr, apiKey)
}

func buildURL(base, site string, tr timerange.TimeRange, apiKey string) string {
	return fmt.Sprintf(urlFormat, base, site, tr.Start.UTC().Format(timeLayout), tr.End.UTC().Format(timeLayout), apiKey)
}

// Fetch issues one GET for the given site and range and returns the
// streamed, unread response body. The caller owns the returned
// io.ReadCloser and must close it.
func (f *Fetcher) Fetch(ctx context.Context, site string, tr timerange.TimeRange, apiKey string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, buildURL(f.base, site, tr, apiKey), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", obserr.ErrUpstreamFetchFailed, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", obserr.ErrUpstreamFetchFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: upstream returned status %s", obserr.ErrUpstreamFetchFailed, resp.Status)
	}

	return resp.Body, nil
}
