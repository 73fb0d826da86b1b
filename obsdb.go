// Package obsdb answers queries about historical hourly surface
// weather observations — air temperature in degrees Fahrenheit and
// one-hour accumulated precipitation in inches — for reporting sites
// identified by opaque lowercase string identifiers. It transparently
// satisfies queries from a persistent local cache and, when the cache
// lacks coverage, fills the gaps from a remote HTTP CSV feed before
// re-answering from the cache.
//
// A Store is not safe for concurrent use. One Store owns one cache
// file and one HTTP client; callers must not issue concurrent calls
// on the same Store.
package obsdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nimbuswx/obsdb/aggregate"
	"github.com/nimbuswx/obsdb/fetch"
	"github.com/nimbuswx/obsdb/ingest"
	"github.com/nimbuswx/obsdb/inventory"
	"github.com/nimbuswx/obsdb/store"
	"github.com/nimbuswx/obsdb/timerange"
)

// maxSiteLen is the longest accepted site identifier, matching the
// fixed-size lowercase copy buffer in the original cache.
const maxSiteLen = 31

// TimeRange is re-exported for callers so they don't need to import
// the timerange sub-package directly.
type TimeRange = timerange.TimeRange

// TemperatureOb is one aggregated per-window temperature reading.
type TemperatureOb = aggregate.TemperatureOb

// PrecipitationOb is one aggregated per-window precipitation total.
type PrecipitationOb = aggregate.PrecipitationOb

// Store is a connected handle to the local observation cache and the
// upstream HTTP feed used to fill it.
type Store struct {
	cache   *store.Store
	fetcher *fetch.Fetcher
	apiKey  string
}

// Connect opens (creating if necessary) the local cache and prepares
// the HTTP client used to fill gaps from the upstream feed identified
// by apiKey.
func Connect(apiKey string) (*Store, error) {
	cache, err := store.Open()
	if err != nil {
		return nil, err
	}

	return &Store{
		cache:   cache,
		fetcher: fetch.New(),
		apiKey:  apiKey,
	}, nil
}

// Close prunes stale rows from the cache and releases the underlying
// connection. The Store must not be used after Close.
func (s *Store) Close() error {
	return s.cache.Close()
}

func normalizeSite(site string) string {
	if site == "" {
		badArgument("normalizeSite", "site must not be empty")
	}
	if len(site) > maxSiteLen {
		badArgument("normalizeSite", fmt.Sprintf("site %q exceeds %d bytes", site, maxSiteLen))
	}
	return strings.ToLower(site)
}

// fillGaps asks the inventory for missing ranges over scanTr and, for
// each one (in ascending order), fetches and ingests it. It aborts on
// the first fetch or ingest failure; rows already committed by
// earlier sub-ranges remain in the cache.
func (s *Store) fillGaps(ctx context.Context, site string, scanTr timerange.TimeRange) error {
	_, gaps, err := inventory.Have(ctx, s.cache, site, scanTr)
	if err != nil {
		return err
	}

	for _, gap := range gaps {
		body, err := s.fetcher.Fetch(ctx, site, gap, s.apiKey)
		if err != nil {
			return err
		}

		err = ingest.Run(ctx, s.cache, site, body)
		body.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

func scanRangeForWindow(tr timerange.TimeRange, windowLength int) timerange.TimeRange {
	lookback := time.Duration(windowLength) * time.Hour
	return timerange.TimeRange{Start: tr.Start.Add(-lookback), End: tr.End}
}

func (s *Store) queryTemperature(ctx context.Context, site string, tr TimeRange, windowEnd, windowLength int, mode aggregate.Mode) ([]TemperatureOb, error) {
	if !tr.Start.Before(tr.End) {
		badArgument("queryTemperature", "tr.Start must be before tr.End")
	}
	if windowEnd > 24 {
		badArgument("queryTemperature", "windowEnd must be <= 24")
	}
	if windowLength < 1 {
		badArgument("queryTemperature", "windowLength must be >= 1")
	}

	site = normalizeSite(site)
	scanTr := scanRangeForWindow(tr, windowLength)

	if err := s.fillGaps(ctx, site, scanTr); err != nil {
		return nil, err
	}

	rows, err := s.cache.ScanAsc(ctx, site, scanTr.Start.Unix(), scanTr.End.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return aggregate.Temperatures(rows, tr, windowLength, mode)
}

// QueryMaxT returns the maximum temperature in each 24-hour-stepped
// window of windowLength hours over tr, fetching any missing upstream
// data first. windowEnd is reserved; windows are always anchored at
// 00:00 UTC.
func (s *Store) QueryMaxT(ctx context.Context, site string, tr TimeRange, windowEnd, windowLength int) ([]TemperatureOb, error) {
	return s.queryTemperature(ctx, site, tr, windowEnd, windowLength, aggregate.MaxMode)
}

// QueryMinT returns the minimum temperature in each 24-hour-stepped
// window of windowLength hours over tr, fetching any missing upstream
// data first. windowEnd is reserved; windows are always anchored at
// 00:00 UTC.
func (s *Store) QueryMinT(ctx context.Context, site string, tr TimeRange, windowEnd, windowLength int) ([]TemperatureOb, error) {
	return s.queryTemperature(ctx, site, tr, windowEnd, windowLength, aggregate.MinMode)
}

// QueryPrecipitation returns accumulated precipitation in each
// windowIncrement-hour-stepped window of windowLength hours over tr,
// fetching any missing upstream data first. windowOffset is reserved;
// windows are always anchored at 00:00 UTC.
func (s *Store) QueryPrecipitation(ctx context.Context, site string, tr TimeRange, windowLength, windowIncrement, windowOffset int) ([]PrecipitationOb, error) {
	if !tr.Start.Before(tr.End) {
		badArgument("QueryPrecipitation", "tr.Start must be before tr.End")
	}
	if windowOffset > 24 {
		badArgument("QueryPrecipitation", "windowOffset must be <= 24")
	}
	if windowLength < 1 {
		badArgument("QueryPrecipitation", "windowLength must be >= 1")
	}

	site = normalizeSite(site)
	scanTr := scanRangeForWindow(tr, windowLength)

	if err := s.fillGaps(ctx, site, scanTr); err != nil {
		return nil, err
	}

	rows, err := s.cache.ScanAsc(ctx, site, scanTr.Start.Unix(), scanTr.End.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return aggregate.Precipitation(rows, tr, windowLength, windowIncrement)
}
