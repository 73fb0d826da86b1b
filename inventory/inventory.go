// Package inventory implements the gap-detection scan that decides
// which parts of a requested time range are missing from the local
// cache and must be fetched from upstream before a query can be
// answered fully.
package inventory

import (
	"context"

	"github.com/nimbuswx/obsdb/store"
	"github.com/nimbuswx/obsdb/timerange"
)

// gapThresholdSeconds is the largest span between two consecutive rows
// (or between a range boundary and its nearest row) that is still
// considered contiguous rather than a gap.
const gapThresholdSeconds = 4000

// maxGaps bounds how many missing sub-ranges a single scan will
// report. Beyond this the scan stops early and returns what it found.
const maxGaps = 100

// Status summarizes the outcome of a Have scan.
type Status int

const (
	// Complete means no gaps were found; the range is fully cached.
	Complete Status = iota
	// Incomplete means one or more gaps were found and are returned.
	Incomplete
)

// Have scans the cache ascending over tr and reports which disjoint
// sub-ranges of tr are missing. Each returned gap lies strictly inside
// tr. If no rows exist at all for site within tr, the single gap
// returned is tr itself.
func Have(ctx context.Context, st *store.Store, site string, tr timerange.TimeRange) (Status, []timerange.TimeRange, error) {
	rows, err := st.ScanAsc(ctx, site, tr.Start.Unix(), tr.End.Unix())
	if err != nil {
		return Incomplete, nil, err
	}
	defer rows.Close()

	var gaps []timerange.TimeRange

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Incomplete, nil, err
		}
		return Incomplete, []timerange.TimeRange{tr}, nil
	}

	t1 := rows.Row().ValidTime

	if t1.Unix()-tr.Start.Unix() > gapThresholdSeconds {
		gaps = append(gaps, timerange.TimeRange{Start: tr.Start, End: t1})
	}

	for rows.Next() {
		t0 := t1
		t1 = rows.Row().ValidTime

		if t1.Unix()-t0.Unix() > gapThresholdSeconds {
			gaps = append(gaps, timerange.TimeRange{Start: t0, End: t1})
			if len(gaps) >= maxGaps {
				return Incomplete, gaps, nil
			}
		}
	}
	if err := rows.Err(); err != nil {
		return Incomplete, nil, err
	}

	if tr.End.Unix()-t1.Unix() > gapThresholdSeconds {
		gaps = append(gaps, timerange.TimeRange{Start: t1, End: tr.End})
	}

	if len(gaps) == 0 {
		return Complete, nil, nil
	}
	return Incomplete, gaps, nil
}
