// Package aggregate reduces ordered hourly observation scans into
// per-window outputs: max/min temperature and accumulated
// precipitation.
package aggregate

import (
	"fmt"
	"math"
	"time"

	"github.com/nimbuswx/obsdb/internal/obserr"
	"github.com/nimbuswx/obsdb/store"
	"github.com/nimbuswx/obsdb/timerange"
)

const hourSeconds = 3600

// MaxMode and MinMode select which temperature reduction to perform.
type Mode int

const (
	MaxMode Mode = iota
	MinMode
)

// TemperatureOb is one aggregated per-window temperature value.
// TemperatureF is NaN when no hourly reading fell in the window.
type TemperatureOb struct {
	ValidTime    time.Time
	TemperatureF float64
}

// PrecipitationOb is one aggregated per-window precipitation total.
type PrecipitationOb struct {
	ValidTime time.Time
	PrecipIn  float64
}

// calculateNumResults bounds how many windows the framing loops below
// may emit, as a safety valve against an unreasonable window/range
// combination. Because windows are (window_start, window_end] rather
// than the original's half-open framing, the count is rounded up and
// padded by one window of slack rather than truncated, so a
// boundary-aligned tr.Start (the common case) never gets capped one
// window short of its true count.
func calculateNumResults(tr timerange.TimeRange, step int) (int, error) {
	diffSeconds := tr.End.Unix() - tr.Start.Unix()
	numResults := math.Ceil(float64(diffSeconds)/hourSeconds/float64(step)) + 1
	if numResults >= float64(math.MaxInt)/2.0 {
		return 0, fmt.Errorf("%w: too many results for range %s with step %dh", obserr.ErrWindowExplosion, tr, step)
	}
	return int(numResults), nil
}

// firstWindowEnd computes end_prd: 00:00 UTC of the day containing
// tr.Start, advanced by stepHours until it lies strictly after
// tr.Start. Windows are (window_start, window_end], so a window
// ending exactly at tr.Start would contribute nothing past tr.Start
// and must be skipped.
func firstWindowEnd(tr timerange.TimeRange, stepHours int) time.Time {
	dayStart := time.Date(tr.Start.UTC().Year(), tr.Start.UTC().Month(), tr.Start.UTC().Day(), 0, 0, 0, 0, time.UTC)
	step := time.Duration(stepHours) * time.Hour

	endPrd := dayStart
	for !endPrd.After(tr.Start) {
		endPrd = endPrd.Add(step)
	}
	return endPrd
}

// Temperatures reduces the ascending hourly scan rows into windowed
// max or min temperature values, aligned to 00:00 UTC and stepping by
// 24h. Windows with no hourly reading emit NaN.
func Temperatures(rows *store.Rows, tr timerange.TimeRange, windowLength int, mode Mode) ([]TemperatureOb, error) {
	type hourly struct {
		validTime time.Time
		tF        float64
	}

	var hourlies []hourly
	for rows.Next() {
		r := rows.Row()
		if r.TF == nil {
			continue
		}
		hourlies = append(hourlies, hourly{validTime: r.ValidTime, tF: *r.TF})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	calcNumRes, err := calculateNumResults(tr, 24)
	if err != nil {
		return nil, err
	}

	var results []TemperatureOb
	lastStart := 0

	endPrd := firstWindowEnd(tr, 24)
	step := 24 * time.Hour
	windowSpan := time.Duration(windowLength) * time.Hour

	for !endPrd.After(tr.End) && len(results) < calcNumRes {
		strPrd := endPrd.Add(-windowSpan)

		maxMinVal := math.NaN()
		for lastStart < len(hourlies) && !hourlies[lastStart].validTime.After(strPrd) {
			lastStart++
		}
		for i := lastStart; i < len(hourlies); i++ {
			vt := hourlies[i].validTime
			val := hourlies[i].tF

			if vt.After(endPrd) {
				break
			}

			switch {
			case math.IsNaN(maxMinVal):
				maxMinVal = val
			case mode == MaxMode && val > maxMinVal:
				maxMinVal = val
			case mode == MinMode && val < maxMinVal:
				maxMinVal = val
			}
		}

		results = append(results, TemperatureOb{ValidTime: endPrd, TemperatureF: maxMinVal})
		endPrd = endPrd.Add(step)
	}

	return results, nil
}

// Precipitation reduces the ascending hourly scan rows into windowed
// accumulated precipitation totals, aligned to 00:00 UTC and stepping
// by windowIncrement hours.
func Precipitation(rows *store.Rows, tr timerange.TimeRange, windowLength, windowIncrement int) ([]PrecipitationOb, error) {
	type hourly struct {
		validTime time.Time
		precipIn  float64
	}

	var hourlies []hourly
	for rows.Next() {
		r := rows.Row()
		if r.PrecipIn1hr == nil {
			continue
		}
		hourlies = append(hourlies, hourly{validTime: r.ValidTime, precipIn: *r.PrecipIn1hr})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	calcNumRes, err := calculateNumResults(tr, windowIncrement)
	if err != nil {
		return nil, err
	}

	var results []PrecipitationOb
	lastStart := 0

	endPrd := firstWindowEnd(tr, windowIncrement)
	step := time.Duration(windowIncrement) * time.Hour
	windowSpan := time.Duration(windowLength) * time.Hour

	for !endPrd.After(tr.End) && len(results) < calcNumRes {
		strPrd := endPrd.Add(-windowSpan)

		for lastStart < len(hourlies) && !hourlies[lastStart].validTime.After(strPrd) {
			lastStart++
		}

		sumVal := 0.0
		lastHour := -1
		lastHourVal := 0.0
		traceFlag := false

		for i := lastStart; i < len(hourlies); i++ {
			vt := hourlies[i].validTime
			val := hourlies[i].precipIn

			if vt.After(endPrd) {
				break
			}

			if val < 0.01 && val > 0.0 {
				traceFlag = true
			} else {
				hour := vt.Hour()
				if hour != lastHour {
					sumVal += lastHourVal
				}
				lastHour = hour
				lastHourVal = val
			}
		}
		sumVal += lastHourVal

		if traceFlag && sumVal < 0.005 {
			sumVal = 0.001
		}

		results = append(results, PrecipitationOb{ValidTime: endPrd, PrecipIn: sumVal})
		endPrd = endPrd.Add(step)
	}

	return results, nil
}
