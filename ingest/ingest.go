// Package ingest streams a CSV observation feed into the local cache
// inside a single all-or-nothing transaction.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/nimbuswx/obsdb/internal/obserr"
	"github.com/nimbuswx/obsdb/store"
)

// rowState names where the parser sits in the life of one CSV body.
// The upstream feed's leading commentary block is handled by this
// state machine itself (not handed off to encoding/csv's Comment
// field), so stateScanningComment is a real, observable phase: every
// record is routed through it until the header is found.
type rowState int

const (
	stateScanningComment rowState = iota
	stateReadingHeader
	stateReadingRow
	stateRowComplete
	stateError
)

type columnIndex struct {
	validTime int
	tempF     int
	precipIn  int
}

const noColumn = -1

func resolveColumns(header []string) columnIndex {
	idx := columnIndex{validTime: noColumn, tempF: noColumn, precipIn: noColumn}
	for i, cell := range header {
		switch {
		case strings.Contains(cell, "Date_Time"):
			idx.validTime = i
		case strings.Contains(cell, "air_temp_set_1"):
			idx.tempF = i
		case strings.Contains(cell, "precip_accum_one_hour_set_1"):
			idx.precipIn = i
		}
	}
	return idx
}

func isCommentRecord(record []string) bool {
	return len(record) > 0 && strings.HasPrefix(strings.TrimSpace(record[0]), "#")
}

// parser is the explicit state value the design notes called for: it
// starts in stateScanningComment, resolves the column-index table the
// moment the first non-comment record (the header) fires, and from
// then on alternates stateReadingRow/stateRowComplete once per
// record. stateError is set by Run on a fatal condition and is read
// back after the loop to choose rollback over commit.
type parser struct {
	state rowState
	cols  columnIndex
}

// onRecord advances the parser by one CSV record and reports the
// parsed row, if the record yielded one ready for insertion.
func (p *parser) onRecord(record []string) (validTime time.Time, tF, precipIn *float64, ok bool) {
	if p.state == stateScanningComment {
		if isCommentRecord(record) {
			return time.Time{}, nil, nil, false
		}
		p.cols = resolveColumns(record)
		p.state = stateReadingHeader
		return time.Time{}, nil, nil, false
	}

	if p.state == stateReadingHeader || p.state == stateRowComplete {
		p.state = stateReadingRow
	}

	validTime, tF, precipIn, ok = parseRow(record, p.cols)
	p.state = stateRowComplete
	if !ok {
		log.Printf("obsdb: ingest: skipping malformed row %q", record)
		return time.Time{}, nil, nil, false
	}
	return validTime, tF, precipIn, true
}

// Run streams r (one upstream CSV response body) into st for site,
// inside one transaction committed only if the stream ends cleanly.
// Malformed individual rows are logged and skipped without aborting
// the run; a fatal framing error or insert failure rolls the whole
// transaction back.
func Run(ctx context.Context, st *store.Store, site string, r io.Reader) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	tx, err := st.Begin(ctx)
	if err != nil {
		return err
	}

	p := &parser{state: stateScanningComment}
	inserted := 0
	var fatalErr error

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			p.state = stateError
			fatalErr = fmt.Errorf("%w: %v", obserr.ErrCsvParseFatal, err)
			break
		}

		validTime, tF, precipIn, ok := p.onRecord(record)
		if !ok {
			continue
		}

		if err := tx.Insert(ctx, validTime, site, tF, precipIn); err != nil {
			p.state = stateError
			fatalErr = err
			break
		}
		inserted++
	}

	if p.state == stateError {
		tx.Rollback()
		return fatalErr
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Printf("obsdb: ingest %s: inserted %d rows", site, inserted)
	return nil
}

func parseRow(record []string, cols columnIndex) (validTime time.Time, tF, precipIn *float64, ok bool) {
	if cols.validTime == noColumn || cols.validTime >= len(record) {
		return time.Time{}, nil, nil, false
	}

	rawTime := strings.TrimSpace(record[cols.validTime])
	if rawTime == "" {
		return time.Time{}, nil, nil, false
	}

	t, err := time.Parse("2006-01-02T15:04:05Z", rawTime)
	if err != nil {
		return time.Time{}, nil, nil, false
	}

	if cols.tempF == noColumn || cols.tempF >= len(record) {
		return time.Time{}, nil, nil, false
	}
	rawTemp := strings.TrimSpace(record[cols.tempF])
	if rawTemp == "" {
		return time.Time{}, nil, nil, false
	}
	tempVal, err := strconv.ParseFloat(rawTemp, 64)
	if err != nil {
		return time.Time{}, nil, nil, false
	}

	precipVal := 0.0
	if cols.precipIn != noColumn && cols.precipIn < len(record) {
		rawPrecip := strings.TrimSpace(record[cols.precipIn])
		if rawPrecip != "" {
			v, err := strconv.ParseFloat(rawPrecip, 64)
			if err != nil {
				return time.Time{}, nil, nil, false
			}
			precipVal = v
		}
	}

	return t, &tempVal, &precipVal, true
}
