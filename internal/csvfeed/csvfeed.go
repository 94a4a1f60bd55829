// Package csvfeed parses the market-data replay CSV format
// (timestamp, symbol, price, volume) into the tick sequence
// internal/simulator's replay mode consumes.
package csvfeed

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"lobengine/internal/errs"
	"lobengine/internal/simulator"
)

// Record is one parsed market-data row: timestamp, symbol, price, volume.
type Record struct {
	Timestamp time.Time
	Symbol    string
	Price     float64
	Volume    float64
}

const timestampLayout = "2006-01-02 15:04:05"

// parseTimestamp parses the "YYYY-MM-DD HH:MM:SS[.fractional]" form,
// with up to nine fractional digits and no fractional part meaning zero.
func parseTimestamp(s string) (time.Time, error) {
	whole, frac, hasFrac := strings.Cut(s, ".")
	t, err := time.Parse(timestampLayout, whole)
	if err != nil {
		return time.Time{}, err
	}
	if !hasFrac || frac == "" {
		return t, nil
	}
	if len(frac) > 9 {
		return time.Time{}, fmt.Errorf("fractional seconds %q exceeds 9 digits", frac)
	}
	// Right-pad to nanosecond precision: "5" means 500_000_000ns, not 5ns.
	frac += strings.Repeat("0", 9-len(frac))
	nanos, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid fractional seconds %q: %w", frac, err)
	}
	return t.Add(time.Duration(nanos)), nil
}

// isHeaderRow reports whether a row is a header line to skip:
// "header lines starting with timestamp or symbol are skipped."
func isHeaderRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(row[0]))
	return first == "timestamp" || first == "symbol"
}

// Read parses every data row from r into Records, in file order, skipping
// header lines. A malformed row is reported as a *errs.ParseError carrying
// its 1-indexed line number.
func Read(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true

	var records []Record
	lineNo := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		lineNo++
		if err != nil {
			return nil, &errs.ParseError{Source: "market-data", Line: lineNo, Err: err}
		}
		if isHeaderRow(row) {
			continue
		}

		rec, parseErr := parseRow(row)
		if parseErr != nil {
			return nil, &errs.ParseError{Source: "market-data", Line: lineNo, Err: parseErr}
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string) (Record, error) {
	ts, err := parseTimestamp(strings.TrimSpace(row[0]))
	if err != nil {
		return Record{}, fmt.Errorf("invalid timestamp %q: %w", row[0], err)
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid price %q: %w", row[2], err)
	}
	volume, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid volume %q: %w", row[3], err)
	}
	if price < 0 || volume < 0 {
		return Record{}, fmt.Errorf("price and volume must be >= 0, got price=%v volume=%v", price, volume)
	}
	return Record{Timestamp: ts, Symbol: strings.TrimSpace(row[1]), Price: price, Volume: volume}, nil
}

// ToTicks converts a symbol's Records into simulator.Ticks by synthesizing
// a bid/ask around each recorded trade price at the given spread, for
// feeding internal/simulator.NewReplay. Records for other symbols are
// skipped.
func ToTicks(records []Record, symbol string, spreadBps float64) []simulator.Tick {
	ticks := make([]simulator.Tick, 0, len(records))
	for _, rec := range records {
		if rec.Symbol != symbol {
			continue
		}
		half := spreadBps / 2 / 10000 * rec.Price
		ticks = append(ticks, simulator.Tick{
			Time:  rec.Timestamp,
			Price: rec.Price,
			Bid:   rec.Price - half,
			Ask:   rec.Price + half,
		})
	}
	return ticks
}
