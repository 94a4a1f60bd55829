// Package errs collects the sentinel error values shared across lobengine's
// packages, so callers compare against one set of targets with errors.Is
// instead of each package redeclaring its own near-duplicate.
package errs

import (
	"errors"
	"strconv"
)

var (
	// ErrNotFound names the case of a cancel/amend/query that targets an
	// unknown order_id. The book reports that case with a false result; no
	// function in this module returns ErrNotFound.
	ErrNotFound = errors.New("lobengine: order not found")

	// ErrStateConflict names the case of an amendment that targets a
	// terminal order. The book reports it with a false result; no function
	// in this module returns ErrStateConflict.
	ErrStateConflict = errors.New("lobengine: order is in a terminal state")

	// ErrRoutingRejection names a fill blocked by self-trade prevention. The
	// fill router reports that with a false result from Route; no function
	// in this module returns ErrRoutingRejection.
	ErrRoutingRejection = errors.New("lobengine: fill rejected by router")

	// ErrQueueFull is returned by a ring's Push when the ring has no free slot.
	ErrQueueFull = errors.New("lobengine: queue full")

	// ErrQueueEmpty is returned by a ring's Pop when there is nothing to take.
	ErrQueueEmpty = errors.New("lobengine: queue empty")

	// ErrAllocatorExhausted is returned by the arena/pool when no memory remains.
	ErrAllocatorExhausted = errors.New("lobengine: allocator exhausted")

	// ErrCalibrationUnderspecified names a calibration that fell back to
	// defaults for lack of observations or a degenerate fit. Calibrator
	// returns only a Model (the defaults in that case) and never this error.
	ErrCalibrationUnderspecified = errors.New("lobengine: calibration underspecified, defaults applied")

	// ErrSnapshotIntegrity is returned when a snapshot fails validation
	// before restore (duplicate order ids, negative remaining, etc).
	ErrSnapshotIntegrity = errors.New("lobengine: snapshot failed integrity check")
)

// ParseError wraps a malformed input row from a CSV boundary (journal or
// market-data feed) with the line number it came from. It is lobengine's
// concrete form of the abstract InputInvalid error kind.
type ParseError struct {
	Source string // e.g. "journal", "market-data"
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	return e.Source + ": line " + strconv.Itoa(e.Line) + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }
