// Package indicator computes derived series (EMA, SMA, MACD) over a quote
// history and caches them in offset-indexed arrays.
//
// Every algorithm is an O(1)-per-quote state machine. Feeding a whole history
// rebuilds a series; feeding only the new tail extends it, which is how a
// Processor keeps live updates O(k) for k appended quotes.
package indicator

import (
	"errors"

	"klinechart/internal/model"
	"klinechart/internal/offsetarray"
)

var (
	// ErrInvalidPeriod is returned when an indicator is configured with a
	// non-positive period.
	ErrInvalidPeriod = errors.New("indicator period must be positive")

	// ErrUnknownType is returned for an indicator type this package does not
	// implement.
	ErrUnknownType = errors.New("unknown indicator type")
)

// Algorithm is the interface for all indicator computations.
type Algorithm[V any] interface {
	// Key returns the configuration identity (e.g. "EMA_20", "MACD_12_26_9").
	// Two algorithms with the same key produce the same series.
	Key() string

	// Offset returns the number of leading quotes that produce no value.
	Offset() int

	// Reset drops all retained state.
	Reset()

	// Update feeds the next quote.
	Update(q model.Quote)

	// Value returns the value for the last fed quote, false during warm-up.
	Value() (V, bool)
}

// ComputeSeries resets alg and runs it over the full history.
// An empty history yields an array with offset 0 and no values.
func ComputeSeries[V any](alg Algorithm[V], quotes []model.Quote) offsetarray.OffsetArray[V] {
	alg.Reset()
	if len(quotes) == 0 {
		return offsetarray.Empty[V]()
	}
	arr := offsetarray.New[V](alg.Offset())
	arr.Grow(len(quotes) - alg.Offset())
	return ExtendSeries(alg, *arr, quotes)
}

// ExtendSeries feeds tail into alg, which must already hold the state for
// every quote that produced arr, and appends the new values.
func ExtendSeries[V any](alg Algorithm[V], arr offsetarray.OffsetArray[V], tail []model.Quote) offsetarray.OffsetArray[V] {
	for _, q := range tail {
		alg.Update(q)
		if v, ok := alg.Value(); ok {
			arr.Append(v)
		}
	}
	return arr
}
