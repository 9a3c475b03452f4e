// Package resample folds a quote series into a coarser timeframe. Each
// bucket starts at ts - ts%tf (Unix seconds); a bucket closes when a quote
// arrives in a later one.
package resample

import (
	"fmt"
	"time"

	"klinechart/internal/model"
)

// Builder keeps the forming bar of one timeframe and merges quotes into it
// in O(1). Not safe for concurrent use.
type Builder struct {
	tf      int64
	bucket  int64
	forming model.Quote
	started bool

	// OnStale is called for a quote whose bucket lies behind the forming
	// one. Such quotes are dropped.
	OnStale func(q model.Quote)
}

// New creates a builder for the given timeframe.
func New(tf time.Duration) (*Builder, error) {
	if tf < time.Second || tf%time.Second != 0 {
		return nil, fmt.Errorf("resample: timeframe %v must be a whole number of seconds", tf)
	}
	return &Builder{tf: int64(tf / time.Second)}, nil
}

// Add merges q into the forming bar. When q opens a new bucket the previous
// bar is returned finalized.
func (b *Builder) Add(q model.Quote) (model.Quote, bool) {
	ts := q.TS.Unix()
	bucket := ts - ts%b.tf

	if b.started && bucket < b.bucket {
		if b.OnStale != nil {
			b.OnStale(q)
		}
		return model.Quote{}, false
	}

	if b.started && bucket == b.bucket {
		fc := &b.forming
		fc.High = max(fc.High, q.High)
		fc.Low = min(fc.Low, q.Low)
		fc.Close = q.Close
		fc.Volume += q.Volume
		return model.Quote{}, false
	}

	closed, had := b.forming, b.started
	b.bucket = bucket
	b.started = true
	b.forming = model.Quote{
		TS:     time.Unix(bucket, 0).UTC(),
		Open:   q.Open,
		High:   q.High,
		Low:    q.Low,
		Close:  q.Close,
		Volume: q.Volume,
	}
	return closed, had
}

// Forming returns the bar still being built.
func (b *Builder) Forming() (model.Quote, bool) { return b.forming, b.started }

// Flush finalizes and returns the forming bar, leaving the builder empty.
func (b *Builder) Flush() (model.Quote, bool) {
	q, ok := b.forming, b.started
	b.forming, b.started = model.Quote{}, false
	return q, ok
}

// Quotes resamples a whole series. The last, possibly incomplete, bucket is
// included.
func Quotes(quotes []model.Quote, tf time.Duration) ([]model.Quote, error) {
	b, err := New(tf)
	if err != nil {
		return nil, err
	}
	out := make([]model.Quote, 0, len(quotes)/int(b.tf)+1)
	for _, q := range quotes {
		if closed, ok := b.Add(q); ok {
			out = append(out, closed)
		}
	}
	if last, ok := b.Flush(); ok {
		out = append(out, last)
	}
	return out, nil
}
