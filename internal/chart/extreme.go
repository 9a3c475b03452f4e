package chart

import (
	"math"

	"klinechart/internal/model"
	"klinechart/internal/offsetarray"
)

// ExtremeSource contributes the value span of one layer over the visible
// range. Layers that should not influence scaling return false.
type ExtremeSource interface {
	ExtremePoint(ctx *Context) (model.ExtremePoint, bool)
}

// ResolveExtreme takes the union of every contributing source. ok is false
// when no source has a defined value in range.
func ResolveExtreme(ctx *Context, sources ...ExtremeSource) (model.ExtremePoint, bool) {
	var (
		out   model.ExtremePoint
		found bool
	)
	for _, s := range sources {
		ep, ok := s.ExtremePoint(ctx)
		if !ok {
			continue
		}
		if !found {
			out, found = ep, true
			continue
		}
		out = out.Union(ep)
	}
	return out, found
}

// scan accumulates a running min/max.
type scan struct {
	min, max float64
	n        int
}

func newScan() scan { return scan{min: math.Inf(1), max: math.Inf(-1)} }

func (s *scan) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	s.min = math.Min(s.min, v)
	s.max = math.Max(s.max, v)
	s.n++
}

func (s scan) result() (model.ExtremePoint, bool) {
	if s.n == 0 {
		return model.ExtremePoint{}, false
	}
	return model.ExtremePoint{Min: s.min, Max: s.max}, true
}

// QuoteExtreme returns the lowest low and highest high over r.
func QuoteExtreme(quotes []model.Quote, r model.Range) (model.ExtremePoint, bool) {
	r = r.Clamp(len(quotes))
	s := newScan()
	for _, q := range quotes[r.Lo:r.Hi] {
		s.add(q.Low)
		s.add(q.High)
	}
	return s.result()
}

// SeriesExtreme returns the span of the defined values of arr within r.
func SeriesExtreme(arr offsetarray.OffsetArray[float64], r model.Range) (model.ExtremePoint, bool) {
	slice, _ := arr.SliceAndRange(r)
	s := newScan()
	for _, v := range slice {
		s.add(v)
	}
	return s.result()
}

// SeriesExtremeFunc scans several fields of a composite series at once.
// Each pick returns false for a field without a value at that index.
func SeriesExtremeFunc[T any](arr offsetarray.OffsetArray[T], r model.Range, picks ...func(T) (float64, bool)) (model.ExtremePoint, bool) {
	slice, _ := arr.SliceAndRange(r)
	s := newScan()
	for _, v := range slice {
		for _, pick := range picks {
			if f, ok := pick(v); ok {
				s.add(f)
			}
		}
	}
	return s.result()
}
