package model

import "math"

// Range is a half-open interval [Lo, Hi) of global quote indices.
type Range struct {
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

// NewRange returns [lo, hi). An inverted pair yields an empty range at lo.
func NewRange(lo, hi int) Range {
	if hi < lo {
		hi = lo
	}
	return Range{Lo: lo, Hi: hi}
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	if r.Hi <= r.Lo {
		return 0
	}
	return r.Hi - r.Lo
}

// Empty reports whether the range holds no index.
func (r Range) Empty() bool { return r.Len() == 0 }

// Contains reports whether i lies in [Lo, Hi).
func (r Range) Contains(i int) bool { return i >= r.Lo && i < r.Hi }

// Intersect returns the overlap of r and o. When they do not overlap the
// result is empty (Lo == Hi).
func (r Range) Intersect(o Range) Range {
	lo := max(r.Lo, o.Lo)
	hi := min(r.Hi, o.Hi)
	if hi < lo {
		hi = lo
	}
	return Range{Lo: lo, Hi: hi}
}

// Clamp restricts r to [0, n); both bounds of the result lie in [0, n].
func (r Range) Clamp(n int) Range {
	n = max(n, 0)
	lo := min(max(r.Lo, 0), n)
	hi := min(max(r.Hi, lo), n)
	return Range{Lo: lo, Hi: hi}
}

// ExtremePoint is the value span a group of series is scaled into.
type ExtremePoint struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Span returns Max - Min.
func (e ExtremePoint) Span() float64 { return e.Max - e.Min }

// Union widens e to include o.
func (e ExtremePoint) Union(o ExtremePoint) ExtremePoint {
	return ExtremePoint{Min: math.Min(e.Min, o.Min), Max: math.Max(e.Max, o.Max)}
}

// ContentRect is the pixel area values are mapped into.
type ContentRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (c ContentRect) MinY() float64 { return c.Y }
func (c ContentRect) MaxY() float64 { return c.Y + c.Height }
func (c ContentRect) MaxX() float64 { return c.X + c.Width }

// Point is a pixel position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned pixel rectangle.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"w"`
	Height float64 `json:"h"`
}
