package chart

import (
	"errors"
	"fmt"
	"math"

	"klinechart/internal/model"
)

// ErrInvalidLayout is returned for negative widths or a non-positive scale.
var ErrInvalidLayout = errors.New("invalid chart layout")

// Layout holds the horizontal metrics shared by every group of a chart.
type Layout struct {
	BarWidth    float64 // candle body / histogram bar width
	Spacing     float64 // gap between bars
	ShadowWidth float64 // candle wick width
	Scale       float64 // screen scale used for pixel snapping, 1 when zero
}

// DefaultLayout returns the metrics used when nothing is configured.
func DefaultLayout() Layout {
	return Layout{BarWidth: 6, Spacing: 2, ShadowWidth: 1, Scale: 1}
}

// Validate rejects layouts that cannot produce geometry.
func (l Layout) Validate() error {
	switch {
	case l.BarWidth <= 0:
		return fmt.Errorf("bar width %v: %w", l.BarWidth, ErrInvalidLayout)
	case l.Spacing < 0:
		return fmt.Errorf("spacing %v: %w", l.Spacing, ErrInvalidLayout)
	case l.ShadowWidth < 0 || l.ShadowWidth > l.BarWidth:
		return fmt.Errorf("shadow width %v: %w", l.ShadowWidth, ErrInvalidLayout)
	case l.Scale < 0:
		return fmt.Errorf("scale %v: %w", l.Scale, ErrInvalidLayout)
	}
	return nil
}

func (l Layout) scale() float64 {
	if l.Scale <= 0 {
		return 1
	}
	return l.Scale
}

// Step is the horizontal distance between two consecutive bars.
func (l Layout) Step() float64 { return l.BarWidth + l.Spacing }

// BarX returns the left edge of bar i, relative to the content origin.
func (l Layout) BarX(i int) float64 { return l.Step() * float64(i) }

// CenterX returns the horizontal centre of bar i.
func (l Layout) CenterX(i int) float64 { return l.BarX(i) + l.BarWidth/2 }

// PixelCeil rounds v up to the next device pixel.
func (l Layout) PixelCeil(v float64) float64 {
	s := l.scale()
	return math.Ceil(v*s) / s
}

// ContentWidth is the width needed to lay out n bars.
func (l Layout) ContentWidth(n int) float64 { return l.Step() * float64(n) }

// IndexAt returns the bar under content x. ok is false left of the first
// bar or right of the last one.
func (l Layout) IndexAt(x float64, n int) (int, bool) {
	if x < 0 || n == 0 {
		return 0, false
	}
	i := int(x / l.Step())
	if i >= n {
		return n - 1, false
	}
	return i, true
}

// VisibleRange returns the bars intersecting [offsetX, offsetX+width),
// clamped to n bars.
func (l Layout) VisibleRange(offsetX, width float64, n int) model.Range {
	if width <= 0 {
		return model.Range{}
	}
	step := l.Step()
	lo := int(math.Floor(offsetX / step))
	hi := int(math.Ceil((offsetX + width) / step))
	return model.NewRange(lo, hi).Clamp(n)
}
