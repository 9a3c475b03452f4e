package chart

import (
	"errors"
	"fmt"

	"klinechart/internal/model"
)

// ErrDegenerateScale is returned when an extreme point has no vertical span.
// Callers must skip drawing for that frame.
var ErrDegenerateScale = errors.New("degenerate vertical scale")

// Mapper converts values to vertical pixel offsets inside a content rect.
type Mapper struct {
	extreme model.ExtremePoint
	rect    model.ContentRect
	span    float64
}

// NewMapper requires extreme.Max > extreme.Min.
func NewMapper(extreme model.ExtremePoint, rect model.ContentRect) (Mapper, error) {
	span := extreme.Span()
	if !(span > 0) {
		return Mapper{}, fmt.Errorf("min=%v max=%v: %w", extreme.Min, extreme.Max, ErrDegenerateScale)
	}
	return Mapper{extreme: extreme, rect: rect, span: span}, nil
}

// MustMapper is like NewMapper but panics on a degenerate scale. Use it only
// where the span was already checked.
func MustMapper(extreme model.ExtremePoint, rect model.ContentRect) Mapper {
	m, err := NewMapper(extreme, rect)
	if err != nil {
		panic(err)
	}
	return m
}

// Y maps v into the rect: Max lands on the top edge, Min on the bottom edge.
func (m Mapper) Y(v float64) float64 {
	h := m.rect.Height
	return h - h*(v-m.extreme.Min)/m.span + m.rect.MinY()
}

// Extreme returns the value span the mapper was built for.
func (m Mapper) Extreme() model.ExtremePoint { return m.extreme }
