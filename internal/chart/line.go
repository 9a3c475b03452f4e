package chart

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"klinechart/internal/indicator"
	"klinechart/internal/model"
	"klinechart/internal/offsetarray"
)

// LineStyle configures a moving-average line.
type LineStyle struct {
	Color Color
	Width float64
}

// Line draws a single-valued indicator (EMA or SMA) as a polyline through
// bar centres.
type Line struct {
	spec  indicator.Spec
	style LineStyle
	proc  *indicator.Processor[float64]
}

// NewLine validates the spec; only single-valued types are accepted.
func NewLine(spec indicator.Spec, style LineStyle) (*Line, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	switch strings.ToUpper(spec.Type) {
	case "EMA", "SMA":
	default:
		return nil, fmt.Errorf("line renderer for %s: %w", spec, indicator.ErrUnknownType)
	}
	if style.Width <= 0 {
		style.Width = 1
	}
	spec.Type = strings.ToUpper(spec.Type)
	return &Line{spec: spec, style: style}, nil
}

// NewEMALine is shorthand for an EMA line.
func NewEMALine(period int, style LineStyle) (*Line, error) {
	return NewLine(indicator.Spec{Type: "EMA", Periods: []int{period}}, style)
}

func (l *Line) Name() string { return l.spec.Key() }

func (l *Line) Specs() []indicator.Spec { return []indicator.Spec{l.spec} }

func (l *Line) Bind(e *indicator.Engine) error {
	p, err := indicator.Lookup[float64](e, l.spec.Key())
	if err != nil {
		return err
	}
	l.proc = p
	return nil
}

func (l *Line) values() offsetarray.OffsetArray[float64] {
	if l.proc == nil {
		return offsetarray.Empty[float64]()
	}
	return l.proc.CurrentValues()
}

func (l *Line) ExtremePoint(ctx *Context) (model.ExtremePoint, bool) {
	return SeriesExtreme(l.values(), ctx.Visible)
}

func (l *Line) Render(ctx *Context) Layer {
	return Layer{
		Name: l.Name(),
		Lines: []Polyline{{
			Name:   l.Name(),
			Color:  l.style.Color,
			Width:  l.style.Width,
			Points: seriesPoints(ctx, l.values(), func(v float64) (float64, bool) { return v, true }),
		}},
	}
}

func (l *Line) Captions(ctx *Context, index int) []Caption {
	v, ok := l.values().ValueAt(index)
	title := l.spec.Type + strconv.Itoa(l.spec.Periods[0])
	return []Caption{valueCaption(title, v, ok, l.style.Color)}
}

// seriesPoints yields one point per visible index where pick has a value.
// The sequence holds a snapshot and can be replayed.
func seriesPoints[T any](ctx *Context, arr offsetarray.OffsetArray[T], pick func(T) (float64, bool)) iter.Seq[model.Point] {
	slice, eff := arr.SliceAndRange(ctx.Visible)
	if len(slice) == 0 {
		return func(func(model.Point) bool) {}
	}
	c := *ctx
	return func(yield func(model.Point) bool) {
		for j, v := range slice {
			y, ok := pick(v)
			if !ok {
				continue
			}
			i := eff.Lo + j
			pt := model.Point{X: c.X(c.Layout.CenterX(i)), Y: c.Mapper.Y(y)}
			if !yield(pt) {
				return
			}
		}
	}
}
