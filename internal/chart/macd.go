package chart

import (
	"fmt"
	"math"

	"klinechart/internal/indicator"
	"klinechart/internal/model"
	"klinechart/internal/offsetarray"
)

// MACDStyle configures the MACD layer.
type MACDStyle struct {
	DiffColor    Color
	DEAColor     Color
	UpColor      Color
	DownColor    Color
	LegendColor  Color
	DiffWidth    float64
	DEAWidth     float64
	MinBarHeight float64
	ShowDIF      bool
	ShowDEA      bool
	Histogram    HistogramStyle
}

// DefaultMACDStyle shows both lines with solid bars.
func DefaultMACDStyle() MACDStyle {
	return MACDStyle{
		DiffColor:    MustColor("#f5a623"),
		DEAColor:     MustColor("#4a90e2"),
		UpColor:      MustColor("#26a69a"),
		DownColor:    MustColor("#ef5350"),
		LegendColor:  MustColor("#9b9b9b"),
		DiffWidth:    1,
		DEAWidth:     1,
		MinBarHeight: 1,
		ShowDIF:      true,
		ShowDEA:      true,
	}
}

// MACD draws the DIF and DEA lines over the signed histogram.
type MACD struct {
	spec  indicator.Spec
	style MACDStyle
	proc  *indicator.Processor[indicator.MACDValue]

	scratch []BarBuffer
}

func NewMACD(short, long, signal int, style MACDStyle) (*MACD, error) {
	spec := indicator.Spec{Type: "MACD", Periods: []int{short, long, signal}}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if style.MinBarHeight <= 0 {
		style.MinBarHeight = 1
	}
	return &MACD{spec: spec, style: style, scratch: make([]BarBuffer, 0, 2)}, nil
}

func (m *MACD) Name() string { return m.spec.Key() }

func (m *MACD) Specs() []indicator.Spec { return []indicator.Spec{m.spec} }

func (m *MACD) Bind(e *indicator.Engine) error {
	p, err := indicator.Lookup[indicator.MACDValue](e, m.spec.Key())
	if err != nil {
		return err
	}
	m.proc = p
	return nil
}

func (m *MACD) values() offsetarray.OffsetArray[indicator.MACDValue] {
	if m.proc == nil {
		return offsetarray.Empty[indicator.MACDValue]()
	}
	return m.proc.CurrentValues()
}

func pickDiff(v indicator.MACDValue) (float64, bool) { return v.Diff, true }
func pickDEA(v indicator.MACDValue) (float64, bool)  { return v.Signal() }
func pickHist(v indicator.MACDValue) (float64, bool) { return v.Hist() }

// ExtremePoint spans the shown lines and the histogram. Bars grow from the
// zero line, so zero is included whenever a bar is visible.
func (m *MACD) ExtremePoint(ctx *Context) (model.ExtremePoint, bool) {
	values := m.values()
	var picks []func(indicator.MACDValue) (float64, bool)
	if m.style.ShowDIF {
		picks = append(picks, pickDiff)
	}
	if m.style.ShowDEA {
		picks = append(picks, pickDEA)
	}
	lines, okLines := SeriesExtremeFunc(values, ctx.Visible, picks...)
	hist, okHist := SeriesExtremeFunc(values, ctx.Visible, pickHist)
	if okHist {
		hist = hist.Union(model.ExtremePoint{})
	}
	switch {
	case okLines && okHist:
		return lines.Union(hist), true
	case okHist:
		return hist, true
	}
	return lines, okLines
}

func (m *MACD) Render(ctx *Context) Layer {
	values := m.values()
	layer := Layer{Name: m.Name()}

	bars := m.histogram(ctx, values)
	up, down := m.style.UpColor, m.style.DownColor
	layer.Shapes = []Shape{
		{Name: UpSolid.String(), Fill: up, Stroke: Transparent, LineWidth: 1, Rects: bars[UpSolid]},
		{Name: DownSolid.String(), Fill: down, Stroke: Transparent, LineWidth: 1, Rects: bars[DownSolid]},
		{Name: UpHollow.String(), Fill: Transparent, Stroke: up, LineWidth: 1, Rects: bars[UpHollow]},
		{Name: DownHollow.String(), Fill: Transparent, Stroke: down, LineWidth: 1, Rects: bars[DownHollow]},
	}

	if m.style.ShowDIF {
		layer.Lines = append(layer.Lines, Polyline{
			Name: "DIF", Color: m.style.DiffColor, Width: m.style.DiffWidth,
			Points: seriesPoints(ctx, values, pickDiff),
		})
	}
	if m.style.ShowDEA {
		layer.Lines = append(layer.Lines, Polyline{
			Name: "DEA", Color: m.style.DEAColor, Width: m.style.DEAWidth,
			Points: seriesPoints(ctx, values, pickDEA),
		})
	}
	return layer
}

// histogram rebuilds the four bar buffers for the visible range. The bar
// left of the range still serves as predecessor of the first visible bar.
func (m *MACD) histogram(ctx *Context, values offsetarray.OffsetArray[indicator.MACDValue]) HistogramBars {
	var bars HistogramBars
	slice, eff := values.SliceAndRange(ctx.Visible)
	if len(slice) == 0 {
		return bars
	}

	zeroY := ctx.Mapper.Y(0)
	prev, hasPrev := 0.0, false
	if v, ok := values.ValueAt(eff.Lo - 1); ok {
		prev, hasPrev = v.Hist()
	}
	for j, v := range slice {
		cur, ok := v.Hist()
		if !ok {
			hasPrev = false
			continue
		}
		i := eff.Lo + j
		y := ctx.Mapper.Y(cur)
		top := math.Min(zeroY, y)
		rect := model.Rect{
			X:      ctx.X(ctx.Layout.BarX(i)),
			Y:      top,
			Width:  ctx.Layout.BarWidth,
			Height: math.Max(m.style.MinBarHeight, math.Max(zeroY, y)-top),
		}
		m.scratch = m.style.Histogram.Buffers(m.scratch[:0], prev, hasPrev, cur)
		for _, b := range m.scratch {
			bars.add(b, rect)
		}
		prev, hasPrev = cur, true
	}
	return bars
}

// Captions gives the legend row: title, histogram, DIF and DEA at index.
func (m *MACD) Captions(ctx *Context, index int) []Caption {
	v, ok := m.values().ValueAt(index)
	p := m.spec.Periods
	hist, hasHist := v.Hist()
	histColor := m.style.UpColor
	if hasHist && hist < 0 {
		histColor = m.style.DownColor
	}
	dea, hasDEA := v.Signal()
	out := []Caption{
		{Title: fmt.Sprintf("MACD(%d,%d,%d)", p[0], p[1], p[2]), Label: true, Color: m.style.LegendColor},
		valueCaption("MACD", hist, ok && hasHist, histColor),
	}
	if m.style.ShowDIF {
		out = append(out, valueCaption("DIF", v.Diff, ok, m.style.DiffColor))
	}
	if m.style.ShowDEA {
		out = append(out, valueCaption("DEA", dea, ok && hasDEA, m.style.DEAColor))
	}
	return out
}
