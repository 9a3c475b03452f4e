package chart

import (
	"slices"

	"klinechart/internal/model"
)

// LatestPriceStyle configures the last-close marker and its dashed guide.
type LatestPriceStyle struct {
	LineColor    Color
	MarkerFill   Color
	MarkerBorder Color
	TextColor    Color
	MarkerWidth  float64
	MarkerHeight float64
}

func DefaultLatestPriceStyle() LatestPriceStyle {
	return LatestPriceStyle{
		LineColor:    MustColor("#d3d3d3"),
		MarkerFill:   MustColor("#ffffff"),
		MarkerBorder: MustColor("#ffffff"),
		TextColor:    MustColor("#000000"),
		MarkerWidth:  36,
		MarkerHeight: 18,
	}
}

// LatestPrice marks the close of the newest quote at the right edge of the
// viewport. It never widens the group's scale.
type LatestPrice struct {
	style LatestPriceStyle
}

func NewLatestPrice(style LatestPriceStyle) *LatestPrice {
	def := DefaultLatestPriceStyle()
	if style.MarkerWidth <= 0 {
		style.MarkerWidth = def.MarkerWidth
	}
	if style.MarkerHeight <= 0 {
		style.MarkerHeight = def.MarkerHeight
	}
	return &LatestPrice{style: style}
}

func (p *LatestPrice) Name() string { return "latest_price" }

func (p *LatestPrice) ExtremePoint(*Context) (model.ExtremePoint, bool) {
	return model.ExtremePoint{}, false
}

// Render emits the marker rect and one dashed polyline through its middle.
// While the newest bar is on screen the line starts one bar width right of
// it; once that bar has scrolled off the line spans the whole viewport.
func (p *LatestPrice) Render(ctx *Context) Layer {
	layer := Layer{Name: p.Name()}
	n := len(ctx.Quotes)
	if n == 0 {
		return layer
	}
	last := ctx.Quotes[n-1]
	minX, maxX := ctx.Viewport()
	h := p.style.MarkerHeight

	y := ctx.Mapper.Y(last.Close) - h/2
	y = min(max(y, ctx.Rect.MinY()), ctx.Rect.MaxY()-h)
	marker := model.Rect{X: maxX - p.style.MarkerWidth, Y: y, Width: p.style.MarkerWidth, Height: h}
	midY := y + h/2

	lastX := ctx.X(ctx.Layout.BarX(n - 1))
	startX := minX
	if maxX-lastX > 0 {
		startX = lastX + ctx.Layout.BarWidth
	}
	line := []model.Point{{X: startX, Y: midY}, {X: maxX, Y: midY}}

	layer.Shapes = []Shape{{
		Name:      "marker",
		Fill:      p.style.MarkerFill,
		Stroke:    p.style.MarkerBorder,
		LineWidth: 1,
		Rects:     []model.Rect{marker},
	}}
	layer.Lines = []Polyline{{
		Name:   "latest",
		Color:  p.style.LineColor,
		Width:  1,
		Dash:   []float64{2, 2},
		Points: slices.Values(line),
	}}
	return layer
}

// Captions reports the newest close whatever the index.
func (p *LatestPrice) Captions(ctx *Context, _ int) []Caption {
	var v float64
	ok := len(ctx.Quotes) > 0
	if ok {
		v = ctx.Quotes[len(ctx.Quotes)-1].Close
	}
	return []Caption{valueCaption("Last", v, ok, p.style.TextColor)}
}
