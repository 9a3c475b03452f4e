package chart

import (
	"math"

	"klinechart/internal/model"
)

// CandlestickStyle configures the candle layer.
type CandlestickStyle struct {
	UpColor   Color
	DownColor Color
	MinHeight float64 // floor for bodies and wicks, so flat bars stay visible
}

// DefaultCandlestickStyle returns green-up/red-down candles.
func DefaultCandlestickStyle() CandlestickStyle {
	return CandlestickStyle{
		UpColor:   MustColor("#26a69a"),
		DownColor: MustColor("#ef5350"),
		MinHeight: 1,
	}
}

// Candlestick draws raw quotes as bodies and wicks.
type Candlestick struct {
	style CandlestickStyle
}

func NewCandlestick(style CandlestickStyle) *Candlestick {
	if style.MinHeight <= 0 {
		style.MinHeight = 1
	}
	return &Candlestick{style: style}
}

func (c *Candlestick) Name() string { return "candlestick" }

func (c *Candlestick) ExtremePoint(ctx *Context) (model.ExtremePoint, bool) {
	return QuoteExtreme(ctx.Quotes, ctx.Visible)
}

// Render fills an up and a down shape; each candle contributes its body and
// its wick to the shape of its direction.
func (c *Candlestick) Render(ctx *Context) Layer {
	r := ctx.Visible.Clamp(len(ctx.Quotes))
	up := Shape{Name: "up", Fill: c.style.UpColor, Stroke: c.style.UpColor, LineWidth: 1}
	down := Shape{Name: "down", Fill: c.style.DownColor, Stroke: c.style.DownColor, LineWidth: 1}
	if n := r.Len(); n > 0 {
		up.Rects = make([]model.Rect, 0, n)
		down.Rects = make([]model.Rect, 0, n)
	}

	l := ctx.Layout
	for i := r.Lo; i < r.Hi; i++ {
		q := ctx.Quotes[i]
		barX := l.BarX(i)
		lineX := barX + (l.BarWidth-l.ShadowWidth)/2

		body := c.rect(ctx, ctx.X(barX), l.BarWidth, q.Open, q.Close)
		wick := c.rect(ctx, ctx.X(lineX), l.ShadowWidth, q.Low, q.High)
		if q.Rising() {
			up.Rects = append(up.Rects, body, wick)
		} else {
			down.Rects = append(down.Rects, body, wick)
		}
	}
	return Layer{Name: c.Name(), Shapes: []Shape{up, down}}
}

func (c *Candlestick) rect(ctx *Context, x, width, a, b float64) model.Rect {
	ya, yb := ctx.Mapper.Y(a), ctx.Mapper.Y(b)
	y := ctx.Layout.PixelCeil(math.Min(ya, yb))
	h := math.Max(ctx.Layout.PixelCeil(math.Abs(ya-yb)), c.style.MinHeight)
	return model.Rect{X: x, Y: y, Width: width, Height: h}
}

// Captions lists OHLC of the quote at index.
func (c *Candlestick) Captions(ctx *Context, index int) []Caption {
	ok := index >= 0 && index < len(ctx.Quotes)
	var q model.Quote
	col := c.style.UpColor
	if ok {
		q = ctx.Quotes[index]
		if !q.Rising() {
			col = c.style.DownColor
		}
	}
	return []Caption{
		valueCaption("O", q.Open, ok, col),
		valueCaption("H", q.High, ok, col),
		valueCaption("L", q.Low, ok, col),
		valueCaption("C", q.Close, ok, col),
	}
}
