package chart

import (
	"testing"

	"github.com/stretchr/testify/require"

	"klinechart/internal/model"
)

func closes(n int, last float64) []model.Quote {
	out := make([]model.Quote, n)
	for i := range out {
		out[i] = model.Quote{Open: 50, High: 60, Low: 40, Close: 50}
	}
	out[n-1].Close = last
	return out
}

func latestCtx(quotes []model.Quote, originX float64) *Context {
	rect := model.ContentRect{X: originX, Width: 100, Height: 200}
	return &Context{
		Quotes:  quotes,
		Visible: model.NewRange(0, len(quotes)),
		Rect:    rect,
		Layout:  DefaultLayout(),
		Mapper:  MustMapper(model.ExtremePoint{Min: 0, Max: 100}, rect),
	}
}

func TestLatestPrice_LineStartsAfterLastBar(t *testing.T) {
	p := NewLatestPrice(DefaultLatestPriceStyle())
	// 20 bars, step 8: the last bar sits at content x 152, shown at 72.
	layer := p.Render(latestCtx(closes(20, 50), -80))

	require.Len(t, layer.Shapes, 1)
	require.Equal(t, []model.Rect{{X: 64, Y: 91, Width: 36, Height: 18}}, layer.Shapes[0].Rects)

	require.Len(t, layer.Lines, 1)
	require.Equal(t, []float64{2, 2}, layer.Lines[0].Dash)
	require.Equal(t, []model.Point{{X: 78, Y: 100}, {X: 100, Y: 100}}, layer.Lines[0].Collect())
}

func TestLatestPrice_LineSpansViewportWhenLastBarOffScreen(t *testing.T) {
	p := NewLatestPrice(DefaultLatestPriceStyle())
	layer := p.Render(latestCtx(closes(20, 50), 0))

	require.Equal(t, []model.Point{{X: 0, Y: 100}, {X: 100, Y: 100}}, layer.Lines[0].Collect())
}

func TestLatestPrice_MarkerClampedIntoRect(t *testing.T) {
	p := NewLatestPrice(DefaultLatestPriceStyle())

	top := p.Render(latestCtx(closes(5, 100), 0))
	require.Equal(t, 0.0, top.Shapes[0].Rects[0].Y)
	require.Equal(t, 9.0, top.Lines[0].Collect()[0].Y)

	bottom := p.Render(latestCtx(closes(5, -30), 0))
	require.Equal(t, 182.0, bottom.Shapes[0].Rects[0].Y)
	require.Equal(t, 191.0, bottom.Lines[0].Collect()[1].Y)
}

func TestLatestPrice_NoScaleContribution(t *testing.T) {
	p := NewLatestPrice(DefaultLatestPriceStyle())
	ctx := latestCtx(closes(5, 1e6), 0)

	_, ok := p.ExtremePoint(ctx)
	require.False(t, ok)

	caps := p.Captions(ctx, 0)
	require.Equal(t, "Last:1000000.00", caps[0].Text(nil))

	empty := &Context{}
	require.Empty(t, p.Render(empty).Lines)
	require.False(t, p.Captions(empty, 0)[0].Valid)
}

func TestChart_LatestPriceInGroup(t *testing.T) {
	c, err := New(DefaultLayout(), Groups(
		Group{Name: "main", Renderers: []Renderer{
			NewCandlestick(DefaultCandlestickStyle()),
			NewLatestPrice(DefaultLatestPriceStyle()),
		}},
	))
	require.NoError(t, err)
	quotes := wave(30)
	c.SetQuotes(quotes)

	frame := c.Render(model.NewRange(0, 30), bounds)
	g := frame.Groups[0]
	require.Len(t, g.Layers, 2)
	ep, ok := QuoteExtreme(quotes, model.NewRange(0, 30))
	require.True(t, ok)
	require.Equal(t, ep, *g.Extreme, "latest price must not change the scale")

	marker := g.Layers[1].Shapes[0].Rects[0]
	require.GreaterOrEqual(t, marker.Y, g.Rect.MinY())
	require.LessOrEqual(t, marker.Y+marker.Height, g.Rect.MaxY())
}
