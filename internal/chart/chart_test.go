package chart

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"klinechart/internal/indicator"
	"klinechart/internal/model"
)

// wave builds n quotes whose closes follow a sine, with each bar opening at
// the previous close.
func wave(n int) []model.Quote {
	base := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	out := make([]model.Quote, n)
	prev := 100.0
	for i := range out {
		c := 100 + 10*math.Sin(float64(i)/5)
		out[i] = model.Quote{
			TS:    base.Add(time.Duration(i) * time.Minute),
			Open:  prev,
			Close: c,
			High:  math.Max(prev, c) + 1,
			Low:   math.Min(prev, c) - 1,
		}
		prev = c
	}
	return out
}

func flat(n int) []model.Quote {
	out := make([]model.Quote, n)
	for i := range out {
		out[i] = model.Quote{Open: 50, High: 50, Low: 50, Close: 50}
	}
	return out
}

type renderStats struct {
	frames  int
	bars    int
	skipped []string
}

func (r *renderStats) ObserveRender(d time.Duration, bars int) {
	r.frames++
	r.bars = bars
}

func (r *renderStats) ObserveSkippedGroup(group, reason string) {
	r.skipped = append(r.skipped, group+":"+reason)
}

func testChart(t *testing.T, opts ...Option) *Chart {
	t.Helper()
	ema, err := NewEMALine(5, LineStyle{Color: MustColor("#ff0000")})
	require.NoError(t, err)
	macd, err := NewMACD(3, 6, 3, DefaultMACDStyle())
	require.NoError(t, err)

	c, err := New(DefaultLayout(), Groups(
		Group{Name: "main", Height: 0.7, Renderers: []Renderer{NewCandlestick(DefaultCandlestickStyle()), ema}},
		Group{Name: "macd", Height: 0.3, Renderers: []Renderer{macd}},
	), opts...)
	require.NoError(t, err)
	return c
}

var bounds = model.ContentRect{Width: 480, Height: 300}

func TestCandlestick_Geometry(t *testing.T) {
	quotes := []model.Quote{
		{Open: 10, Close: 20, Low: 5, High: 25},
		{Open: 20, Close: 10, Low: 10, High: 20},
		{Open: 15, Close: 15, Low: 15, High: 15},
	}
	l := Layout{BarWidth: 6, Spacing: 2, ShadowWidth: 2, Scale: 1}
	ctx := &Context{Quotes: quotes, Visible: model.NewRange(0, 3), Layout: l}
	c := NewCandlestick(DefaultCandlestickStyle())

	ep, ok := c.ExtremePoint(ctx)
	require.True(t, ok)
	require.Equal(t, model.ExtremePoint{Min: 5, Max: 25}, ep)

	ctx.Rect = model.ContentRect{Width: 100, Height: 200}
	ctx.Mapper = MustMapper(ep, ctx.Rect)
	layer := c.Render(ctx)
	up, down := layer.Shapes[0], layer.Shapes[1]

	require.Equal(t, []model.Rect{
		{X: 0, Y: 50, Width: 6, Height: 100},
		{X: 2, Y: 0, Width: 2, Height: 200},
		{X: 16, Y: 100, Width: 6, Height: 1},
		{X: 18, Y: 100, Width: 2, Height: 1},
	}, up.Rects)
	require.Equal(t, []model.Rect{
		{X: 8, Y: 50, Width: 6, Height: 100},
		{X: 10, Y: 50, Width: 2, Height: 100},
	}, down.Rects)
}

func TestChart_RenderFrame(t *testing.T) {
	stats := &renderStats{}
	c := testChart(t, WithRenderObserver(stats))

	changes := c.SetQuotes(wave(60))
	require.Len(t, changes, 2)
	for _, ch := range changes {
		require.Equal(t, indicator.Reloaded, ch.Outcome)
	}

	frame := c.Render(model.NewRange(0, 60), bounds)
	require.Len(t, frame.Groups, 2)
	require.Equal(t, 1, stats.frames)
	require.Equal(t, frame.Bars(), stats.bars)
	require.Empty(t, stats.skipped)

	main := frame.Groups[0]
	require.NotNil(t, main.Extreme)
	require.InDelta(t, 210.0, main.Rect.Height, 1e-9)
	require.Len(t, main.Layers, 2)
	require.Equal(t, 120, main.Layers[0].Bars(), "body and wick per candle")

	ema := main.Layers[1].Lines[0]
	pts := ema.Collect()
	require.Len(t, pts, 56)
	require.Equal(t, pts, ema.Collect(), "polyline must be restartable")
	for _, p := range pts {
		require.GreaterOrEqual(t, p.Y, main.Rect.MinY())
		require.LessOrEqual(t, p.Y, main.Rect.MaxY())
	}

	macd := frame.Groups[1]
	require.NotNil(t, macd.Extreme)
	require.LessOrEqual(t, macd.Extreme.Min, 0.0)
	require.GreaterOrEqual(t, macd.Extreme.Max, 0.0)
	// MACD(3,6,3): diff from index 5, signal from index 7.
	require.Equal(t, 60-7, macd.Layers[0].Bars())
	require.Len(t, macd.Layers[0].Lines, 2)
	require.Len(t, macd.Layers[0].Lines[0].Collect(), 55)
	require.Len(t, macd.Layers[0].Lines[1].Collect(), 53)

	b, err := frame.JSON()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Contains(t, string(b), `"points":[{"x":`)
}

func TestChart_HistogramBarsWithinRect(t *testing.T) {
	c := testChart(t)
	c.SetQuotes(wave(80))
	frame := c.Render(model.NewRange(20, 60), bounds)

	g := frame.Groups[1]
	m := MustMapper(*g.Extreme, g.Rect)
	zeroY := m.Y(0)
	for _, s := range g.Layers[0].Shapes {
		for _, r := range s.Rects {
			require.GreaterOrEqual(t, r.Height, 1.0)
			require.True(t, math.Abs(r.Y-zeroY) < 1e-9 || math.Abs(r.Y+r.Height-zeroY) < 1e-9 || r.Height == 1,
				"bar must grow from the zero line: %+v zero=%v", r, zeroY)
		}
	}
}

func TestChart_FirstVisibleBarUsesPredecessor(t *testing.T) {
	c := testChart(t)
	quotes := wave(80)
	c.SetQuotes(quotes)

	p, err := indicator.Lookup[indicator.MACDValue](c.Engine(), "MACD_3_6_3")
	require.NoError(t, err)
	values := p.CurrentValues()

	for i := 10; i < 70; i++ {
		prev, _ := values.ValueAt(i - 1)
		cur, _ := values.ValueAt(i)
		want := HistogramStyle{}.Buffers(nil, prev.Histogram, true, cur.Histogram)

		frame := c.Render(model.NewRange(i, i+1), bounds)
		var got []BarBuffer
		for b, s := range frame.Groups[1].Layers[0].Shapes {
			if len(s.Rects) > 0 {
				got = append(got, BarBuffer(b))
			}
		}
		require.Equal(t, want, got, "index %d", i)
	}
}

func TestChart_SkipsEmptyGroups(t *testing.T) {
	stats := &renderStats{}
	c := testChart(t, WithRenderObserver(stats))

	frame := c.Render(model.NewRange(0, 10), bounds)
	for _, g := range frame.Groups {
		require.Equal(t, SkipNoData, g.Skipped)
		require.Nil(t, g.Extreme)
		require.Empty(t, g.Layers)
	}
	require.Equal(t, []string{"main:no_data", "macd:no_data"}, stats.skipped)
}

func TestChart_RangePastEndIsNoData(t *testing.T) {
	stats := &renderStats{}
	c := testChart(t, WithRenderObserver(stats))
	c.SetQuotes(wave(10))

	// A range kept from a longer history must not reach past the quotes.
	frame := c.Render(model.Range{Lo: 15, Hi: 20}, bounds)
	require.Equal(t, model.Range{Lo: 10, Hi: 10}, frame.Visible)
	for _, g := range frame.Groups {
		require.Equal(t, SkipNoData, g.Skipped)
		require.Empty(t, g.Layers)
	}
	require.Equal(t, []string{"main:no_data", "macd:no_data"}, stats.skipped)
}

func TestMACD_SolidBarsHaveNoStroke(t *testing.T) {
	c := testChart(t)
	c.SetQuotes(wave(60))
	frame := c.Render(model.NewRange(0, 60), bounds)

	shapes := frame.Groups[1].Layers[0].Shapes
	style := DefaultMACDStyle()
	require.Equal(t, Transparent, shapes[UpSolid].Stroke)
	require.Equal(t, Transparent, shapes[DownSolid].Stroke)
	require.Equal(t, style.UpColor, shapes[UpSolid].Fill)
	require.Equal(t, style.UpColor, shapes[UpHollow].Stroke)
	require.Equal(t, Transparent, shapes[UpHollow].Fill)
}

func TestChart_SkipsFlatScale(t *testing.T) {
	stats := &renderStats{}
	c, err := New(DefaultLayout(), Groups(
		Group{Name: "main", Renderers: []Renderer{NewCandlestick(DefaultCandlestickStyle())}},
	), WithRenderObserver(stats))
	require.NoError(t, err)

	c.SetQuotes(flat(30))
	frame := c.Render(model.NewRange(0, 30), bounds)
	g := frame.Groups[0]
	require.Equal(t, SkipDegenerate, g.Skipped)
	require.Equal(t, &model.ExtremePoint{Min: 50, Max: 50}, g.Extreme)
	require.Empty(t, g.Layers)
	require.Equal(t, []string{"main:degenerate_scale"}, stats.skipped)
	require.Zero(t, stats.bars)
}

func TestChart_AppendKeepsEarlierFrame(t *testing.T) {
	c := testChart(t)
	all := wave(60)

	c.SetQuotes(all[:40])
	before := c.Render(model.NewRange(0, 40), bounds)
	pts := before.Groups[0].Layers[1].Lines[0].Collect()

	changes := c.SetQuotes(all)
	for _, ch := range changes {
		require.Equal(t, indicator.Appended, ch.Outcome)
	}
	require.Equal(t, pts, before.Groups[0].Layers[1].Lines[0].Collect())
}

func TestChart_Captions(t *testing.T) {
	c := testChart(t)
	c.SetQuotes(wave(30))

	caps := c.Captions(2)
	require.Len(t, caps, 2)
	require.Equal(t, "EMA5:--", caps[0].Captions[4].Text(nil))

	macd := caps[1].Captions
	require.Equal(t, "MACD(3,6,3)", macd[0].Text(nil))
	require.Equal(t, "MACD:--", macd[1].Text(nil))
	require.Equal(t, "DIF:--", macd[2].Text(nil))
	require.Equal(t, "DEA:--", macd[3].Text(nil))

	caps = c.Captions(6)
	require.True(t, caps[0].Captions[4].Valid)
	require.False(t, caps[1].Captions[1].Valid)
	require.True(t, caps[1].Captions[2].Valid)

	caps = c.Captions(29)
	for _, cp := range caps[1].Captions[1:] {
		require.True(t, cp.Valid, cp.Title)
	}
}

func TestChart_HiddenLines(t *testing.T) {
	style := DefaultMACDStyle()
	style.ShowDIF = false
	m, err := NewMACD(3, 6, 3, style)
	require.NoError(t, err)
	c, err := New(DefaultLayout(), Groups(Group{Name: "macd", Renderers: []Renderer{m}}))
	require.NoError(t, err)
	c.SetQuotes(wave(40))

	frame := c.Render(model.NewRange(0, 40), bounds)
	lines := frame.Groups[0].Layers[0].Lines
	require.Len(t, lines, 1)
	require.Equal(t, "DEA", lines[0].Name)
	require.Len(t, c.Captions(20)[0].Captions, 3)
}

func TestChart_SharedIndicatorAndReconfigure(t *testing.T) {
	a, err := NewEMALine(5, LineStyle{})
	require.NoError(t, err)
	b, err := NewEMALine(5, LineStyle{})
	require.NoError(t, err)
	macd, err := NewMACD(3, 6, 3, DefaultMACDStyle())
	require.NoError(t, err)

	c, err := New(DefaultLayout(), Groups(
		Group{Name: "one", Renderers: []Renderer{a}},
		If(false, Group{Name: "hidden", Renderers: []Renderer{macd}}),
		Group{Name: "two", Renderers: []Renderer{b, macd}},
	))
	require.NoError(t, err)
	require.Equal(t, []string{"EMA_5", "MACD_3_6_3"}, c.Engine().Keys())

	c.SetQuotes(wave(40))
	ctx := &Context{Visible: model.NewRange(0, 40)}
	ea, _ := a.ExtremePoint(ctx)
	eb, _ := b.ExtremePoint(ctx)
	require.Equal(t, ea, eb)

	ema10, err := NewEMALine(10, LineStyle{})
	require.NoError(t, err)
	preserved, created, err := c.Reconfigure(Groups(Group{Name: "one", Renderers: []Renderer{a, ema10}}))
	require.NoError(t, err)
	require.Equal(t, 1, preserved)
	require.Equal(t, 1, created)
	require.Equal(t, []string{"EMA_5", "EMA_10"}, c.Engine().Keys())

	// The new line is computed against the existing history right away.
	_, ok := ema10.ExtremePoint(ctx)
	require.True(t, ok)
}

func TestNew_RejectsInvalid(t *testing.T) {
	_, err := New(Layout{BarWidth: -1}, nil)
	require.ErrorIs(t, err, ErrInvalidLayout)

	_, err = New(DefaultLayout(), []Group{{Name: "bad", Height: -1}})
	require.ErrorIs(t, err, ErrInvalidLayout)

	_, err = NewLine(indicator.Spec{Type: "MACD"}, LineStyle{})
	require.ErrorIs(t, err, indicator.ErrUnknownType)

	_, err = NewMACD(0, 26, 9, DefaultMACDStyle())
	require.ErrorIs(t, err, indicator.ErrInvalidPeriod)
}
