// Package chart turns a quote history and its indicator series into drawable
// frames: one scale per group, bar and candle rectangles, polylines and
// legend captions.
package chart

import (
	"fmt"
	"log/slog"
	"time"

	"klinechart/internal/indicator"
	"klinechart/internal/model"
)

// RenderObserver receives per-frame statistics.
type RenderObserver interface {
	ObserveRender(d time.Duration, bars int)
	ObserveSkippedGroup(group, reason string)
}

// Option configures a Chart.
type Option func(*Chart)

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option { return func(c *Chart) { c.log = l } }

// WithRecomputeObserver is told about every indicator recompute.
func WithRecomputeObserver(o indicator.Observer) Option {
	return func(c *Chart) { c.recompute = o }
}

// WithRenderObserver is told about every rendered frame.
func WithRenderObserver(o RenderObserver) Option {
	return func(c *Chart) { c.render = o }
}

// Chart owns the quote history, the indicator engine and the groups drawn
// from them. Not safe for concurrent use: SetQuotes and Render are expected
// to run on one goroutine.
type Chart struct {
	layout Layout
	groups []Group
	engine *indicator.Engine
	quotes []model.Quote

	recompute indicator.Observer
	render    RenderObserver
	log       *slog.Logger
}

// New validates the layout and groups and registers every indicator they
// draw.
func New(layout Layout, groups []Group, opts ...Option) (*Chart, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	c := &Chart{layout: layout}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.engine = indicator.NewEngine(c.recompute, c.log)
	if _, _, err := c.Reconfigure(groups); err != nil {
		return nil, err
	}
	return c, nil
}

// Reconfigure swaps the groups. Indicators still drawn by the new groups
// keep their computed series; new ones are computed against the current
// history, and the rest are dropped.
func (c *Chart) Reconfigure(groups []Group) (preserved, created int, err error) {
	if err := validateGroups(groups); err != nil {
		return 0, 0, err
	}
	specs := collectSpecs(groups)
	preserved, created, err = c.engine.ReloadConfigs(specs)
	if err != nil {
		return 0, 0, fmt.Errorf("reconfigure chart: %w", err)
	}
	for _, g := range groups {
		for _, r := range g.Renderers {
			ir, ok := r.(IndicatorRenderer)
			if !ok {
				continue
			}
			if err := ir.Bind(c.engine); err != nil {
				return preserved, created, fmt.Errorf("bind %s: %w", ir.Name(), err)
			}
		}
	}
	c.groups = groups
	return preserved, created, nil
}

// collectSpecs lists each indicator once, in first-use order.
func collectSpecs(groups []Group) []indicator.Spec {
	var specs []indicator.Spec
	seen := make(map[string]bool)
	for _, g := range groups {
		for _, r := range g.Renderers {
			ir, ok := r.(IndicatorRenderer)
			if !ok {
				continue
			}
			for _, s := range ir.Specs() {
				if seen[s.Key()] {
					continue
				}
				seen[s.Key()] = true
				specs = append(specs, s)
			}
		}
	}
	return specs
}

// SetQuotes replaces the history. The engine decides per indicator whether
// this was an append or a reload. The slice must not be mutated afterwards;
// hand in a longer slice to append.
func (c *Chart) SetQuotes(quotes []model.Quote) []indicator.Change {
	c.quotes = quotes
	return c.engine.OnQuotesChanged(quotes)
}

// Quotes returns the current history.
func (c *Chart) Quotes() []model.Quote { return c.quotes }

// Layout returns the horizontal metrics.
func (c *Chart) Layout() Layout { return c.layout }

// Engine exposes the indicator engine backing the chart.
func (c *Chart) Engine() *indicator.Engine { return c.engine }

// Render draws the visible range into bounds. Groups with no data or a flat
// scale are reported as skipped and draw nothing.
func (c *Chart) Render(visible model.Range, bounds model.ContentRect) Frame {
	start := time.Now()
	visible = visible.Clamp(len(c.quotes))
	rects := split(c.groups, bounds)

	frame := Frame{Visible: visible, Groups: make([]GroupFrame, 0, len(c.groups))}
	for i, g := range c.groups {
		frame.Groups = append(frame.Groups, c.renderGroup(g, visible, rects[i]))
	}

	bars := frame.Bars()
	if c.render != nil {
		c.render.ObserveRender(time.Since(start), bars)
	}
	c.log.Debug("frame rendered",
		slog.Int("lo", visible.Lo),
		slog.Int("hi", visible.Hi),
		slog.Int("bars", bars),
		slog.Duration("took", time.Since(start)),
	)
	return frame
}

func (c *Chart) renderGroup(g Group, visible model.Range, rect model.ContentRect) GroupFrame {
	out := GroupFrame{Name: g.Name, Rect: rect}
	ctx := &Context{Quotes: c.quotes, Visible: visible, Rect: rect, Layout: c.layout}

	sources := make([]ExtremeSource, len(g.Renderers))
	for i, r := range g.Renderers {
		sources[i] = r
	}
	ep, ok := ResolveExtreme(ctx, sources...)
	if !ok {
		c.skip(&out, SkipNoData)
		return out
	}
	out.Extreme = &ep

	m, err := NewMapper(ep, rect)
	if err != nil {
		c.skip(&out, SkipDegenerate)
		return out
	}
	ctx.Mapper = m
	out.Layers = make([]Layer, 0, len(g.Renderers))
	for _, r := range g.Renderers {
		out.Layers = append(out.Layers, r.Render(ctx))
	}
	return out
}

func (c *Chart) skip(g *GroupFrame, reason string) {
	if c.render != nil {
		c.render.ObserveSkippedGroup(g.Name, reason)
	}
	c.log.Debug("group skipped", slog.String("group", g.Name), slog.String("reason", reason))
	g.Skipped = reason
}

// Captions returns the legend of every group for the bar at index.
func (c *Chart) Captions(index int) []GroupCaptions {
	ctx := &Context{Quotes: c.quotes, Layout: c.layout}
	out := make([]GroupCaptions, 0, len(c.groups))
	for _, g := range c.groups {
		gc := GroupCaptions{Name: g.Name}
		for _, r := range g.Renderers {
			gc.Captions = append(gc.Captions, r.Captions(ctx, index)...)
		}
		out = append(out, gc)
	}
	return out
}

// IndexAt maps a content x (scroll offset included) to a quote index.
func (c *Chart) IndexAt(x float64) (int, bool) { return c.layout.IndexAt(x, len(c.quotes)) }

// VisibleRange returns the quotes shown in a viewport of width scrolled to
// offsetX.
func (c *Chart) VisibleRange(offsetX, width float64) model.Range {
	return c.layout.VisibleRange(offsetX, width, len(c.quotes))
}

// ContentWidth is the scrollable width of the whole history.
func (c *Chart) ContentWidth() float64 { return c.layout.ContentWidth(len(c.quotes)) }
