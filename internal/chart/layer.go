package chart

import (
	"encoding/json"
	"fmt"
	"image/color"
	"iter"
	"slices"
	"strconv"
	"strings"

	"klinechart/internal/indicator"
	"klinechart/internal/model"
)

// Color is an 8-bit RGBA color. It encodes as "#rrggbb" or "#rrggbbaa".
type Color color.NRGBA

// Transparent is the zero color, used as the fill of hollow bars.
var Transparent = Color{}

// ParseColor accepts "#rgb", "#rrggbb" and "#rrggbbaa".
func ParseColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return Color{}, fmt.Errorf("color %q: want #rrggbb or #rrggbbaa", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("color %q: %w", s, err)
	}
	return Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// MustColor panics on a malformed literal.
func MustColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Color) String() string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Shape is one buffer of rectangles drawn with the same style.
type Shape struct {
	Name      string       `json:"name"`
	Fill      Color        `json:"fill"`
	Stroke    Color        `json:"stroke"`
	LineWidth float64      `json:"lineWidth"`
	Rects     []model.Rect `json:"rects"`
}

// Polyline is a connected line through Points. The sequence can be iterated
// any number of times.
type Polyline struct {
	Name   string
	Color  Color
	Width  float64
	Dash   []float64 // on/off lengths; nil draws solid
	Points iter.Seq[model.Point]
}

// Collect materialises the points.
func (p Polyline) Collect() []model.Point {
	if p.Points == nil {
		return nil
	}
	return slices.Collect(p.Points)
}

func (p Polyline) MarshalJSON() ([]byte, error) {
	pts := p.Collect()
	if pts == nil {
		pts = []model.Point{}
	}
	return json.Marshal(struct {
		Name   string        `json:"name"`
		Color  Color         `json:"color"`
		Width  float64       `json:"width"`
		Dash   []float64     `json:"dash,omitempty"`
		Points []model.Point `json:"points"`
	}{p.Name, p.Color, p.Width, p.Dash, pts})
}

// Layer is what one renderer produces for one frame.
type Layer struct {
	Name   string     `json:"name"`
	Shapes []Shape    `json:"shapes,omitempty"`
	Lines  []Polyline `json:"lines,omitempty"`
}

// Bars counts every rectangle in the layer.
func (l Layer) Bars() int {
	n := 0
	for _, s := range l.Shapes {
		n += len(s.Rects)
	}
	return n
}

// Formatter renders a caption value.
type Formatter func(float64) string

// DefaultFormatter prints two decimals.
func DefaultFormatter(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// NoData is shown in place of a value that does not exist at an index.
const NoData = "--"

// Caption is one legend entry for the bar under the cursor.
type Caption struct {
	Title string  `json:"title"`
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
	Label bool    `json:"label,omitempty"` // title only, no value column
	Color Color   `json:"color"`
}

// Text renders "Title:value", "Title:--", or just the title for labels.
func (c Caption) Text(format Formatter) string {
	if c.Label {
		return c.Title
	}
	if !c.Valid {
		return c.Title + ":" + NoData
	}
	if format == nil {
		format = DefaultFormatter
	}
	return c.Title + ":" + format(c.Value)
}

func valueCaption(title string, v float64, ok bool, c Color) Caption {
	return Caption{Title: title, Value: v, Valid: ok, Color: c}
}

// Context carries the per-frame inputs shared by the renderers of a group.
// Mapper is only set when the group has a drawable scale.
type Context struct {
	Quotes  []model.Quote
	Visible model.Range
	Rect    model.ContentRect
	Layout  Layout
	Mapper  Mapper
}

// X translates a content-relative x into the group rect.
func (c *Context) X(x float64) float64 { return c.Rect.X + c.Layout.PixelCeil(x) }

// Viewport returns the horizontal extent on screen. Rect.X is the content
// origin (minus the scroll offset), so the screen starts at 0.
func (c *Context) Viewport() (minX, maxX float64) { return 0, c.Rect.Width }

// Renderer draws one layer of a group.
type Renderer interface {
	ExtremeSource
	Name() string
	Render(ctx *Context) Layer
	Captions(ctx *Context, index int) []Caption
}

// IndicatorRenderer is a renderer backed by computed indicator series. The
// chart registers its Specs in an indicator.Engine and then calls Bind so the
// renderer can pick up the shared processors.
type IndicatorRenderer interface {
	Renderer
	Specs() []indicator.Spec
	Bind(e *indicator.Engine) error
}
