package chart

import (
	"encoding/json"

	"klinechart/internal/model"
)

// Reasons a group draws nothing in a frame.
const (
	SkipNoData     = "no_data"
	SkipDegenerate = "degenerate_scale"
)

// Frame is everything drawn for one visible range.
type Frame struct {
	Visible model.Range  `json:"visible"`
	Groups  []GroupFrame `json:"groups"`
}

// GroupFrame is the output of one group. Extreme is nil when no renderer had
// data in range.
type GroupFrame struct {
	Name    string              `json:"name"`
	Rect    model.ContentRect   `json:"rect"`
	Extreme *model.ExtremePoint `json:"extreme"`
	Skipped string              `json:"skipped,omitempty"`
	Layers  []Layer             `json:"layers"`
}

// Bars counts every rectangle in the frame.
func (f Frame) Bars() int {
	n := 0
	for _, g := range f.Groups {
		for _, l := range g.Layers {
			n += l.Bars()
		}
	}
	return n
}

// JSON encodes the frame, materialising every polyline.
func (f Frame) JSON() ([]byte, error) { return json.Marshal(f) }

// GroupCaptions is the legend row of one group.
type GroupCaptions struct {
	Name     string    `json:"name"`
	Captions []Caption `json:"captions"`
}
