package chart

import (
	"fmt"

	"klinechart/internal/model"
)

// Group is a vertical band of the chart whose renderers share one scale.
// Height is a fraction of the chart height when <= 1, pixels otherwise.
type Group struct {
	Name      string
	Height    float64
	Renderers []Renderer
}

// Groups returns the groups in order, dropping empty ones produced by If.
func Groups(gs ...Group) []Group {
	out := make([]Group, 0, len(gs))
	for _, g := range gs {
		if len(g.Renderers) == 0 && g.Name == "" {
			continue
		}
		out = append(out, g)
	}
	return out
}

// If returns g when cond holds and an empty group otherwise.
func If(cond bool, g Group) Group {
	if !cond {
		return Group{}
	}
	return g
}

func validateGroups(groups []Group) error {
	for i, g := range groups {
		if g.Height < 0 {
			return fmt.Errorf("group %d (%s): negative height %v: %w", i, g.Name, g.Height, ErrInvalidLayout)
		}
		for _, r := range g.Renderers {
			if r == nil {
				return fmt.Errorf("group %d (%s): nil renderer", i, g.Name)
			}
		}
	}
	return nil
}

// split divides bounds top to bottom. Pixel heights are taken first, the
// remainder is shared by fractions; groups without a height split what is
// left evenly.
func split(groups []Group, bounds model.ContentRect) []model.ContentRect {
	var fixed, fraction float64
	unset := 0
	for _, g := range groups {
		switch {
		case g.Height == 0:
			unset++
		case g.Height > 1:
			fixed += g.Height
		default:
			fraction += g.Height
		}
	}
	rest := max(bounds.Height-fixed, 0)
	share := 0.0
	if unset > 0 && fraction < 1 {
		share = rest * (1 - fraction) / float64(unset)
	}

	out := make([]model.ContentRect, len(groups))
	y := bounds.Y
	for i, g := range groups {
		h := share
		switch {
		case g.Height > 1:
			h = g.Height
		case g.Height > 0:
			h = rest * g.Height
		}
		out[i] = model.ContentRect{X: bounds.X, Y: y, Width: bounds.Width, Height: h}
		y += h
	}
	return out
}
