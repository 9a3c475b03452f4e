package chart

import "klinechart/internal/model"

// BarState is the momentum class of one histogram bar.
type BarState int

const (
	LongIncreasing BarState = iota
	LongDecreasing
	ShortIncreasing
	ShortDecreasing
)

func (s BarState) String() string {
	switch s {
	case LongIncreasing:
		return "long_increasing"
	case LongDecreasing:
		return "long_decreasing"
	case ShortIncreasing:
		return "short_increasing"
	case ShortDecreasing:
		return "short_decreasing"
	}
	return "unknown"
}

// Long reports whether the state belongs to the positive bucket.
func (s BarState) Long() bool { return s == LongIncreasing || s == LongDecreasing }

// Shared read-only results, so classification does not allocate.
var (
	singleStates = [...][]BarState{
		LongIncreasing:  {LongIncreasing},
		LongDecreasing:  {LongDecreasing},
		ShortIncreasing: {ShortIncreasing},
		ShortDecreasing: {ShortDecreasing},
	}
	longBoth  = []BarState{LongIncreasing, LongDecreasing}
	shortBoth = []BarState{ShortIncreasing, ShortDecreasing}
)

// HistogramStyle selects hollow or solid drawing per state.
//
// With LegacyClassification the older rules apply: a bar below zero after a
// bar below zero takes its hollow flag from the long states, and a bar that
// crosses zero (or has no predecessor) is drawn into both shapes of its
// bucket.
type HistogramStyle struct {
	LongIncreasingHollow  bool `yaml:"long_increasing_hollow" json:"longIncreasingHollow"`
	LongDecreasingHollow  bool `yaml:"long_decreasing_hollow" json:"longDecreasingHollow"`
	ShortIncreasingHollow bool `yaml:"short_increasing_hollow" json:"shortIncreasingHollow"`
	ShortDecreasingHollow bool `yaml:"short_decreasing_hollow" json:"shortDecreasingHollow"`
	LegacyClassification  bool `yaml:"legacy_classification" json:"legacyClassification"`
}

// Classify returns the states a bar of value cur is drawn as. The returned
// slice is shared and must not be modified.
func (s HistogramStyle) Classify(prev float64, hasPrev bool, cur float64) []BarState {
	if s.LegacyClassification {
		return classifyLegacy(prev, hasPrev, cur)
	}
	return singleStates[classify(prev, hasPrev, cur)]
}

func classify(prev float64, hasPrev bool, cur float64) BarState {
	long := cur > 0
	if !hasPrev {
		if long {
			return LongIncreasing
		}
		return ShortDecreasing
	}
	rising := cur > prev
	switch {
	case long && rising:
		return LongIncreasing
	case long:
		return LongDecreasing
	case rising:
		return ShortIncreasing
	default:
		return ShortDecreasing
	}
}

func classifyLegacy(prev float64, hasPrev bool, cur float64) []BarState {
	switch {
	case hasPrev && prev > 0 && cur > 0:
		if cur > prev {
			return singleStates[LongIncreasing]
		}
		return singleStates[LongDecreasing]
	case hasPrev && prev < 0 && cur < 0:
		if cur > prev {
			return singleStates[ShortIncreasing]
		}
		return singleStates[ShortDecreasing]
	case cur > 0:
		return longBoth
	default:
		return shortBoth
	}
}

// Hollow reports whether a bar in state st is drawn as an outline.
func (s HistogramStyle) Hollow(st BarState) bool {
	switch st {
	case LongIncreasing:
		return s.LongIncreasingHollow
	case LongDecreasing:
		return s.LongDecreasingHollow
	case ShortIncreasing:
		return s.ShortIncreasingHollow
	default:
		return s.ShortDecreasingHollow
	}
}

// BarBuffer identifies one of the four histogram shape buffers.
type BarBuffer int

const (
	UpSolid BarBuffer = iota
	DownSolid
	UpHollow
	DownHollow
	barBufferCount
)

func (b BarBuffer) String() string {
	return [...]string{"up_solid", "down_solid", "up_hollow", "down_hollow"}[b]
}

func bufferFor(long, hollow bool) BarBuffer {
	switch {
	case long && hollow:
		return UpHollow
	case long:
		return UpSolid
	case hollow:
		return DownHollow
	default:
		return DownSolid
	}
}

// Buffers appends to dst the buffers a bar of value cur is drawn into.
func (s HistogramStyle) Buffers(dst []BarBuffer, prev float64, hasPrev bool, cur float64) []BarBuffer {
	states := s.Classify(prev, hasPrev, cur)
	// Legacy: a single short state only comes from the both-negative branch,
	// which was styled by the long flags.
	bothNegative := s.LegacyClassification && len(states) == 1 && !states[0].Long()
	for _, st := range states {
		hollow := s.Hollow(st)
		if bothNegative {
			if st == ShortIncreasing {
				hollow = s.LongIncreasingHollow
			} else {
				hollow = s.LongDecreasingHollow
			}
		}
		dst = append(dst, bufferFor(st.Long(), hollow))
	}
	return dst
}

// HistogramBars are the four buffers of one frame.
type HistogramBars [barBufferCount][]model.Rect

func (h *HistogramBars) add(b BarBuffer, r model.Rect) { h[b] = append(h[b], r) }

// Len counts rects over all buffers.
func (h *HistogramBars) Len() int {
	n := 0
	for _, b := range h {
		n += len(b)
	}
	return n
}
