package indicator

import (
	"fmt"
	"strconv"

	"klinechart/internal/model"
)

// window is the rolling state behind SMA: the last period closes in a ring
// and their running sum.
type window struct {
	period int
	ring   []float64
	next   int
	count  int
	sum    float64
}

func newWindow(period int) window {
	return window{period: period, ring: make([]float64, period)}
}

func (w *window) update(price float64) {
	if w.full() {
		w.sum -= w.ring[w.next]
	}
	w.ring[w.next] = price
	w.sum += price
	w.next = (w.next + 1) % w.period
	w.count++
}

func (w *window) full() bool { return w.count >= w.period }

func (w *window) mean() float64 { return w.sum / float64(w.period) }

// peek returns the mean after one more price, leaving the window untouched.
func (w *window) peek(price float64) (float64, bool) {
	if w.count+1 < w.period {
		return 0, false
	}
	sum := w.sum + price
	if w.full() {
		sum -= w.ring[w.next]
	}
	return sum / float64(w.period), true
}

func (w *window) reset() {
	clear(w.ring)
	w.next, w.count, w.sum = 0, 0, 0
}

// SMA is the Simple Moving Average of close prices over a rolling window.
type SMA struct {
	state window
}

// NewSMA creates an SMA over the given period.
func NewSMA(period int) (*SMA, error) {
	if period <= 0 {
		return nil, fmt.Errorf("SMA(%d): %w", period, ErrInvalidPeriod)
	}
	return &SMA{state: newWindow(period)}, nil
}

func (s *SMA) Key() string          { return "SMA_" + strconv.Itoa(s.state.period) }
func (s *SMA) Period() int          { return s.state.period }
func (s *SMA) Offset() int          { return s.state.period - 1 }
func (s *SMA) Reset()               { s.state.reset() }
func (s *SMA) Update(q model.Quote) { s.state.update(q.Close) }

func (s *SMA) Value() (float64, bool) {
	if !s.state.full() {
		return 0, false
	}
	return s.state.mean(), true
}

// Peek previews the next value for a bar closing at price.
func (s *SMA) Peek(price float64) (float64, bool) { return s.state.peek(price) }
