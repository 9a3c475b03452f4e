package indicator

import (
	"fmt"
	"strconv"

	"klinechart/internal/model"
)

// ema is the running state shared by the EMA algorithm and the MACD lines.
// O(1) per update, no window storage.
type ema struct {
	period     int
	multiplier float64
	current    float64
	count      int
	sum        float64
}

func newEMA(period int) ema {
	return ema{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *ema) update(price float64) {
	e.count++

	if e.count <= e.period {
		// Accumulate for initial SMA seed
		e.sum += price
		if e.count == e.period {
			e.current = e.sum / float64(e.period)
		}
		return
	}

	// EMA = (Price * multiplier) + (EMA_prev * (1 - multiplier))
	e.current = (price * e.multiplier) + (e.current * (1 - e.multiplier))
}

func (e *ema) ready() bool { return e.count >= e.period }

func (e *ema) peek(price float64) (float64, bool) {
	switch {
	case e.count+1 < e.period:
		return 0, false
	case e.count+1 == e.period:
		return (e.sum + price) / float64(e.period), true
	}
	return (price * e.multiplier) + (e.current * (1 - e.multiplier)), true
}

func (e *ema) reset() {
	e.current = 0
	e.count = 0
	e.sum = 0
}

// EMA calculates the Exponential Moving Average of close prices.
// The first value is the simple mean of the first period closes.
type EMA struct {
	state ema
}

// NewEMA creates an EMA over the given period.
func NewEMA(period int) (*EMA, error) {
	if period <= 0 {
		return nil, fmt.Errorf("EMA(%d): %w", period, ErrInvalidPeriod)
	}
	return &EMA{state: newEMA(period)}, nil
}

func (e *EMA) Key() string          { return "EMA_" + strconv.Itoa(e.state.period) }
func (e *EMA) Period() int          { return e.state.period }
func (e *EMA) Offset() int          { return e.state.period - 1 }
func (e *EMA) Reset()               { e.state.reset() }
func (e *EMA) Update(q model.Quote) { e.state.update(q.Close) }

func (e *EMA) Value() (float64, bool) {
	if !e.state.ready() {
		return 0, false
	}
	return e.state.current, true
}

// Peek computes the value a quote closing at price would produce next,
// without mutating state. Used for previews of a still-forming bar.
func (e *EMA) Peek(price float64) (float64, bool) { return e.state.peek(price) }
