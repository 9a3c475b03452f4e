package indicator

import (
	"fmt"
	"strconv"

	"klinechart/internal/model"
)

// MACDValue is one MACD sample. DEA and Histogram are only meaningful when
// HasSignal is set; use Signal and Hist to read them.
type MACDValue struct {
	Diff      float64 `json:"diff"`
	DEA       float64 `json:"dea"`
	Histogram float64 `json:"histogram"`
	HasSignal bool    `json:"has_signal"`
}

// Signal returns the DEA line value.
func (v MACDValue) Signal() (float64, bool) { return v.DEA, v.HasSignal }

// Hist returns the histogram value, (diff - dea) * 2.
func (v MACDValue) Hist() (float64, bool) { return v.Histogram, v.HasSignal }

// MACD computes diff = EMA(short) - EMA(long), dea = EMA(signal) over diff
// and histogram = (diff - dea) * 2.
type MACD struct {
	short, long, signal int

	fast, slow, sig ema
	cur             MACDValue
	ready           bool
}

// NewMACD creates a MACD(short, long, signal) algorithm.
func NewMACD(short, long, signal int) (*MACD, error) {
	if short <= 0 || long <= 0 || signal <= 0 {
		return nil, fmt.Errorf("MACD(%d,%d,%d): %w", short, long, signal, ErrInvalidPeriod)
	}
	return &MACD{
		short:  short,
		long:   long,
		signal: signal,
		fast:   newEMA(short),
		slow:   newEMA(long),
		sig:    newEMA(signal),
	}, nil
}

func (m *MACD) Key() string {
	return "MACD_" + strconv.Itoa(m.short) + "_" + strconv.Itoa(m.long) + "_" + strconv.Itoa(m.signal)
}

// Periods returns (short, long, signal).
func (m *MACD) Periods() (int, int, int) { return m.short, m.long, m.signal }

// Offset is the first index with a diff value.
func (m *MACD) Offset() int { return max(m.short, m.long) - 1 }

// SignalOffset is the first index with a DEA and histogram value.
func (m *MACD) SignalOffset() int { return m.Offset() + m.signal - 1 }

func (m *MACD) Reset() {
	m.fast.reset()
	m.slow.reset()
	m.sig.reset()
	m.cur = MACDValue{}
	m.ready = false
}

func (m *MACD) Update(q model.Quote) {
	m.fast.update(q.Close)
	m.slow.update(q.Close)
	if !m.fast.ready() || !m.slow.ready() {
		return
	}

	v := MACDValue{Diff: m.fast.current - m.slow.current}
	m.sig.update(v.Diff)
	if m.sig.ready() {
		v.DEA = m.sig.current
		v.Histogram = (v.Diff - v.DEA) * 2
		v.HasSignal = true
	}
	m.cur = v
	m.ready = true
}

func (m *MACD) Value() (MACDValue, bool) { return m.cur, m.ready }
