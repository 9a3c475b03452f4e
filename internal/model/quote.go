package model

import "time"

// Quote is one OHLC bar of a price series. The chart core never mutates
// quotes; the slice handed to it is owned by the caller and ordered by TS.
type Quote struct {
	TS     time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Rising reports whether the bar closed at or above its open.
func (q Quote) Rising() bool { return q.Close >= q.Open }

// SameBar reports whether two quotes carry identical values. Used to detect
// rewritten history when a new quote slice arrives.
func SameBar(a, b Quote) bool {
	return a.TS.Equal(b.TS) &&
		a.Open == b.Open &&
		a.High == b.High &&
		a.Low == b.Low &&
		a.Close == b.Close &&
		a.Volume == b.Volume
}
