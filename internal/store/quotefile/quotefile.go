// Package quotefile reads and writes quote histories as CSV, Parquet or JSON
// files. All three share the bar layout t,o,h,l,c,v with t in unix
// milliseconds.
package quotefile

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"klinechart/internal/model"
)

// Bar is the on-disk row.
type Bar struct {
	Timestamp int64   `json:"t" parquet:"t"`
	Open      float64 `json:"o" parquet:"o"`
	High      float64 `json:"h" parquet:"h"`
	Low       float64 `json:"l" parquet:"l"`
	Close     float64 `json:"c" parquet:"c"`
	Volume    float64 `json:"v" parquet:"v"`
}

func fromQuote(q model.Quote) Bar {
	return Bar{
		Timestamp: q.TS.UnixMilli(),
		Open:      q.Open,
		High:      q.High,
		Low:       q.Low,
		Close:     q.Close,
		Volume:    q.Volume,
	}
}

func (b Bar) quote() model.Quote {
	return model.Quote{
		TS:     time.UnixMilli(b.Timestamp).UTC(),
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  b.Close,
		Volume: b.Volume,
	}
}

func toBars(quotes []model.Quote) []Bar {
	bars := make([]Bar, len(quotes))
	for i, q := range quotes {
		bars[i] = fromQuote(q)
	}
	return bars
}

func toQuotes(bars []Bar) []model.Quote {
	quotes := make([]model.Quote, len(bars))
	for i, b := range bars {
		quotes[i] = b.quote()
	}
	return quotes
}

// Codec saves and loads one file format.
type Codec interface {
	Extension() string
	Save(quotes []model.Quote, path string) error
	Load(path string) ([]model.Quote, error)
}

// ForFormat returns the codec for csv, parquet or json.
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSV{}, nil
	case "parquet":
		return Parquet{}, nil
	case "json":
		return JSON{}, nil
	}
	return nil, fmt.Errorf("quotefile: unsupported format %q (use csv, parquet, json)", format)
}

// ForPath picks the codec from the file extension.
func ForPath(path string) (Codec, error) {
	return ForFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}
