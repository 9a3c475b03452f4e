package quotefile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"klinechart/internal/model"
)

var csvHeader = []string{"t", "o", "h", "l", "c", "v"}

// CSV stores bars with header t,o,h,l,c,v. On load, t may also be an
// RFC 3339 timestamp and v may be missing.
type CSV struct{}

func (CSV) Extension() string { return "csv" }

func (CSV) Save(quotes []model.Quote, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)

	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range toBars(quotes) {
		if err := w.Write([]string{
			strconv.FormatInt(b.Timestamp, 10),
			floatStr(b.Open),
			floatStr(b.High),
			floatStr(b.Low),
			floatStr(b.Close),
			floatStr(b.Volume),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func (CSV) Load(path string) ([]model.Quote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses CSV bars from r.
func ReadCSV(r io.Reader) ([]model.Quote, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var quotes []model.Quote
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "t") {
			continue
		}
		q, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func parseRecord(rec []string) (model.Quote, error) {
	if len(rec) < 5 {
		return model.Quote{}, fmt.Errorf("want at least 5 fields, got %d", len(rec))
	}
	ts, err := parseTime(rec[0])
	if err != nil {
		return model.Quote{}, err
	}
	vals := make([]float64, 5)
	for i := 1; i < len(rec) && i <= 5; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
		if err != nil {
			return model.Quote{}, fmt.Errorf("field %s: %w", csvHeader[i], err)
		}
		vals[i-1] = v
	}
	return model.Quote{TS: ts, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4]}, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: want unix ms or RFC 3339", s)
	}
	return t.UTC(), nil
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
