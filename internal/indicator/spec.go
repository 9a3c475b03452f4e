package indicator

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Spec names one indicator configuration, e.g. {Type: "EMA", Periods: [20]}.
type Spec struct {
	Type    string `yaml:"type" json:"type"`
	Periods []int  `yaml:"periods" json:"periods"`
}

// Default MACD periods when a spec gives none.
var defaultMACDPeriods = []int{12, 26, 9}

// Key returns the identity the spec's algorithm reports from Key().
func (s Spec) Key() string {
	parts := make([]string, 0, len(s.Periods)+1)
	parts = append(parts, strings.ToUpper(s.Type))
	for _, p := range s.normalizedPeriods() {
		parts = append(parts, strconv.Itoa(p))
	}
	return strings.Join(parts, "_")
}

func (s Spec) String() string {
	parts := make([]string, 0, len(s.Periods)+1)
	parts = append(parts, strings.ToUpper(s.Type))
	for _, p := range s.normalizedPeriods() {
		parts = append(parts, strconv.Itoa(p))
	}
	return strings.Join(parts, ":")
}

func (s Spec) normalizedPeriods() []int {
	if strings.EqualFold(s.Type, "MACD") && len(s.Periods) == 0 {
		return defaultMACDPeriods
	}
	return s.Periods
}

// Validate checks the type and period count of one spec.
func (s Spec) Validate() error {
	periods := s.normalizedPeriods()
	want := 1
	switch strings.ToUpper(s.Type) {
	case "EMA", "SMA":
	case "MACD":
		want = 3
	default:
		return fmt.Errorf("%q: %w", s.Type, ErrUnknownType)
	}
	if len(periods) != want {
		return fmt.Errorf("%s: expected %d periods, got %d", s.Type, want, len(periods))
	}
	for _, p := range periods {
		if p <= 0 {
			return fmt.Errorf("%s: period=%d: %w", s, p, ErrInvalidPeriod)
		}
	}
	return nil
}

// ValidateSpecs checks a set of specs for errors, including duplicates.
func ValidateSpecs(specs []Spec) error {
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.Key()] {
			return fmt.Errorf("duplicate indicator %s", s)
		}
		seen[s.Key()] = true
	}
	return nil
}

// ParseSpecs parses "TYPE:PERIOD[:PERIOD...],..." into specs.
// Example: "EMA:9,EMA:21,SMA:50,MACD:12:26:9". A bare "MACD" uses 12,26,9.
func ParseSpecs(s string) ([]Spec, error) {
	var specs []Spec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tokens := strings.Split(part, ":")
		spec := Spec{Type: strings.ToUpper(strings.TrimSpace(tokens[0]))}
		for _, tok := range tokens[1:] {
			p, err := strconv.Atoi(strings.TrimSpace(tok))
			if err != nil {
				return nil, fmt.Errorf("indicator spec %q: bad period %q", part, tok)
			}
			spec.Periods = append(spec.Periods, p)
		}
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("indicator spec %q: %w", part, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// NewUpdater builds the processor for spec.
func NewUpdater(spec Spec, observer Observer, log *slog.Logger) (Updater, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	p := spec.normalizedPeriods()
	switch strings.ToUpper(spec.Type) {
	case "EMA":
		alg, err := NewEMA(p[0])
		if err != nil {
			return nil, err
		}
		return NewProcessor[float64](alg, observer, log), nil
	case "SMA":
		alg, err := NewSMA(p[0])
		if err != nil {
			return nil, err
		}
		return NewProcessor[float64](alg, observer, log), nil
	case "MACD":
		alg, err := NewMACD(p[0], p[1], p[2])
		if err != nil {
			return nil, err
		}
		return NewProcessor[MACDValue](alg, observer, log), nil
	}
	return nil, fmt.Errorf("%q: %w", spec.Type, ErrUnknownType)
}
