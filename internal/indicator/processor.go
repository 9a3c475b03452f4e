package indicator

import (
	"log/slog"
	"time"

	"klinechart/internal/model"
	"klinechart/internal/offsetarray"
)

// Outcome describes what a Processor did with a new quote history.
type Outcome int

const (
	Unchanged Outcome = iota
	Appended
	Reloaded
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Appended:
		return "appended"
	case Reloaded:
		return "reloaded"
	}
	return "unknown"
}

// Observer receives one call per OnQuotesChanged. fed is the number of
// quotes run through the algorithm.
type Observer interface {
	ObserveRecompute(key string, outcome Outcome, fed int, d time.Duration)
}

// Updater is the type-erased side of a Processor, used by Engine to drive
// processors of different value types together.
type Updater interface {
	Key() string
	OnQuotesChanged(quotes []model.Quote) Outcome
}

// Processor owns one algorithm and the series it produced. It is the only
// writer of that series; readers get immutable snapshots via CurrentValues.
// Not safe for concurrent use.
type Processor[V any] struct {
	alg    Algorithm[V]
	values offsetarray.OffsetArray[V]

	// What the last history looked like, to tell appends from reloads.
	seen  int
	first model.Quote
	last  model.Quote

	observer Observer
	log      *slog.Logger
}

// NewProcessor wraps alg. observer and log may be nil.
func NewProcessor[V any](alg Algorithm[V], observer Observer, log *slog.Logger) *Processor[V] {
	if log == nil {
		log = slog.Default()
	}
	return &Processor[V]{
		alg:      alg,
		values:   offsetarray.Empty[V](),
		observer: observer,
		log:      log.With(slog.String("indicator", alg.Key())),
	}
}

func (p *Processor[V]) Key() string { return p.alg.Key() }

// Algorithm returns the wrapped algorithm.
func (p *Processor[V]) Algorithm() Algorithm[V] { return p.alg }

// CurrentValues returns the series for the last history seen. The snapshot
// stays valid after later calls to OnQuotesChanged.
func (p *Processor[V]) CurrentValues() offsetarray.OffsetArray[V] { return p.values }

// OnQuotesChanged brings the series in line with quotes. If quotes extends
// the previous history without rewriting it, only the new tail is computed;
// otherwise the series is rebuilt from scratch.
func (p *Processor[V]) OnQuotesChanged(quotes []model.Quote) Outcome {
	start := time.Now()
	outcome, fed := p.apply(quotes)
	d := time.Since(start)

	if p.observer != nil {
		p.observer.ObserveRecompute(p.alg.Key(), outcome, fed, d)
	}
	if outcome != Unchanged {
		p.log.Debug("indicator recomputed",
			slog.String("outcome", outcome.String()),
			slog.Int("fed", fed),
			slog.Int("values", p.values.Len()),
			slog.Duration("took", d),
		)
	}
	return outcome
}

func (p *Processor[V]) apply(quotes []model.Quote) (Outcome, int) {
	n := len(quotes)
	switch {
	case n == 0 && p.seen == 0:
		return Unchanged, 0

	case p.seen > 0 && n == p.seen &&
		model.SameBar(quotes[0], p.first) && model.SameBar(quotes[n-1], p.last):
		return Unchanged, 0

	case p.seen > 0 && n > p.seen &&
		model.SameBar(quotes[0], p.first) && model.SameBar(quotes[p.seen-1], p.last):
		tail := quotes[p.seen:]
		p.values = ExtendSeries(p.alg, p.values, tail)
		p.remember(quotes)
		return Appended, len(tail)
	}

	p.values = ComputeSeries(p.alg, quotes)
	p.remember(quotes)
	return Reloaded, n
}

func (p *Processor[V]) remember(quotes []model.Quote) {
	p.seen = len(quotes)
	if p.seen == 0 {
		p.first, p.last = model.Quote{}, model.Quote{}
		return
	}
	p.first = quotes[0]
	p.last = quotes[p.seen-1]
}
