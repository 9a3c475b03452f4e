package indicator

import (
	"fmt"
	"log/slog"

	"klinechart/internal/model"
)

// Change reports the outcome for one processor after a data change.
type Change struct {
	Key     string
	Outcome Outcome
}

// Engine keeps one processor per indicator configuration and drives them all
// when the quote history changes. Two configurations of the same type (say
// EMA_9 and EMA_21) live side by side under their own keys.
// Designed for single-goroutine usage, no locks.
type Engine struct {
	order []string
	byKey map[string]Updater

	// Last history handed to OnQuotesChanged, so processors created later
	// start in sync. Owned by the caller, never modified here.
	quotes []model.Quote

	observer Observer
	log      *slog.Logger
}

// NewEngine creates an empty engine. observer and log may be nil.
func NewEngine(observer Observer, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		byKey:    make(map[string]Updater, 8),
		observer: observer,
		log:      log,
	}
}

// OnQuotesChanged hands the full history to every processor, in
// registration order, and reports what each one did.
func (e *Engine) OnQuotesChanged(quotes []model.Quote) []Change {
	e.quotes = quotes
	changes := make([]Change, 0, len(e.order))
	for _, key := range e.order {
		changes = append(changes, Change{Key: key, Outcome: e.byKey[key].OnQuotesChanged(quotes)})
	}
	return changes
}

// Quotes returns the last history seen.
func (e *Engine) Quotes() []model.Quote { return e.quotes }

// Keys returns the registered keys in registration order.
func (e *Engine) Keys() []string {
	keys := make([]string, len(e.order))
	copy(keys, e.order)
	return keys
}

// Len returns the number of registered processors.
func (e *Engine) Len() int { return len(e.order) }

// Updater returns the processor registered under key.
func (e *Engine) Updater(key string) (Updater, bool) {
	u, ok := e.byKey[key]
	return u, ok
}

// Register adds u unless a processor with the same key exists, in which case
// the existing one is returned and u is discarded. A new processor is brought
// up to date with the last history seen.
func (e *Engine) Register(u Updater) Updater {
	if existing, ok := e.byKey[u.Key()]; ok {
		return existing
	}
	e.byKey[u.Key()] = u
	e.order = append(e.order, u.Key())
	if len(e.quotes) > 0 {
		u.OnQuotesChanged(e.quotes)
	}
	return u
}

// Retain drops every processor whose key is not listed and returns how many
// were dropped.
func (e *Engine) Retain(keys []string) int {
	keep := make(map[string]bool, len(keys))
	for _, k := range keys {
		keep[k] = true
	}
	order := e.order[:0]
	dropped := 0
	for _, k := range e.order {
		if keep[k] {
			order = append(order, k)
			continue
		}
		delete(e.byKey, k)
		dropped++
	}
	e.order = order
	return dropped
}

// Lookup returns the typed processor registered under key.
func Lookup[V any](e *Engine, key string) (*Processor[V], error) {
	u, ok := e.byKey[key]
	if !ok {
		return nil, fmt.Errorf("indicator %s not registered", key)
	}
	p, ok := u.(*Processor[V])
	if !ok {
		return nil, fmt.Errorf("indicator %s: value type mismatch (%T)", key, u)
	}
	return p, nil
}

// Ensure returns the processor for alg's key, creating and registering one
// when absent.
func Ensure[V any](e *Engine, alg Algorithm[V]) (*Processor[V], error) {
	if _, ok := e.byKey[alg.Key()]; !ok {
		e.Register(NewProcessor(alg, e.observer, e.log))
	}
	return Lookup[V](e, alg.Key())
}
