// Package replay feeds a stored quote history into a chart one bar at a
// time, the way a live feed would, so the append path can be exercised and
// observed.
package replay

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"klinechart/internal/indicator"
	"klinechart/internal/logger"
	"klinechart/internal/model"
)

// maxGap caps the simulated wait between two bars.
const maxGap = 5 * time.Second

// Sink receives each grown history. *chart.Chart implements it.
type Sink interface {
	SetQuotes(quotes []model.Quote) []indicator.Change
}

// StepFunc runs after every step with the history handed to the sink. A
// non-nil error stops the replay.
type StepFunc func(ctx context.Context, step int, quotes []model.Quote, changes []indicator.Change) error

// Replayer replays quotes into a Sink at a configurable speed.
type Replayer struct {
	quotes []model.Quote
	sink   Sink
	log    *slog.Logger

	// OnStep is optional.
	OnStep StepFunc
}

// New sorts a copy of quotes by timestamp and prepares a replay into sink.
func New(quotes []model.Quote, sink Sink, log *slog.Logger) *Replayer {
	if log == nil {
		log = slog.Default()
	}
	sorted := slices.Clone(quotes)
	slices.SortStableFunc(sorted, func(a, b model.Quote) int { return a.TS.Compare(b.TS) })
	return &Replayer{quotes: sorted, sink: sink, log: log}
}

// Len returns the number of quotes to replay.
func (r *Replayer) Len() int { return len(r.quotes) }

// Run hands the first warm bars to the sink at once, then grows the history
// by one bar per step. speed controls the playback rate: 1.0 = real-time,
// 10.0 = 10x, 0 = as fast as possible. Cancellation is checked between
// steps, never inside one. Returns the number of steps taken.
func (r *Replayer) Run(ctx context.Context, warm int, speed float64) (int, error) {
	if len(r.quotes) == 0 {
		r.log.Info("replay: no quotes")
		return 0, nil
	}
	warm = min(max(warm, 1), len(r.quotes))

	r.log.Info("replay started",
		slog.Int("quotes", len(r.quotes)),
		slog.Int("warm", warm),
		slog.Float64("speed", speed),
	)

	steps := 0
	var prevTS time.Time
	for end := warm; end <= len(r.quotes); end++ {
		select {
		case <-ctx.Done():
			r.log.Info("replay cancelled", slog.Int("steps", steps))
			return steps, ctx.Err()
		default:
		}

		bar := r.quotes[end-1]
		if speed > 0 && !prevTS.IsZero() {
			if gap := bar.TS.Sub(prevTS); gap > 0 {
				wait := min(time.Duration(float64(gap)/speed), maxGap)
				select {
				case <-ctx.Done():
					return steps, ctx.Err()
				case <-time.After(wait):
				}
			}
		}
		prevTS = bar.TS

		stepCtx := logger.WithTraceID(ctx, logger.GenerateTraceID("replay", bar.TS))
		history := r.quotes[:end]
		changes := r.sink.SetQuotes(history)
		steps++
		r.log.Debug("replay step",
			append(logger.LogWithTrace(stepCtx),
				slog.Int("bars", end),
				slog.Time("ts", bar.TS),
			)...,
		)

		if r.OnStep != nil {
			if err := r.OnStep(stepCtx, steps, history, changes); err != nil {
				return steps, err
			}
		}
	}

	r.log.Info("replay completed", slog.Int("steps", steps))
	return steps, nil
}
