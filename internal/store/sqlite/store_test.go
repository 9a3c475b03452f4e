package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"klinechart/internal/model"
)

func bars(n int, start time.Time) []model.Quote {
	out := make([]model.Quote, n)
	for i := range out {
		p := 100 + float64(i)
		out[i] = model.Quote{
			TS:     start.Add(time.Duration(i) * time.Minute),
			Open:   p,
			High:   p + 2,
			Low:    p - 1,
			Close:  p + 1,
			Volume: float64(10 * i),
		}
	}
	return out
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "quotes.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var t0 = time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	want := bars(50, t0)

	var commits int
	s.OnCommit = func(d time.Duration, rows int) { commits += rows }

	require.NoError(t, s.SaveQuotes(ctx, "NIFTY", want))
	require.NoError(t, s.SaveQuotes(ctx, "BANKNIFTY", bars(5, t0)))
	require.Equal(t, 55, commits)

	got, err := s.LoadQuotes(ctx, Query{Symbol: "NIFTY"})
	require.NoError(t, err)
	require.Equal(t, want, got)

	n, err := s.Count(ctx, "BANKNIFTY")
	require.NoError(t, err)
	require.Equal(t, 5, n)

	symbols, err := s.Symbols(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"BANKNIFTY", "NIFTY"}, symbols)
}

func TestLoadQuotes_WindowAndLimit(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	all := bars(30, t0)
	require.NoError(t, s.SaveQuotes(ctx, "NIFTY", all))

	got, err := s.LoadQuotes(ctx, Query{Symbol: "NIFTY", From: all[10].TS, To: all[20].TS})
	require.NoError(t, err)
	require.Equal(t, all[10:20], got)

	got, err = s.LoadQuotes(ctx, Query{Symbol: "NIFTY", Limit: 5})
	require.NoError(t, err)
	require.Equal(t, all[25:], got, "limit keeps the most recent bars in ascending order")

	got, err = s.LoadQuotes(ctx, Query{Symbol: "SENSEX"})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSaveQuotes_ReplacesBar(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	all := bars(3, t0)
	require.NoError(t, s.SaveQuotes(ctx, "NIFTY", all))

	edited := all[2]
	edited.Close = 999
	require.NoError(t, s.SaveQuotes(ctx, "NIFTY", []model.Quote{edited}))

	got, err := s.LoadQuotes(ctx, Query{Symbol: "NIFTY"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, 999.0, got[2].Close)
}

func TestRun_BatchesUntilClosed(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	all := bars(1200, t0)

	in := make(chan model.Quote)
	go func() {
		defer close(in)
		for _, q := range all {
			in <- q
		}
	}()

	n, err := s.Run(ctx, "NIFTY", in)
	require.NoError(t, err)
	require.Equal(t, len(all), n)

	count, err := s.Count(ctx, "NIFTY")
	require.NoError(t, err)
	require.Equal(t, len(all), count)
}

func TestRun_FlushesPendingOnCancel(t *testing.T) {
	s := openTemp(t)
	all := bars(30, t0)
	ctx, cancel := context.WithCancel(context.Background())

	in := make(chan model.Quote)
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := s.Run(ctx, "NIFTY", in)
		done <- result{n, err}
	}()

	// Unbuffered sends return only once Run has taken the quote.
	for _, q := range all {
		in <- q
	}
	cancel()

	res := <-done
	require.NoError(t, res.err)
	require.Equal(t, len(all), res.n, "count must include the final flush")

	count, err := s.Count(context.Background(), "NIFTY")
	require.NoError(t, err)
	require.Equal(t, len(all), count)
}

func TestPing(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.PingContext(context.Background()))
}
