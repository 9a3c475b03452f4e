// cmd/chartframe loads a quote history, computes the configured indicators
// and prints rendered chart frames as JSON, one per line.
//
// Usage:
//
//	go run ./cmd/chartframe --input=data/nifty.csv --width=800 --height=480
//	go run ./cmd/chartframe --replay --warm=100 --speed=60
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"klinechart/config"
	"klinechart/internal/chart"
	"klinechart/internal/indicator"
	"klinechart/internal/logger"
	"klinechart/internal/metrics"
	"klinechart/internal/model"
	"klinechart/internal/replay"
	"klinechart/internal/resample"
	"klinechart/internal/store/quotefile"
	sqlitestore "klinechart/internal/store/sqlite"
)

type frameOut struct {
	TraceID  string                `json:"trace_id"`
	Bars     int                   `json:"bars"`
	Frame    chart.Frame           `json:"frame"`
	Cursor   int                   `json:"cursor"`
	Captions []chart.GroupCaptions `json:"captions,omitempty"`
}

func main() {
	envPath := flag.String("env", ".env", "Optional .env file")
	input := flag.String("input", "", "Quote file (.csv, .parquet, .json); empty reads the SQLite store")
	limit := flag.Int("limit", 0, "Most recent bars to load from the store (0=all)")
	width := flag.Float64("width", 800, "Viewport width in pixels")
	height := flag.Float64("height", 480, "Viewport height in pixels")
	offset := flag.Float64("offset", -1, "Scroll offset in pixels (-1 = scrolled to the latest bar)")
	cursor := flag.Int("cursor", -1, "Bar index for legend captions (-1 = last visible)")
	doReplay := flag.Bool("replay", false, "Replay bars one at a time, printing a frame per step")
	warm := flag.Int("warm", 50, "Bars loaded before the replay starts")
	speed := flag.Float64("speed", 0, "Replay speed multiplier (0=max, 1=realtime)")
	timeframe := flag.Duration("timeframe", 0, "Resample bars to this timeframe (overrides TIMEFRAME)")
	flag.Parse()

	cfg, err := config.Load(*envPath)
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.Init("chartframe", logger.ParseLevel(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("config loaded", slog.Any("config", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()

	quotes, store, err := loadQuotes(ctx, cfg, *input, *limit, log)
	if err != nil {
		log.Error("load quotes failed", slog.Any("error", err))
		os.Exit(1)
	}
	if store != nil {
		defer store.Close()
		health.StartLivenessChecker(ctx, store, 15*time.Second)
	}
	m.QuotesLoaded.WithLabelValues(sourceName(*input)).Add(float64(len(quotes)))

	tf := cfg.Timeframe
	if *timeframe > 0 {
		tf = *timeframe
	}
	if tf > 0 {
		raw := len(quotes)
		if quotes, err = resample.Quotes(quotes, tf); err != nil {
			log.Error("resample failed", slog.Any("error", err))
			os.Exit(1)
		}
		log.Info("quotes resampled", slog.Duration("timeframe", tf), slog.Int("in", raw), slog.Int("out", len(quotes)))
	}

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, m, health, log)
		srv.Start()
		defer func() {
			stopCtx, stop := context.WithTimeout(context.Background(), 3*time.Second)
			defer stop()
			srv.Stop(stopCtx)
		}()
	}

	groups, err := cfg.Chart.Build()
	if err != nil {
		log.Error("chart config", slog.Any("error", err))
		os.Exit(1)
	}
	c, err := chart.New(cfg.Chart.ChartLayout(), groups,
		chart.WithLogger(log),
		chart.WithRecomputeObserver(m),
		chart.WithRenderObserver(m),
	)
	if err != nil {
		log.Error("chart init failed", slog.Any("error", err))
		os.Exit(1)
	}
	health.SetIndicators(c.Engine().Keys())

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	enc := json.NewEncoder(out)
	bounds := model.ContentRect{Width: *width, Height: *height}

	emit := func(ctx context.Context) error {
		n := len(c.Quotes())
		off := *offset
		if off < 0 {
			off = max(c.ContentWidth()-*width, 0)
		}
		visible := c.VisibleRange(off, *width)
		// Content x runs from the first bar; shift so the viewport starts at 0.
		b := bounds
		b.X = -off

		frame := c.Render(visible, b)
		health.SetLastFrameAt(time.Now())

		idx := *cursor
		if idx < 0 || idx >= n {
			idx = visible.Hi - 1
		}
		rec := frameOut{
			TraceID:  logger.TraceID(ctx),
			Bars:     n,
			Frame:    frame,
			Cursor:   idx,
			Captions: c.Captions(idx),
		}
		log.Debug("frame", append(logger.LogWithTrace(ctx),
			slog.Int("lo", visible.Lo), slog.Int("hi", visible.Hi))...)
		return enc.Encode(rec)
	}

	if !*doReplay {
		for _, ch := range c.SetQuotes(quotes) {
			log.Info("indicator computed", slog.String("key", ch.Key), slog.String("outcome", ch.Outcome.String()))
		}
		frameCtx := logger.WithTraceID(ctx, logger.GenerateTraceID("frame", time.Now()))
		if err := emit(frameCtx); err != nil {
			log.Error("write frame failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	r := replay.New(quotes, c, log)
	r.OnStep = func(ctx context.Context, step int, _ []model.Quote, _ []indicator.Change) error {
		m.ReplaySteps.Inc()
		if err := emit(ctx); err != nil {
			return err
		}
		return out.Flush()
	}
	steps, err := r.Run(ctx, *warm, *speed)
	if err != nil && ctx.Err() == nil {
		log.Error("replay failed", slog.Any("error", err), slog.Int("steps", steps))
		os.Exit(1)
	}
	log.Info("replay finished", slog.Int("steps", steps))
}

func sourceName(input string) string {
	if input == "" {
		return "sqlite"
	}
	return "file"
}

// loadQuotes reads from the given file, or from the quote store when no
// file is named. The store is returned open so it can serve health checks.
func loadQuotes(ctx context.Context, cfg *config.Config, input string, limit int, log *slog.Logger) ([]model.Quote, *sqlitestore.Store, error) {
	if input != "" {
		codec, err := quotefile.ForPath(input)
		if err != nil {
			return nil, nil, err
		}
		quotes, err := codec.Load(input)
		if err != nil {
			return nil, nil, err
		}
		log.Info("quotes loaded", slog.String("file", input), slog.Int("bars", len(quotes)))
		return quotes, nil, nil
	}

	store, err := sqlitestore.Open(cfg.SQLitePath, log)
	if err != nil {
		return nil, nil, err
	}
	quotes, err := store.LoadQuotes(ctx, sqlitestore.Query{Symbol: cfg.Symbol, Limit: limit})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	if len(quotes) == 0 {
		store.Close()
		return nil, nil, fmt.Errorf("no quotes stored for %s in %s", cfg.Symbol, cfg.SQLitePath)
	}
	log.Info("quotes loaded", slog.String("symbol", cfg.Symbol), slog.Int("bars", len(quotes)))
	return quotes, store, nil
}
