// cmd/quoteimport moves quote histories between files and the SQLite store.
//
// Usage:
//
//	go run ./cmd/quoteimport --file=data/nifty.csv
//	go run ./cmd/quoteimport --file=out/nifty.parquet --export
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"klinechart/config"
	"klinechart/internal/logger"
	"klinechart/internal/metrics"
	"klinechart/internal/model"
	"klinechart/internal/store/quotefile"
	sqlitestore "klinechart/internal/store/sqlite"
)

func main() {
	envPath := flag.String("env", ".env", "Optional .env file")
	file := flag.String("file", "", "Quote file (.csv, .parquet, .json)")
	format := flag.String("format", "", "File format override (csv, parquet, json)")
	symbol := flag.String("symbol", "", "Symbol to import or export (default SYMBOL)")
	export := flag.Bool("export", false, "Write the stored quotes to --file instead of importing it")
	limit := flag.Int("limit", 0, "Most recent bars to export (0=all)")
	flag.Parse()

	cfg, err := config.Load(*envPath)
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.Init("quoteimport", logger.ParseLevel(cfg.LogLevel))
	if *file == "" {
		log.Error("--file is required")
		os.Exit(2)
	}
	sym := cfg.Symbol
	if *symbol != "" {
		sym = *symbol
	}

	codec, err := codecFor(*file, *format)
	if err != nil {
		log.Error("unsupported file", slog.Any("error", err))
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	store, err := sqlitestore.Open(cfg.SQLitePath, log)
	if err != nil {
		log.Error("open quote store failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	m := metrics.NewMetrics()
	store.OnCommit = func(d time.Duration, _ int) {
		m.StoreWriteDur.Observe(d.Seconds())
	}

	if *export {
		n, err := exportQuotes(ctx, store, codec, sym, *file, *limit)
		if err != nil {
			log.Error("export failed", slog.Any("error", err))
			os.Exit(1)
		}
		log.Info("export done", slog.String("symbol", sym), slog.String("file", *file), slog.Int("bars", n))
		return
	}

	start := time.Now()
	n, err := importQuotes(ctx, store, codec, sym, *file)
	if err != nil {
		log.Error("import failed", slog.Any("error", err), slog.Int("committed", n))
		os.Exit(1)
	}
	m.QuotesLoaded.WithLabelValues("file").Add(float64(n))
	total, _ := store.Count(ctx, sym)
	log.Info("import done",
		slog.String("symbol", sym),
		slog.Int("committed", n),
		slog.Int("stored", total),
		slog.Duration("took", time.Since(start)),
	)
}

func codecFor(path, format string) (quotefile.Codec, error) {
	if format != "" {
		return quotefile.ForFormat(format)
	}
	return quotefile.ForPath(path)
}

// importQuotes streams the file through the store's batching writer.
func importQuotes(ctx context.Context, store *sqlitestore.Store, codec quotefile.Codec, symbol, path string) (int, error) {
	quotes, err := codec.Load(path)
	if err != nil {
		return 0, err
	}
	in := make(chan model.Quote, 256)
	go func() {
		defer close(in)
		for _, q := range quotes {
			select {
			case in <- q:
			case <-ctx.Done():
				return
			}
		}
	}()
	return store.Run(ctx, symbol, in)
}

func exportQuotes(ctx context.Context, store *sqlitestore.Store, codec quotefile.Codec, symbol, path string, limit int) (int, error) {
	quotes, err := store.LoadQuotes(ctx, sqlitestore.Query{Symbol: symbol, Limit: limit})
	if err != nil {
		return 0, err
	}
	if err := codec.Save(quotes, path); err != nil {
		return 0, err
	}
	return len(quotes), nil
}
