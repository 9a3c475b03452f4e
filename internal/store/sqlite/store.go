// Package sqlite persists quote histories in a local SQLite database, keyed
// by symbol and bar timestamp.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"klinechart/internal/model"
)

const (
	defaultBatchSize  = 500
	defaultFlushDelay = 200 * time.Millisecond
)

// quoteRow is the table layout; timestamps are unix seconds.
type quoteRow struct {
	Symbol string  `db:"symbol"`
	TS     int64   `db:"ts"`
	Open   float64 `db:"open"`
	High   float64 `db:"high"`
	Low    float64 `db:"low"`
	Close  float64 `db:"close"`
	Volume float64 `db:"volume"`
}

func toRow(symbol string, q model.Quote) quoteRow {
	return quoteRow{
		Symbol: symbol,
		TS:     q.TS.Unix(),
		Open:   q.Open,
		High:   q.High,
		Low:    q.Low,
		Close:  q.Close,
		Volume: q.Volume,
	}
}

func (r quoteRow) quote() model.Quote {
	return model.Quote{
		TS:     time.Unix(r.TS, 0).UTC(),
		Open:   r.Open,
		High:   r.High,
		Low:    r.Low,
		Close:  r.Close,
		Volume: r.Volume,
	}
}

// Store is the quote store. Writes go through one connection.
type Store struct {
	db  *sqlx.DB
	log *slog.Logger

	// Optional hook for commit latency, e.g. a Prometheus histogram.
	OnCommit func(d time.Duration, rows int)
}

// Open opens (creating if needed) the database at path in WAL mode and
// ensures the schema exists.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Info("quote store opened", slog.String("path", path))
	return &Store{db: db, log: log}, nil
}

func createSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS quotes (
			symbol TEXT    NOT NULL,
			ts     INTEGER NOT NULL,
			open   REAL    NOT NULL,
			high   REAL    NOT NULL,
			low    REAL    NOT NULL,
			close  REAL    NOT NULL,
			volume REAL    NOT NULL DEFAULT 0,
			PRIMARY KEY (symbol, ts)
		);
	`)
	return err
}

// DB returns the underlying handle for health checks.
func (s *Store) DB() *sqlx.DB { return s.db }

// PingContext implements the health checker's Pinger.
func (s *Store) PingContext(ctx context.Context) error { return s.db.PingContext(ctx) }

// SaveQuotes upserts quotes for symbol in a single transaction. A bar with an
// existing (symbol, ts) replaces the stored one.
func (s *Store) SaveQuotes(ctx context.Context, symbol string, quotes []model.Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT OR REPLACE INTO quotes (symbol, ts, open, high, low, close, volume)
		VALUES (:symbol, :ts, :open, :high, :low, :close, :volume)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, q := range quotes {
		if _, err := stmt.ExecContext(ctx, toRow(symbol, q)); err != nil {
			return fmt.Errorf("insert quote %s@%d: %w", symbol, q.TS.Unix(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if s.OnCommit != nil {
		s.OnCommit(time.Since(start), len(quotes))
	}
	return nil
}

// Query selects a window of one symbol's history.
type Query struct {
	Symbol string
	From   time.Time // inclusive, zero for no lower bound
	To     time.Time // exclusive, zero for no upper bound
	Limit  int       // most recent Limit bars when > 0
}

// LoadQuotes returns matching quotes ordered by timestamp ascending.
func (s *Store) LoadQuotes(ctx context.Context, q Query) ([]model.Quote, error) {
	from := int64(-1 << 62)
	if !q.From.IsZero() {
		from = q.From.Unix()
	}
	to := int64(1 << 62)
	if !q.To.IsZero() {
		to = q.To.Unix()
	}
	limit := -1
	if q.Limit > 0 {
		limit = q.Limit
	}

	// Newest first so LIMIT keeps the latest bars, then reversed.
	var rows []quoteRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT symbol, ts, open, high, low, close, volume
		FROM quotes
		WHERE symbol = ? AND ts >= ? AND ts < ?
		ORDER BY ts DESC
		LIMIT ?
	`, q.Symbol, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query quotes: %w", err)
	}

	quotes := make([]model.Quote, len(rows))
	for i, r := range rows {
		quotes[len(rows)-1-i] = r.quote()
	}
	return quotes, nil
}

// Symbols lists the stored symbols.
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	var out []string
	if err := s.db.SelectContext(ctx, &out, `SELECT DISTINCT symbol FROM quotes ORDER BY symbol`); err != nil {
		return nil, fmt.Errorf("sqlite query symbols: %w", err)
	}
	return out, nil
}

// Count returns the number of bars stored for symbol.
func (s *Store) Count(ctx context.Context, symbol string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM quotes WHERE symbol = ?`, symbol)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("sqlite count: %w", err)
	}
	return n, nil
}

// Run reads quotes from in and inserts them in batched transactions.
// Flushes every batch-size quotes OR every flush delay, whichever first.
// Blocks until ctx is cancelled or in is closed; pending quotes are flushed
// either way. Returns the number of quotes committed.
func (s *Store) Run(ctx context.Context, symbol string, in <-chan model.Quote) (int, error) {
	batch := make([]model.Quote, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	committed := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		// The caller's ctx may already be done; the final flush still has
		// to land.
		if err := s.SaveQuotes(context.WithoutCancel(ctx), symbol, batch); err != nil {
			return err
		}
		committed += len(batch)
		s.log.Debug("quote batch committed", slog.String("symbol", symbol), slog.Int("rows", len(batch)))
		batch = batch[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			err := flush()
			return committed, err

		case q, ok := <-in:
			if !ok {
				err := flush()
				return committed, err
			}
			batch = append(batch, q)
			if len(batch) >= defaultBatchSize {
				if err := flush(); err != nil {
					return committed, err
				}
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			if err := flush(); err != nil {
				return committed, err
			}
			timer.Reset(defaultFlushDelay)
		}
	}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
