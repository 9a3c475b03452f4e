package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"klinechart/internal/indicator"
)

// Metrics holds the Prometheus metrics of the chart pipeline. Each instance
// owns its registry, so tests and several charts in one process do not clash.
type Metrics struct {
	registry *prometheus.Registry

	// Indicator engine
	RecomputeDur      *prometheus.HistogramVec // labels: indicator
	RecomputeOutcomes *prometheus.CounterVec   // labels: indicator, outcome
	ValuesComputed    *prometheus.CounterVec   // labels: indicator

	// Rendering
	RenderDur     prometheus.Histogram
	FramesTotal   prometheus.Counter
	BarsRendered  prometheus.Counter
	SkippedGroups *prometheus.CounterVec // labels: group, reason

	// Quote sources
	QuotesLoaded  *prometheus.CounterVec // labels: source
	ReplaySteps   prometheus.Counter
	StoreWriteDur prometheus.Histogram
}

// NewMetrics creates and registers all metrics in a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RecomputeDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "klinechart_indicator_recompute_duration_seconds",
			Help:    "Indicator processor latency per quote history change",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
		}, []string{"indicator"}),
		RecomputeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "klinechart_indicator_recompute_total",
			Help: "Quote history changes by indicator and outcome (unchanged, appended, reloaded)",
		}, []string{"indicator", "outcome"}),
		ValuesComputed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "klinechart_indicator_quotes_fed_total",
			Help: "Quotes fed through indicator algorithms",
		}, []string{"indicator"}),

		RenderDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "klinechart_render_duration_seconds",
			Help:    "Frame render latency",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		FramesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "klinechart_frames_total",
			Help: "Frames rendered",
		}),
		BarsRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "klinechart_bars_rendered_total",
			Help: "Rectangles (candles, wicks, histogram bars) rendered",
		}),
		SkippedGroups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "klinechart_skipped_groups_total",
			Help: "Groups that drew nothing in a frame (no data or flat scale)",
		}, []string{"group", "reason"}),

		QuotesLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "klinechart_quotes_loaded_total",
			Help: "Quotes read from a quote source",
		}, []string{"source"}),
		ReplaySteps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "klinechart_replay_steps_total",
			Help: "Quotes appended by the replayer",
		}),
		StoreWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "klinechart_store_write_duration_seconds",
			Help:    "Quote store batch commit latency",
			Buckets: prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.RecomputeDur,
		m.RecomputeOutcomes,
		m.ValuesComputed,
		m.RenderDur,
		m.FramesTotal,
		m.BarsRendered,
		m.SkippedGroups,
		m.QuotesLoaded,
		m.ReplaySteps,
		m.StoreWriteDur,
	)
	return m
}

// Registry returns the registry the metrics live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveRecompute implements indicator.Observer.
func (m *Metrics) ObserveRecompute(key string, outcome indicator.Outcome, fed int, d time.Duration) {
	m.RecomputeDur.WithLabelValues(key).Observe(d.Seconds())
	m.RecomputeOutcomes.WithLabelValues(key, outcome.String()).Inc()
	if fed > 0 {
		m.ValuesComputed.WithLabelValues(key).Add(float64(fed))
	}
}

// ObserveRender implements chart.RenderObserver.
func (m *Metrics) ObserveRender(d time.Duration, bars int) {
	m.RenderDur.Observe(d.Seconds())
	m.FramesTotal.Inc()
	m.BarsRendered.Add(float64(bars))
}

// ObserveSkippedGroup implements chart.RenderObserver.
func (m *Metrics) ObserveSkippedGroup(group, reason string) {
	m.SkippedGroups.WithLabelValues(group, reason).Inc()
}

// Pinger is satisfied by *sql.DB and *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	QuoteStoreOK     bool      `json:"quote_store_ok"`
	QuoteStoreLatMs  float64   `json:"quote_store_latency_ms"`
	LastFrameAt      time.Time `json:"last_frame_at"`
	Indicators       []string  `json:"indicators"`
	LastCheckAt      time.Time `json:"last_check_at"`
	StartedAt        time.Time `json:"started_at"`
	quoteStoreWanted bool
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetLastFrameAt(t time.Time) {
	h.mu.Lock()
	h.LastFrameAt = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetIndicators(keys []string) {
	h.mu.Lock()
	h.Indicators = keys
	h.mu.Unlock()
}

// CheckQuoteStore pings the store and records latency + health.
func (h *HealthStatus) CheckQuoteStore(ctx context.Context, db Pinger) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.quoteStoreWanted = true
	h.QuoteStoreOK = err == nil
	h.QuoteStoreLatMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic quote store checks until ctx is done.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, db Pinger, interval time.Duration) {
	h.CheckQuoteStore(ctx, db)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				h.CheckQuoteStore(pingCtx, db)
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint. Without a quote store the service
// is always healthy; with one it is degraded while the store fails its ping.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if h.quoteStoreWanted && !h.QuoteStoreOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	frameAge := ""
	if !h.LastFrameAt.IsZero() {
		frameAge = time.Since(h.LastFrameAt).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string   `json:"status"`
		Uptime          string   `json:"uptime"`
		QuoteStoreOK    bool     `json:"quote_store_ok"`
		QuoteStoreLatMs float64  `json:"quote_store_latency_ms"`
		LastFrameAt     string   `json:"last_frame_at"`
		FrameAge        string   `json:"frame_age"`
		Indicators      []string `json:"indicators"`
		LastCheckAt     string   `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		QuoteStoreOK:    h.QuoteStoreOK,
		QuoteStoreLatMs: h.QuoteStoreLatMs,
		LastFrameAt:     h.LastFrameAt.Format(time.RFC3339),
		FrameAge:        frameAge,
		Indicators:      h.Indicators,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
	log    *slog.Logger
}

// NewServer creates a metrics and health server for m.
func NewServer(addr string, m *Metrics, health *HealthStatus, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		log:    log,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the server's mux, for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.log.Info("metrics server listening", slog.String("addr", s.addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("metrics server error", slog.Any("error", err))
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
