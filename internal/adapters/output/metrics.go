package output

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/loginsight/internal/adapters/input"
	"github.com/xoelrdgz/loginsight/internal/domain"
)

// PrometheusMetrics exports pass counters on a private registry, so a
// process can build more than one (tests do).
type PrometheusMetrics struct {
	registry *prometheus.Registry

	records         *prometheus.CounterVec
	responses       *prometheus.CounterVec
	bytesServed     prometheus.Counter
	rejected        *prometheus.CounterVec
	blocksScheduled prometheus.Counter
	denseOverflows  prometheus.Gauge
	trackedSources  prometheus.Gauge
	blockedSources  prometheus.Gauge
	timelineEntries prometheus.Gauge
	busiestWindow   prometheus.Gauge
	lastRunSeconds  prometheus.Gauge
	lastRunTime     prometheus.Gauge
	memoryUsage     prometheus.GaugeFunc

	readiness http.Handler
	server    *http.Server
	mu        sync.Mutex
}

type MetricsConfig struct {
	Addr string
	Path string
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Addr: ":9090",
		Path: "/metrics",
	}
}

func NewPrometheusMetrics(namespace, version string) *PrometheusMetrics {
	if namespace == "" {
		namespace = "loginsight"
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	m := &PrometheusMetrics{registry: reg}

	factory.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "build_info",
		Help:        "Build information",
		ConstLabels: prometheus.Labels{"version": version},
	}).Set(1)

	m.records = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_total",
		Help:      "Parsed records by blocking decision",
	}, []string{"decision"})

	m.responses = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "responses_total",
		Help:      "Parsed records by HTTP status class",
	}, []string{"class"})

	m.bytesServed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bytes_served_total",
		Help:      "Response bytes across all parsed records",
	})

	m.rejected = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rejected_lines_total",
		Help:      "Input lines the parser refused, by reason",
	}, []string{"reason"})

	m.blocksScheduled = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "blocks_scheduled_total",
		Help:      "Sources blocked after repeated login failures",
	})

	m.denseOverflows = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dense_overflows",
		Help:      "Visits outside the dense per-second counter",
	})

	m.trackedSources = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tracked_sources",
		Help:      "Sources with a login failure history",
	})

	m.blockedSources = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "blocked_sources",
		Help:      "Sources with a scheduled block",
	})

	m.timelineEntries = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "timeline_entries",
		Help:      "Distinct seconds in the visit timeline",
	})

	m.busiestWindow = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "busiest_window_visits",
		Help:      "Visits in the busiest one-hour window of the last pass",
	})

	m.lastRunSeconds = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_duration_seconds",
		Help:      "Wall time of the last pass",
	})

	m.lastRunTime = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last pass finished",
	})

	m.memoryUsage = factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "memory_bytes",
		Help:      "Current heap allocation in bytes",
	}, func() float64 {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		return float64(ms.Alloc)
	})

	return m
}

func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRecord implements ports.ProcessingObserver.
func (m *PrometheusMetrics) ObserveRecord(rec *domain.LogRecord, decision domain.Decision) {
	m.records.WithLabelValues(decision.String()).Inc()
	m.responses.WithLabelValues(statusClass(rec.StatusCode)).Inc()
	m.bytesServed.Add(float64(rec.Bytes))
}

// OnBlock implements ports.BlockObserver.
func (m *PrometheusMetrics) OnBlock(event *domain.BlockEvent) {
	m.blocksScheduled.Inc()
}

// OnReject implements ports.RejectObserver.
func (m *PrometheusMetrics) OnReject(line string, err error) {
	m.rejected.WithLabelValues(input.RejectReason(err)).Inc()
}

// ObserveProgress implements ports.ProgressObserver.
func (m *PrometheusMetrics) ObserveProgress(p domain.Progress) {
	m.trackedSources.Set(float64(p.TrackedSources))
	m.blockedSources.Set(float64(p.BlockedSources))
	m.timelineEntries.Set(float64(p.TimelineEntries))
	m.denseOverflows.Set(float64(p.DenseOverflows))
}

// ObserveSummary records the outcome of a finished pass.
func (m *PrometheusMetrics) ObserveSummary(summary *domain.Summary) {
	if len(summary.BusyWindows) > 0 {
		m.busiestWindow.Set(float64(summary.BusyWindows[0].Visits))
	}
	m.lastRunSeconds.Set(summary.Stats.Elapsed.Seconds())
	m.lastRunTime.Set(float64(time.Now().Unix()))
}

// WriteTextfile writes the registry in the node exporter textfile format.
func (m *PrometheusMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// SetReadiness installs the handler served on /ready.
func (m *PrometheusMetrics) SetReadiness(h http.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readiness = h
}

// Handler returns the router serving metrics at path and readiness at
// /ready.
func (m *PrometheusMetrics) Handler(path string) http.Handler {
	if path == "" {
		path = "/metrics"
	}

	m.mu.Lock()
	readiness := m.readiness
	m.mu.Unlock()

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(requestLog)

	router.Method(http.MethodGet, path, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	}))
	router.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if readiness == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		readiness.ServeHTTP(w, r)
	})

	return router
}

func (m *PrometheusMetrics) StartServer(config MetricsConfig) error {
	if config.Path == "" {
		config.Path = "/metrics"
	}
	handler := m.Handler(config.Path)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server != nil {
		return errors.New("metrics server already running")
	}

	m.server = &http.Server{
		Addr:              config.Addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv := m.server
	go func() {
		log.Info().Str("addr", config.Addr).Str("path", config.Path).Msg("Starting Prometheus metrics server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server error")
		}
	}()

	return nil
}

func (m *PrometheusMetrics) StopServer(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server == nil {
		return nil
	}
	err := m.server.Shutdown(ctx)
	m.server = nil
	return err
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return strconv.Itoa(code/100) + "xx"
}

func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Metrics request")
	})
}
