// Package obs holds the Prometheus collectors for acquisitions and batch runs.
package obs

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "tracktime"

// Metrics groups the collectors. Each instance owns its registry so tests
// and embedded runs do not collide on the default one.
type Metrics struct {
	Registry *prometheus.Registry

	// Acquisitions counts finished acquisitions by strategy and status
	Acquisitions *prometheus.CounterVec
	// AcquisitionDuration records acquisition latency in milliseconds
	AcquisitionDuration *prometheus.HistogramVec
	// BatchItems counts batch results by outcome (success, failed)
	BatchItems *prometheus.CounterVec
	// BrowserLaunches counts browser (re)launches
	BrowserLaunches prometheus.Counter
	// CacheHits counts results served from cache
	CacheHits prometheus.Counter
}

// NewMetrics creates and registers the collectors
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisitions_total",
			Help:      "Count of finished acquisitions by strategy and delivery status.",
		}, []string{"strategy", "status"}),
		AcquisitionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "acquisition_duration_ms",
			Help:      "Acquisition latency in milliseconds.",
			Buckets:   []float64{50, 250, 1000, 2500, 5000, 10000, 30000, 60000, 120000},
		}, []string{"strategy"}),
		BatchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_items_total",
			Help:      "Count of batch results by outcome.",
		}, []string{"outcome"}),
		BrowserLaunches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "browser_launches_total",
			Help:      "Number of browser launches, relaunches included.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Number of results served from the result cache.",
		}),
	}
	reg.MustRegister(
		m.Acquisitions,
		m.AcquisitionDuration,
		m.BatchItems,
		m.BrowserLaunches,
		m.CacheHits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveAcquisition records one finished acquisition
func (m *Metrics) ObserveAcquisition(strategy, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if strategy == "" {
		strategy = "none"
	}
	m.Acquisitions.WithLabelValues(strategy, status).Inc()
	m.AcquisitionDuration.WithLabelValues(strategy).Observe(float64(elapsed.Milliseconds()))
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
