// Package metrics exposes run counters for Prometheus scraping.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	logx "powerctl/pkg/logx"
)

type Metrics struct {
	registry *prometheus.Registry

	classifications *prometheus.CounterVec
	notified        prometheus.Counter
	suppressed      prometheus.Counter
	stopped         prometheus.Counter
	regionFailures  prometheus.Counter
	runDuration     prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.classifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "powerctl_classifications_total",
		Help: "Instances evaluated, by classification reason.",
	}, []string{"reason"})
	m.notified = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "powerctl_notifications_sent_total",
		Help: "Owner notifications that passed the throttle filter.",
	})
	m.suppressed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "powerctl_notifications_suppressed_total",
		Help: "Stop candidates suppressed by the notification throttle.",
	})
	m.stopped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "powerctl_instances_stopped_total",
		Help: "Instances for which a stop call was issued.",
	})
	m.regionFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "powerctl_region_failures_total",
		Help: "Regions skipped because enumeration failed.",
	})
	m.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "powerctl_run_duration_seconds",
		Help:    "Wall time of one full evaluation run.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	m.registry.MustRegister(
		m.classifications, m.notified, m.suppressed,
		m.stopped, m.regionFailures, m.runDuration,
	)
	return m
}

// Nil-safe recording helpers: a nil *Metrics disables instrumentation.

func (m *Metrics) Classified(reason string) {
	if m != nil {
		m.classifications.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Notified(n int) {
	if m != nil {
		m.notified.Add(float64(n))
	}
}

func (m *Metrics) Suppressed(n int) {
	if m != nil && n > 0 {
		m.suppressed.Add(float64(n))
	}
}

func (m *Metrics) Stopped(n int) {
	if m != nil {
		m.stopped.Add(float64(n))
	}
}

func (m *Metrics) RegionFailed() {
	if m != nil {
		m.regionFailures.Inc()
	}
}

func (m *Metrics) RunDone(d time.Duration) {
	if m != nil {
		m.runDuration.Observe(d.Seconds())
	}
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, log logx.Logger) error {
	if m == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listening", logx.String("addr", addr))
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
