// Package metrics provides Prometheus metrics for remote program requests.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/five82/remedit/internal/logging"
	"github.com/five82/remedit/internal/remote"
)

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeTransport = "transport"
	OutcomeProtocol  = "protocol"
	OutcomeClient    = "4xx"
	OutcomeServer    = "5xx"
	OutcomeOther     = "error"
)

// Recorder owns a private registry so tests and multiple workspaces do not
// collide on the default one.
type Recorder struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

var _ remote.Observer = (*Recorder)(nil)

// New builds a Recorder. cachedPrograms, when non-nil, backs the
// remedit_cache_programs gauge.
func New(cachedPrograms func() int) *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	r := &Recorder{
		registry: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remedit_requests_total",
				Help: "Total number of program API requests",
			},
			[]string{"op", "outcome"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "remedit_request_duration_seconds",
				Help:    "Program API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
	if cachedPrograms != nil {
		factory.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "remedit_cache_programs",
				Help: "Number of programs held in the session cache",
			},
			func() float64 { return float64(cachedPrograms()) },
		)
	}
	return r
}

// ObserveRequest implements remote.Observer.
func (r *Recorder) ObserveRequest(op string, err error, elapsed time.Duration) {
	r.requestsTotal.WithLabelValues(op, Outcome(err)).Inc()
	r.requestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns the Prometheus metrics HTTP handler.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("metrics listening", logging.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Outcome maps a request error to its label value.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var (
		transport *remote.TransportError
		protocol  *remote.ProtocolError
		apiErr    *remote.APIError
	)
	switch {
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= 500 {
			return OutcomeServer
		}
		return OutcomeClient
	case errors.As(err, &transport):
		return OutcomeTransport
	case errors.As(err, &protocol):
		return OutcomeProtocol
	default:
		return OutcomeOther
	}
}
