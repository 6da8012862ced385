package qtext

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded on qtext_sdk_requests_total.
const (
	outcomeOK           = "ok"
	outcomeValidation   = "validation"
	outcomeUnauthorized = "unauthorized"
	outcomeUnavailable  = "unavailable"
	outcomeServer       = "server"
	outcomeTransport    = "transport"
)

// outcome classifies an API call result. Errors that never reached the
// server (dial, timeout, encoding) are transport.
func outcome(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return outcomeOK
	case !errors.As(err, &apiErr):
		return outcomeTransport
	case errors.Is(err, ErrValidation):
		return outcomeValidation
	case errors.Is(err, ErrUnauthorized):
		return outcomeUnauthorized
	case errors.Is(err, ErrUnavailable):
		return outcomeUnavailable
	default:
		return outcomeServer
	}
}

type sdkMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qtext",
			Subsystem: "sdk",
			Name:      "requests_total",
			Help:      "SDK API calls by operation, namespace and outcome.",
		}, []string{"operation", "namespace", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "qtext",
			Subsystem: "sdk",
			Name:      "request_duration_seconds",
			Help:      "SDK API call latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation", "namespace"}),
	}
	if err := registerOrReuse(reg, &m.requests); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.latency); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers c, or points c at the collector a previous
// client already registered on reg.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("qtext: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("qtext: metric already registered as %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer records one log line and metric sample per API call.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg == nil {
		return o, nil
	}
	m, err := newSDKMetrics(reg)
	if err != nil {
		return nil, err
	}
	o.metrics = m
	return o, nil
}

// call describes one API call in flight. namespace is empty for calls not
// scoped to one (highlight).
type call struct {
	obs       *observer
	op        string
	namespace string
	start     time.Time
}

func (o *observer) begin(op, namespace string) call {
	return call{obs: o, op: op, namespace: namespace, start: time.Now()}
}

func (c call) end(err error) {
	o := c.obs
	if o == nil {
		return
	}
	dur := time.Since(c.start)
	res := outcome(err)

	if o.metrics != nil {
		o.metrics.requests.WithLabelValues(c.op, c.namespace, res).Inc()
		o.metrics.latency.WithLabelValues(c.op, c.namespace).Observe(dur.Seconds())
	}
	if o.logger == nil {
		return
	}

	attrs := []any{"op", c.op, "outcome", res, "duration", dur}
	if c.namespace != "" {
		attrs = append(attrs, "namespace", c.namespace)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		attrs = append(attrs, "status", apiErr.StatusCode, "code", apiErr.Code)
	}
	if err != nil {
		o.logger.Warn("qtext call failed", append(attrs, "error", err)...)
		return
	}
	o.logger.Debug("qtext call", attrs...)
}
