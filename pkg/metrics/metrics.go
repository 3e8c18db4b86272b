// Package metrics provides Prometheus metrics for form sessions and the HTTP
// application serving them.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goliatone/go-formflow/pkg/engine"
)

const namespace = "formflow"

// Submission outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// ErrDuplicateSubmission lets submit callbacks mark a rejected duplicate so
// it is counted apart from other failures.
var ErrDuplicateSubmission = errors.New("metrics: duplicate submission")

// Collector holds all Prometheus metrics. It implements engine.Observer.
type Collector struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Form metrics
	Navigations        *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	FieldErrors        *prometheus.CounterVec
	Submissions        *prometheus.CounterVec
	ActiveSessions     prometheus.Gauge

	// Schema metrics
	SchemasLoaded       prometheus.Gauge
	SchemaReloads       prometheus.Counter
	SchemaReloadsFailed prometheus.Counter
}

var _ engine.Observer = (*Collector)(nil)

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "route"},
		),

		Navigations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "navigations_total",
				Help:      "Partition changes by direction",
			},
			[]string{"form", "direction"},
		),
		ValidationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Blocked next or submit transitions",
			},
			[]string{"form", "stage"},
		),
		FieldErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "field_errors_total",
				Help:      "Field errors reported by blocked transitions",
			},
			[]string{"form", "stage"},
		),
		Submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Submit callbacks by outcome",
			},
			[]string{"form", "outcome"},
		),
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Form sessions currently held in memory",
			},
		),

		SchemasLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "schemas_loaded",
				Help:      "Number of schemas in the store",
			},
		),
		SchemaReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_reloads_total",
				Help:      "Total number of successful schema reloads",
			},
		),
		SchemaReloadsFailed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_reload_errors_total",
				Help:      "Total number of failed schema reloads",
			},
		),
	}
}

// Navigated implements engine.Observer.
func (c *Collector) Navigated(form string, from, to int) {
	direction := "jump"
	switch to - from {
	case 1:
		direction = "forward"
	case -1:
		direction = "back"
	}
	c.Navigations.WithLabelValues(form, direction).Inc()
}

// ValidationFailed implements engine.Observer.
func (c *Collector) ValidationFailed(form string, stage engine.Stage, fields int) {
	c.ValidationFailures.WithLabelValues(form, string(stage)).Inc()
	c.FieldErrors.WithLabelValues(form, string(stage)).Add(float64(fields))
}

// Submitted implements engine.Observer.
func (c *Collector) Submitted(form string, err error) {
	outcome := OutcomeAccepted
	switch {
	case errors.Is(err, ErrDuplicateSubmission):
		outcome = OutcomeDuplicate
	case err != nil:
		outcome = OutcomeFailed
	}
	c.Submissions.WithLabelValues(form, outcome).Inc()
}

// SchemasChanged records a schema store reload.
func (c *Collector) SchemasChanged(names []string) {
	c.SchemaReloads.Inc()
	c.SchemasLoaded.Set(float64(len(names)))
}

// SchemaReloadFailed records a reload that kept the previous schemas.
func (c *Collector) SchemaReloadFailed(error) {
	c.SchemaReloadsFailed.Inc()
}

// Middleware counts requests by chi route pattern so path parameters do not
// explode the label space.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.RequestsTotal.WithLabelValues(r.Method, route, statusClass(status)).Inc()
		c.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
