package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// GraphQL
	ResolverDuration *prometheus.HistogramVec
	ResolverResults  *prometheus.CounterVec

	// profile cache
	CacheLookups *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "booksearch",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "booksearch",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "booksearch",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "booksearch",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "Store operation latency (logical op, not raw command)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "booksearch",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "Store errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		ResolverDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "booksearch",
				Subsystem: "graphql",
				Name:      "resolver_duration_seconds",
				Help:      "Resolver execution time by field and outcome.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
			[]string{"field", "outcome"}, // outcome=ok|unauthenticated|bad_user_input|internal
		),
		ResolverResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "booksearch",
				Subsystem: "graphql",
				Name:      "resolver_results_total",
				Help:      "Resolver outcomes by field.",
			},
			[]string{"field", "outcome"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "booksearch",
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Profile cache lookups by result.",
			},
			[]string{"result"}, // hit|miss|error
		),
	}
	reg.MustRegister(p.RequestsTotal, p.RequestsDuration, p.InFlight, p.DbQueryDuration, p.DbErrorsTotal, p.ResolverDuration, p.ResolverResults, p.CacheLookups)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}

func (p *Prom) ObserveResolver(field, outcome string, elapsed time.Duration) {
	p.ResolverResults.WithLabelValues(field, outcome).Inc()
	p.ResolverDuration.WithLabelValues(field, outcome).Observe(elapsed.Seconds())
}

func (p *Prom) ObserveCache(result string) {
	p.CacheLookups.WithLabelValues(result).Inc()
}
