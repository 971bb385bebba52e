package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bookstore"

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// gate = token|role|review_edit|review_delete, result = allow|deny|missing|invalid
	AuthDecisions *prometheus.CounterVec
	CacheResults  *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		AuthDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_decisions_total",
				Help:      "Authentication and authorization gate outcomes.",
			},
			[]string{"gate", "result"},
		),
		CacheResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Catalog cache lookups by key and result.",
			},
			[]string{"key", "result"}, // result=hit|miss|error
		),
	}
	reg.MustRegister(p.RequestsTotal, p.RequestsDuration, p.InFlight, p.DbQueryDuration, p.DbErrorsTotal, p.AuthDecisions, p.CacheResults)

	return p
}

func (p *Prom) RecordAuthDecision(gate, result string) {
	p.AuthDecisions.WithLabelValues(gate, result).Inc()
}

func (p *Prom) RecordCacheLookup(key, result string) {
	p.CacheResults.WithLabelValues(key, result).Inc()
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
