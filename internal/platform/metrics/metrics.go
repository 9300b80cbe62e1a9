// Package metrics exposes Prometheus counters for HTTP traffic, the database
// pool and published domain events.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinic/clinic/internal/platform/events"
)

// Collector owns a private registry so that several instances (tests, one
// per server) never collide on registration.
type Collector struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	events   *prometheus.CounterVec
}

func New(serviceName string) *Collector {
	labels := prometheus.Labels{"service": serviceName}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: labels,
		}, []string{"method", "route", "status_code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "Duration of HTTP requests in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}, []string{"method", "route"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "domain_events_published_total",
			Help:        "Domain events handed to the publisher",
			ConstLabels: labels,
		}, []string{"type", "result"}),
	}
	c.registry.MustRegister(
		c.requests,
		c.duration,
		c.events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry is exposed for tests and extra collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the text exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest is called once per request with the matched route
// template, so ids in the path do not explode label cardinality.
func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Middleware renders handler errors itself, like the request logger, so the
// recorded status is the one sent.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ec echo.Context) error {
			start := time.Now()
			if err := next(ec); err != nil {
				ec.Error(err)
			}
			c.RecordHTTPRequest(ec.Request().Method, ec.Path(), ec.Response().Status, time.Since(start))
			return nil
		}
	}
}

// RegisterPool publishes connection pool gauges read on every scrape.
func (c *Collector) RegisterPool(pool *pgxpool.Pool) {
	gauge := func(name, help string, read func(*pgxpool.Stat) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
			return float64(read(pool.Stat()))
		})
	}
	c.registry.MustRegister(
		gauge("db_pool_acquired_conns", "Connections currently in use", (*pgxpool.Stat).AcquiredConns),
		gauge("db_pool_idle_conns", "Idle connections", (*pgxpool.Stat).IdleConns),
		gauge("db_pool_total_conns", "Open connections", (*pgxpool.Stat).TotalConns),
		gauge("db_pool_max_conns", "Configured pool size", (*pgxpool.Stat).MaxConns),
	)
}

// Publisher wraps p and counts every publish attempt by event type.
func (c *Collector) Publisher(p events.Publisher) events.Publisher {
	return &countingPublisher{next: p, counter: c.events}
}

type countingPublisher struct {
	next    events.Publisher
	counter *prometheus.CounterVec
}

func (p *countingPublisher) Publish(ctx context.Context, evt events.Event) error {
	err := p.next.Publish(ctx, evt)
	result := "ok"
	if err != nil {
		result = "error"
		if errors.Is(err, context.Canceled) {
			result = "canceled"
		}
	}
	p.counter.WithLabelValues(evt.Type, result).Inc()
	return err
}
