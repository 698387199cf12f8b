// Package prom implements the observability hooks with Prometheus metrics.
//
// All metrics use the "gitlanes_" prefix. One [Metrics] value implements
// every hook interface:
//
//	m := prom.New(prometheus.DefaultRegisterer)
//	observability.SetPipelineHooks(m)
//	observability.SetCacheHooks(m)
//	observability.SetServerHooks(m)
//	http.Handle("/metrics", promhttp.Handler())
package prom

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/gitlanes/pkg/observability"
)

// Metrics holds the collectors. Safe for concurrent use.
type Metrics struct {
	buildsTotal    *prometheus.CounterVec
	buildDuration  prometheus.Histogram
	buildCommits   prometheus.Histogram
	layoutDuration prometheus.Histogram
	layoutColumns  prometheus.Histogram
	rendersTotal   *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheBytes  *prometheus.CounterVec

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inflight        prometheus.Gauge
	repoOps         *prometheus.CounterVec
	repoOpDuration  *prometheus.HistogramVec
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.ServerHooks   = (*Metrics)(nil)
)

// New registers all collectors with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	latency := prometheus.ExponentialBuckets(0.001, 2, 14) // 1ms to ~8s

	return &Metrics{
		buildsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gitlanes_builds_total",
			Help: "History walks by result",
		}, []string{"result"}),
		buildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gitlanes_build_duration_seconds",
			Help:    "History walk duration in seconds",
			Buckets: latency,
		}),
		buildCommits: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gitlanes_build_commits",
			Help:    "Commits added per history walk",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8), // 10 to ~160k
		}),
		layoutDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gitlanes_layout_duration_seconds",
			Help:    "Column assignment duration in seconds",
			Buckets: latency,
		}),
		layoutColumns: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gitlanes_layout_columns",
			Help:    "Lane count of finished layouts",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		}),
		rendersTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gitlanes_renders_total",
			Help: "Render runs by format and result",
		}, []string{"format", "result"}),
		renderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gitlanes_render_duration_seconds",
			Help:    "Render duration in seconds by requested formats",
			Buckets: latency,
		}, []string{"formats"}),

		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gitlanes_cache_hits_total",
			Help: "Cache hits by key type",
		}, []string{"key_type"}),
		cacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gitlanes_cache_misses_total",
			Help: "Cache misses by key type",
		}, []string{"key_type"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gitlanes_cache_written_bytes_total",
			Help: "Bytes written to the cache by key type",
		}, []string{"key_type"}),

		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gitlanes_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gitlanes_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: latency,
		}, []string{"method", "route"}),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "gitlanes_http_inflight_requests",
			Help: "Requests currently being served",
		}),
		repoOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gitlanes_repository_ops_total",
			Help: "Fetch and checkout operations by result",
		}, []string{"op", "result"}),
		repoOpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gitlanes_repository_op_duration_seconds",
			Help:    "Fetch and checkout duration in seconds",
			Buckets: latency,
		}, []string{"op"}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) OnBuildStart(context.Context, string) {}

func (m *Metrics) OnBuildComplete(_ context.Context, _ string, commits int, d time.Duration, err error) {
	m.buildsTotal.WithLabelValues(result(err)).Inc()
	if err != nil {
		return
	}
	m.buildDuration.Observe(d.Seconds())
	m.buildCommits.Observe(float64(commits))
}

func (m *Metrics) OnLayoutComplete(_ context.Context, columns, _ int, d time.Duration, err error) {
	if err != nil {
		return
	}
	m.layoutDuration.Observe(d.Seconds())
	m.layoutColumns.Observe(float64(columns))
}

func (m *Metrics) OnRenderStart(context.Context, []string) {}

func (m *Metrics) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	for _, f := range formats {
		m.rendersTotal.WithLabelValues(f, result(err)).Inc()
	}
	m.renderDuration.WithLabelValues(strings.Join(formats, ",")).Observe(d.Seconds())
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheHits.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheMisses.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string) {
	m.inflight.Inc()
}

func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.inflight.Dec()
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) OnRepositoryOp(_ context.Context, op string, d time.Duration, err error) {
	m.repoOps.WithLabelValues(op, result(err)).Inc()
	m.repoOpDuration.WithLabelValues(op).Observe(d.Seconds())
}
