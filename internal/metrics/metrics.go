// Package metrics exposes Prometheus metrics for cmis-hub on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/any-hub/cmis-hub/internal/cmis"
)

// StatsSource 返回每个仓库当前的缓存条目数，抓取时调用。
type StatsSource func() map[string]cmis.CacheStats

// Recorder 聚合缓存命中、取数失败与 HTTP 请求指标。
type Recorder struct {
	registry *prometheus.Registry

	cacheLookups    *prometheus.CounterVec
	fetchFailures   *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	cacheEntriesDsc *prometheus.Desc

	mu      sync.RWMutex
	sources []StatsSource
}

// NewRecorder 创建 Recorder，并在私有 registry 上注册 Go 运行时与进程指标。
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	r := &Recorder{
		registry: reg,
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmishub_cache_lookups_total",
				Help: "Cache lookups by repository, index and result",
			},
			[]string{"repository", "index", "result"},
		),
		fetchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmishub_fetch_failures_total",
				Help: "Failed upstream fetches by repository, relation and reason",
			},
			[]string{"repository", "relation", "reason"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmishub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cmishub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		cacheEntriesDsc: prometheus.NewDesc(
			"cmishub_cache_entries",
			"Current number of cached entries by repository and index",
			[]string{"repository", "index"},
			nil,
		),
	}
	reg.MustRegister(statsCollector{r})
	return r
}

// Handler 返回 /metrics 的 http.Handler。
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry 暴露底层 registry，便于测试收集指标。
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// TrackStats 注册缓存条目数来源。
func (r *Recorder) TrackStats(source StatsSource) {
	if source == nil {
		return
	}
	r.mu.Lock()
	r.sources = append(r.sources, source)
	r.mu.Unlock()
}

// RecordHTTPRequest 记录一次 HTTP 请求。route 应为路由模板而非原始路径，避免标签爆炸。
func (r *Recorder) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ForRepository 返回绑定到仓库名的 cmis.Observer。
func (r *Recorder) ForRepository(name string) cmis.Observer {
	return repositoryObserver{recorder: r, repository: name}
}

type repositoryObserver struct {
	recorder   *Recorder
	repository string
}

func (o repositoryObserver) CacheHit(index cmis.Index) {
	o.recorder.cacheLookups.WithLabelValues(o.repository, string(index), "hit").Inc()
}

func (o repositoryObserver) CacheMiss(index cmis.Index) {
	o.recorder.cacheLookups.WithLabelValues(o.repository, string(index), "miss").Inc()
}

func (o repositoryObserver) FetchFailed(rel cmis.Relation, reason cmis.Reason) {
	o.recorder.fetchFailures.WithLabelValues(o.repository, string(rel), string(reason)).Inc()
}

// statsCollector 在抓取时把 CacheStats 转成 gauge。
type statsCollector struct {
	r *Recorder
}

func (c statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.r.cacheEntriesDsc
}

func (c statsCollector) Collect(ch chan<- prometheus.Metric) {
	c.r.mu.RLock()
	sources := append([]StatsSource(nil), c.r.sources...)
	c.r.mu.RUnlock()

	for _, source := range sources {
		for repo, stats := range source() {
			c.emit(ch, repo, cmis.IndexObjects, stats.Objects)
			c.emit(ch, repo, cmis.IndexChildren, stats.Children)
			c.emit(ch, repo, cmis.IndexParents, stats.Parents)
			c.emit(ch, repo, cmis.IndexProperties, stats.Properties)
			c.emit(ch, repo, cmis.IndexContentMetadata, stats.ContentMetadata)
			root := 0
			if stats.RootLoaded {
				root = 1
			}
			c.emit(ch, repo, cmis.IndexRoot, root)
		}
	}
}

func (c statsCollector) emit(ch chan<- prometheus.Metric, repo string, index cmis.Index, n int) {
	ch <- prometheus.MustNewConstMetric(c.r.cacheEntriesDsc, prometheus.GaugeValue, float64(n), repo, string(index))
}
