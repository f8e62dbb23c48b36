// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AIリクエストの結果ラベル
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Recorder はメトリクス記録のインターフェース。
// ミドルウェアやサービス層から利用する。
type Recorder interface {
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
	RecordAIRequest(operation, outcome string)
	ObserveStatsCompute(duration time.Duration)
	RecordDrinkLogged()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	aiRequests   *prometheus.CounterVec
	statsCompute prometheus.Histogram
	drinksLogged prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brewlog_http_requests_total",
			Help: "ルート・ステータス別のHTTPリクエスト数",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "brewlog_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		aiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brewlog_ai_requests_total",
			Help: "LLM呼び出しの結果別件数",
		}, []string{"operation", "outcome"}),
		statsCompute: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "brewlog_stats_compute_duration_seconds",
			Help:    "統計集計の所要時間（秒）",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		drinksLogged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "brewlog_drinks_logged_total",
			Help: "記録されたドリンクの合計数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.aiRequests,
		c.statsCompute,
		c.drinksLogged,
	)

	return c
}

// ObserveHTTPRequest はHTTPリクエストの件数と処理時間を記録する。
// routeにはURLではなくルートパターンを渡し、ラベルの種類数を抑える。
func (c *Collector) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordAIRequest はLLM呼び出しの結果を記録する。
func (c *Collector) RecordAIRequest(operation, outcome string) {
	c.aiRequests.WithLabelValues(operation, outcome).Inc()
}

// ObserveStatsCompute は統計集計の所要時間を記録する。
func (c *Collector) ObserveStatsCompute(duration time.Duration) {
	c.statsCompute.Observe(duration.Seconds())
}

// RecordDrinkLogged はドリンクの記録を数える。
func (c *Collector) RecordDrinkLogged() {
	c.drinksLogged.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ Recorder = (*Collector)(nil)
