// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はメトリクス収集のインターフェース。
// ローダー、ゲートウェイ、画面の各層から利用する。
// nilのCollectorを渡した場合は記録しない（Record*はnilレシーバ非対応のため、
// 呼び出し側でnilチェックするかNopを使うこと）。
type Collector interface {
	// RecordLoadSuccess は読み取り操作の成功を記録する。
	RecordLoadSuccess(op string)
	// RecordLoadFallback は安全デフォルトへの置き換えを理由付きで記録する。
	// reasonは "timeout" または "error"。
	RecordLoadFallback(op string, reason string)
	// RecordLoadLatency は読み取り操作のレイテンシを記録する。
	RecordLoadLatency(op string, d time.Duration)
	// RecordGatewayStatus はバックエンドのHTTPステータスコードを記録する。
	RecordGatewayStatus(statusCode int)
	// RecordMutationFailure は書き込み操作の失敗を記録する。
	RecordMutationFailure(op string)
}

// PromCollector はPrometheusメトリクスを収集する実装。
type PromCollector struct {
	loadSuccess     *prometheus.CounterVec
	loadFallback    *prometheus.CounterVec
	loadLatency     *prometheus.HistogramVec
	gatewayStatus   *prometheus.CounterVec
	mutationFailure *prometheus.CounterVec
}

// NewCollector は新しいPromCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *PromCollector {
	c := &PromCollector{
		loadSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drinkscart_load_success_total",
			Help: "読み取り操作成功の合計数",
		}, []string{"op"}),
		loadFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drinkscart_load_fallback_total",
			Help: "安全デフォルトに置き換えられた読み取り操作の合計数",
		}, []string{"op", "reason"}),
		loadLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "drinkscart_load_latency_seconds",
			Help:    "読み取り操作のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		gatewayStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drinkscart_gateway_status_total",
			Help: "バックエンドのHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		mutationFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drinkscart_mutation_failure_total",
			Help: "書き込み操作失敗の合計数",
		}, []string{"op"}),
	}

	reg.MustRegister(
		c.loadSuccess,
		c.loadFallback,
		c.loadLatency,
		c.gatewayStatus,
		c.mutationFailure,
	)

	return c
}

// RecordLoadSuccess は読み取り操作の成功を記録する。
func (c *PromCollector) RecordLoadSuccess(op string) {
	c.loadSuccess.WithLabelValues(op).Inc()
}

// RecordLoadFallback は安全デフォルトへの置き換えを記録する。
func (c *PromCollector) RecordLoadFallback(op string, reason string) {
	c.loadFallback.WithLabelValues(op, reason).Inc()
}

// RecordLoadLatency は読み取り操作のレイテンシを記録する。
func (c *PromCollector) RecordLoadLatency(op string, d time.Duration) {
	c.loadLatency.WithLabelValues(op).Observe(d.Seconds())
}

// RecordGatewayStatus はバックエンドのHTTPステータスコードを記録する。
func (c *PromCollector) RecordGatewayStatus(statusCode int) {
	c.gatewayStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordMutationFailure は書き込み操作の失敗を記録する。
func (c *PromCollector) RecordMutationFailure(op string) {
	c.mutationFailure.WithLabelValues(op).Inc()
}

// Nop は何も記録しないCollector。テストや未配線の構成で使用する。
type Nop struct{}

// RecordLoadSuccess は何もしない。
func (Nop) RecordLoadSuccess(op string) {}

// RecordLoadFallback は何もしない。
func (Nop) RecordLoadFallback(op string, reason string) {}

// RecordLoadLatency は何もしない。
func (Nop) RecordLoadLatency(op string, d time.Duration) {}

// RecordGatewayStatus は何もしない。
func (Nop) RecordGatewayStatus(statusCode int) {}

// RecordMutationFailure は何もしない。
func (Nop) RecordMutationFailure(op string) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
