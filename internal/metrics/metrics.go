// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ログイン方式のラベル値。
const (
	MethodLocal = "local"
)

// 結果のラベル値。
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	// RecordLogin はログイン試行を記録する。methodはlocalまたはプロバイダー名。
	RecordLogin(method, result string)
	RecordSignup(result string)
	RecordLogout()
	RecordMessageSubmitted()
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordPresenceExpired(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins          *prometheus.CounterVec
	signups         *prometheus.CounterVec
	logouts         prometheus.Counter
	messages        prometheus.Counter
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	presenceExpired prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webpresence_login_total",
			Help: "ログイン試行の合計数（方式・結果別）",
		}, []string{"method", "result"}),
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webpresence_signup_total",
			Help: "サインアップ試行の合計数（結果別）",
		}, []string{"result"}),
		logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webpresence_logout_total",
			Help: "ログアウトの合計数",
		}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webpresence_messages_submitted_total",
			Help: "保存されたお問い合わせメッセージの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webpresence_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "webpresence_request_latency_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		presenceExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webpresence_presence_expired_total",
			Help: "セッション期限切れでオフラインに戻したユーザーの合計数",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.signups,
		c.logouts,
		c.messages,
		c.httpStatus,
		c.requestLatency,
		c.presenceExpired,
	)

	return c
}

// RecordLogin はログイン試行を記録する。
func (c *Collector) RecordLogin(method, result string) {
	c.logins.WithLabelValues(method, result).Inc()
}

// RecordSignup はサインアップ試行を記録する。
func (c *Collector) RecordSignup(result string) {
	c.signups.WithLabelValues(result).Inc()
}

// RecordLogout はログアウトを記録する。
func (c *Collector) RecordLogout() {
	c.logouts.Inc()
}

// RecordMessageSubmitted はお問い合わせメッセージの保存を記録する。
func (c *Collector) RecordMessageSubmitted() {
	c.messages.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordPresenceExpired はオフラインに戻したユーザー数を記録する。
func (c *Collector) RecordPresenceExpired(count int64) {
	c.presenceExpired.Add(float64(count))
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordLogin(string, string)         {}
func (Nop) RecordSignup(string)                {}
func (Nop) RecordLogout()                      {}
func (Nop) RecordMessageSubmitted()            {}
func (Nop) RecordHTTPStatus(int)               {}
func (Nop) RecordRequestLatency(time.Duration) {}
func (Nop) RecordPresenceExpired(int64)        {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
