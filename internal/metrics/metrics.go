// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はサービス層とミドルウェアが使用するメトリクス記録のインターフェース。
type Recorder interface {
	RecordSubmission(platform string)
	RecordDuplicate()
	RecordSoftDelete()
	RecordCleared(count int64)
	RecordLogin(success bool)
	RecordBookSearch(results int, failed bool)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集するRecorderの実装。
type Collector struct {
	submissions    *prometheus.CounterVec
	duplicates     prometheus.Counter
	softDeletes    prometheus.Counter
	cleared        prometheus.Counter
	logins         *prometheus.CounterVec
	bookSearches   *prometheus.CounterVec
	bookResults    prometheus.Histogram
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booktracker_submissions_total",
			Help: "受け付けた読了記録の数（プラットフォーム別）",
		}, []string{"platform"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booktracker_duplicate_rejections_total",
			Help: "重複として拒否した記録の数",
		}),
		softDeletes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booktracker_soft_deletes_total",
			Help: "論理削除した記録の数",
		}),
		cleared: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booktracker_cleared_entries_total",
			Help: "管理者の一括削除で物理削除した記録の数",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booktracker_logins_total",
			Help: "管理者ログイン試行の数（結果別）",
		}, []string{"result"}),
		bookSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booktracker_book_searches_total",
			Help: "書籍検索の呼び出し数（結果別）",
		}, []string{"result"}),
		bookResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "booktracker_book_search_results",
			Help:    "書籍検索1回あたりの候補数",
			Buckets: []float64{0, 1, 3, 5, 10},
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booktracker_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "booktracker_request_latency_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.submissions,
		c.duplicates,
		c.softDeletes,
		c.cleared,
		c.logins,
		c.bookSearches,
		c.bookResults,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordSubmission は受け付けた記録を記録する。
func (c *Collector) RecordSubmission(platform string) {
	c.submissions.WithLabelValues(platform).Inc()
}

// RecordDuplicate は重複拒否を記録する。
func (c *Collector) RecordDuplicate() {
	c.duplicates.Inc()
}

// RecordSoftDelete は論理削除を記録する。
func (c *Collector) RecordSoftDelete() {
	c.softDeletes.Inc()
}

// RecordCleared は一括削除の件数を加算する。
func (c *Collector) RecordCleared(count int64) {
	c.cleared.Add(float64(count))
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(result).Inc()
}

// RecordBookSearch は書籍検索の結果を記録する。
func (c *Collector) RecordBookSearch(results int, failed bool) {
	if failed {
		c.bookSearches.WithLabelValues("failure").Inc()
		return
	}
	c.bookSearches.WithLabelValues("success").Inc()
	c.bookResults.Observe(float64(results))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Nop は何も記録しないRecorder。テストとCLIサブコマンドで使用する。
type Nop struct{}

func (Nop) RecordSubmission(string) {}
func (Nop) RecordDuplicate() {}
func (Nop) RecordSoftDelete() {}
func (Nop) RecordCleared(int64) {}
func (Nop) RecordLogin(bool) {}
func (Nop) RecordBookSearch(int, bool) {}
func (Nop) RecordHTTPStatus(int) {}
func (Nop) RecordRequestLatency(time.Duration) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
