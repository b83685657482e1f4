package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mentor_hub"

var (
	// SessionTransitions 会话状态流转次数，按 from/to 统计
	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_transitions_total",
		Help:      "会话状态流转次数",
	}, []string{"from", "to"})

	// AssignmentValidations 分配校验结果计数
	AssignmentValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assignment_validations_total",
		Help:      "导师分配校验次数",
	}, []string{"result"})

	// OutboxDispatches 发件箱事件投递结果计数
	OutboxDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_dispatch_total",
		Help:      "发件箱事件投递次数",
	}, []string{"event_type", "result"})

	// HTTPRequests HTTP 请求计数
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP 请求次数",
	}, []string{"method", "route", "status"})

	// HTTPDuration HTTP 请求耗时
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP 请求耗时（秒）",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// RateLimited 被限流拒绝的请求数
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_rate_limited_total",
		Help:      "被限流拒绝的请求数",
	}, []string{"route"})
)

// 校验结果标签
const (
	ResultValid   = "valid"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// 投递结果标签
const (
	DispatchOK     = "ok"
	DispatchRetry  = "retry"
	DispatchFailed = "failed"
)

// Handler 暴露 /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
