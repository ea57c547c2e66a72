package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gigmarket"

var (
	// WebhookRequests 按验签/解析结果统计回调请求
	WebhookRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_requests_total",
		Help:      "Inbound payment webhook requests by authentication/parse result.",
	}, []string{"result"})

	// WebhookEvents 按事件类型与处理结果统计
	WebhookEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Dispatched webhook events by type and outcome.",
	}, []string{"event", "outcome"})

	OrderTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_transitions_total",
		Help:      "Committed order state transitions by target status.",
	}, []string{"to"})

	NotificationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Best-effort notification steps that failed, by stage.",
	}, []string{"stage"})
)

func init() {
	prometheus.MustRegister(WebhookRequests, WebhookEvents, OrderTransitions, NotificationFailures)
}

// Handler 暴露 /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
