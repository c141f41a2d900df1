package notifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "disaster_response_notifications_dispatched_total",
		Help: "Total number of event-NGO notifications handed to senders",
	})

	notificationsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "disaster_response_notifications_suppressed_total",
		Help: "Total number of notifications suppressed before delivery",
	}, []string{"reason"}) // reason: rate_limited, duplicate

	webhookSendTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "disaster_response_webhook_send_total",
		Help: "Total number of webhook send attempts by status",
	}, []string{"status"}) // status: success, error, retry, dropped

	webhookSendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "disaster_response_webhook_send_duration_seconds",
		Help:    "Duration of webhook HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	kafkaPublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "disaster_response_kafka_publish_total",
		Help: "Total number of Kafka notification publishes by status",
	}, []string{"status"}) // status: success, error
)
