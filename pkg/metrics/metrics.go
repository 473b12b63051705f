package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Channel and outcome label values for DispatchTotal.
const (
	ChannelDatadog = "datadog"
	ChannelSlack   = "slack"

	OutcomeSent    = "sent"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

var (
	ScanResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avnotify_scan_results_total",
			Help: "Total number of scan results received for dispatch (count)",
		},
		[]string{"status"},
	)

	DispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avnotify_dispatch_total",
			Help: "Total number of downstream dispatch attempts by channel and outcome (count)",
		},
		[]string{"channel", "outcome"},
	)

	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "avnotify_dispatch_duration_ms",
			Help:    "Duration of a full dispatch (metrics and chat) in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"status"},
	)

	WebhookResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avnotify_webhook_responses_total",
			Help: "Total number of chat webhook responses by HTTP status code (count)",
		},
		[]string{"code"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_dropped_total",
			Help: "Total number of Kafka messages committed without successful handling (count)",
		},
		[]string{"service", "topic", "reason"},
	)
)

var (
	dispatchOnce sync.Once
	brokerOnce   sync.Once
)

func RegisterDispatchMetrics() {
	dispatchOnce.Do(func() {
		prometheus.MustRegister(ScanResultsTotal)
		prometheus.MustRegister(DispatchTotal)
		prometheus.MustRegister(DispatchDuration)
		prometheus.MustRegister(WebhookResponsesTotal)
	})
}

func RegisterBrokerMetrics() {
	brokerOnce.Do(func() {
		prometheus.MustRegister(KafkaMessagesReadTotal)
		prometheus.MustRegister(KafkaMessagesWrittenTotal)
		prometheus.MustRegister(KafkaMessagesDroppedTotal)
	})
}
