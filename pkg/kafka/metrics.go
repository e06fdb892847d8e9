package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the consumer collectors. A nil *Metrics records nothing.
type Metrics struct {
	Received     *prometheus.CounterVec
	Processed    *prometheus.CounterVec
	Failed       *prometheus.CounterVec
	DeadLettered *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
}

// NewMetrics registers the consumer collectors on reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	labels := []string{"topic", "consumer_group"}
	return &Metrics{
		Received: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_consumer_messages_received_total",
			Help:      "Total number of Kafka messages fetched from the broker",
		}, labels),
		Processed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_consumer_messages_processed_total",
			Help:      "Total number of successfully processed Kafka messages",
		}, labels),
		Failed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_consumer_messages_failed_total",
			Help:      "Total number of Kafka messages that failed all retries",
		}, labels),
		DeadLettered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_consumer_dlq_published_total",
			Help:      "Total number of messages published to the dead-letter queue",
		}, labels),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_consumer_processing_duration_seconds",
			Help:      "Duration of Kafka message processing in seconds",
			Buckets:   prometheus.DefBuckets,
		}, labels),
	}
}

func (m *Metrics) received(topic, group string) {
	if m != nil {
		m.Received.WithLabelValues(topic, group).Inc()
	}
}

func (m *Metrics) processed(topic, group string) {
	if m != nil {
		m.Processed.WithLabelValues(topic, group).Inc()
	}
}

func (m *Metrics) failed(topic, group string) {
	if m != nil {
		m.Failed.WithLabelValues(topic, group).Inc()
	}
}

func (m *Metrics) deadLettered(topic, group string) {
	if m != nil {
		m.DeadLettered.WithLabelValues(topic, group).Inc()
	}
}

func (m *Metrics) observe(topic, group string, d time.Duration) {
	if m != nil {
		m.Duration.WithLabelValues(topic, group).Observe(d.Seconds())
	}
}
