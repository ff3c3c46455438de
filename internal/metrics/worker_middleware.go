package metrics

import (
	"time"
)

// PrometheusCollector plugs the queue library's middleware hooks into the
// delivery metrics. Deliveries are tracked apart from conversion outcomes:
// one job can be delivered several times, and the runner records the
// per-tool result itself.
type PrometheusCollector struct{}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{}
}

func (c *PrometheusCollector) JobStarted(jobType, queue string) {
	WorkerPoolActiveJobs.Inc()
}

func (c *PrometheusCollector) JobCompleted(jobType, queue string, duration time.Duration) {
	WorkerPoolActiveJobs.Dec()
	QueueDeliveriesTotal.WithLabelValues(jobType, "handled").Inc()
	QueueDeliveryDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// JobFailed covers deliveries the handler gave up on, permanently or after
// exhausting retries.
func (c *PrometheusCollector) JobFailed(jobType, queue string, duration time.Duration) {
	WorkerPoolActiveJobs.Dec()
	QueueDeliveriesTotal.WithLabelValues(jobType, "failed").Inc()
	QueueDeliveryDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

func (c *PrometheusCollector) JobRetrying(jobType, queue string, attempt int) {
	QueueDeliveriesTotal.WithLabelValues(jobType, "retried").Inc()
}
