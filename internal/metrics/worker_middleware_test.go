package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorCountsDeliveries(t *testing.T) {
	c := NewPrometheusCollector()

	handled := testutil.ToFloat64(QueueDeliveriesTotal.WithLabelValues("process_conversion", "handled"))
	failed := testutil.ToFloat64(QueueDeliveriesTotal.WithLabelValues("process_conversion", "failed"))
	retried := testutil.ToFloat64(QueueDeliveriesTotal.WithLabelValues("process_conversion", "retried"))
	active := testutil.ToFloat64(WorkerPoolActiveJobs)

	c.JobStarted("process_conversion", "default")
	c.JobCompleted("process_conversion", "default", 2*time.Second)

	c.JobStarted("process_conversion", "default")
	c.JobRetrying("process_conversion", "default", 1)
	c.JobFailed("process_conversion", "default", time.Second)

	assert.Equal(t, handled+1, testutil.ToFloat64(QueueDeliveriesTotal.WithLabelValues("process_conversion", "handled")))
	assert.Equal(t, failed+1, testutil.ToFloat64(QueueDeliveriesTotal.WithLabelValues("process_conversion", "failed")))
	assert.Equal(t, retried+1, testutil.ToFloat64(QueueDeliveriesTotal.WithLabelValues("process_conversion", "retried")))
	assert.Equal(t, active, testutil.ToFloat64(WorkerPoolActiveJobs))
}
