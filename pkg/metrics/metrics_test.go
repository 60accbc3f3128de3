package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordDatabaseOperation_SplitsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(DatabaseOperationsTotal.WithLabelValues("probe", "user", "error"))

	RecordDatabaseOperation("probe", "user", errors.New("boom"), time.Millisecond)
	RecordDatabaseOperation("probe", "user", nil, time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(DatabaseOperationsTotal.WithLabelValues("probe", "user", "error")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(DatabaseOperationsTotal.WithLabelValues("probe", "user", "success")), 1.0)
}

func TestUpdateWorkerPoolStats(t *testing.T) {
	UpdateWorkerPoolStats("probe", 4, 2)

	assert.Equal(t, 4.0, testutil.ToFloat64(WorkerPoolQueueSize.WithLabelValues("probe")))
	assert.Equal(t, 2.0, testutil.ToFloat64(WorkerPoolActiveWorkers.WithLabelValues("probe")))
}

func TestSetCircuitBreakerState(t *testing.T) {
	SetCircuitBreakerState("probe", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(CircuitBreakerState.WithLabelValues("probe")))
}
