package concurrent

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

type Stats struct {
	Submitted      int64         `json:"submitted"`
	Completed      int64         `json:"completed"`
	Failed         int64         `json:"failed"`
	Rejected       int64         `json:"rejected"`
	AvgProcessTime time.Duration `json:"avg_process_time"`
}

type StatsCollector struct {
	submitted      atomic.Int64
	completed      atomic.Int64
	failed         atomic.Int64
	rejected       atomic.Int64
	totalProcTime  int64
	processedCount int64
	mutex          sync.Mutex
}

func NewStatsCollector() *StatsCollector {
	return &StatsCollector{}
}

func (sc *StatsCollector) IncrementSubmitted() { sc.submitted.Add(1) }
func (sc *StatsCollector) IncrementCompleted() { sc.completed.Add(1) }
func (sc *StatsCollector) IncrementFailed()    { sc.failed.Add(1) }
func (sc *StatsCollector) IncrementRejected()  { sc.rejected.Add(1) }

func (sc *StatsCollector) RecordProcessingTime(d time.Duration) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	sc.totalProcTime += d.Nanoseconds()
	sc.processedCount++
}

func (sc *StatsCollector) GetStats() Stats {
	stats := Stats{
		Submitted: sc.submitted.Load(),
		Completed: sc.completed.Load(),
		Failed:    sc.failed.Load(),
		Rejected:  sc.rejected.Load(),
	}

	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	if sc.processedCount > 0 {
		stats.AvgProcessTime = time.Duration(sc.totalProcTime / sc.processedCount)
	}

	return stats
}

// PanicError carries a value recovered from a job.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job panicked: %v", e.Value)
}
