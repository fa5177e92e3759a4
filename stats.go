package alarm

import "sync"

// windowedMeasure tracks count / running total / max for a duration-valued
// measurement: one instance each for callback execution time, overdue
// scheduling jitter, and premature scheduling jitter.
type windowedMeasure struct {
	count int64
	total int64 // milliseconds
	max   int64 // milliseconds
}

func (m *windowedMeasure) record(valueMS int64) {
	m.count++
	m.total += valueMS
	if valueMS > m.max {
		m.max = valueMS
	}
}

// Snapshot is a read-only copy of a windowedMeasure.
type Snapshot struct {
	Count int64
	Total int64
	Max   int64
}

func (m *windowedMeasure) snapshot() Snapshot {
	return Snapshot{Count: m.count, Total: m.total, Max: m.max}
}

// Stats holds the per-alarm counters and windowed measures. Every field
// is guarded by mu: the counters are updated by SetOnQueue, Cancel and
// the dispatcher, the windowed measures by the worker-queue handler, and
// the StatsSnapshot convenience method on Alarm reads them under mu.
type Stats struct {
	mu sync.Mutex

	ScheduledCount   int64
	CanceledCount    int64
	RescheduledCount int64
	TotalUpdates     int64

	CallbackExecution   windowedMeasure
	OverdueScheduling   windowedMeasure
	PrematureScheduling windowedMeasure
}

// StatsSnapshot is a point-in-time, copyable view of Stats.
type StatsSnapshot struct {
	ScheduledCount   int64
	CanceledCount    int64
	RescheduledCount int64
	TotalUpdates     int64

	CallbackExecution   Snapshot
	OverdueScheduling   Snapshot
	PrematureScheduling Snapshot
}

func (s *Stats) snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		ScheduledCount:      s.ScheduledCount,
		CanceledCount:       s.CanceledCount,
		RescheduledCount:    s.RescheduledCount,
		TotalUpdates:        s.TotalUpdates,
		CallbackExecution:   s.CallbackExecution.snapshot(),
		OverdueScheduling:   s.OverdueScheduling.snapshot(),
		PrematureScheduling: s.PrematureScheduling.snapshot(),
	}
}

func (s *Stats) incScheduled() {
	s.mu.Lock()
	s.ScheduledCount++
	s.TotalUpdates++
	s.mu.Unlock()
}

func (s *Stats) incCanceled() {
	s.mu.Lock()
	s.CanceledCount++
	s.TotalUpdates++
	s.mu.Unlock()
}

func (s *Stats) incRescheduled() {
	s.mu.Lock()
	s.RescheduledCount++
	s.TotalUpdates++
	s.mu.Unlock()
}

// recordFiring is called by the worker-queue handler, outside the service
// monitor but under the alarm's callback lock, once a callback invocation
// completes.
func (s *Stats) recordFiring(execMS, jitterMS int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallbackExecution.record(execMS)
	if jitterMS >= 0 {
		s.OverdueScheduling.record(jitterMS)
	} else {
		s.PrematureScheduling.record(-jitterMS)
	}
}
