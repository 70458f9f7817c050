package domain

import (
	"sync/atomic"
	"time"
)

// RankedItem is one row of a frequency report.
type RankedItem struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Summary is everything a finished pass reports.
type Summary struct {
	RunID        string        `json:"run_id"`
	Source       string        `json:"source"`
	Stats        StatsSnapshot `json:"stats"`
	BusyWindows  []HourWindow  `json:"busy_windows"`
	TopHosts     []RankedItem  `json:"top_hosts"`
	TopResources []RankedItem  `json:"top_resources"`
}

type StatsSnapshot struct {
	Phase           string        `json:"phase"`
	LinesRead       int64         `json:"lines_read"`
	Records         int64         `json:"records"`
	Blocked         int64         `json:"blocked"`
	Rejected        int64         `json:"rejected"`
	BlocksScheduled int64         `json:"blocks_scheduled"`
	Elapsed         time.Duration `json:"elapsed"`
	StartTime       time.Time     `json:"start_time"`
}

// Phase is where a pass currently stands.
type Phase int32

const (
	PhaseStarting Phase = iota
	PhaseRunning
	PhaseFinalizing
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Progress is a point-in-time view of the analyzer's working state.
type Progress struct {
	TrackedSources  int   `json:"tracked_sources"`
	BlockedSources  int   `json:"blocked_sources"`
	TimelineEntries int   `json:"timeline_entries"`
	DenseOverflows  int64 `json:"dense_overflows"`
}

// RunStats holds the pass counters. The analyzer is the only writer, but the
// metrics exporter reads them from its own goroutine.
type RunStats struct {
	linesRead       atomic.Int64
	records         atomic.Int64
	blocked         atomic.Int64
	rejected        atomic.Int64
	blocksScheduled atomic.Int64
	phase           atomic.Int32
	finishedAt      atomic.Int64
	StartTime       time.Time
}

func NewRunStats() *RunStats {
	return &RunStats{
		StartTime: time.Now(),
	}
}

func (s *RunStats) IncrementLines()    { s.linesRead.Add(1) }
func (s *RunStats) IncrementRecords()  { s.records.Add(1) }
func (s *RunStats) IncrementBlocked()  { s.blocked.Add(1) }
func (s *RunStats) IncrementRejected() { s.rejected.Add(1) }
func (s *RunStats) IncrementBlocks()   { s.blocksScheduled.Add(1) }

func (s *RunStats) SetPhase(p Phase) { s.phase.Store(int32(p)) }

// Finish moves the pass into a terminal phase and freezes Elapsed.
func (s *RunStats) Finish(p Phase) {
	s.finishedAt.CompareAndSwap(0, time.Now().UnixNano())
	s.SetPhase(p)
}

func (s *RunStats) Elapsed() time.Duration {
	if end := s.finishedAt.Load(); end != 0 {
		return time.Unix(0, end).Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

func (s *RunStats) Phase() Phase {
	return Phase(s.phase.Load())
}

func (s *RunStats) Records() int64 {
	return s.records.Load()
}

func (s *RunStats) Blocked() int64 {
	return s.blocked.Load()
}

func (s *RunStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Phase:           s.Phase().String(),
		LinesRead:       s.linesRead.Load(),
		Records:         s.records.Load(),
		Blocked:         s.blocked.Load(),
		Rejected:        s.rejected.Load(),
		BlocksScheduled: s.blocksScheduled.Load(),
		Elapsed:         s.Elapsed(),
		StartTime:       s.StartTime,
	}
}
