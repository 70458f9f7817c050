// Package analytics computes traffic reports over the record stream: the
// busiest one-hour windows and the most frequent hosts and resources.
package analytics

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/loginsight/internal/domain"
)

// BusyHoursConfig configures the busy window tracker.
type BusyHoursConfig struct {
	Window        time.Duration // Length of a ranked window (default: 1h)
	TopN          int           // Windows kept in the ranking (default: 10)
	DenseCapacity int           // Seconds covered by the dense counter (default: 10M)
}

func DefaultBusyHoursConfig() BusyHoursConfig {
	return BusyHoursConfig{
		Window:        time.Hour,
		TopN:          domain.DefaultTopWindows,
		DenseCapacity: 10_000_000,
	}
}

// TimelineEntry counts the visits that share one second, measured from the
// first record of the log.
type TimelineEntry struct {
	Offset int64
	Visits int64
}

// BusyWindowTracker accumulates a per-second visit timeline and ranks the
// windows that start at each distinct second.
//
// Thread Safety: NOT thread-safe. The analyzer is the only caller.
type BusyWindowTracker struct {
	cfg           BusyHoursConfig
	windowSeconds int64

	started      bool
	originUTC    int64
	originLocal  time.Time
	originOffset time.Duration

	timeline []TimelineEntry
	dense    []uint32

	overflows  int64
	outOfOrder int64
	warn       zerolog.Logger
}

func NewBusyWindowTracker(cfg BusyHoursConfig) *BusyWindowTracker {
	def := DefaultBusyHoursConfig()
	if cfg.Window < time.Second {
		cfg.Window = def.Window
	}
	if cfg.TopN <= 0 {
		cfg.TopN = def.TopN
	}
	if cfg.DenseCapacity <= 0 {
		cfg.DenseCapacity = def.DenseCapacity
	}

	return &BusyWindowTracker{
		cfg:           cfg,
		windowSeconds: int64(cfg.Window / time.Second),
		warn:          log.Logger.Sample(&zerolog.BasicSampler{N: 1000}),
	}
}

// RecordVisit adds one visit at rec's time. The first call fixes the origin
// that every offset and label is measured from.
func (t *BusyWindowTracker) RecordVisit(rec *domain.LogRecord) {
	if !t.started {
		t.started = true
		t.originUTC = rec.UTCTime.Unix()
		t.originLocal = rec.LocalTime
		t.originOffset = rec.UTCOffset
	}

	offset := rec.UTCTime.Unix() - t.originUTC

	n := len(t.timeline)
	switch {
	case n > 0 && t.timeline[n-1].Offset == offset:
		t.timeline[n-1].Visits++
	default:
		if n > 0 && offset < t.timeline[n-1].Offset {
			t.outOfOrder++
			t.warn.Warn().
				Int64("offset", offset).
				Int64("previous", t.timeline[n-1].Offset).
				Str("host", rec.Host).
				Msg("Record out of time order")
		}
		t.timeline = append(t.timeline, TimelineEntry{Offset: offset, Visits: 1})
	}

	if offset < 0 || offset >= int64(t.cfg.DenseCapacity) {
		t.overflows++
		t.warn.Warn().
			Int64("offset", offset).
			Int("capacity", t.cfg.DenseCapacity).
			Msg("Visit outside dense counter range")
		return
	}
	t.growDense(offset)
	t.dense[offset]++
}

// growDense extends the dense counter so that offset is addressable. It
// grows geometrically and never past the configured capacity.
func (t *BusyWindowTracker) growDense(offset int64) {
	if offset < int64(len(t.dense)) {
		return
	}
	size := int64(cap(t.dense))
	if size < 4096 {
		size = 4096
	}
	for size <= offset {
		size *= 2
	}
	if size > int64(t.cfg.DenseCapacity) {
		size = int64(t.cfg.DenseCapacity)
	}
	if size <= int64(cap(t.dense)) {
		t.dense = t.dense[:offset+1]
		return
	}
	grown := make([]uint32, offset+1, size)
	copy(grown, t.dense)
	t.dense = grown
}

// VisitsBetween sums the dense counter over [from, to) seconds from the
// origin. Seconds outside the dense range count as zero.
func (t *BusyWindowTracker) VisitsBetween(from, to int64) int64 {
	if from < 0 {
		from = 0
	}
	if to > int64(len(t.dense)) {
		to = int64(len(t.dense))
	}
	var sum int64
	for i := from; i < to; i++ {
		sum += int64(t.dense[i])
	}
	return sum
}

// Finalize ranks one window per distinct second in the timeline. A window
// covers [start, start+Window) so an event exactly one window after the start
// belongs to the next window. The tracker can keep recording afterwards.
func (t *BusyWindowTracker) Finalize() *domain.TopWindows {
	top := domain.NewTopWindows(t.cfg.TopN)
	n := len(t.timeline)
	if n == 0 {
		return top
	}
	w := t.windowSeconds

	top.Insert(t.window(0, t.VisitsBetween(0, w)))

	var sum int64
	end := 0
	for end < n && t.timeline[end].Offset < w {
		sum += t.timeline[end].Visits
		end++
	}

	for first := 1; first < n; first++ {
		sum -= t.timeline[first-1].Visits
		start := t.timeline[first].Offset
		for end < n && t.timeline[end].Offset-start < w {
			sum += t.timeline[end].Visits
			end++
		}
		top.Insert(t.window(start, sum))
	}

	return top
}

func (t *BusyWindowTracker) window(offset, visits int64) domain.HourWindow {
	start := t.originLocal.Add(time.Duration(offset) * time.Second)
	return domain.HourWindow{
		Label:  domain.FormatClock(start, t.originOffset),
		Start:  start,
		Offset: offset,
		Visits: visits,
	}
}

func (t *BusyWindowTracker) Timeline() []TimelineEntry {
	out := make([]TimelineEntry, len(t.timeline))
	copy(out, t.timeline)
	return out
}

func (t *BusyWindowTracker) TimelineLen() int {
	return len(t.timeline)
}

// Overflows is the number of visits the dense counter could not hold.
func (t *BusyWindowTracker) Overflows() int64 {
	return t.overflows
}

func (t *BusyWindowTracker) OutOfOrder() int64 {
	return t.outOfOrder
}
