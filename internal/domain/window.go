package domain

import (
	"slices"
	"time"
)

// DefaultTopWindows is the number of busy windows kept in a ranking.
const DefaultTopWindows = 10

// HourWindow is one ranked traffic window. Start is the local wall clock of
// the first event in the window and Offset its distance in seconds from the
// first event of the log.
type HourWindow struct {
	Label  string    `json:"label"`
	Start  time.Time `json:"start"`
	Offset int64     `json:"offset"`
	Visits int64     `json:"visits"`
}

// TopWindows is a bounded ranking of windows by visits, highest first.
// Windows with equal visits stay in the order they were inserted.
type TopWindows struct {
	capacity int
	entries  []HourWindow
}

func NewTopWindows(capacity int) *TopWindows {
	if capacity <= 0 {
		capacity = DefaultTopWindows
	}
	return &TopWindows{
		capacity: capacity,
		entries:  make([]HourWindow, 0, capacity+1),
	}
}

// Insert ranks w below every entry with at least as many visits. The lowest
// entry falls off when the ranking is full. Reports whether w was kept.
func (t *TopWindows) Insert(w HourWindow) bool {
	pos := len(t.entries)
	for i := range t.entries {
		if t.entries[i].Visits < w.Visits {
			pos = i
			break
		}
	}
	if pos >= t.capacity {
		return false
	}

	t.entries = slices.Insert(t.entries, pos, w)
	if len(t.entries) > t.capacity {
		t.entries = t.entries[:t.capacity]
	}
	return true
}

// Entries returns the ranked windows, highest first. Unused slots are not
// included.
func (t *TopWindows) Entries() []HourWindow {
	return slices.Clone(t.entries)
}

func (t *TopWindows) Len() int {
	return len(t.entries)
}

func (t *TopWindows) Cap() int {
	return t.capacity
}

// Best returns the busiest window, if any.
func (t *TopWindows) Best() (HourWindow, bool) {
	if len(t.entries) == 0 {
		return HourWindow{}, false
	}
	return t.entries[0], true
}
