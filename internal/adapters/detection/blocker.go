// Package detection implements brute-force login blocking for loginsight.
//
// This file provides stateful, per-source tracking of failed logins over a
// time-ordered record stream. A source that fails too often within a short
// window is blocked for a fixed period, and every record it sends while
// blocked is reported instead of being treated as ordinary traffic.
//
// Detection Rule:
//   - A failed login (401 by default) is pushed onto the source's history
//   - If the newest and oldest of the last N failures are less than the
//     failure window apart, the source is blocked until the failing instant
//     plus the block duration
//   - A successful login (200 by default) forgets the source's history
//
// Thread Safety: NOT thread-safe. The analyzer owns the blocker and calls it
// from a single goroutine in input order.
//
// Memory Management:
//   - Histories are allocated lazily on the first failure
//   - Prune drops state that can no longer influence a decision
package detection

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/loginsight/internal/domain"
	"github.com/xoelrdgz/loginsight/internal/ports"
)

// FailureSentinel fills history slots that have not seen a failure yet. It
// lies far enough in the past that a partly filled history never fits
// inside the failure window.
var FailureSentinel = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// FailureHistory is a fixed-size ring of failure instants, newest first.
//
// Thread Safety: NOT thread-safe. Caller must serialize access.
type FailureHistory struct {
	slots []time.Time // Ring storage
	head  int         // Index of the newest failure
}

// NewFailureHistory creates a history with every slot set to
// FailureSentinel.
//
// Parameters:
//   - capacity: Number of failures remembered (default: 3 if <= 0)
func NewFailureHistory(capacity int) *FailureHistory {
	if capacity <= 0 {
		capacity = 3
	}
	slots := make([]time.Time, capacity)
	for i := range slots {
		slots[i] = FailureSentinel
	}
	return &FailureHistory{slots: slots}
}

// Push records a failure as the newest entry, dropping the oldest.
//
// Complexity: O(1)
func (h *FailureHistory) Push(t time.Time) {
	h.head = (h.head - 1 + len(h.slots)) % len(h.slots)
	h.slots[h.head] = t
}

func (h *FailureHistory) Newest() time.Time {
	return h.slots[h.head]
}

func (h *FailureHistory) Oldest() time.Time {
	return h.slots[(h.head+len(h.slots)-1)%len(h.slots)]
}

// Span is the distance between the newest and oldest remembered failure.
// It saturates instead of overflowing when a sentinel is still present.
func (h *FailureHistory) Span() time.Duration {
	return h.Newest().Sub(h.Oldest())
}

func (h *FailureHistory) Cap() int {
	return len(h.slots)
}

// Snapshot returns the history newest first, sentinels included.
func (h *FailureHistory) Snapshot() []time.Time {
	out := make([]time.Time, len(h.slots))
	for i := range out {
		out[i] = h.slots[(h.head+i)%len(h.slots)]
	}
	return out
}

// BlockerConfig configures the login blocker.
type BlockerConfig struct {
	FailureStatus int           // Status that counts as a failed login (default: 401)
	SuccessStatus int           // Status that clears the history (default: 200)
	MaxFailures   int           // Failures that must fit in the window (default: 3)
	FailureWindow time.Duration // Window the failures must fit in (default: 20s)
	BlockDuration time.Duration // How long a block lasts (default: 5m)
	PruneInterval time.Duration // Log time between prunes, 0 disables (default: 10m)
}

// DefaultBlockerConfig returns the classic three-strikes rule.
//
// Defaults:
//   - 3 failed logins (401) within 20s block the source for 5 minutes
//   - a 200 response resets the source
func DefaultBlockerConfig() BlockerConfig {
	return BlockerConfig{
		FailureStatus: 401,
		SuccessStatus: 200,
		MaxFailures:   3,
		FailureWindow: 20 * time.Second,
		BlockDuration: 5 * time.Minute,
		PruneInterval: 10 * time.Minute,
	}
}

// LoginBlocker decides, record by record, whether a source is currently
// blocked and schedules new blocks for sources that keep failing.
//
// Detection Strategy:
//  1. A source with an active block is Blocked until its unblock instant
//  2. An expired block is forgotten and the record is evaluated normally
//  3. Failures feed the source's history; a full history that fits in the
//     failure window schedules a block
//  4. Successes clear the history
type LoginBlocker struct {
	cfg BlockerConfig

	histories map[string]*FailureHistory // Source -> recent failures
	blocks    map[string]time.Time       // Source -> unblock instant

	observers []ports.BlockObserver

	blocksScheduled int64
	lastPrune       time.Time
}

// NewLoginBlocker creates a blocker. Zero fields in cfg fall back to
// DefaultBlockerConfig.
func NewLoginBlocker(cfg BlockerConfig) *LoginBlocker {
	def := DefaultBlockerConfig()
	if cfg.FailureStatus == 0 {
		cfg.FailureStatus = def.FailureStatus
	}
	if cfg.SuccessStatus == 0 {
		cfg.SuccessStatus = def.SuccessStatus
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.FailureWindow <= 0 {
		cfg.FailureWindow = def.FailureWindow
	}
	if cfg.BlockDuration <= 0 {
		cfg.BlockDuration = def.BlockDuration
	}
	if cfg.PruneInterval < 0 {
		cfg.PruneInterval = 0
	}

	return &LoginBlocker{
		cfg:       cfg,
		histories: make(map[string]*FailureHistory),
		blocks:    make(map[string]time.Time),
	}
}

// AddObserver registers o to be notified of every newly scheduled block.
func (b *LoginBlocker) AddObserver(o ports.BlockObserver) {
	b.observers = append(b.observers, o)
}

// Process evaluates one record and updates the source's state.
//
// Parameters:
//   - rec: The next record in input order
//
// Returns:
//   - DecisionBlocked if the source is inside an active block; the record
//     leaves no trace in the blocker's state
//   - DecisionAllowed otherwise
//
// Behavior:
//   - An existing block is never extended or replaced while in force
//   - A block ends exactly at its unblock instant
func (b *LoginBlocker) Process(rec *domain.LogRecord) domain.Decision {
	now := rec.UTCTime
	b.maybePrune(now)

	if until, ok := b.blocks[rec.Host]; ok {
		if now.Before(until) {
			return domain.DecisionBlocked
		}
		delete(b.blocks, rec.Host)
	}

	switch rec.StatusCode {
	case b.cfg.FailureStatus:
		b.recordFailure(rec)
	case b.cfg.SuccessStatus:
		delete(b.histories, rec.Host)
	}

	return domain.DecisionAllowed
}

func (b *LoginBlocker) recordFailure(rec *domain.LogRecord) {
	h, ok := b.histories[rec.Host]
	if !ok {
		h = NewFailureHistory(b.cfg.MaxFailures)
		b.histories[rec.Host] = h
	}
	h.Push(rec.UTCTime)

	if h.Span() >= b.cfg.FailureWindow {
		return
	}
	if _, blocked := b.blocks[rec.Host]; blocked {
		return
	}

	until := rec.UTCTime.Add(b.cfg.BlockDuration)
	b.blocks[rec.Host] = until
	b.blocksScheduled++

	log.Debug().
		Str("host", rec.Host).
		Time("until", until).
		Msg("Blocking source after repeated login failures")

	if len(b.observers) == 0 {
		return
	}
	event := domain.NewBlockEvent(rec, b.cfg.MaxFailures, until)
	for _, o := range b.observers {
		o.OnBlock(event)
	}
}

// BlockedUntil returns the unblock instant for host, if a block is
// scheduled. An expired block is still reported until the host's next
// record or the next prune removes it.
func (b *LoginBlocker) BlockedUntil(host string) (time.Time, bool) {
	until, ok := b.blocks[host]
	return until, ok
}

// History returns host's failure history newest first, or nil when the
// host has no recorded failures.
func (b *LoginBlocker) History(host string) []time.Time {
	h, ok := b.histories[host]
	if !ok {
		return nil
	}
	return h.Snapshot()
}

// TrackedSources is the number of sources with a failure history.
func (b *LoginBlocker) TrackedSources() int {
	return len(b.histories)
}

// BlockedSources is the number of sources with a scheduled block.
func (b *LoginBlocker) BlockedSources() int {
	return len(b.blocks)
}

func (b *LoginBlocker) BlocksScheduled() int64 {
	return b.blocksScheduled
}

func (b *LoginBlocker) Config() BlockerConfig {
	return b.cfg
}

func (b *LoginBlocker) maybePrune(now time.Time) {
	if b.cfg.PruneInterval == 0 {
		return
	}
	if b.lastPrune.IsZero() {
		b.lastPrune = now
		return
	}
	if now.Sub(b.lastPrune) >= b.cfg.PruneInterval {
		b.Prune(now)
		b.lastPrune = now
	}
}

// Prune drops blocks that have ended and histories whose newest failure is
// older than the failure window. Neither can change a future decision: an
// ended block would be removed on the source's next record, and a stale
// history spans more than the window just like a fresh one.
//
// Parameters:
//   - now: Current log time
//
// Returns:
//   - Number of entries removed
func (b *LoginBlocker) Prune(now time.Time) int {
	removed := 0
	for host, until := range b.blocks {
		if !now.Before(until) {
			delete(b.blocks, host)
			removed++
		}
	}

	cutoff := now.Add(-b.cfg.FailureWindow)
	for host, h := range b.histories {
		if h.Newest().Before(cutoff) {
			delete(b.histories, host)
			removed++
		}
	}

	if removed > 0 {
		log.Debug().
			Int("removed", removed).
			Int("tracked", len(b.histories)).
			Int("blocked", len(b.blocks)).
			Msg("Pruned login blocker state")
	}
	return removed
}
