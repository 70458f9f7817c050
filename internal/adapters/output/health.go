package output

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/xoelrdgz/loginsight/internal/domain"
)

type ReadinessStatus struct {
	Ready   bool          `json:"ready"`
	Phase   string        `json:"phase"`
	Records int64         `json:"records"`
	Blocked int64         `json:"blocked"`
	Uptime  time.Duration `json:"uptime_ns"`
	Reason  string        `json:"reason,omitempty"`
}

// ReadinessChecker reports whether a pass is making or has made progress.
// Results are cached for CheckInterval.
type ReadinessChecker struct {
	stats *domain.RunStats

	lastCheck     ReadinessStatus
	lastCheckTime time.Time
	lastCheckMu   sync.RWMutex
	checkInterval time.Duration
}

func NewReadinessChecker(stats *domain.RunStats, checkInterval time.Duration) *ReadinessChecker {
	if checkInterval < 0 {
		checkInterval = 0
	}
	return &ReadinessChecker{
		stats:         stats,
		checkInterval: checkInterval,
	}
}

func (h *ReadinessChecker) Check() ReadinessStatus {
	h.lastCheckMu.RLock()
	if h.checkInterval > 0 && !h.lastCheckTime.IsZero() && time.Since(h.lastCheckTime) < h.checkInterval {
		cached := h.lastCheck
		h.lastCheckMu.RUnlock()
		return cached
	}
	h.lastCheckMu.RUnlock()

	status := h.performCheck()

	h.lastCheckMu.Lock()
	h.lastCheck = status
	h.lastCheckTime = time.Now()
	h.lastCheckMu.Unlock()

	return status
}

func (h *ReadinessChecker) performCheck() ReadinessStatus {
	if h.stats == nil {
		return ReadinessStatus{Phase: "unknown", Reason: "no pass attached"}
	}

	phase := h.stats.Phase()
	status := ReadinessStatus{
		Phase:   phase.String(),
		Records: h.stats.Records(),
		Blocked: h.stats.Blocked(),
		Uptime:  h.stats.Elapsed(),
	}

	switch phase {
	case domain.PhaseRunning, domain.PhaseFinalizing, domain.PhaseDone:
		status.Ready = true
	case domain.PhaseStarting:
		status.Reason = "input not opened yet"
	case domain.PhaseFailed:
		status.Reason = "pass failed"
	default:
		status.Reason = "unknown phase"
	}
	return status
}

func (h *ReadinessChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check()

	w.Header().Set("Content-Type", "application/json")
	if status.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}
