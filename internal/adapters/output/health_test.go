package output

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xoelrdgz/loginsight/internal/domain"
)

func TestReadinessCheckerPhases(t *testing.T) {
	tests := []struct {
		phase domain.Phase
		ready bool
	}{
		{domain.PhaseStarting, false},
		{domain.PhaseRunning, true},
		{domain.PhaseFinalizing, true},
		{domain.PhaseDone, true},
		{domain.PhaseFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.phase.String(), func(t *testing.T) {
			stats := domain.NewRunStats()
			stats.SetPhase(tt.phase)

			status := NewReadinessChecker(stats, 0).Check()
			assert.Equal(t, tt.ready, status.Ready)
			assert.Equal(t, tt.phase.String(), status.Phase)
			if !tt.ready {
				assert.NotEmpty(t, status.Reason)
			}
		})
	}
}

func TestReadinessCheckerCachesResult(t *testing.T) {
	stats := domain.NewRunStats()
	h := NewReadinessChecker(stats, time.Hour)

	assert.False(t, h.Check().Ready)
	stats.SetPhase(domain.PhaseRunning)
	assert.False(t, h.Check().Ready, "cached until the interval elapses")
}

func TestReadinessCheckerWithoutStats(t *testing.T) {
	status := NewReadinessChecker(nil, 0).Check()
	assert.False(t, status.Ready)
}

func TestReadinessCheckerServeHTTP(t *testing.T) {
	stats := domain.NewRunStats()
	stats.IncrementRecords()
	stats.IncrementRecords()
	stats.IncrementBlocked()
	stats.SetPhase(domain.PhaseRunning)

	rec := httptest.NewRecorder()
	NewReadinessChecker(stats, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var status ReadinessStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Ready)
	assert.Equal(t, "running", status.Phase)
	assert.Equal(t, int64(2), status.Records)
	assert.Equal(t, int64(1), status.Blocked)
}
