package ports

import "github.com/xoelrdgz/loginsight/internal/domain"

// ProcessingObserver defines the interface for observing processing results.
// Used to track metrics for every record the analyzer consumes.
type ProcessingObserver interface {
	// ObserveRecord records the blocking decision taken for one record.
	ObserveRecord(rec *domain.LogRecord, decision domain.Decision)
}

// ProgressObserver receives periodic snapshots of the analyzer's working
// state. Called from the analyzer goroutine.
type ProgressObserver interface {
	ObserveProgress(p domain.Progress)
}
