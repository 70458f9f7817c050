// Package ports defines the primary and secondary port interfaces following
// hexagonal architecture (ports and adapters pattern).
//
// This package contains interfaces that define the contract between the core
// analysis logic and external infrastructure (input files, report files,
// metrics exporters).
//
// Design Principles:
//   - Interfaces are small and focused
//   - Dependencies flow inward (core analysis has no I/O dependencies)
//   - Implementations provided by adapters in internal/adapters/
package ports

import (
	"github.com/xoelrdgz/loginsight/internal/domain"
)

// BlockedSink receives every record that arrived while its source was blocked.
//
// Implementations:
//   - BlockedLog: appends the raw line to the blocked-access report
//
// Records arrive in input order. The analyzer is the only caller, so
// implementations need not be safe for concurrent use.
//
//go:generate mockgen -source=sink.go -destination=./mocks/sink_mock.go -package=mocks
type BlockedSink interface {
	// Record appends one blocked access.
	//
	// Returns:
	//   - nil on success
	//   - Error if the write fails (the analyzer aborts the pass)
	Record(rec *domain.LogRecord) error

	// Close flushes pending output and releases resources.
	Close() error
}

// BlockObserver is notified when a source crosses the failure threshold and a
// new block is scheduled.
//
// Implementations:
//   - BlockEventLog: JSON lines audit of scheduled blocks
//   - PrometheusMetrics: blocks_scheduled_total counter
//
// Performance: called synchronously from the analysis loop, keep it cheap.
type BlockObserver interface {
	OnBlock(event *domain.BlockEvent)
}

// ReportWriter persists the end-of-pass reports.
type ReportWriter interface {
	// WriteReports writes hosts, busy hours and resources reports.
	//
	// Parameters:
	//   - summary: Finalized results of the pass
	//
	// Returns:
	//   - nil on success
	//   - Error if any report could not be written
	WriteReports(summary *domain.Summary) error
}
