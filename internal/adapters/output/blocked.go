// Package output provides report and observer adapters for loginsight.
//
// This file implements the blocked-access report:
//   - BlockedLog: raw lines of every record that arrived during a block
//
// Features:
//   - Buffered I/O for high throughput (64KB buffer)
//   - Lines are written in input order, newline terminated
//
// Thread Safety: BlockedLog is safe for concurrent use, although the
// analyzer only calls it from one goroutine.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/xoelrdgz/loginsight/internal/domain"
)

const writeBufferSize = 64 * 1024

// BlockedLog appends raw blocked lines to a report file.
type BlockedLog struct {
	bufWriter *bufio.Writer // Buffered writer (64KB)
	file      *os.File      // File handle (nil when writing to a caller's writer)
	count     int64         // Lines written
	mu        sync.Mutex    // Protects writes
}

// NewBlockedLog creates the blocked-access report at path, truncating any
// previous report.
//
// Returns:
//   - Configured BlockedLog
//   - Error if the file cannot be created
func NewBlockedLog(path string) (*BlockedLog, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create blocked report: %w", err)
	}
	return &BlockedLog{
		bufWriter: bufio.NewWriterSize(file, writeBufferSize),
		file:      file,
	}, nil
}

// NewBlockedLogWriter writes blocked lines to w. Close flushes but does not
// close w.
func NewBlockedLogWriter(w io.Writer) *BlockedLog {
	return &BlockedLog{
		bufWriter: bufio.NewWriterSize(w, writeBufferSize),
	}
}

// Record appends rec's raw line.
//
// Returns:
//   - nil on success
//   - Error if the write fails
func (b *BlockedLog) Record(rec *domain.LogRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.bufWriter.WriteString(rec.RawLine); err != nil {
		return err
	}
	if err := b.bufWriter.WriteByte('\n'); err != nil {
		return err
	}
	b.count++
	return nil
}

func (b *BlockedLog) Count() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Flush forces buffered lines to the underlying writer.
func (b *BlockedLog) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bufWriter.Flush()
}

// Close flushes the buffer and closes the file.
func (b *BlockedLog) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.bufWriter.Flush(); err != nil {
		if b.file != nil {
			_ = b.file.Close()
		}
		return err
	}
	if b.file != nil {
		return b.file.Close()
	}
	return nil
}
