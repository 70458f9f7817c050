package output

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/loginsight/internal/domain"
)

// BlockEventLog writes every scheduled block as one JSON object per line.
//
// Features:
//   - Buffered writes for high throughput
//   - Periodic flush every second
//   - Optional pretty-printing
//   - File sync on flush for durability
type BlockEventLog struct {
	bufWriter *bufio.Writer // Buffered writer (64KB)
	file      *os.File      // File handle (nil for stdout)
	mu        sync.Mutex    // Protects writes
	encoder   *json.Encoder // Reused encoder
	count     int64         // Events written
	stopFlush chan struct{} // Stop periodic flush
	stopOnce  sync.Once
}

// StdoutPath as a FilePath sends block events to standard output.
const StdoutPath = "-"

// BlockEventLogConfig configures block event output.
type BlockEventLogConfig struct {
	FilePath string // Output file path, StdoutPath, or empty for discard
	Stdout   bool   // Write to stdout
	Pretty   bool   // Pretty-print JSON
}

// NewBlockEventLog creates a block event log.
//
// Output Priority:
//  1. Stdout if config.Stdout is true or FilePath is StdoutPath
//  2. File if config.FilePath is set (appended)
//  3. io.Discard otherwise
//
// File Permissions: 0600 (owner read/write only)
func NewBlockEventLog(config BlockEventLogConfig) (*BlockEventLog, error) {
	var writer io.Writer
	var file *os.File

	if config.Stdout || config.FilePath == StdoutPath {
		writer = os.Stdout
	} else if config.FilePath != "" {
		var err error
		file, err = os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, err
		}
		writer = file
	} else {
		writer = io.Discard
	}

	return newBlockEventLog(writer, file, config.Pretty), nil
}

func newBlockEventLog(w io.Writer, file *os.File, pretty bool) *BlockEventLog {
	bufWriter := bufio.NewWriterSize(w, writeBufferSize)
	l := &BlockEventLog{
		bufWriter: bufWriter,
		file:      file,
		stopFlush: make(chan struct{}),
	}

	l.encoder = json.NewEncoder(bufWriter)
	l.encoder.SetEscapeHTML(false)
	if pretty {
		l.encoder.SetIndent("", "  ")
	}

	go l.periodicFlush()
	return l
}

// periodicFlush flushes the buffer every second until Close.
func (l *BlockEventLog) periodicFlush() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := l.Flush(); err != nil {
				log.Warn().Err(err).Msg("Failed to flush block event log")
			}
		case <-l.stopFlush:
			return
		}
	}
}

// OnBlock implements ports.BlockObserver. Encoding failures are logged since
// the analysis pass must not stop for an audit trail.
func (l *BlockEventLog) OnBlock(event *domain.BlockEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.encoder.Encode(event); err != nil {
		log.Error().Err(err).Str("host", event.Host).Msg("Failed to write block event")
		return
	}
	l.count++
}

func (l *BlockEventLog) Count() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Flush forces buffered data to disk.
func (l *BlockEventLog) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.bufWriter.Flush(); err != nil {
		return err
	}
	if l.file != nil {
		return l.file.Sync()
	}
	return nil
}

// Close stops periodic flushing, flushes remaining events and closes the
// file.
func (l *BlockEventLog) Close() error {
	l.stopOnce.Do(func() { close(l.stopFlush) })

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.bufWriter.Flush(); err != nil {
		return err
	}

	if l.file != nil {
		if err := l.file.Sync(); err != nil {
			return err
		}
		return l.file.Close()
	}
	return nil
}

// RecentBlocks keeps the most recent block events in a fixed-size ring for
// the console summary.
//
// Thread Safety: Safe for concurrent access via RWMutex.
type RecentBlocks struct {
	events    []*domain.BlockEvent // Ring buffer storage
	head      int                  // Next write position
	count     int                  // Current event count
	maxEvents int                  // Buffer capacity
	mu        sync.RWMutex
}

// NewRecentBlocks creates a ring holding up to maxEvents (default: 10).
func NewRecentBlocks(maxEvents int) *RecentBlocks {
	if maxEvents <= 0 {
		maxEvents = 10
	}
	return &RecentBlocks{
		events:    make([]*domain.BlockEvent, maxEvents),
		maxEvents: maxEvents,
	}
}

// OnBlock implements ports.BlockObserver. Overwrites the oldest event when
// full.
func (r *RecentBlocks) OnBlock(event *domain.BlockEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[r.head] = event
	r.head = (r.head + 1) % r.maxEvents
	if r.count < r.maxEvents {
		r.count++
	}
}

// Events returns the stored events, oldest first.
func (r *RecentBlocks) Events() []*domain.BlockEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.BlockEvent, r.count)
	start := 0
	if r.count == r.maxEvents {
		start = r.head
	}
	for i := 0; i < r.count; i++ {
		result[i] = r.events[(start+i)%r.maxEvents]
	}
	return result
}

func (r *RecentBlocks) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}
