package output

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/loginsight/internal/adapters/input"
	"github.com/xoelrdgz/loginsight/pkg/sanitize"
)

const maxRejectLineLength = 1024

// RejectEntry is one line the parser refused.
type RejectEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
	Error     string    `json:"error"`
	RawLine   string    `json:"raw_line"`
}

// RejectLog records refused input lines as JSON lines for later analysis.
// A RejectLog with an empty path is disabled and drops everything.
//
// Thread Safety: Safe for concurrent use. The reader calls it from its own
// goroutine.
type RejectLog struct {
	file    *os.File
	writer  *bufio.Writer
	mu      sync.Mutex
	count   atomic.Int64
	enabled bool
	path    string
}

func NewRejectLog(path string) (*RejectLog, error) {
	if path == "" {
		return &RejectLog{enabled: false}, nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("path", path).Msg("Reject log initialized")

	return &RejectLog{
		file:    file,
		writer:  bufio.NewWriterSize(file, 16*1024),
		enabled: true,
		path:    path,
	}, nil
}

// OnReject implements ports.RejectObserver.
func (w *RejectLog) OnReject(line string, err error) {
	if !w.enabled {
		return
	}
	if werr := w.write(line, err); werr != nil {
		log.Warn().Err(werr).Str("path", w.path).Msg("Failed to write reject log")
	}
}

func (w *RejectLog) write(line string, cause error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry := RejectEntry{
		Timestamp: time.Now().UTC(),
		Reason:    input.RejectReason(cause),
		RawLine:   sanitize.Line(line, maxRejectLineLength),
	}
	if cause != nil {
		entry.Error = cause.Error()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if _, err := w.writer.Write(data); err != nil {
		return err
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return err
	}

	if w.count.Add(1)%100 == 0 {
		return w.writer.Flush()
	}
	return nil
}

func (w *RejectLog) Flush() error {
	if !w.enabled {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writer.Flush()
}

func (w *RejectLog) Close() error {
	if !w.enabled {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		_ = w.file.Close()
		return err
	}

	if count := w.count.Load(); count > 0 {
		log.Info().
			Int64("rejected", count).
			Str("path", w.path).
			Msg("Reject log contains refused lines")
	}

	return w.file.Close()
}

func (w *RejectLog) Count() int64 {
	return w.count.Load()
}

func (w *RejectLog) Enabled() bool {
	return w.enabled
}
