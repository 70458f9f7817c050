package input

import (
	"context"
	"strings"
	"sync"

	"github.com/nxadm/tail"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/loginsight/internal/domain"
	"github.com/xoelrdgz/loginsight/internal/ports"
)

// FileReader reads a closed log file from the first byte to EOF and emits the
// parsed records in file order.
type FileReader struct {
	path       string
	parser     ports.LogParser
	bufferSize int
	rejects    []ports.RejectObserver

	mu       sync.Mutex
	tail     *tail.Tail
	running  bool
	stopChan chan struct{}
}

func NewFileReader(path string, parser ports.LogParser, bufferSize int) *FileReader {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &FileReader{
		path:       path,
		parser:     parser,
		bufferSize: bufferSize,
		stopChan:   make(chan struct{}),
	}
}

// AddRejectObserver registers o for lines the parser refuses. Observers are
// called from the reader goroutine.
func (r *FileReader) AddRejectObserver(o ports.RejectObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejects = append(r.rejects, o)
}

func (r *FileReader) Start(ctx context.Context) (<-chan *domain.LogRecord, <-chan error) {
	recordChan := make(chan *domain.LogRecord, r.bufferSize)
	errChan := make(chan error, 1)

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		close(recordChan)
		close(errChan)
		return recordChan, errChan
	}
	r.running = true
	r.stopChan = make(chan struct{})
	stop := r.stopChan
	rejects := append([]ports.RejectObserver(nil), r.rejects...)
	r.mu.Unlock()

	go func() {
		defer close(recordChan)
		defer close(errChan)

		t, err := tail.TailFile(r.path, tail.Config{
			Follow:    false,
			ReOpen:    false,
			MustExist: true,
			Location:  &tail.SeekInfo{Offset: 0, Whence: 0},
			Logger:    tail.DiscardingLogger,
		})
		if err != nil {
			log.Error().Err(err).Str("path", r.path).Msg("Failed to open log file")
			errChan <- err
			return
		}
		defer func() { _ = t.Stop() }()

		r.mu.Lock()
		r.tail = t
		r.mu.Unlock()

		log.Debug().Str("path", r.path).Str("format", r.parser.Format()).Msg("Reading log file")

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case line, ok := <-t.Lines:
				if !ok {
					if err := t.Wait(); err != nil {
						errChan <- err
					}
					return
				}
				if line.Err != nil {
					errChan <- line.Err
					return
				}

				text := strings.TrimRight(line.Text, "\r")
				if text == "" {
					continue
				}

				rec, err := r.parser.Parse(text)
				if err != nil {
					log.Debug().Err(err).Str("line", truncateLine(text)).Msg("Rejected log line")
					for _, o := range rejects {
						o.OnReject(text, err)
					}
					continue
				}

				select {
				case recordChan <- rec:
				case <-ctx.Done():
					return
				case <-stop:
					return
				}
			}
		}
	}()

	return recordChan, errChan
}

func (r *FileReader) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil
	}

	close(r.stopChan)
	r.running = false

	if r.tail != nil {
		return r.tail.Stop()
	}
	return nil
}

func (r *FileReader) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func truncateLine(s string) string {
	const max = 256
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
