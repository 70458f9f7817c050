package ports

import (
	"context"

	"github.com/xoelrdgz/loginsight/internal/domain"
)

// RecordReader streams parsed records in input order.
//
// Start returns a record channel and an error channel. Both are closed when
// the input is exhausted, the context is cancelled, or Stop is called.
// Errors on the error channel are I/O failures; lines that fail to parse are
// reported to a RejectObserver instead and never stop the stream.
type RecordReader interface {
	Start(ctx context.Context) (<-chan *domain.LogRecord, <-chan error)
	Stop() error
}

// LogParser turns one raw line into a record.
type LogParser interface {
	Parse(line string) (*domain.LogRecord, error)
	Format() string
}

// RejectObserver is notified of every line the parser refused.
type RejectObserver interface {
	OnReject(line string, err error)
}
