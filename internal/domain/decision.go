package domain

import "time"

// Decision is the per-record outcome of login blocking.
type Decision int

const (
	DecisionAllowed Decision = iota
	DecisionBlocked
)

func (d Decision) String() string {
	switch d {
	case DecisionAllowed:
		return "allowed"
	case DecisionBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// BlockEvent is emitted once when a source crosses the failure threshold.
type BlockEvent struct {
	ID       string    `json:"id"`
	Host     string    `json:"host"`
	Failures int       `json:"failures"`
	FailedAt time.Time `json:"failed_at"`
	Until    time.Time `json:"until"`
	RawLine  string    `json:"raw_line,omitempty"`
}

// NewBlockEvent stamps a block scheduled for rec's host at rec's time.
func NewBlockEvent(rec *LogRecord, failures int, until time.Time) *BlockEvent {
	return &BlockEvent{
		ID:       NewID(),
		Host:     rec.Host,
		Failures: failures,
		FailedAt: rec.UTCTime,
		Until:    until,
		RawLine:  rec.RawLine,
	}
}

// Duration is how long the block stays in force.
func (e *BlockEvent) Duration() time.Duration {
	return e.Until.Sub(e.FailedAt)
}
