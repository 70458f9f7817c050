package domain

import (
	"fmt"
	"time"
)

const (
	MaxLineLength = 8192

	// ClockLayout is the wall-clock part of a CLF timestamp.
	ClockLayout = "02/Jan/2006:15:04:05"
)

// LogRecord is one parsed access-log line. Records are immutable once the
// parser hands them out.
type LogRecord struct {
	Host       string        `json:"host"`
	UTCTime    time.Time     `json:"utc_time"`
	LocalTime  time.Time     `json:"local_time"`
	UTCOffset  time.Duration `json:"utc_offset"`
	Method     string        `json:"method"`
	Resource   string        `json:"resource"`
	Protocol   string        `json:"protocol,omitempty"`
	StatusCode int           `json:"status_code"`
	Bytes      int64         `json:"bytes"`
	RawLine    string        `json:"raw_line,omitempty"`
}

// NewLogRecord builds a record from a zone-naive wall clock and its signed
// UTC offset. The offset is applied with its own sign: "+0200" moves the
// clock forward two hours and "-0400" moves it back four.
func NewLogRecord(host string, local time.Time, offset time.Duration) *LogRecord {
	local = NaiveClock(local)
	return &LogRecord{
		Host:      host,
		LocalTime: local,
		UTCOffset: offset,
		UTCTime:   local.Add(offset),
	}
}

// NaiveClock strips the location from t, keeping its wall-clock reading.
func NaiveClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// LocalAt returns the record's wall clock shifted by d.
func (r *LogRecord) LocalAt(d time.Duration) time.Time {
	return r.LocalTime.Add(d)
}

// Timestamp renders the record's time the way CLF prints it.
func (r *LogRecord) Timestamp() string {
	return FormatClock(r.LocalTime, r.UTCOffset)
}

// FormatClock renders a wall clock with a signed "+hhmm" offset suffix.
func FormatClock(local time.Time, offset time.Duration) string {
	return local.Format(ClockLayout) + " " + FormatOffset(offset)
}

func FormatOffset(offset time.Duration) string {
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	minutes := int(offset / time.Minute)
	return fmt.Sprintf("%c%02d%02d", sign, minutes/60, minutes%60)
}
