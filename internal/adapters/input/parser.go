package input

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xoelrdgz/loginsight/internal/domain"
	"github.com/xoelrdgz/loginsight/internal/ports"
)

var (
	ErrLineTooLong        = errors.New("line exceeds maximum length")
	ErrMalformedHost      = errors.New("malformed host delimiter")
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	ErrMissingOffset      = errors.New("missing utc offset")
	ErrUnsignedOffset     = errors.New("utc offset has no sign")
	ErrMalformedRequest   = errors.New("malformed request")
	ErrInvalidStatus      = errors.New("invalid status code")
	ErrInvalidBytes       = errors.New("invalid byte count")
)

const hostDelimiter = " - - "

// CommonLogParser parses NCSA Common Log Format lines:
//
//	host - - [01/Jul/1995:00:00:01 -0400] "GET /history/apollo/ HTTP/1.0" 200 6245
type CommonLogParser struct{}

func NewCommonLogParser() *CommonLogParser {
	return &CommonLogParser{}
}

func (p *CommonLogParser) Parse(line string) (*domain.LogRecord, error) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) > domain.MaxLineLength {
		return nil, ErrLineTooLong
	}

	hostEnd := strings.Index(line, hostDelimiter)
	if hostEnd <= 0 {
		return nil, ErrMalformedHost
	}
	host := line[:hostEnd]
	pos := hostEnd + len(hostDelimiter)

	if pos >= len(line) || line[pos] != '[' {
		return nil, fmt.Errorf("%w: missing '['", ErrMalformedTimestamp)
	}
	pos++
	tsEnd := skipUntil(line, pos, ']')
	if tsEnd == -1 {
		return nil, fmt.Errorf("%w: missing ']'", ErrMalformedTimestamp)
	}
	local, offset, err := parseTimestamp(line[pos:tsEnd])
	if err != nil {
		return nil, err
	}

	// The request spans the first and last quote on the line, which tolerates
	// stray quotes inside request paths.
	reqStart := strings.IndexByte(line, '"')
	reqEnd := strings.LastIndexByte(line, '"')
	if reqStart < 0 || reqEnd == reqStart {
		return nil, fmt.Errorf("%w: unbalanced quotes", ErrMalformedRequest)
	}
	method, resource, protocol, err := parseRequest(line[reqStart+1 : reqEnd])
	if err != nil {
		return nil, err
	}

	status, bytes, err := parseStatusBytes(line[reqEnd+1:])
	if err != nil {
		return nil, err
	}

	rec := domain.NewLogRecord(host, local, offset)
	rec.Method = method
	rec.Resource = resource
	rec.Protocol = protocol
	rec.StatusCode = status
	rec.Bytes = bytes
	rec.RawLine = line
	return rec, nil
}

func (p *CommonLogParser) Format() string {
	return "common"
}

func (p *CommonLogParser) Validate(line string) bool {
	return strings.Contains(line, hostDelimiter) &&
		containsByte(line, '[') &&
		containsByte(line, ']') &&
		containsByte(line, '"')
}

// parseTimestamp splits "01/Jul/1995:00:00:01 -0400" into a zone-naive wall
// clock and a signed offset.
func parseTimestamp(s string) (time.Time, time.Duration, error) {
	clock, zone, found := strings.Cut(strings.TrimSpace(s), " ")
	if !found || strings.TrimSpace(zone) == "" {
		return time.Time{}, 0, ErrMissingOffset
	}

	local, err := time.Parse(domain.ClockLayout, clock)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("%w: %v", ErrMalformedTimestamp, err)
	}

	offset, err := parseOffset(strings.TrimSpace(zone))
	if err != nil {
		return time.Time{}, 0, err
	}
	return local, offset, nil
}

// maxOffsetHours is the largest UTC offset in use (Line Islands, +1400).
const maxOffsetHours = 14

func parseOffset(s string) (time.Duration, error) {
	var sign time.Duration
	switch s[0] {
	case '+':
		sign = 1
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsignedOffset, s)
	}

	if len(s) != 5 {
		return 0, fmt.Errorf("%w: offset %q", ErrMalformedTimestamp, s)
	}
	for i := 1; i < 5; i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%w: offset %q", ErrMalformedTimestamp, s)
		}
	}
	hours := int(s[1]-'0')*10 + int(s[2]-'0')
	minutes := int(s[3]-'0')*10 + int(s[4]-'0')
	if hours > maxOffsetHours || minutes > 59 {
		return 0, fmt.Errorf("%w: offset %q", ErrMalformedTimestamp, s)
	}

	return sign * (time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute), nil
}

// parseRequest splits `GET /path HTTP/1.0`. The resource is everything between
// the first and last space; a request without a protocol keeps the remainder.
func parseRequest(s string) (method, resource, protocol string, err error) {
	firstSpace := skipUntil(s, 0, ' ')
	if firstSpace == -1 {
		return "", "", "", fmt.Errorf("%w: no resource", ErrMalformedRequest)
	}
	method = s[:firstSpace]

	lastSpace := strings.LastIndexByte(s, ' ')
	if lastSpace <= firstSpace+1 {
		resource = s[firstSpace+1:]
	} else {
		resource = s[firstSpace+1 : lastSpace]
		protocol = s[lastSpace+1:]
	}

	return method, strings.TrimSpace(resource), protocol, nil
}

func parseStatusBytes(s string) (int, int64, error) {
	fields := strings.Fields(s)
	if len(fields) < 1 {
		return 0, 0, fmt.Errorf("%w: missing", ErrInvalidStatus)
	}
	status, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidStatus, fields[0])
	}

	if len(fields) < 2 {
		return 0, 0, fmt.Errorf("%w: missing", ErrInvalidBytes)
	}
	if fields[1] == "-" {
		return status, 0, nil
	}
	bytes, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || bytes < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidBytes, fields[1])
	}
	return status, bytes, nil
}

// JSONLogEntry mirrors an nginx log_format with escape=json.
type JSONLogEntry struct {
	Timestamp      string `json:"timestamp"`
	RemoteAddr     string `json:"remote_addr"`
	RequestMethod  string `json:"request_method"`
	RequestURI     string `json:"request_uri"`
	Status         int    `json:"status"`
	BodyBytesSent  int64  `json:"body_bytes_sent"`
	ServerProtocol string `json:"server_protocol,omitempty"`
	Protocol       string `json:"protocol,omitempty"`
}

type JSONParser struct {
	maxLineLength int
}

func NewJSONParser() *JSONParser {
	return &JSONParser{
		maxLineLength: domain.MaxLineLength,
	}
}

func (p *JSONParser) Parse(line string) (*domain.LogRecord, error) {
	line = strings.TrimSpace(line)
	if len(line) > p.maxLineLength {
		return nil, ErrLineTooLong
	}
	if len(line) < 2 || line[0] != '{' {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedRequest)
	}

	var entry JSONLogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}

	if entry.RemoteAddr == "" {
		return nil, ErrMalformedHost
	}
	if entry.Timestamp == "" {
		return nil, ErrMissingOffset
	}
	ts, err := time.Parse(time.RFC3339, entry.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTimestamp, err)
	}
	if entry.RequestURI == "" {
		return nil, fmt.Errorf("%w: no resource", ErrMalformedRequest)
	}
	if entry.Status == 0 {
		return nil, fmt.Errorf("%w: missing", ErrInvalidStatus)
	}
	if entry.BodyBytesSent < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBytes, entry.BodyBytesSent)
	}

	// The zone is the record's signed offset, applied as CLF applies it.
	_, zoneSeconds := ts.Zone()
	rec := domain.NewLogRecord(entry.RemoteAddr, ts, time.Duration(zoneSeconds)*time.Second)
	rec.Method = entry.RequestMethod
	rec.Resource = entry.RequestURI
	rec.StatusCode = entry.Status
	rec.Bytes = entry.BodyBytesSent
	rec.RawLine = line
	if entry.ServerProtocol != "" {
		rec.Protocol = entry.ServerProtocol
	} else {
		rec.Protocol = entry.Protocol
	}
	return rec, nil
}

func (p *JSONParser) Format() string {
	return "json"
}

func (p *JSONParser) Validate(line string) bool {
	return len(line) > 10 && line[0] == '{' && line[len(line)-1] == '}'
}

func skipUntil(s string, pos int, char byte) int {
	for i := pos; i < len(s); i++ {
		if s[i] == char {
			return i
		}
	}
	return -1
}

func containsByte(s string, c byte) bool {
	return strings.IndexByte(s, c) >= 0
}

type AutoDetectParser struct {
	jsonParser   *JSONParser
	commonParser *CommonLogParser
}

func NewAutoDetectParser() *AutoDetectParser {
	return &AutoDetectParser{
		jsonParser:   NewJSONParser(),
		commonParser: NewCommonLogParser(),
	}
}

func (p *AutoDetectParser) Parse(line string) (*domain.LogRecord, error) {
	if len(line) > 0 && line[0] == '{' {
		rec, err := p.jsonParser.Parse(line)
		if err == nil {
			return rec, nil
		}
	}
	return p.commonParser.Parse(line)
}

func (p *AutoDetectParser) Format() string {
	return "auto"
}

func (p *AutoDetectParser) Validate(line string) bool {
	return p.jsonParser.Validate(line) || p.commonParser.Validate(line)
}

// NewParser returns the parser for a configured input format.
func NewParser(format string) (ports.LogParser, error) {
	switch format {
	case "", "common", "clf":
		return NewCommonLogParser(), nil
	case "json":
		return NewJSONParser(), nil
	case "auto":
		return NewAutoDetectParser(), nil
	default:
		return nil, fmt.Errorf("unknown input format %q", format)
	}
}

// RejectReason maps a parse error to a short, stable label for metrics.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrLineTooLong):
		return "line_too_long"
	case errors.Is(err, ErrMalformedHost):
		return "host"
	case errors.Is(err, ErrUnsignedOffset):
		return "unsigned_offset"
	case errors.Is(err, ErrMissingOffset):
		return "missing_offset"
	case errors.Is(err, ErrMalformedTimestamp):
		return "timestamp"
	case errors.Is(err, ErrMalformedRequest):
		return "request"
	case errors.Is(err, ErrInvalidStatus):
		return "status"
	case errors.Is(err, ErrInvalidBytes):
		return "bytes"
	default:
		return "other"
	}
}
