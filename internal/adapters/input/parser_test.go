package input

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommonLogParser(t *testing.T) {
	parser := NewCommonLogParser()

	tests := []struct {
		name         string
		line         string
		wantHost     string
		wantMethod   string
		wantResource string
		wantProtocol string
		wantStatus   int
		wantBytes    int64
	}{
		{
			name:         "nasa request",
			line:         `199.72.81.55 - - [01/Jul/1995:00:00:01 -0400] "GET /history/apollo/ HTTP/1.0" 200 6245`,
			wantHost:     "199.72.81.55",
			wantMethod:   "GET",
			wantResource: "/history/apollo/",
			wantProtocol: "HTTP/1.0",
			wantStatus:   200,
			wantBytes:    6245,
		},
		{
			name:         "hostname source and dash bytes",
			line:         `unicomp6.unicomp.net - - [01/Jul/1995:00:00:06 -0400] "GET /shuttle/countdown/ HTTP/1.0" 304 -`,
			wantHost:     "unicomp6.unicomp.net",
			wantMethod:   "GET",
			wantResource: "/shuttle/countdown/",
			wantProtocol: "HTTP/1.0",
			wantStatus:   304,
			wantBytes:    0,
		},
		{
			name:         "failed login",
			line:         `10.0.0.1 - - [28/Dec/2025:10:00:00 +0000] "POST /login HTTP/1.1" 401 1420`,
			wantHost:     "10.0.0.1",
			wantMethod:   "POST",
			wantResource: "/login",
			wantProtocol: "HTTP/1.1",
			wantStatus:   401,
			wantBytes:    1420,
		},
		{
			name:         "request without protocol",
			line:         `burger.letters.com - - [01/Jul/1995:00:00:12 -0400] "GET /images/NASA-logosmall.gif" 200 786`,
			wantHost:     "burger.letters.com",
			wantMethod:   "GET",
			wantResource: "/images/NASA-logosmall.gif",
			wantStatus:   200,
			wantBytes:    786,
		},
		{
			name:         "resource with spaces",
			line:         `d104.aa.net - - [01/Jul/1995:00:00:13 -0400] "GET /shuttle/missions/sts 71.html HTTP/1.0" 404 -`,
			wantHost:     "d104.aa.net",
			wantMethod:   "GET",
			wantResource: "/shuttle/missions/sts 71.html",
			wantProtocol: "HTTP/1.0",
			wantStatus:   404,
		},
		{
			name:         "quote inside request",
			line:         `205.212.115.106 - - [01/Jul/1995:00:00:12 -0400] "GET /a"b.html HTTP/1.0" 200 10`,
			wantHost:     "205.212.115.106",
			wantMethod:   "GET",
			wantResource: `/a"b.html`,
			wantProtocol: "HTTP/1.0",
			wantStatus:   200,
			wantBytes:    10,
		},
		{
			name:         "trailing carriage return",
			line:         "10.0.0.2 - - [01/Jul/1995:00:00:01 -0400] \"GET / HTTP/1.0\" 200 7074\r",
			wantHost:     "10.0.0.2",
			wantMethod:   "GET",
			wantResource: "/",
			wantProtocol: "HTTP/1.0",
			wantStatus:   200,
			wantBytes:    7074,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := parser.Parse(tc.line)
			require.NoError(t, err)
			require.NotNil(t, rec)

			assert.Equal(t, tc.wantHost, rec.Host)
			assert.Equal(t, tc.wantMethod, rec.Method)
			assert.Equal(t, tc.wantResource, rec.Resource)
			assert.Equal(t, tc.wantProtocol, rec.Protocol)
			assert.Equal(t, tc.wantStatus, rec.StatusCode)
			assert.Equal(t, tc.wantBytes, rec.Bytes)
			assert.NotContains(t, rec.RawLine, "\r")
		})
	}
}

func TestCommonLogParserTimestamp(t *testing.T) {
	parser := NewCommonLogParser()

	rec, err := parser.Parse(`199.72.81.55 - - [01/Jul/1995:00:00:01 -0400] "GET / HTTP/1.0" 200 1`)
	require.NoError(t, err)

	assert.Equal(t, time.Date(1995, time.July, 1, 0, 0, 1, 0, time.UTC), rec.LocalTime)
	assert.Equal(t, -4*time.Hour, rec.UTCOffset)
	assert.True(t, time.Date(1995, time.June, 30, 20, 0, 1, 0, time.UTC).Equal(rec.UTCTime))
	assert.Equal(t, "01/Jul/1995:00:00:01 -0400", rec.Timestamp())

	rec, err = parser.Parse(`10.0.0.1 - - [01/Jul/1995:00:00:01 +0530] "GET / HTTP/1.0" 200 1`)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Hour+30*time.Minute, rec.UTCOffset)
	assert.True(t, time.Date(1995, time.July, 1, 5, 30, 1, 0, time.UTC).Equal(rec.UTCTime))

	rec, err = parser.Parse(`10.0.0.1 - - [01/Jul/1995:00:00:01 +1400] "GET / HTTP/1.0" 200 1`)
	require.NoError(t, err)
	assert.Equal(t, 14*time.Hour, rec.UTCOffset)
}

func TestParsersApplyOffsetSign(t *testing.T) {
	tests := []struct {
		name    string
		clf     string
		json    string
		wantUTC time.Time
	}{
		{
			name:    "positive offset",
			clf:     `10.0.0.1 - - [01/Jul/1995:10:00:00 +0200] "GET / HTTP/1.0" 200 1`,
			json:    `{"timestamp":"1995-07-01T10:00:00+02:00","remote_addr":"10.0.0.1","request_uri":"/","status":200}`,
			wantUTC: time.Date(1995, time.July, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			name:    "negative offset",
			clf:     `10.0.0.1 - - [01/Jul/1995:10:00:00 -0400] "GET / HTTP/1.0" 200 1`,
			json:    `{"timestamp":"1995-07-01T10:00:00-04:00","remote_addr":"10.0.0.1","request_uri":"/","status":200}`,
			wantUTC: time.Date(1995, time.July, 1, 6, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clf, err := NewCommonLogParser().Parse(tc.clf)
			require.NoError(t, err)
			assert.True(t, tc.wantUTC.Equal(clf.UTCTime), "clf got %s", clf.UTCTime)

			js, err := NewJSONParser().Parse(tc.json)
			require.NoError(t, err)
			assert.True(t, tc.wantUTC.Equal(js.UTCTime), "json got %s", js.UTCTime)
		})
	}
}

func TestCommonLogParserRejects(t *testing.T) {
	parser := NewCommonLogParser()

	tests := []struct {
		name    string
		line    string
		wantErr error
	}{
		{"empty line", "", ErrMalformedHost},
		{"garbage", "this is not a valid log line", ErrMalformedHost},
		{"empty host", ` - - [01/Jul/1995:00:00:01 -0400] "GET / HTTP/1.0" 200 1`, ErrMalformedHost},
		{"missing bracket", `10.0.0.1 - - 01/Jul/1995:00:00:01 -0400 "GET / HTTP/1.0" 200 1`, ErrMalformedTimestamp},
		{"unterminated bracket", `10.0.0.1 - - [01/Jul/1995:00:00:01 -0400 "GET / HTTP/1.0" 200 1`, ErrMalformedTimestamp},
		{"bad date", `10.0.0.1 - - [32/Jul/1995:00:00:01 -0400] "GET / HTTP/1.0" 200 1`, ErrMalformedTimestamp},
		{"bad month", `10.0.0.1 - - [01/Foo/1995:00:00:01 -0400] "GET / HTTP/1.0" 200 1`, ErrMalformedTimestamp},
		{"missing offset", `10.0.0.1 - - [01/Jul/1995:00:00:01] "GET / HTTP/1.0" 200 1`, ErrMissingOffset},
		{"unsigned offset", `10.0.0.1 - - [01/Jul/1995:00:00:01 0400] "GET / HTTP/1.0" 200 1`, ErrUnsignedOffset},
		{"colon offset", `10.0.0.1 - - [01/Jul/1995:00:00:01 -04:00] "GET / HTTP/1.0" 200 1`, ErrMalformedTimestamp},
		{"non numeric offset", `10.0.0.1 - - [01/Jul/1995:00:00:01 -04ab] "GET / HTTP/1.0" 200 1`, ErrMalformedTimestamp},
		{"double sign offset", `10.0.0.1 - - [01/Jul/1995:00:00:01 -+100] "GET / HTTP/1.0" 200 1`, ErrMalformedTimestamp},
		{"offset hours out of range", `10.0.0.1 - - [01/Jul/1995:00:00:01 +9900] "GET / HTTP/1.0" 200 1`, ErrMalformedTimestamp},
		{"offset minutes out of range", `10.0.0.1 - - [01/Jul/1995:00:00:01 +0160] "GET / HTTP/1.0" 200 1`, ErrMalformedTimestamp},
		{"no quotes", `10.0.0.1 - - [01/Jul/1995:00:00:01 -0400] GET / HTTP/1.0 200 1`, ErrMalformedRequest},
		{"single quote", `10.0.0.1 - - [01/Jul/1995:00:00:01 -0400] "GET / HTTP/1.0 200 1`, ErrMalformedRequest},
		{"no resource", `10.0.0.1 - - [01/Jul/1995:00:00:01 -0400] "GET" 200 1`, ErrMalformedRequest},
		{"missing status", `10.0.0.1 - - [01/Jul/1995:00:00:01 -0400] "GET / HTTP/1.0"`, ErrInvalidStatus},
		{"bad status", `10.0.0.1 - - [01/Jul/1995:00:00:01 -0400] "GET / HTTP/1.0" OK 1`, ErrInvalidStatus},
		{"missing bytes", `10.0.0.1 - - [01/Jul/1995:00:00:01 -0400] "GET / HTTP/1.0" 200`, ErrInvalidBytes},
		{"bad bytes", `10.0.0.1 - - [01/Jul/1995:00:00:01 -0400] "GET / HTTP/1.0" 200 lots`, ErrInvalidBytes},
		{"negative bytes", `10.0.0.1 - - [01/Jul/1995:00:00:01 -0400] "GET / HTTP/1.0" 200 -5`, ErrInvalidBytes},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := parser.Parse(tc.line)
			require.Error(t, err)
			assert.Nil(t, rec)
			assert.True(t, errors.Is(err, tc.wantErr), "got %v, want %v", err, tc.wantErr)
		})
	}
}

func TestCommonLogParserLineTooLong(t *testing.T) {
	parser := NewCommonLogParser()
	line := fmt.Sprintf(`10.0.0.1 - - [01/Jul/1995:00:00:01 -0400] "GET /%s HTTP/1.0" 200 1`, strings.Repeat("a", 9000))

	_, err := parser.Parse(line)
	assert.ErrorIs(t, err, ErrLineTooLong)
}

func TestCommonLogParserFormat(t *testing.T) {
	parser := NewCommonLogParser()
	assert.Equal(t, "common", parser.Format())
}

func TestCommonLogParserValidate(t *testing.T) {
	parser := NewCommonLogParser()

	valid := `192.168.1.1 - - [28/Dec/2025:10:00:00 +0000] "GET / HTTP/1.1" 200 100`
	assert.True(t, parser.Validate(valid))

	invalid := "not a valid log line"
	assert.False(t, parser.Validate(invalid))
}

func TestFormatCLFLineRoundTrip(t *testing.T) {
	parser := NewCommonLogParser()
	line := `199.72.81.55 - - [01/Jul/1995:00:00:01 -0400] "GET /history/apollo/ HTTP/1.0" 200 6245`

	rec, err := parser.Parse(line)
	require.NoError(t, err)
	assert.Equal(t, line, FormatCLFLine(rec))
}

func BenchmarkCommonLogParser(b *testing.B) {
	parser := NewCommonLogParser()
	line := `199.72.81.55 - - [01/Jul/1995:00:00:01 -0400] "GET /history/apollo/ HTTP/1.0" 200 6245`

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = parser.Parse(line)
	}
}

func BenchmarkCommonLogParserParallel(b *testing.B) {
	parser := NewCommonLogParser()
	line := `199.72.81.55 - - [01/Jul/1995:00:00:01 -0400] "GET /history/apollo/ HTTP/1.0" 200 6245`

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = parser.Parse(line)
		}
	})
}

func TestJSONParser(t *testing.T) {
	parser := NewJSONParser()

	tests := []struct {
		name         string
		line         string
		wantErr      error
		wantHost     string
		wantMethod   string
		wantResource string
		wantStatus   int
		wantBytes    int64
		wantProtocol string
		wantOffset   time.Duration
	}{
		{
			name:         "valid JSON log",
			line:         `{"timestamp":"1995-07-01T00:00:01-04:00","remote_addr":"199.72.81.55","request_method":"POST","request_uri":"/login","status":401,"body_bytes_sent":1234}`,
			wantHost:     "199.72.81.55",
			wantMethod:   "POST",
			wantResource: "/login",
			wantStatus:   401,
			wantBytes:    1234,
			wantOffset:   -4 * time.Hour,
		},
		{
			name:         "JSON with server_protocol",
			line:         `{"timestamp":"2025-12-30T10:00:00Z","remote_addr":"10.0.0.1","request_method":"GET","request_uri":"/","status":200,"body_bytes_sent":100,"server_protocol":"HTTP/2"}`,
			wantHost:     "10.0.0.1",
			wantMethod:   "GET",
			wantResource: "/",
			wantStatus:   200,
			wantBytes:    100,
			wantProtocol: "HTTP/2",
		},
		{
			name:         "JSON with protocol field",
			line:         `{"timestamp":"2025-12-30T10:00:00+02:00","remote_addr":"10.0.0.1","request_method":"GET","request_uri":"/","status":200,"body_bytes_sent":100,"protocol":"HTTP/1.0"}`,
			wantHost:     "10.0.0.1",
			wantMethod:   "GET",
			wantResource: "/",
			wantStatus:   200,
			wantBytes:    100,
			wantProtocol: "HTTP/1.0",
			wantOffset:   2 * time.Hour,
		},
		{
			name:    "invalid JSON",
			line:    `{invalid json}`,
			wantErr: ErrMalformedRequest,
		},
		{
			name:    "not JSON",
			line:    `192.168.1.1 - - [28/Dec/2025:10:00:00 +0000] "GET / HTTP/1.1" 200 100`,
			wantErr: ErrMalformedRequest,
		},
		{
			name:    "missing address",
			line:    `{"timestamp":"2025-12-30T10:00:00Z","request_method":"GET","request_uri":"/","status":200}`,
			wantErr: ErrMalformedHost,
		},
		{
			name:    "missing timestamp",
			line:    `{"remote_addr":"10.0.0.1","request_method":"GET","request_uri":"/","status":200}`,
			wantErr: ErrMissingOffset,
		},
		{
			name:    "timestamp without zone",
			line:    `{"timestamp":"2025-12-30T10:00:00","remote_addr":"10.0.0.1","request_uri":"/","status":200}`,
			wantErr: ErrMalformedTimestamp,
		},
		{
			name:    "missing status",
			line:    `{"timestamp":"2025-12-30T10:00:00Z","remote_addr":"10.0.0.1","request_uri":"/"}`,
			wantErr: ErrInvalidStatus,
		},
		{
			name:    "negative bytes",
			line:    `{"timestamp":"2025-12-30T10:00:00Z","remote_addr":"10.0.0.1","request_uri":"/","status":200,"body_bytes_sent":-1}`,
			wantErr: ErrInvalidBytes,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := parser.Parse(tc.line)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, rec)

			assert.Equal(t, tc.wantHost, rec.Host)
			assert.Equal(t, tc.wantMethod, rec.Method)
			assert.Equal(t, tc.wantResource, rec.Resource)
			assert.Equal(t, tc.wantStatus, rec.StatusCode)
			assert.Equal(t, tc.wantBytes, rec.Bytes)
			assert.Equal(t, tc.wantProtocol, rec.Protocol)
			assert.Equal(t, tc.wantOffset, rec.UTCOffset)
			assert.True(t, rec.LocalTime.Add(rec.UTCOffset).Equal(rec.UTCTime))
		})
	}
}

func TestJSONParserMatchesCommonLogParser(t *testing.T) {
	clf, err := NewCommonLogParser().Parse(`199.72.81.55 - - [01/Jul/1995:00:00:01 -0400] "GET / HTTP/1.0" 200 1`)
	require.NoError(t, err)
	js, err := NewJSONParser().Parse(`{"timestamp":"1995-07-01T00:00:01-04:00","remote_addr":"199.72.81.55","request_method":"GET","request_uri":"/","status":200,"body_bytes_sent":1}`)
	require.NoError(t, err)

	assert.Equal(t, clf.LocalTime, js.LocalTime)
	assert.Equal(t, clf.UTCOffset, js.UTCOffset)
	assert.True(t, clf.UTCTime.Equal(js.UTCTime))
}

func TestAutoDetectParser(t *testing.T) {
	parser := NewAutoDetectParser()

	assert.Equal(t, "auto", parser.Format())

	t.Run("detects JSON format", func(t *testing.T) {
		line := `{"timestamp":"2025-12-30T10:00:00Z","remote_addr":"192.168.1.10","request_method":"GET","request_uri":"/","status":200,"body_bytes_sent":100}`
		rec, err := parser.Parse(line)
		require.NoError(t, err)
		assert.Equal(t, "192.168.1.10", rec.Host)
		assert.Equal(t, "GET", rec.Method)
	})

	t.Run("fallback to CLF format", func(t *testing.T) {
		line := `192.168.1.10 - - [28/Dec/2025:10:00:00 +0000] "GET /admin HTTP/1.1" 401 1234`
		rec, err := parser.Parse(line)
		require.NoError(t, err)
		assert.Equal(t, "192.168.1.10", rec.Host)
		assert.Equal(t, "GET", rec.Method)
		assert.Equal(t, "/admin", rec.Resource)
	})

	t.Run("validates both formats", func(t *testing.T) {
		jsonLine := `{"timestamp":"2025-12-30T10:00:00Z","remote_addr":"1.1.1.1","request_method":"GET","request_uri":"/","status":200}`
		clfLine := `192.168.1.1 - - [28/Dec/2025:10:00:00 +0000] "GET / HTTP/1.1" 200 100`

		assert.True(t, parser.Validate(jsonLine))
		assert.True(t, parser.Validate(clfLine))
		assert.False(t, parser.Validate("invalid log line"))
	})
}

func TestNewParser(t *testing.T) {
	for format, want := range map[string]string{
		"":       "common",
		"clf":    "common",
		"common": "common",
		"json":   "json",
		"auto":   "auto",
	} {
		p, err := NewParser(format)
		require.NoError(t, err, format)
		assert.Equal(t, want, p.Format())
	}

	_, err := NewParser("syslog")
	assert.Error(t, err)
}

func TestRejectReason(t *testing.T) {
	assert.Equal(t, "unsigned_offset", RejectReason(fmt.Errorf("%w: %q", ErrUnsignedOffset, "0400")))
	assert.Equal(t, "timestamp", RejectReason(fmt.Errorf("%w: bad", ErrMalformedTimestamp)))
	assert.Equal(t, "host", RejectReason(ErrMalformedHost))
	assert.Equal(t, "bytes", RejectReason(ErrInvalidBytes))
	assert.Equal(t, "other", RejectReason(errors.New("boom")))
}
