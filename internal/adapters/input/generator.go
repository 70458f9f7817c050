package input

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/xoelrdgz/loginsight/internal/domain"
)

type OutputFormat int

const (
	FormatCLF OutputFormat = iota
	FormatJSON
)

// ParseOutputFormat maps a format name to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "clf", "common":
		return FormatCLF, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatCLF, fmt.Errorf("unknown output format %q", s)
	}
}

type GeneratorConfig struct {
	Lines         int
	Seed          int64
	Start         time.Time
	Offset        time.Duration
	AttackPercent int
	Format        OutputFormat
}

func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Lines:         10000,
		Seed:          1,
		Start:         time.Date(1995, time.July, 1, 0, 0, 1, 0, time.UTC),
		Offset:        -4 * time.Hour,
		AttackPercent: 5,
		Format:        FormatCLF,
	}
}

// SampleGenerator writes a synthetic access log with ordinary browsing
// traffic and interleaved brute-force login bursts. Output is fully
// determined by the seed.
type SampleGenerator struct {
	cfg   GeneratorConfig
	rng   *rand.Rand
	clock time.Time

	normalHosts   []string
	attackerHosts []string
	normalPaths   []string
	burst         []burstLine
}

type burstLine struct {
	host string
}

func NewSampleGenerator(cfg GeneratorConfig) *SampleGenerator {
	def := DefaultGeneratorConfig()
	if cfg.Lines <= 0 {
		cfg.Lines = def.Lines
	}
	if cfg.Start.IsZero() {
		cfg.Start = def.Start
	}
	if cfg.AttackPercent < 0 || cfg.AttackPercent > 100 {
		cfg.AttackPercent = def.AttackPercent
	}

	return &SampleGenerator{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		clock: domain.NaiveClock(cfg.Start),
		normalHosts: []string{
			"199.72.81.55", "unicomp6.unicomp.net", "burger.letters.com",
			"205.212.115.106", "d104.aa.net", "129.94.144.152",
			"ppptky391.asahi-net.or.jp", "net-1-141.eden.com",
			"uplherc.upl.com", "www-c1.proxy.aol.com", "10.0.0.7",
		},
		attackerHosts: []string{
			"45.33.12.7", "185.220.101.4", "89.234.157.254", "bad.actor.example",
		},
		normalPaths: []string{
			"/", "/history/apollo/", "/shuttle/countdown/",
			"/shuttle/missions/sts-73/mission-sts-73.html",
			"/images/NASA-logosmall.gif", "/images/KSC-logosmall.gif",
			"/shuttle/countdown/liftoff.html", "/images/ksclogo-medium.gif",
			"/htbin/cdt_main.pl", "/software/winvn/winvn.html",
		},
	}
}

// WriteTo writes cfg.Lines lines to w.
func (g *SampleGenerator) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriterSize(w, 64*1024)
	var written int64
	for i := 0; i < g.cfg.Lines; i++ {
		n, err := bw.WriteString(g.nextLine())
		written += int64(n)
		if err != nil {
			return written, err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return written, err
		}
		written++
	}
	return written, bw.Flush()
}

// Lines returns the generated log as a slice, mostly for tests.
func (g *SampleGenerator) Lines() []string {
	out := make([]string, 0, g.cfg.Lines)
	for i := 0; i < g.cfg.Lines; i++ {
		out = append(out, g.nextLine())
	}
	return out
}

func (g *SampleGenerator) nextLine() string {
	g.clock = g.clock.Add(time.Duration(g.rng.Intn(3)) * time.Second)

	var rec *domain.LogRecord
	switch {
	case len(g.burst) > 0:
		b := g.burst[0]
		g.burst = g.burst[1:]
		rec = domain.NewLogRecord(b.host, g.clock, g.cfg.Offset)
		rec.Method = "POST"
		rec.Resource = "/login"
		rec.StatusCode = 401
		rec.Bytes = 0
	case g.rng.Intn(100) < g.cfg.AttackPercent:
		host := g.attackerHosts[g.rng.Intn(len(g.attackerHosts))]
		size := 3 + g.rng.Intn(4)
		for i := 0; i < size; i++ {
			g.burst = append(g.burst, burstLine{host: host})
		}
		rec = domain.NewLogRecord(host, g.clock, g.cfg.Offset)
		rec.Method = "POST"
		rec.Resource = "/login"
		rec.StatusCode = 401
	default:
		rec = domain.NewLogRecord(g.normalHosts[g.rng.Intn(len(g.normalHosts))], g.clock, g.cfg.Offset)
		rec.Method = "GET"
		rec.Resource = g.normalPaths[g.rng.Intn(len(g.normalPaths))]
		statuses := []int{200, 200, 200, 200, 304, 404}
		rec.StatusCode = statuses[g.rng.Intn(len(statuses))]
		if rec.StatusCode == 200 {
			rec.Bytes = int64(g.rng.Intn(10000) + 200)
		}
	}
	rec.Protocol = "HTTP/1.0"

	if g.cfg.Format == FormatJSON {
		return formatJSONLine(rec)
	}
	return FormatCLFLine(rec)
}

// FormatCLFLine renders rec as a Common Log Format line.
func FormatCLFLine(rec *domain.LogRecord) string {
	var b strings.Builder
	b.Grow(128)
	b.WriteString(rec.Host)
	b.WriteString(hostDelimiter)
	b.WriteByte('[')
	b.WriteString(rec.Timestamp())
	b.WriteString("] \"")
	b.WriteString(rec.Method)
	b.WriteByte(' ')
	b.WriteString(rec.Resource)
	if rec.Protocol != "" {
		b.WriteByte(' ')
		b.WriteString(rec.Protocol)
	}
	b.WriteString("\" ")
	b.WriteString(strconv.Itoa(rec.StatusCode))
	b.WriteByte(' ')
	if rec.Bytes == 0 {
		b.WriteByte('-')
	} else {
		b.WriteString(strconv.FormatInt(rec.Bytes, 10))
	}
	return b.String()
}

func formatJSONLine(rec *domain.LogRecord) string {
	l := rec.LocalTime
	ts := time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), 0,
		time.FixedZone("", int(rec.UTCOffset/time.Second)))
	entry := JSONLogEntry{
		Timestamp:      ts.Format(time.RFC3339),
		RemoteAddr:     rec.Host,
		RequestMethod:  rec.Method,
		RequestURI:     rec.Resource,
		Status:         rec.StatusCode,
		BodyBytesSent:  rec.Bytes,
		ServerProtocol: rec.Protocol,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return `{"error":"encoding failed"}`
	}
	return string(data)
}
