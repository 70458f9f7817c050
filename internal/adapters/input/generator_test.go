package input

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleGeneratorDeterministic(t *testing.T) {
	a := NewSampleGenerator(GeneratorConfig{Lines: 200, Seed: 42}).Lines()
	b := NewSampleGenerator(GeneratorConfig{Lines: 200, Seed: 42}).Lines()
	c := NewSampleGenerator(GeneratorConfig{Lines: 200, Seed: 43}).Lines()

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestSampleGeneratorLinesParse(t *testing.T) {
	parser := NewCommonLogParser()
	lines := NewSampleGenerator(GeneratorConfig{Lines: 500, Seed: 3, AttackPercent: 20}).Lines()
	require.Len(t, lines, 500)

	var prev *int64
	for _, line := range lines {
		rec, err := parser.Parse(line)
		require.NoError(t, err, line)

		ts := rec.UTCTime.Unix()
		if prev != nil {
			assert.GreaterOrEqual(t, ts, *prev, "timestamps never go backwards")
		}
		prev = &ts
	}
}

func TestSampleGeneratorJSON(t *testing.T) {
	parser := NewJSONParser()
	lines := NewSampleGenerator(GeneratorConfig{Lines: 50, Seed: 5, Format: FormatJSON}).Lines()

	for _, line := range lines {
		rec, err := parser.Parse(line)
		require.NoError(t, err, line)
		assert.Equal(t, "HTTP/1.0", rec.Protocol)

		clf, err := NewCommonLogParser().Parse(FormatCLFLine(rec))
		require.NoError(t, err)
		assert.Equal(t, clf.LocalTime, rec.LocalTime)
		assert.True(t, clf.UTCTime.Equal(rec.UTCTime), line)
	}
}

func TestSampleGeneratorBursts(t *testing.T) {
	parser := NewCommonLogParser()
	lines := NewSampleGenerator(GeneratorConfig{Lines: 4, Seed: 1, AttackPercent: 100}).Lines()

	first, err := parser.Parse(lines[0])
	require.NoError(t, err)
	assert.Equal(t, 401, first.StatusCode)

	for _, line := range lines[1:] {
		rec, err := parser.Parse(line)
		require.NoError(t, err)
		assert.Equal(t, first.Host, rec.Host, "a burst repeats the same source")
		assert.Equal(t, 401, rec.StatusCode)
	}
}

func TestSampleGeneratorWriteTo(t *testing.T) {
	var buf bytes.Buffer
	n, err := NewSampleGenerator(GeneratorConfig{Lines: 10, Seed: 9}).WriteTo(&buf)
	require.NoError(t, err)

	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, 10, strings.Count(buf.String(), "\n"))
}

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseOutputFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCLF, f)

	_, err = ParseOutputFormat("xml")
	assert.Error(t, err)
}
