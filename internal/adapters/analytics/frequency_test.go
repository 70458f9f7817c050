package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xoelrdgz/loginsight/internal/domain"
)

func request(host, resource string, bytes int64) *domain.LogRecord {
	rec := domain.NewLogRecord(host, origin, 0)
	rec.Resource = resource
	rec.Bytes = bytes
	return rec
}

func TestFrequencyCounterHosts(t *testing.T) {
	c := NewFrequencyCounter()
	for _, h := range []string{"b", "a", "c", "a", "b", "a", "d"} {
		c.Add(request(h, "/x", 1))
	}

	assert.Equal(t, []domain.RankedItem{
		{Key: "a", Count: 3},
		{Key: "b", Count: 2},
		{Key: "c", Count: 1},
		{Key: "d", Count: 1},
	}, c.TopHosts(0))
	assert.Equal(t, []domain.RankedItem{{Key: "a", Count: 3}, {Key: "b", Count: 2}}, c.TopHosts(2))
	assert.Equal(t, 4, c.DistinctHosts())
}

func TestFrequencyCounterResources(t *testing.T) {
	c := NewFrequencyCounter()
	c.Add(request("h", "/", 9999))
	c.Add(request("h", "", 9999))
	c.Add(request("h", "/images/logo.gif", 100))
	c.Add(request("h", "/index.html", 300))
	c.Add(request("h", "/images/logo.gif", 250))
	c.Add(request("h", "/empty", 0))

	assert.Equal(t, []domain.RankedItem{
		{Key: "/images/logo.gif", Count: 350},
		{Key: "/index.html", Count: 300},
		{Key: "/empty", Count: 0},
	}, c.TopResources(10))
	assert.Equal(t, 3, c.DistinctResources())
}

func TestFrequencyCounterTiesKeepFirstSeen(t *testing.T) {
	c := NewFrequencyCounter()
	c.Add(request("late", "/b", 5))
	c.Add(request("early", "/a", 5))

	assert.Equal(t, "late", c.TopHosts(1)[0].Key)
	assert.Equal(t, "/b", c.TopResources(1)[0].Key)
}

func TestFrequencyCounterEmpty(t *testing.T) {
	c := NewFrequencyCounter()
	assert.Empty(t, c.TopHosts(10))
	assert.Empty(t, c.TopResources(10))
}
