package analytics

import (
	"cmp"
	"slices"

	"github.com/xoelrdgz/loginsight/internal/domain"
)

// tally counts per key and remembers the order keys were first seen.
type tally struct {
	index map[string]int
	items []domain.RankedItem
}

func newTally() *tally {
	return &tally{index: make(map[string]int)}
}

func (t *tally) add(key string, n int64) {
	i, ok := t.index[key]
	if !ok {
		i = len(t.items)
		t.index[key] = i
		t.items = append(t.items, domain.RankedItem{Key: key})
	}
	t.items[i].Count += n
}

// top returns the n highest counts, ties in first-seen order. n <= 0 returns
// every key.
func (t *tally) top(n int) []domain.RankedItem {
	ranked := slices.Clone(t.items)
	slices.SortStableFunc(ranked, func(a, b domain.RankedItem) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// FrequencyCounter tallies requests per host and bytes served per resource.
type FrequencyCounter struct {
	hosts     *tally
	resources *tally
}

func NewFrequencyCounter() *FrequencyCounter {
	return &FrequencyCounter{
		hosts:     newTally(),
		resources: newTally(),
	}
}

// Add counts rec. Resources of length one or less ("" and "/") are left out
// of the bandwidth tally.
func (c *FrequencyCounter) Add(rec *domain.LogRecord) {
	c.hosts.add(rec.Host, 1)
	if len(rec.Resource) > 1 {
		c.resources.add(rec.Resource, rec.Bytes)
	}
}

func (c *FrequencyCounter) TopHosts(n int) []domain.RankedItem {
	return c.hosts.top(n)
}

func (c *FrequencyCounter) TopResources(n int) []domain.RankedItem {
	return c.resources.top(n)
}

func (c *FrequencyCounter) DistinctHosts() int {
	return len(c.hosts.items)
}

func (c *FrequencyCounter) DistinctResources() int {
	return len(c.resources.items)
}
