package cache

import (
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

type counters struct {
	hits, misses, sets, deletes, errors, totalRequests atomic.Int64
	since                                              time.Time
}

// Metrics holds process-wide cache counters. Reset swaps the whole counter
// set, so concurrent increments land in either the old or the new window.
type Metrics struct {
	cur atomic.Pointer[counters]
	now func() time.Time
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Hits          int64           `json:"hits"`
	Misses        int64           `json:"misses"`
	Sets          int64           `json:"sets"`
	Deletes       int64           `json:"deletes"`
	Errors        int64           `json:"errors"`
	TotalRequests int64           `json:"totalRequests"`
	HitRate       decimal.Decimal `json:"hitRate"`
	Since         time.Time       `json:"since"`
}

func NewMetrics() *Metrics {
	m := &Metrics{now: time.Now}
	m.cur.Store(&counters{since: m.now()})
	return m
}

func (m *Metrics) c() *counters { return m.cur.Load() }

func (m *Metrics) hit() {
	c := m.c()
	c.hits.Add(1)
	c.totalRequests.Add(1)
}

func (m *Metrics) miss() {
	c := m.c()
	c.misses.Add(1)
	c.totalRequests.Add(1)
}

// failedRead counts a read that errored; it is also a miss.
func (m *Metrics) failedRead() {
	c := m.c()
	c.errors.Add(1)
	c.misses.Add(1)
	c.totalRequests.Add(1)
}

func (m *Metrics) set() { m.c().sets.Add(1) }

func (m *Metrics) fail() { m.c().errors.Add(1) }

func (m *Metrics) deleted(n int) { m.c().deletes.Add(int64(n)) }

// Snapshot returns the counters and hitRate = hits/totalRequests*100,
// rounded to two decimals, 0 when there were no requests.
func (m *Metrics) Snapshot() MetricsSnapshot {
	c := m.c()
	s := MetricsSnapshot{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Sets:          c.sets.Load(),
		Deletes:       c.deletes.Load(),
		Errors:        c.errors.Load(),
		TotalRequests: c.totalRequests.Load(),
		HitRate:       decimal.Zero,
		Since:         c.since,
	}
	if s.TotalRequests > 0 {
		s.HitRate = decimal.NewFromInt(s.Hits).
			Mul(decimal.NewFromInt(100)).
			DivRound(decimal.NewFromInt(s.TotalRequests), 2)
	}
	return s
}

// Reset starts a new monitoring window.
func (m *Metrics) Reset() {
	m.cur.Store(&counters{since: m.now()})
}
