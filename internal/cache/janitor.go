package cache

import (
	"sync"
	"time"

	"ledger/internal/log"
)

// Cleaner is implemented by stores that need expired entries swept.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically sweeps registered stores.
type Janitor struct {
	logger      *log.Logger
	cleaners    []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	stopOnce    sync.Once
	started     bool
}

// NewJanitor creates a janitor; Start launches the sweep loop.
func NewJanitor(logger *log.Logger) *Janitor {
	return &Janitor{
		logger:      logger.WithComponent(log.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a store to sweep. Stores that are not Cleaners are ignored.
func (j *Janitor) Register(s any) {
	if c, ok := s.(Cleaner); ok {
		j.cleaners = append(j.cleaners, c)
	}
}

// Sweep runs one pass and returns the number of removed entries.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.cleaners {
		total += c.CleanExpired()
	}
	return total
}

// Start begins periodic cleanup of all registered stores
func (j *Janitor) Start(interval time.Duration) {
	j.started = true
	go j.loop(interval)
}

func (j *Janitor) loop(interval time.Duration) {
	defer close(j.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				j.logger.Debug("Expired cache entries removed", "count", n)
			}
		case <-j.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stopCleanup)
		if j.started {
			<-j.cleanupDone
		}
	})
}
