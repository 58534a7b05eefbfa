// Package backend opens the stores selected by configuration and wires the
// services that run on top of them.
package backend

import (
	"errors"

	"ledger/internal/cache"
	"ledger/internal/ledger"
)

// BackendType names a ledger store implementation.
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Stores holds the opened backends. Close releases them in reverse order.
type Stores struct {
	Ledger  ledger.Store
	Cache   cache.Store
	Budgets ledger.BudgetSource

	cleanups []CleanupFunc
}

func (s *Stores) addCleanup(fn CleanupFunc) {
	if fn != nil {
		s.cleanups = append(s.cleanups, fn)
	}
}

// Close runs every cleanup and joins their errors.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		if err := s.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.cleanups = nil
	return errors.Join(errs...)
}
