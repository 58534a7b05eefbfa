// Package services applies ledger writes and keeps the cache consistent
// with them.
package services

import (
	"context"
	"fmt"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/invalidation"
	"ledger/internal/ledger"
	"ledger/internal/log"
)

// WarmPublisher requests out-of-band cache warming. *amqp.Client
// implements it.
type WarmPublisher interface {
	PublishCacheWarm(ctx context.Context, userID int64, reason string) error
}

// mutations is the post-write pipeline shared by every service: purge
// synchronously, log, then optionally ask a worker to rewarm.
type mutations struct {
	coordinator *invalidation.Coordinator
	publisher   WarmPublisher
	logger      *log.Logger
	structured  *log.StructuredLogger
}

func newMutations(coordinator *invalidation.Coordinator, publisher WarmPublisher, logger *log.Logger) mutations {
	return mutations{
		coordinator: coordinator,
		publisher:   publisher,
		logger:      logger,
		structured:  log.NewStructuredLogger(logger),
	}
}

func (m mutations) committed(ctx context.Context, mut invalidation.Mutation, id int64) {
	m.structured.LogMutation(ctx, string(mut.Entity), string(mut.Action), mut.UserID, id)

	// The write has committed; invalidation failures only leave entries to
	// expire on their TTL.
	m.coordinator.Apply(ctx, mut)

	if m.publisher == nil || mut.Entity != invalidation.EntityTransaction {
		return
	}
	if err := m.publisher.PublishCacheWarm(ctx, mut.UserID, string(mut.Entity)+"."+string(mut.Action)); err != nil {
		m.logger.WarnContext(ctx, "Failed to publish cache warm request",
			log.FieldUserID, mut.UserID,
			log.FieldError, err)
	}
}

type TransactionService struct {
	store interface {
		ledger.Writer
		ledger.TransactionLister
	}
	cache *cache.Manager
	mutations
}

func NewTransactionService(store ledger.Store, cm *cache.Manager, coordinator *invalidation.Coordinator, publisher WarmPublisher, logger *log.Logger) *TransactionService {
	return &TransactionService{
		store:     store,
		cache:     cm,
		mutations: newMutations(coordinator, publisher, logger.WithComponent(log.ComponentLedger)),
	}
}

// Create records tx for userID. Any user id on tx is replaced.
func (s *TransactionService) Create(ctx context.Context, userID int64, tx core.Transaction) (core.Transaction, error) {
	tx.UserID = userID
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.committed(ctx, invalidation.Mutation{Entity: invalidation.EntityTransaction, Action: invalidation.ActionCreate, UserID: userID}, created.ID)
	return created, nil
}

// Update replaces one of userID's transactions. Moving it to another user
// is refused.
func (s *TransactionService) Update(ctx context.Context, userID int64, tx core.Transaction) (core.Transaction, error) {
	if tx.UserID != 0 && tx.UserID != userID {
		return core.Transaction{}, fmt.Errorf("transaction belongs to user %d: %w", userID, core.ErrInvalidUserID)
	}
	tx.UserID = userID
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	updated, err := s.store.UpdateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", tx.ID, err)
	}
	s.committed(ctx, invalidation.Mutation{Entity: invalidation.EntityTransaction, Action: invalidation.ActionUpdate, UserID: userID}, updated.ID)
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	s.committed(ctx, invalidation.Mutation{Entity: invalidation.EntityTransaction, Action: invalidation.ActionDelete, UserID: userID}, id)
	return nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

// List returns one page of transactions, cached per normalized filter.
func (s *TransactionService) List(ctx context.Context, f ledger.TransactionFilter) (ledger.TransactionPage, error) {
	if err := f.Range.Validate(); err != nil {
		return ledger.TransactionPage{}, err
	}
	f = f.Normalize()
	return cache.ReadThrough(ctx, s.cache, cache.TransactionsKey(f), func(ctx context.Context) (ledger.TransactionPage, error) {
		page, err := s.store.ListTransactions(ctx, f)
		if err != nil {
			return ledger.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
		}
		return page, nil
	})
}
