// Package invalidation maps ledger mutations to the cache patterns they
// make stale and purges them.
package invalidation

import (
	"context"
	"errors"

	"ledger/internal/cache"
	"ledger/internal/log"
)

type Entity string

const (
	EntityTransaction Entity = "transaction"
	EntityCategory    Entity = "category"
	EntityUser        Entity = "user"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Mutation describes a committed write.
type Mutation struct {
	Entity Entity
	Action Action
	UserID int64
}

// Patterns returns the key patterns m invalidates. Category changes affect
// every user's category list but not their analytics.
func Patterns(m Mutation) []string {
	switch m.Entity {
	case EntityTransaction:
		return []string{
			cache.UserAnalyticsPattern(m.UserID),
			cache.UserTransactionsPattern(m.UserID),
		}
	case EntityCategory:
		return []string{cache.CategoriesPattern()}
	case EntityUser:
		return []string{cache.UserProfilePattern(m.UserID)}
	default:
		return nil
	}
}

// Report is the outcome of one invalidation. Err is informational: the
// write it follows has already committed.
type Report struct {
	Patterns []string
	Deleted  int
	Err      error
}

type Coordinator struct {
	cache  *cache.Manager
	logger *log.Logger
}

func NewCoordinator(cm *cache.Manager, logger *log.Logger) *Coordinator {
	return &Coordinator{cache: cm, logger: logger.WithComponent(log.ComponentInvalidation)}
}

// Apply purges every pattern of m before returning. Every pattern is
// attempted even when an earlier one fails.
func (c *Coordinator) Apply(ctx context.Context, m Mutation) Report {
	return c.purge(ctx, m.UserID, string(m.Entity)+"."+string(m.Action), Patterns(m))
}

// InvalidateUser purges a user's analytics and cached transaction pages.
func (c *Coordinator) InvalidateUser(ctx context.Context, userID int64) Report {
	return c.Apply(ctx, Mutation{Entity: EntityTransaction, Action: ActionUpdate, UserID: userID})
}

// InvalidateCategories purges the global category lists.
func (c *Coordinator) InvalidateCategories(ctx context.Context) Report {
	return c.Apply(ctx, Mutation{Entity: EntityCategory, Action: ActionUpdate})
}

func (c *Coordinator) purge(ctx context.Context, userID int64, reason string, patterns []string) Report {
	rep := Report{Patterns: patterns}
	var errs []error
	for _, p := range patterns {
		n, err := c.cache.DeleteByPattern(ctx, p)
		rep.Deleted += n
		if err != nil {
			errs = append(errs, err)
			c.logger.WarnContext(ctx, "Cache invalidation failed",
				log.FieldPattern, p,
				log.FieldUserID, userID,
				log.FieldOperation, reason,
				log.FieldError, err,
				log.FieldErrorType, log.ErrorTypeCache,
			)
		}
	}
	rep.Err = errors.Join(errs...)
	c.logger.DebugContext(ctx, "Cache invalidated",
		log.FieldOperation, reason,
		log.FieldUserID, userID,
		log.FieldDeleted, rep.Deleted,
	)
	return rep
}
