// Package worker consumes cache-warm requests.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/log"
)

// Warmer precomputes a user's hot cache entries. *analytics.Service
// implements it.
type Warmer interface {
	WarmCache(ctx context.Context, userID int64) error
}

// WarmWorker handles cache-warm messages. A burst of writes by one user
// produces one message each; a message is skipped when a warm for that user
// already started after the message was published, since that warm read
// at least the state the message refers to.
type WarmWorker struct {
	warmer Warmer
	now    func() time.Time

	mu       sync.Mutex
	lastWarm map[int64]time.Time
}

func NewWarmWorker(warmer Warmer) *WarmWorker {
	return &WarmWorker{
		warmer:   warmer,
		now:      time.Now,
		lastWarm: make(map[int64]time.Time),
	}
}

// HandleWarmMessage processes a single message from AMQP. A returned error
// requeues the message.
func (w *WarmWorker) HandleWarmMessage(ctx context.Context, msg *amqp.CacheWarmMessage) error {
	if msg.UserID <= 0 {
		slog.WarnContext(ctx, "Dropping cache warm message without user",
			log.FieldComponent, log.ComponentWorker,
			"reason", msg.Reason)
		return nil
	}

	started := w.now()
	w.mu.Lock()
	last, seen := w.lastWarm[msg.UserID]
	if seen && !msg.Timestamp.IsZero() && last.After(msg.Timestamp) {
		w.mu.Unlock()
		slog.DebugContext(ctx, "Skipping superseded cache warm",
			log.FieldComponent, log.ComponentWorker,
			log.FieldUserID, msg.UserID)
		return nil
	}
	w.lastWarm[msg.UserID] = started
	w.mu.Unlock()

	if err := w.warmer.WarmCache(ctx, msg.UserID); err != nil {
		w.mu.Lock()
		if w.lastWarm[msg.UserID].Equal(started) {
			if seen {
				w.lastWarm[msg.UserID] = last
			} else {
				delete(w.lastWarm, msg.UserID)
			}
		}
		w.mu.Unlock()
		return fmt.Errorf("warm cache for user %d: %w", msg.UserID, err)
	}

	slog.InfoContext(ctx, "Cache warmed",
		log.FieldComponent, log.ComponentWorker,
		log.FieldUserID, msg.UserID,
		log.FieldDuration, time.Since(started).Milliseconds(),
		"reason", msg.Reason)
	return nil
}

// WarmUsers warms each user in turn and reports how many failed.
func (w *WarmWorker) WarmUsers(ctx context.Context, userIDs []int64) (failed int) {
	for i, id := range userIDs {
		if ctx.Err() != nil {
			return failed + len(userIDs) - i
		}
		if err := w.HandleWarmMessage(ctx, &amqp.CacheWarmMessage{UserID: id, Reason: "startup", Timestamp: w.now()}); err != nil {
			slog.ErrorContext(ctx, "Cache warm failed",
				log.FieldComponent, log.ComponentWorker,
				log.FieldUserID, id,
				log.FieldError, err)
			failed++
		}
	}
	return failed
}
