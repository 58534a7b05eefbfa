package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger/internal/log"
)

// Options tune the Manager. Zero values fall back to defaults.
type Options struct {
	// OpTimeout bounds each single-key store call.
	OpTimeout time.Duration
	// ScanTimeout bounds key enumeration during pattern deletes.
	ScanTimeout time.Duration
	// DeleteBatch is the number of keys removed per store round trip.
	DeleteBatch int
	Codec       *Codec
	Logger      *log.Logger
}

const (
	defaultOpTimeout   = 150 * time.Millisecond
	defaultScanTimeout = 2 * time.Second
	defaultDeleteBatch = 500
)

// Manager is the cache-aside front: it never computes values itself, it
// only stores, serves and purges what callers give it. Store failures are
// absorbed: reads degrade to misses and writes are dropped.
type Manager struct {
	store       Store
	codec       Codec
	metrics     *Metrics
	logger      *log.Logger
	opTimeout   time.Duration
	scanTimeout time.Duration
	deleteBatch int
}

func NewManager(store Store, opts Options) *Manager {
	m := &Manager{
		store:       store,
		codec:       DefaultCodec(),
		metrics:     NewMetrics(),
		opTimeout:   opts.OpTimeout,
		scanTimeout: opts.ScanTimeout,
		deleteBatch: opts.DeleteBatch,
	}
	if opts.Codec != nil {
		m.codec = *opts.Codec
	}
	if m.opTimeout <= 0 {
		m.opTimeout = defaultOpTimeout
	}
	if m.scanTimeout <= 0 {
		m.scanTimeout = defaultScanTimeout
	}
	if m.deleteBatch <= 0 {
		m.deleteBatch = defaultDeleteBatch
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	m.logger = logger.WithComponent(log.ComponentCache)
	return m
}

// Get decodes the cached value for key into dst and reports whether it was
// a hit. Errors and timeouts count as misses.
func (m *Manager) Get(ctx context.Context, key Key, dst any) bool {
	opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()

	data, ok, err := m.store.Get(opCtx, key.String())
	if err != nil {
		m.metrics.failedRead()
		m.logger.WarnContext(ctx, "Cache read failed, treating as miss",
			log.NewFields().WithCache(key.String(), "").WithError(err).WithErrorType(log.ErrorTypeCache).ToSlice()...)
		return false
	}
	if !ok {
		m.metrics.miss()
		return false
	}
	if err := m.codec.Decode(data, dst); err != nil {
		m.metrics.failedRead()
		m.logger.WarnContext(ctx, "Dropping undecodable cache entry", log.FieldCacheKey, key.String(), log.FieldError, err)
		_ = m.store.Delete(opCtx, key.String())
		return false
	}
	m.metrics.hit()
	return true
}

// Set stores v under key with the key's TTL, overwriting any previous value.
// The error is informational; callers on the read path ignore it.
func (m *Manager) Set(ctx context.Context, key Key, v any) error {
	data, err := m.codec.Encode(key.Class, v)
	if err != nil {
		m.metrics.fail()
		return fmt.Errorf("encode %s: %w", key, err)
	}

	opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()
	if err := m.store.Set(opCtx, key.String(), data, key.TTL); err != nil {
		m.metrics.fail()
		m.logger.WarnContext(ctx, "Cache write failed",
			log.NewFields().WithCache(key.String(), "").WithError(err).WithErrorType(log.ErrorTypeCache).ToSlice()...)
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, key, err)
	}
	m.metrics.set()
	return nil
}

func (m *Manager) Delete(ctx context.Context, key Key) error {
	opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()
	if err := m.store.Delete(opCtx, key.String()); err != nil {
		m.metrics.fail()
		return fmt.Errorf("%w: delete %s: %v", ErrUnavailable, key, err)
	}
	m.metrics.deleted(1)
	return nil
}

// DeleteByPattern removes every key matching pattern in batches of
// DeleteBatch and returns how many were deleted. No match is not an error.
func (m *Manager) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	scanCtx, cancel := context.WithTimeout(ctx, m.scanTimeout)
	keys, err := m.store.KeysMatching(scanCtx, pattern)
	cancel()
	if err != nil {
		m.metrics.fail()
		return 0, fmt.Errorf("%w: scan %q: %v", ErrUnavailable, pattern, err)
	}

	deleted := 0
	for start := 0; start < len(keys); start += m.deleteBatch {
		end := min(start+m.deleteBatch, len(keys))
		opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
		n, err := m.store.DeleteMany(opCtx, keys[start:end])
		cancel()
		deleted += n
		if err != nil {
			m.metrics.deleted(deleted)
			m.metrics.fail()
			return deleted, fmt.Errorf("%w: delete %q: %v", ErrUnavailable, pattern, err)
		}
	}
	m.metrics.deleted(deleted)
	m.logger.DebugContext(ctx, "Cache pattern purged", log.FieldPattern, pattern, log.FieldDeleted, deleted)
	return deleted, nil
}

func (m *Manager) Ping(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()
	return m.store.Ping(opCtx)
}

func (m *Manager) Metrics() MetricsSnapshot { return m.metrics.Snapshot() }

func (m *Manager) ResetMetrics() { m.metrics.Reset() }

// ReadThrough returns the cached value for key, or computes, stores and
// returns it. A compute error is returned as is and nothing is cached.
func ReadThrough[T any](ctx context.Context, m *Manager, key Key, compute func(context.Context) (T, error)) (T, error) {
	var cached T
	if m.Get(ctx, key, &cached) {
		return cached, nil
	}
	v, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	_ = m.Set(ctx, key, v)
	return v, nil
}

// IsUnavailable reports whether err came from the cache store.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
