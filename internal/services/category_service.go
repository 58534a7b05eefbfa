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

// CategoryService manages the global category catalog.
type CategoryService struct {
	store interface {
		ledger.Writer
		ledger.Catalog
	}
	cache *cache.Manager
	mutations
}

func NewCategoryService(store ledger.Store, cm *cache.Manager, coordinator *invalidation.Coordinator, logger *log.Logger) *CategoryService {
	return &CategoryService{
		store:     store,
		cache:     cm,
		mutations: newMutations(coordinator, nil, logger.WithComponent(log.ComponentLedger)),
	}
}

func (s *CategoryService) mutation(action invalidation.Action) invalidation.Mutation {
	return invalidation.Mutation{Entity: invalidation.EntityCategory, Action: action}
}

func (s *CategoryService) Create(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.committed(ctx, s.mutation(invalidation.ActionCreate), created.ID)
	return created, nil
}

// Update renames or restyles a category. Its type cannot change.
func (s *CategoryService) Update(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	updated, err := s.store.UpdateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", c.ID, err)
	}
	s.committed(ctx, s.mutation(invalidation.ActionUpdate), updated.ID)
	return updated, nil
}

// Delete removes a category. Transactions that used it become
// uncategorized; cached breakdowns naming it expire on their TTL.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	s.committed(ctx, s.mutation(invalidation.ActionDelete), id)
	return nil
}

func (s *CategoryService) Get(ctx context.Context, id int64) (core.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

// List returns categories of type t, or all of them when t is empty.
func (s *CategoryService) List(ctx context.Context, t core.TransactionType) ([]core.Category, error) {
	if t != "" {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return cache.ReadThrough(ctx, s.cache, cache.CategoriesKey(t), func(ctx context.Context) ([]core.Category, error) {
		cats, err := s.store.ListCategories(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		return cats, nil
	})
}
