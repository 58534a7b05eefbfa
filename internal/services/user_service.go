package services

import (
	"context"
	"errors"
	"fmt"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/invalidation"
	"ledger/internal/ledger"
	"ledger/internal/log"
)

type UserService struct {
	store ledger.Users
	cache *cache.Manager
	mutations
}

func NewUserService(store ledger.Users, cm *cache.Manager, coordinator *invalidation.Coordinator, logger *log.Logger) *UserService {
	return &UserService{
		store:     store,
		cache:     cm,
		mutations: newMutations(coordinator, nil, logger.WithComponent(log.ComponentLedger)),
	}
}

// Get returns the cached profile of userID.
func (s *UserService) Get(ctx context.Context, userID int64) (core.UserProfile, error) {
	return cache.ReadThrough(ctx, s.cache, cache.UserProfileKey(userID), func(ctx context.Context) (core.UserProfile, error) {
		u, err := s.store.GetUser(ctx, userID)
		if err != nil {
			return core.UserProfile{}, fmt.Errorf("get user %d: %w", userID, err)
		}
		return u, nil
	})
}

// Update saves the profile of userID, creating it on first use.
func (s *UserService) Update(ctx context.Context, userID int64, u core.UserProfile) (core.UserProfile, error) {
	u.ID = userID
	if err := u.Validate(); err != nil {
		return core.UserProfile{}, err
	}
	action := invalidation.ActionUpdate
	saved, err := s.store.UpdateUser(ctx, u)
	if errors.Is(err, core.ErrNotFound) {
		action = invalidation.ActionCreate
		saved, err = s.store.CreateUser(ctx, u)
	}
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("save user %d: %w", userID, err)
	}
	s.committed(ctx, invalidation.Mutation{Entity: invalidation.EntityUser, Action: action, UserID: userID}, userID)
	return saved, nil
}
