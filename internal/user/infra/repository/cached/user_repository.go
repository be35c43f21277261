// Package cached puts an LRU in front of the user directory. Every accepted bid
// resolves the bidder's username for the live event, so lookups are hot.
package cached

import (
	"context"
	"fmt"

	"github.com/cristianortiz/auctionhouse/internal/user/domain"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
)

type UserRepository struct {
	next  domain.Repository
	cache *lru.Cache
}

func NewUserRepository(next domain.Repository, size int) (*UserRepository, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("user cache: %w", err)
	}
	return &UserRepository{next: next, cache: cache}, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if v, ok := r.cache.Get(id); ok {
		u := v.(domain.User)
		return &u, nil
	}

	user, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Add(id, *user)
	return user, nil
}

// Invalidate drops id so the next lookup hits the directory.
func (r *UserRepository) Invalidate(id uuid.UUID) {
	r.cache.Remove(id)
}
