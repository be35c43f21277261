package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	user "github.com/cristianortiz/auctionhouse/internal/user/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type userCreator interface {
	Create(ctx context.Context, u *user.User) error
}

type auctionCreator interface {
	CreateAuction(ctx context.Context, a *domain.Auction) error
}

// seedDemo fills the in-memory driver with one seller, two buyers and a couple
// of running auctions so the API is usable right away.
func seedDemo(ctx context.Context, auctions auctionCreator, users userCreator, now time.Time) error {
	log := logger.GetLogger()

	seller := &user.User{ID: uuid.New(), Username: "seller", Role: user.RoleSeller}
	buyers := []*user.User{
		{ID: uuid.New(), Username: "alice", Role: user.RoleBuyer},
		{ID: uuid.New(), Username: "bob", Role: user.RoleBuyer},
	}
	for _, u := range append([]*user.User{seller}, buyers...) {
		if err := users.Create(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Username, err)
		}
		log.Info("Demo user", zap.String("username", u.Username), zap.String("id", u.ID.String()), zap.String("role", string(u.Role)))
	}

	lots := []struct {
		title    string
		base     string
		raise    string
		duration time.Duration
	}{
		{"Vintage camera", "50.00", "5.00", 10 * time.Minute},
		{"Oak bookcase", "120.00", "10.00", time.Hour},
	}
	for _, lot := range lots {
		a, err := domain.NewAuction(uuid.New(), seller.ID, lot.title, "",
			decimal.RequireFromString(lot.base), decimal.RequireFromString(lot.raise), now.Add(lot.duration), now)
		if err != nil {
			return fmt.Errorf("seed auction %q: %w", lot.title, err)
		}
		if err := auctions.CreateAuction(ctx, a); err != nil {
			return fmt.Errorf("seed auction %q: %w", lot.title, err)
		}
		log.Info("Demo auction", zap.String("title", a.Title), zap.String("id", a.ID.String()), zap.Time("deadline", a.Deadline))
	}
	return nil
}
