package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/cristianortiz/auctionhouse/internal/shared/clock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ListActiveAuctionsUseCase is the home page listing: still-running auctions
// ordered by deadline, each with its current price.
type ListActiveAuctionsUseCase struct {
	store       domain.Store
	users       domain.UserDirectory
	lifecycle   *Lifecycle
	clock       clock.Clock
	concurrency int
}

func NewListActiveAuctionsUseCase(store domain.Store, users domain.UserDirectory, lifecycle *Lifecycle, clk clock.Clock, concurrency int) *ListActiveAuctionsUseCase {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ListActiveAuctionsUseCase{
		store:       store,
		users:       users,
		lifecycle:   lifecycle,
		clock:       clk,
		concurrency: concurrency,
	}
}

func (uc *ListActiveAuctionsUseCase) Execute(ctx context.Context) ([]*AuctionStateDTO, error) {
	auctions, err := uc.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active auctions: %w", err)
	}

	states := make([]*AuctionStateDTO, len(auctions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)
	for i, a := range auctions {
		g.Go(func() error {
			if a.IsExpired(uc.clock.Now()) {
				// closed ones drop out of the listing
				_, err := uc.lifecycle.CheckAndClose(gctx, a.ID)
				return err
			}
			top, err := uc.store.HighestBid(gctx, a.ID)
			if err != nil {
				return fmt.Errorf("highest bid of %s: %w", a.ID, err)
			}
			states[i] = buildState(gctx, uc.users, a, top)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list active auctions: %w", err)
	}

	out := make([]*AuctionStateDTO, 0, len(states))
	for _, s := range states {
		if s != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

type BidDTO struct {
	ID        uuid.UUID
	BidderID  uuid.UUID
	Bidder    string
	Amount    decimal.Decimal
	Timestamp time.Time
}

// ListBidsUseCase returns an auction's bid history, highest first.
type ListBidsUseCase struct {
	store     domain.Store
	users     domain.UserDirectory
	lifecycle *Lifecycle
}

func NewListBidsUseCase(store domain.Store, users domain.UserDirectory, lifecycle *Lifecycle) *ListBidsUseCase {
	return &ListBidsUseCase{store: store, users: users, lifecycle: lifecycle}
}

func (uc *ListBidsUseCase) Execute(ctx context.Context, auctionID uuid.UUID) ([]*BidDTO, error) {
	if _, err := uc.lifecycle.CheckAndClose(ctx, auctionID); err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	bids, err := uc.store.ListBids(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list bids: auction %s: %w", auctionID, err)
	}

	out := make([]*BidDTO, 0, len(bids))
	for _, b := range bids {
		out = append(out, &BidDTO{
			ID:        b.ID,
			BidderID:  b.BidderID,
			Bidder:    usernameOf(ctx, uc.users, b.BidderID),
			Amount:    b.Amount,
			Timestamp: b.Timestamp,
		})
	}
	return out, nil
}
