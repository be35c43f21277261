package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionStateDTO is the output DTO for exposing auction state to the UI/WS
type AuctionStateDTO struct {
	ID             uuid.UUID
	SellerID       uuid.UUID
	Title          string
	Description    string
	BasePrice      decimal.Decimal
	MinimumRaise   decimal.Decimal
	CurrentPrice   decimal.Decimal
	MinimumNextBid decimal.Decimal
	Deadline       time.Time
	State          domain.State
	// CurrentHolder is empty while the auction has no bids.
	CurrentHolder string
}

// GetAuctionStateUseCase retrieves the current state of an auction, closing it
// first when its deadline has passed.
type GetAuctionStateUseCase struct {
	store     domain.Store
	users     domain.UserDirectory
	lifecycle *Lifecycle
}

func NewGetAuctionStateUseCase(store domain.Store, users domain.UserDirectory, lifecycle *Lifecycle) *GetAuctionStateUseCase {
	return &GetAuctionStateUseCase{
		store:     store,
		users:     users,
		lifecycle: lifecycle,
	}
}

func (uc *GetAuctionStateUseCase) Execute(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error) {
	if _, err := uc.lifecycle.CheckAndClose(ctx, auctionID); err != nil {
		return nil, fmt.Errorf("get auction state: %w", err)
	}

	a, err := uc.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get auction state: %w", err)
	}
	top, err := uc.store.HighestBid(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get auction state: highest bid of %s: %w", auctionID, err)
	}
	return buildState(ctx, uc.users, a, top), nil
}

func buildState(ctx context.Context, users domain.UserDirectory, a *domain.Auction, top *domain.Bid) *AuctionStateDTO {
	dto := &AuctionStateDTO{
		ID:             a.ID,
		SellerID:       a.SellerID,
		Title:          a.Title,
		Description:    a.Description,
		BasePrice:      a.BasePrice,
		MinimumRaise:   a.MinimumRaise,
		CurrentPrice:   a.CurrentPrice(top),
		MinimumNextBid: a.MinimumNextBid(top),
		Deadline:       a.Deadline,
		State:          a.State,
	}
	if top != nil {
		dto.CurrentHolder = usernameOf(ctx, users, top.BidderID)
	}
	return dto
}
