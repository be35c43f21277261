package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/cristianortiz/auctionhouse/internal/shared/clock"
	"github.com/cristianortiz/auctionhouse/internal/shared/keylock"
	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	user "github.com/cristianortiz/auctionhouse/internal/user/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// PlaceBidDTO is DTO input for PlaceBid useCase, contains the necessary data to make a bid
type PlaceBidDTO struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
}

// BidResultDTO is what an accepted bid returns to the bidder.
type BidResultDTO struct {
	AuctionID     uuid.UUID
	BidID         uuid.UUID
	CurrentPrice  decimal.Decimal
	CurrentHolder string
}

// PlaceBidUseCase admits bids one at a time per auction. The read of the
// current price and the insert of the new bid share one critical section with
// the lifecycle transitions of the same auction.
type PlaceBidUseCase struct {
	store     domain.Store
	users     domain.UserDirectory
	locks     *keylock.Locker[uuid.UUID]
	lifecycle *Lifecycle
	publisher domain.EventPublisher
	clock     clock.Clock
	timeout   time.Duration
}

// NewPlaceBidUseCase creates a new instance of PlaceBidUseCase. A zero timeout
// leaves the caller's context alone.
func NewPlaceBidUseCase(store domain.Store,
	users domain.UserDirectory,
	locks *keylock.Locker[uuid.UUID],
	lifecycle *Lifecycle,
	publisher domain.EventPublisher,
	clk clock.Clock,
	timeout time.Duration) *PlaceBidUseCase {

	return &PlaceBidUseCase{
		store:     store,
		users:     users,
		locks:     locks,
		lifecycle: lifecycle,
		publisher: publisher,
		clock:     clk,
		timeout:   timeout,
	}
}

func (uc *PlaceBidUseCase) Execute(ctx context.Context, cmd PlaceBidDTO) (*BidResultDTO, error) {
	log.Info("Executing PlaceBidUseCase",
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("bidderID", cmd.BidderID.String()),
		zap.Stringer("amount", cmd.Amount),
	)
	// 1. input validation, amounts are positive and carry at most cents
	if !cmd.Amount.IsPositive() || !cmd.Amount.Equal(domain.Money(cmd.Amount)) {
		return nil, domain.ErrInvalidAmount
	}

	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	// 2. per-auction critical section, held until the event is published so
	// fan-out order matches acceptance order
	unlock, err := uc.locks.Lock(ctx, cmd.AuctionID)
	if err != nil {
		log.Warn("PlaceBidUseCase: gave up waiting for auction lock",
			zap.String("auctionID", cmd.AuctionID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("place bid use case: waiting for auction %s: %w", cmd.AuctionID, err)
	}
	defer unlock()

	var (
		result  *BidResultDTO
		expired bool
	)
	err = uc.store.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		a, err := tx.LockAuction(ctx, cmd.AuctionID)
		if err != nil {
			return err
		}

		bidder, err := uc.users.GetByID(ctx, cmd.BidderID)
		if errors.Is(err, user.ErrUserNotFound) {
			return domain.ErrBidderNotFound
		}
		if err != nil {
			return fmt.Errorf("lookup bidder: %w", err)
		}
		if !bidder.CanBid() {
			return domain.ErrForbidden
		}

		if a.State != domain.StateActive {
			return domain.ErrAuctionClosed
		}
		// the closure commits with this transaction, the bid is refused after
		if a.IsExpired(uc.clock.Now()) {
			expired = true
			_, err := uc.lifecycle.closeLocked(ctx, tx, a)
			return err
		}

		top, err := tx.HighestBid(ctx, a.ID)
		if err != nil {
			return err
		}
		if err := a.CheckRaise(cmd.Amount, top); err != nil {
			return err
		}

		bid := domain.NewBid(uuid.New(), a.ID, bidder.ID, cmd.Amount, uc.clock.Now())
		if err := tx.InsertBid(ctx, bid); err != nil {
			return err
		}
		result = &BidResultDTO{
			AuctionID:     a.ID,
			BidID:         bid.ID,
			CurrentPrice:  bid.Amount,
			CurrentHolder: bidder.Username,
		}
		return nil
	})

	if errors.Is(err, domain.ErrDuplicateBidAmount) {
		// another writer got the amount first, answer against the new price
		err = uc.refreshedRaiseTooLow(ctx, cmd.AuctionID)
	}
	if err != nil {
		uc.logRejection(cmd, err)
		return nil, fmt.Errorf("place bid use case: auction %s: %w", cmd.AuctionID, err)
	}
	if expired {
		log.Info("PlaceBidUseCase: bid arrived after deadline",
			zap.String("auctionID", cmd.AuctionID.String()),
			zap.String("bidderID", cmd.BidderID.String()),
		)
		return nil, fmt.Errorf("place bid use case: auction %s: %w", cmd.AuctionID, domain.ErrAuctionClosed)
	}

	uc.publisher.PublishBidAccepted(domain.BidAccepted{
		AuctionID: result.AuctionID,
		NewPrice:  result.CurrentPrice,
		Bidder:    result.CurrentHolder,
	})

	log.Info("Bid accepted",
		zap.String("auctionID", result.AuctionID.String()),
		zap.String("bidID", result.BidID.String()),
		zap.String("bidder", result.CurrentHolder),
		zap.Stringer("amount", result.CurrentPrice),
	)
	return result, nil
}

func (uc *PlaceBidUseCase) refreshedRaiseTooLow(ctx context.Context, auctionID uuid.UUID) error {
	a, err := uc.store.GetAuction(ctx, auctionID)
	if err != nil {
		return err
	}
	top, err := uc.store.HighestBid(ctx, auctionID)
	if err != nil {
		return err
	}
	return &domain.RaiseTooLowError{
		CurrentPrice: a.CurrentPrice(top),
		MinimumBid:   a.MinimumNextBid(top),
	}
}

func (uc *PlaceBidUseCase) logRejection(cmd PlaceBidDTO, err error) {
	fields := []zap.Field{
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("bidderID", cmd.BidderID.String()),
		zap.Stringer("amount", cmd.Amount),
		zap.Error(err),
	}
	switch {
	case errors.Is(err, domain.ErrAuctionNotFound),
		errors.Is(err, domain.ErrBidderNotFound),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrAuctionClosed),
		errors.Is(err, domain.ErrRaiseTooLow):
		log.Warn("Bid rejected", fields...)
	default:
		log.Error("PlaceBidUseCase: bid failed", fields...)
	}
}
