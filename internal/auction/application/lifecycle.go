package application

import (
	"context"
	"fmt"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	notifapp "github.com/cristianortiz/auctionhouse/internal/notification/application"
	"github.com/cristianortiz/auctionhouse/internal/shared/clock"
	"github.com/cristianortiz/auctionhouse/internal/shared/keylock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	msgWinner        = "Congratulations! You won the auction '%s'."
	msgSellerWithBid = "Your auction '%s' has concluded. It was won by %s for €%s."
	msgSellerNoBids  = "Your auction '%s' concluded without receiving any bids."
)

// Lifecycle owns the active -> concluded/annulled transitions. Every caller
// goes through the per-auction lock shared with the bid ledger.
type Lifecycle struct {
	store    domain.Store
	users    domain.UserDirectory
	locks    *keylock.Locker[uuid.UUID]
	clock    clock.Clock
	notifier *notifapp.Dispatcher
}

func NewLifecycle(store domain.Store, users domain.UserDirectory, locks *keylock.Locker[uuid.UUID], clk clock.Clock, notifier *notifapp.Dispatcher) *Lifecycle {
	return &Lifecycle{
		store:    store,
		users:    users,
		locks:    locks,
		clock:    clk,
		notifier: notifier,
	}
}

// CheckAndClose concludes the auction if its deadline has passed and reports
// whether this call made the transition. Safe to call any number of times
// concurrently. On failure the auction stays active and the next call retries.
func (l *Lifecycle) CheckAndClose(ctx context.Context, auctionID uuid.UUID) (bool, error) {
	a, err := l.store.GetAuction(ctx, auctionID)
	if err != nil {
		return false, fmt.Errorf("check and close: get auction %s: %w", auctionID, err)
	}
	if !l.due(a) {
		return false, nil
	}

	unlock, err := l.locks.Lock(ctx, auctionID)
	if err != nil {
		return false, fmt.Errorf("check and close: waiting for auction %s: %w", auctionID, err)
	}
	defer unlock()

	closed := false
	err = l.store.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		locked, err := tx.LockAuction(ctx, auctionID)
		if err != nil {
			return err
		}
		closed, err = l.closeLocked(ctx, tx, locked)
		return err
	})
	if err != nil {
		log.Error("CheckAndClose: transition failed, auction stays active",
			zap.String("auctionID", auctionID.String()),
			zap.Error(err),
		)
		return false, fmt.Errorf("check and close: auction %s: %w", auctionID, err)
	}
	return closed, nil
}

func (l *Lifecycle) due(a *domain.Auction) bool {
	return a.State == domain.StateActive && a.IsExpired(l.clock.Now())
}

// closeLocked runs the transition inside tx. The caller holds the auction's
// keyed lock and a row lock on a.
func (l *Lifecycle) closeLocked(ctx context.Context, tx domain.Tx, a *domain.Auction) (bool, error) {
	if !l.due(a) {
		return false, nil
	}
	if err := a.Conclude(); err != nil {
		return false, err
	}
	if !a.NotificationSent {
		if err := l.notifyClosure(ctx, tx, a); err != nil {
			return false, err
		}
		if err := a.MarkNotified(); err != nil {
			return false, err
		}
	}
	if err := tx.SaveLifecycle(ctx, a); err != nil {
		return false, err
	}

	log.Info("Auction concluded",
		zap.String("auctionID", a.ID.String()),
		zap.Time("deadline", a.Deadline),
	)
	return true, nil
}

func (l *Lifecycle) notifyClosure(ctx context.Context, tx domain.Tx, a *domain.Auction) error {
	auctionID := a.ID
	top, err := tx.HighestBid(ctx, a.ID)
	if err != nil {
		return err
	}

	if top == nil {
		_, err := l.notifier.Notify(ctx, tx, a.SellerID, fmt.Sprintf(msgSellerNoBids, a.Title), &auctionID)
		return err
	}

	winner := usernameOf(ctx, l.users, top.BidderID)
	if _, err := l.notifier.Notify(ctx, tx, top.BidderID, fmt.Sprintf(msgWinner, a.Title), &auctionID); err != nil {
		return err
	}
	msg := fmt.Sprintf(msgSellerWithBid, a.Title, winner, domain.FormatMoney(top.Amount))
	_, err = l.notifier.Notify(ctx, tx, a.SellerID, msg, &auctionID)
	return err
}

// Annul takes an active auction out of play without a winner. An auction whose
// deadline already passed is concluded instead and ErrAuctionNotActive is
// returned.
func (l *Lifecycle) Annul(ctx context.Context, auctionID uuid.UUID) error {
	unlock, err := l.locks.Lock(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("annul: waiting for auction %s: %w", auctionID, err)
	}
	defer unlock()

	concluded := false
	err = l.store.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		a, err := tx.LockAuction(ctx, auctionID)
		if err != nil {
			return err
		}
		if l.due(a) {
			concluded, err = l.closeLocked(ctx, tx, a)
			return err
		}
		if err := a.Annul(); err != nil {
			return err
		}
		return tx.SaveLifecycle(ctx, a)
	})
	if err != nil {
		return fmt.Errorf("annul: auction %s: %w", auctionID, err)
	}
	if concluded {
		return fmt.Errorf("annul: auction %s: %w", auctionID, domain.ErrAuctionNotActive)
	}

	log.Info("Auction annulled", zap.String("auctionID", auctionID.String()))
	return nil
}

// usernameOf falls back to the id so a vanished account cannot block closure.
func usernameOf(ctx context.Context, users domain.UserDirectory, id uuid.UUID) string {
	u, err := users.GetByID(ctx, id)
	if err != nil {
		log.Warn("Username lookup failed, using id",
			zap.String("userID", id.String()),
			zap.Error(err),
		)
		return id.String()
	}
	return u.Username
}
