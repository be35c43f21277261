package domain

import (
	"context"
	"time"

	notification "github.com/cristianortiz/auctionhouse/internal/notification/domain"
	user "github.com/cristianortiz/auctionhouse/internal/user/domain"
	"github.com/google/uuid"
)

//go:generate mockgen -destination=mock/auction_interfaces.go -package=mock . UserDirectory,EventPublisher

// Store is the durable home of auctions and their bids. Reads outside InTx see
// committed state only.
type Store interface {
	// InTx runs fn in one all-or-nothing transaction. A non-nil error from fn
	// rolls everything back and is returned as is.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	CreateAuction(ctx context.Context, a *Auction) error
	GetAuction(ctx context.Context, id uuid.UUID) (*Auction, error)
	// ListActive returns auctions in the active state ordered by deadline,
	// including ones whose deadline already passed.
	ListActive(ctx context.Context) ([]*Auction, error)
	// ListExpired returns active auctions with deadline <= now.
	ListExpired(ctx context.Context, now time.Time) ([]*Auction, error)
	// HighestBid returns nil and no error when the auction has no bids.
	HighestBid(ctx context.Context, auctionID uuid.UUID) (*Bid, error)
	// ListBids returns bids by descending amount.
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error)
}

// Tx is the write side of an open transaction on the auction aggregate.
type Tx interface {
	notification.Writer

	// LockAuction loads the auction and holds it for the rest of the
	// transaction.
	LockAuction(ctx context.Context, id uuid.UUID) (*Auction, error)
	HighestBid(ctx context.Context, auctionID uuid.UUID) (*Bid, error)
	// InsertBid fails with ErrDuplicateBidAmount when the amount is taken.
	InsertBid(ctx context.Context, bid *Bid) error
	// SaveLifecycle persists State and NotificationSent.
	SaveLifecycle(ctx context.Context, a *Auction) error
}

// UserDirectory resolves bidders and sellers.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}
