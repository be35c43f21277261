package domain

import (
	"time"

	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// State is the lifecycle position of an auction.
type State string

const (
	StateActive    State = "active"
	StateConcluded State = "concluded"
	StateAnnulled  State = "annulled"
)

// IsTerminal reports whether no transition can leave s.
func (s State) IsTerminal() bool {
	return s == StateConcluded || s == StateAnnulled
}

// Auction is the aggregate root of one listing. Bids hang off it by AuctionID
// and are loaded separately.
type Auction struct {
	ID           uuid.UUID
	SellerID     uuid.UUID
	Title        string
	Description  string
	BasePrice    decimal.Decimal
	MinimumRaise decimal.Decimal
	Deadline     time.Time
	State        State
	// NotificationSent is only ever true for a closed auction and never reverts.
	NotificationSent bool
	CreatedAt        time.Time
}

// NewAuction builds an active auction. Prices are rounded to cents.
func NewAuction(id, sellerID uuid.UUID, title, description string, basePrice, minimumRaise decimal.Decimal, deadline, createdAt time.Time) (*Auction, error) {
	basePrice = Money(basePrice)
	minimumRaise = Money(minimumRaise)
	if basePrice.IsNegative() || !minimumRaise.IsPositive() {
		return nil, ErrInvalidAmount
	}
	return &Auction{
		ID:           id,
		SellerID:     sellerID,
		Title:        title,
		Description:  description,
		BasePrice:    basePrice,
		MinimumRaise: minimumRaise,
		Deadline:     deadline,
		State:        StateActive,
		CreatedAt:    createdAt,
	}, nil
}

// IsExpired reports whether the deadline has been reached at now.
func (a *Auction) IsExpired(now time.Time) bool {
	return !now.Before(a.Deadline)
}

// IsActive is true while the auction still accepts bids at now, i.e. it is in
// the active state and its deadline has not passed.
func (a *Auction) IsActive(now time.Time) bool {
	return a.State == StateActive && !a.IsExpired(now)
}

// CurrentPrice is the highest bid amount, or the base price without bids.
func (a *Auction) CurrentPrice(highest *Bid) decimal.Decimal {
	if highest == nil {
		return a.BasePrice
	}
	return highest.Amount
}

// MinimumNextBid is the smallest amount the next bid may carry.
func (a *Auction) MinimumNextBid(highest *Bid) decimal.Decimal {
	return a.CurrentPrice(highest).Add(a.MinimumRaise)
}

// CheckRaise returns a *RaiseTooLowError when amount does not clear the
// minimum raise over the current price.
func (a *Auction) CheckRaise(amount decimal.Decimal, highest *Bid) error {
	minimum := a.MinimumNextBid(highest)
	if amount.LessThan(minimum) {
		return &RaiseTooLowError{
			CurrentPrice: a.CurrentPrice(highest),
			MinimumBid:   minimum,
		}
	}
	return nil
}

// Conclude moves an active auction to concluded.
func (a *Auction) Conclude() error {
	if a.State != StateActive {
		log.Warn("Attempted to conclude auction that is not active",
			zap.String("auctionID", a.ID.String()),
			zap.String("state", string(a.State)),
		)
		return ErrAuctionNotActive
	}
	a.State = StateConcluded
	return nil
}

// Annul moves an active auction to annulled. Annulled auctions have no winner
// and nobody is told about them, so the notification step is marked done.
func (a *Auction) Annul() error {
	if a.State != StateActive {
		log.Warn("Attempted to annul auction that is not active",
			zap.String("auctionID", a.ID.String()),
			zap.String("state", string(a.State)),
		)
		return ErrAuctionNotActive
	}
	a.State = StateAnnulled
	a.NotificationSent = true
	return nil
}

// MarkNotified records that closure notices went out. It refuses an auction
// that is still active.
func (a *Auction) MarkNotified() error {
	if a.State == StateActive {
		return ErrAuctionNotActive
	}
	a.NotificationSent = true
	return nil
}
