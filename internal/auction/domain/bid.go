package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid is an accepted offer on an auction. It is immutable once stored.
type Bid struct {
	ID        uuid.UUID
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
	Timestamp time.Time
}

// NewBid creates a new Bid instance
func NewBid(id, auctionID, bidderID uuid.UUID, amount decimal.Decimal, timestamp time.Time) *Bid {
	return &Bid{
		ID:        id,
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    Money(amount),
		Timestamp: timestamp,
	}
}

// Money rounds d to cents, the precision every stored amount uses.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatMoney renders d with exactly two decimals.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
