package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BidAccepted is the one event the live view receives.
type BidAccepted struct {
	AuctionID uuid.UUID
	NewPrice  decimal.Decimal
	// Bidder is the public username of the new holder.
	Bidder string
}

// EventPublisher fans BidAccepted out to live viewers. Implementations must not
// block and must not report delivery failures back to the caller.
type EventPublisher interface {
	PublishBidAccepted(event BidAccepted)
}
