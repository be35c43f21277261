package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrAuctionNotFound  = errors.New("auction not found")
	ErrBidderNotFound   = errors.New("bidder not found")
	ErrForbidden        = errors.New("user is not allowed to bid")
	ErrAuctionClosed    = errors.New("auction is closed")
	ErrRaiseTooLow      = errors.New("bid does not meet the minimum raise")
	ErrInvalidAmount    = errors.New("amount must be greater than zero")
	ErrAuctionNotActive = errors.New("auction is not active")
	// ErrDuplicateBidAmount is raised by stores when another bid on the same
	// auction already carries the amount.
	ErrDuplicateBidAmount = errors.New("bid amount already taken for this auction")
	ErrStoreUnavailable   = errors.New("auction store unavailable")
)

// RaiseTooLowError tells the bidder what the auction stood at when their bid
// was refused.
type RaiseTooLowError struct {
	CurrentPrice decimal.Decimal
	MinimumBid   decimal.Decimal
}

func (e *RaiseTooLowError) Error() string {
	return fmt.Sprintf("bid must be at least %s (current price %s)",
		FormatMoney(e.MinimumBid), FormatMoney(e.CurrentPrice))
}

func (e *RaiseTooLowError) Is(target error) bool {
	return target == ErrRaiseTooLow
}
