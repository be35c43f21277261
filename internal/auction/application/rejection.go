package application

import (
	"context"
	"errors"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
)

// Reason classifies a use case error for the gateways.
type Reason string

const (
	ReasonNotFound    Reason = "not_found"
	ReasonForbidden   Reason = "forbidden"
	ReasonClosed      Reason = "closed"
	ReasonRaiseTooLow Reason = "raise_too_low"
	ReasonInvalid     Reason = "invalid_amount"
	ReasonNotActive   Reason = "not_active"
	ReasonTimeout     Reason = "timeout"
	ReasonInternal    Reason = "internal"
)

// Classify returns the reason for err and the message safe to show a user.
// Internal errors never leak their text.
func Classify(err error) (Reason, string) {
	var tooLow *domain.RaiseTooLowError
	switch {
	case errors.As(err, &tooLow):
		return ReasonRaiseTooLow, tooLow.Error()
	case errors.Is(err, domain.ErrRaiseTooLow):
		return ReasonRaiseTooLow, domain.ErrRaiseTooLow.Error()
	case errors.Is(err, domain.ErrAuctionNotFound):
		return ReasonNotFound, domain.ErrAuctionNotFound.Error()
	case errors.Is(err, domain.ErrBidderNotFound):
		return ReasonNotFound, domain.ErrBidderNotFound.Error()
	case errors.Is(err, domain.ErrForbidden):
		return ReasonForbidden, "only buyers can place bids"
	case errors.Is(err, domain.ErrAuctionClosed):
		return ReasonClosed, "this auction has concluded"
	case errors.Is(err, domain.ErrInvalidAmount):
		return ReasonInvalid, domain.ErrInvalidAmount.Error()
	case errors.Is(err, domain.ErrAuctionNotActive):
		return ReasonNotActive, domain.ErrAuctionNotActive.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout, "auction is busy, try again"
	default:
		return ReasonInternal, "internal server error"
	}
}
