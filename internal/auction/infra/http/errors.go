package http

import (
	"github.com/cristianortiz/auctionhouse/internal/auction/application"
	"github.com/gofiber/fiber/v2"
)

// MapErrorToHTTP maps use case errors to a status code and a message safe to
// return to the caller.
func MapErrorToHTTP(err error) (int, string) {
	reason, msg := application.Classify(err)
	switch reason {
	case application.ReasonNotFound:
		return fiber.StatusNotFound, msg
	case application.ReasonForbidden:
		return fiber.StatusForbidden, msg
	case application.ReasonClosed, application.ReasonRaiseTooLow, application.ReasonInvalid:
		return fiber.StatusBadRequest, msg
	case application.ReasonNotActive:
		return fiber.StatusConflict, msg
	case application.ReasonTimeout:
		return fiber.StatusServiceUnavailable, msg
	default:
		return fiber.StatusInternalServerError, msg
	}
}
