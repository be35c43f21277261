package http

import (
	"github.com/cristianortiz/auctionhouse/internal/auction/application"
	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// AuctionHandler exposes the auction service over REST.
type AuctionHandler struct {
	auctionService application.AuctionService
	bidLimiter     fiber.Handler
}

// NewAuctionHandler builds the handler. bidLimiter may be nil, it only guards
// the bid endpoint.
func NewAuctionHandler(auctionService application.AuctionService, bidLimiter fiber.Handler) *AuctionHandler {
	return &AuctionHandler{auctionService: auctionService, bidLimiter: bidLimiter}
}

func (h *AuctionHandler) RegisterRoutes(router fiber.Router) {
	auctions := router.Group("/auctions")
	auctions.Get("", h.ListActive)
	auctions.Get("/:id", h.GetState)
	auctions.Get("/:id/bids", h.ListBids)
	auctions.Post("/:id/annul", h.Annul)

	bidHandlers := []fiber.Handler{}
	if h.bidLimiter != nil {
		bidHandlers = append(bidHandlers, h.bidLimiter)
	}
	bidHandlers = append(bidHandlers, h.PlaceBid)
	auctions.Post("/:id/bids", bidHandlers...)
}

// BidderKey extracts the throttling key of a bid request.
func BidderKey(c *fiber.Ctx) string {
	var req PlaceBidRequest
	if err := c.BodyParser(&req); err != nil || req.BidderID == uuid.Nil {
		return ""
	}
	return "bidder:" + req.BidderID.String()
}

// PlaceBid handles POST /auctions/:id/bids
func (h *AuctionHandler) PlaceBid(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid auction id")
	}
	var req PlaceBidRequest
	if err := c.BodyParser(&req); err != nil {
		log.Warn("PlaceBid: binding error", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, "invalid request payload")
	}

	res, err := h.auctionService.PlaceBid(c.UserContext(), application.PlaceBidDTO{
		AuctionID: auctionID,
		BidderID:  req.BidderID,
		Amount:    req.Amount,
	})
	if err != nil {
		return h.fromError(c, "PlaceBid", auctionID, err)
	}
	return c.JSON(fiber.Map{
		"success":        true,
		"bid_id":         res.BidID,
		"current_price":  domain.FormatMoney(res.CurrentPrice),
		"current_holder": res.CurrentHolder,
	})
}

// GetState handles GET /auctions/:id
func (h *AuctionHandler) GetState(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid auction id")
	}
	state, err := h.auctionService.GetAuctionState(c.UserContext(), auctionID)
	if err != nil {
		return h.fromError(c, "GetState", auctionID, err)
	}
	return c.JSON(fiber.Map{"success": true, "auction": toAuctionResponse(state)})
}

// ListActive handles GET /auctions
func (h *AuctionHandler) ListActive(c *fiber.Ctx) error {
	states, err := h.auctionService.ListActiveAuctions(c.UserContext())
	if err != nil {
		return h.fromError(c, "ListActive", uuid.Nil, err)
	}
	out := make([]AuctionResponse, 0, len(states))
	for _, s := range states {
		out = append(out, toAuctionResponse(s))
	}
	return c.JSON(fiber.Map{"success": true, "auctions": out})
}

// ListBids handles GET /auctions/:id/bids
func (h *AuctionHandler) ListBids(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid auction id")
	}
	bids, err := h.auctionService.ListBids(c.UserContext(), auctionID)
	if err != nil {
		return h.fromError(c, "ListBids", auctionID, err)
	}
	out := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, toBidResponse(b))
	}
	return c.JSON(fiber.Map{"success": true, "bids": out})
}

// Annul handles POST /auctions/:id/annul
func (h *AuctionHandler) Annul(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid auction id")
	}
	if err := h.auctionService.Annul(c.UserContext(), auctionID); err != nil {
		return h.fromError(c, "Annul", auctionID, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *AuctionHandler) fromError(c *fiber.Ctx, handler string, auctionID uuid.UUID, err error) error {
	status, message := MapErrorToHTTP(err)
	if status >= fiber.StatusInternalServerError {
		log.Error(handler+": request failed", zap.String("auctionID", auctionID.String()), zap.Error(err))
	} else {
		log.Debug(handler+": request rejected", zap.String("auctionID", auctionID.String()), zap.Error(err))
	}
	return fail(c, status, message)
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "error": message})
}
