package http

import (
	"time"

	"github.com/cristianortiz/auctionhouse/internal/notification/application"
	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

type NotificationDTO struct {
	ID        uuid.UUID  `json:"id"`
	Message   string     `json:"message"`
	Read      bool       `json:"read"`
	AuctionID *uuid.UUID `json:"auction_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type Handler struct {
	inbox *application.Inbox
}

func NewHandler(inbox *application.Inbox) *Handler {
	return &Handler{inbox: inbox}
}

func (h *Handler) RegisterRoutes(router fiber.Router) {
	users := router.Group("/users/:id/notifications")
	users.Get("", h.List)
	users.Get("/unread", h.UnreadCount)
}

// List returns the inbox and marks it read.
func (h *Handler) List(c *fiber.Ctx) error {
	recipientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid user id"})
	}

	items, err := h.inbox.List(c.UserContext(), recipientID)
	if err != nil {
		log.Error("List notifications failed", zap.String("recipientID", recipientID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "internal server error"})
	}

	out := make([]NotificationDTO, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationDTO{
			ID:        n.ID,
			Message:   n.Message,
			Read:      n.Read,
			AuctionID: n.AuctionID,
			CreatedAt: n.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"success": true, "notifications": out})
}

func (h *Handler) UnreadCount(c *fiber.Ctx) error {
	recipientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid user id"})
	}

	n, err := h.inbox.UnreadCount(c.UserContext(), recipientID)
	if err != nil {
		log.Error("Count unread notifications failed", zap.String("recipientID", recipientID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "internal server error"})
	}
	return c.JSON(fiber.Map{"success": true, "unread": n})
}
