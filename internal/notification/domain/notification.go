package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Notification is a durable message for one user, read on their next visit to
// the inbox. There is no push delivery.
type Notification struct {
	ID          uuid.UUID
	RecipientID uuid.UUID
	Message     string
	Read        bool
	// AuctionID is nil for notices not tied to an auction.
	AuctionID *uuid.UUID
	CreatedAt time.Time
}

func NewNotification(id, recipientID uuid.UUID, message string, auctionID *uuid.UUID, createdAt time.Time) *Notification {
	return &Notification{
		ID:          id,
		RecipientID: recipientID,
		Message:     message,
		AuctionID:   auctionID,
		CreatedAt:   createdAt,
	}
}

// Writer persists new notifications. Auction stores hand out a Writer bound to
// their open transaction so closure and notices commit together.
type Writer interface {
	CreateNotification(ctx context.Context, n *Notification) error
}

// Repository backs the inbox.
type Repository interface {
	// ListByRecipient returns newest first.
	ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*Notification, error)
	// MarkRead flags the given notifications of recipientID as read.
	MarkRead(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error)
}
