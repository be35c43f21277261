package application

import (
	"context"
	"fmt"

	"github.com/cristianortiz/auctionhouse/internal/notification/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Inbox is the read side of notifications.
type Inbox struct {
	repo domain.Repository
}

func NewInbox(repo domain.Repository) *Inbox {
	return &Inbox{repo: repo}
}

// List returns the recipient's notifications newest first and marks the unread
// ones as read. The returned slice keeps the read flags as they were before the
// call so the caller can still highlight what is new.
func (i *Inbox) List(ctx context.Context, recipientID uuid.UUID) ([]*domain.Notification, error) {
	items, err := i.repo.ListByRecipient(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("inbox: list for %s: %w", recipientID, err)
	}

	var unread []uuid.UUID
	for _, n := range items {
		if !n.Read {
			unread = append(unread, n.ID)
		}
	}
	if len(unread) == 0 {
		return items, nil
	}

	marked, err := i.repo.MarkRead(ctx, recipientID, unread)
	if err != nil {
		return nil, fmt.Errorf("inbox: mark read for %s: %w", recipientID, err)
	}
	log.Debug("Inbox: notifications marked read",
		zap.String("recipientID", recipientID.String()),
		zap.Int64("count", marked),
	)
	return items, nil
}

func (i *Inbox) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error) {
	n, err := i.repo.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, fmt.Errorf("inbox: count unread for %s: %w", recipientID, err)
	}
	return n, nil
}
