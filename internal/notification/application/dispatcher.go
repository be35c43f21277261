package application

import (
	"context"
	"fmt"

	"github.com/cristianortiz/auctionhouse/internal/notification/domain"
	"github.com/cristianortiz/auctionhouse/internal/shared/clock"
	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Dispatcher creates notification records. It does no deduplication, callers
// decide when a notice is due.
type Dispatcher struct {
	clock clock.Clock
}

func NewDispatcher(clk clock.Clock) *Dispatcher {
	return &Dispatcher{clock: clk}
}

// Notify persists one unread notification through w. A store failure is
// returned to the caller untouched apart from wrapping.
func (d *Dispatcher) Notify(ctx context.Context, w domain.Writer, recipientID uuid.UUID, message string, auctionID *uuid.UUID) (*domain.Notification, error) {
	n := domain.NewNotification(uuid.New(), recipientID, message, auctionID, d.clock.Now())

	if err := w.CreateNotification(ctx, n); err != nil {
		log.Error("Dispatcher: failed to store notification",
			zap.String("recipientID", recipientID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("notify %s: %w", recipientID, err)
	}

	log.Info("Notification created",
		zap.String("notificationID", n.ID.String()),
		zap.String("recipientID", recipientID.String()),
	)
	return n, nil
}
