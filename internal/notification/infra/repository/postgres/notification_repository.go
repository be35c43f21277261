package postgres

import (
	"context"
	"fmt"

	"github.com/cristianortiz/auctionhouse/internal/notification/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationRepository implements domain.Repository and writes notifications
// inside transactions opened by the auction store.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Insert only writes the row, the surrounding transaction belongs to the caller.
func (r *NotificationRepository) Insert(ctx context.Context, tx pgx.Tx, n *domain.Notification) error {
	query := `
        INSERT INTO notifications (id, recipient_id, message, read, auction_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := tx.Exec(ctx, query,
		n.ID,
		n.RecipientID,
		n.Message,
		n.Read,
		n.AuctionID,
		n.CreatedAt,
	)
	return err
}

func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*domain.Notification, error) {
	query := `
        SELECT id, recipient_id, message, read, auction_id, created_at
        FROM notifications
        WHERE recipient_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.pool.Query(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		n := &domain.Notification{}
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Message, &n.Read, &n.AuctionID, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error) {
	query := `UPDATE notifications SET read = TRUE WHERE recipient_id = $1 AND id = ANY($2) AND NOT read`
	tag, err := r.pool.Exec(ctx, query, recipientID, ids)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT read`
	if err := r.pool.QueryRow(ctx, query, recipientID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}
