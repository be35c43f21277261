package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const auctionColumns = `id, seller_id, title, description, base_price, minimum_raise, deadline, state, notification_sent, created_at`

// AuctionRepository maps the auctions table.
type AuctionRepository struct{}

func (AuctionRepository) Create(ctx context.Context, q querier, a *domain.Auction) error {
	query := `
        INSERT INTO auctions (` + auctionColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err := q.Exec(ctx, query,
		a.ID,
		a.SellerID,
		a.Title,
		a.Description,
		a.BasePrice,
		a.MinimumRaise,
		a.Deadline,
		a.State,
		a.NotificationSent,
		a.CreatedAt,
	)
	return err
}

// GetByID loads one auction. With forUpdate the row stays locked until the
// surrounding transaction ends.
func (AuctionRepository) GetByID(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	a, err := scanAuction(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, err
	}
	return a, nil
}

// ListActive returns active auctions by deadline. A non-zero expiredAt keeps
// only those with deadline <= expiredAt.
func (AuctionRepository) ListActive(ctx context.Context, q querier, expiredAt time.Time) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE state = $1`
	args := []any{domain.StateActive}
	if !expiredAt.IsZero() {
		query += ` AND deadline <= $2`
		args = append(args, expiredAt)
	}
	query += ` ORDER BY deadline ASC`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return auctions, nil
}

// UpdateLifecycle writes only the columns the state machine owns.
func (AuctionRepository) UpdateLifecycle(ctx context.Context, tx pgx.Tx, a *domain.Auction) error {
	query := `
        UPDATE auctions
        SET state = $2, notification_sent = $3, updated_at = NOW()
        WHERE id = $1
    `
	tag, err := tx.Exec(ctx, query, a.ID, a.State, a.NotificationSent)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAuctionNotFound
	}
	return nil
}

func scanAuction(row pgx.Row) (*domain.Auction, error) {
	a := &domain.Auction{}
	err := row.Scan(
		&a.ID,
		&a.SellerID,
		&a.Title,
		&a.Description,
		&a.BasePrice,
		&a.MinimumRaise,
		&a.Deadline,
		&a.State,
		&a.NotificationSent,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}
