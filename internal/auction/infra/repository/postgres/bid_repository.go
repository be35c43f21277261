package postgres

import (
	"context"
	"errors"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const bidColumns = `id, auction_id, bidder_id, amount, timestamp`

// BidRepository maps the bids table. Bids are only ever inserted.
type BidRepository struct{}

// Insert only writes the bid, the transaction around it belongs to the caller.
func (BidRepository) Insert(ctx context.Context, tx pgx.Tx, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (` + bidColumns + `)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err := tx.Exec(ctx, query,
		bid.ID,
		bid.AuctionID,
		bid.BidderID,
		bid.Amount,
		bid.Timestamp,
	)
	return err
}

// Highest returns nil, nil when the auction has no bids.
func (BidRepository) Highest(ctx context.Context, q querier, auctionID uuid.UUID) (*domain.Bid, error) {
	query := `
        SELECT ` + bidColumns + `
        FROM bids
        WHERE auction_id = $1
        ORDER BY amount DESC
        LIMIT 1
    `
	bid, err := scanBid(q.QueryRow(ctx, query, auctionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return bid, nil
}

func (BidRepository) ListByAuction(ctx context.Context, q querier, auctionID uuid.UUID) ([]*domain.Bid, error) {
	query := `
        SELECT ` + bidColumns + `
        FROM bids
        WHERE auction_id = $1
        ORDER BY amount DESC
    `
	rows, err := q.Query(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bids, nil
}

func scanBid(row pgx.Row) (*domain.Bid, error) {
	bid := &domain.Bid{}
	err := row.Scan(
		&bid.ID,
		&bid.AuctionID,
		&bid.BidderID,
		&bid.Amount,
		&bid.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	return bid, nil
}
