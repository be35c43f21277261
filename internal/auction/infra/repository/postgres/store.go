package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	notification "github.com/cristianortiz/auctionhouse/internal/notification/domain"
	notifpg "github.com/cristianortiz/auctionhouse/internal/notification/infra/repository/postgres"
	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const (
	uniqueViolation       = "23505"
	bidAmountUniqueConstr = "bids_auction_amount_unique"
)

// Store implements domain.Store on PostgreSQL. Auction rows are locked with
// SELECT ... FOR UPDATE inside InTx.
type Store struct {
	pool          *pgxpool.Pool
	auctions      AuctionRepository
	bids          BidRepository
	notifications *notifpg.NotificationRepository
}

func NewStore(pool *pgxpool.Pool, notifications *notifpg.NotificationRepository) *Store {
	return &Store{pool: pool, notifications: notifications}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return translate("begin transaction", err)
	}

	//config defer() to handle commit/rollback
	defer func() {
		if r := recover(); r != nil {
			log.Error("Store: recovered from panic during transaction", zap.Any("panic", r))
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(r)
		}
		if err != nil {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Warn("Store: rollback failed", zap.Error(rbErr))
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			log.Error("Store: failed to commit transaction", zap.Error(commitErr))
			err = translate("commit", commitErr)
		}
	}()

	return fn(ctx, &pgTx{store: s, tx: tx})
}

func (s *Store) CreateAuction(ctx context.Context, a *domain.Auction) error {
	if err := s.auctions.Create(ctx, s.pool, a); err != nil {
		return translate("create auction", err)
	}
	return nil
}

func (s *Store) GetAuction(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	a, err := s.auctions.GetByID(ctx, s.pool, id, false)
	if err != nil {
		return nil, translate("get auction", err)
	}
	return a, nil
}

func (s *Store) ListActive(ctx context.Context) ([]*domain.Auction, error) {
	auctions, err := s.auctions.ListActive(ctx, s.pool, time.Time{})
	if err != nil {
		return nil, translate("list active auctions", err)
	}
	return auctions, nil
}

func (s *Store) ListExpired(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	auctions, err := s.auctions.ListActive(ctx, s.pool, now)
	if err != nil {
		return nil, translate("list expired auctions", err)
	}
	return auctions, nil
}

func (s *Store) HighestBid(ctx context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	bid, err := s.bids.Highest(ctx, s.pool, auctionID)
	if err != nil {
		return nil, translate("highest bid", err)
	}
	return bid, nil
}

func (s *Store) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	bids, err := s.bids.ListByAuction(ctx, s.pool, auctionID)
	if err != nil {
		return nil, translate("list bids", err)
	}
	return bids, nil
}

type pgTx struct {
	store *Store
	tx    pgx.Tx
}

func (t *pgTx) LockAuction(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	a, err := t.store.auctions.GetByID(ctx, t.tx, id, true)
	if err != nil {
		return nil, translate("lock auction", err)
	}
	return a, nil
}

func (t *pgTx) HighestBid(ctx context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	bid, err := t.store.bids.Highest(ctx, t.tx, auctionID)
	if err != nil {
		return nil, translate("highest bid", err)
	}
	return bid, nil
}

func (t *pgTx) InsertBid(ctx context.Context, bid *domain.Bid) error {
	if err := t.store.bids.Insert(ctx, t.tx, bid); err != nil {
		return translate("insert bid", err)
	}
	return nil
}

func (t *pgTx) SaveLifecycle(ctx context.Context, a *domain.Auction) error {
	if err := t.store.auctions.UpdateLifecycle(ctx, t.tx, a); err != nil {
		return translate("save lifecycle", err)
	}
	return nil
}

func (t *pgTx) CreateNotification(ctx context.Context, n *notification.Notification) error {
	if err := t.store.notifications.Insert(ctx, t.tx, n); err != nil {
		return translate("create notification", err)
	}
	return nil
}

// translate keeps domain errors, turns the bid amount unique violation into
// ErrDuplicateBidAmount and wraps everything else in ErrStoreUnavailable.
func translate(op string, err error) error {
	if errors.Is(err, domain.ErrAuctionNotFound) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == bidAmountUniqueConstr {
		return domain.ErrDuplicateBidAmount
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
