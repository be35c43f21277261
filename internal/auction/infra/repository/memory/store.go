// Package memory is a process-local implementation of the auction store and the
// notification inbox. Writes made inside a transaction are staged and applied
// in one step on commit.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	notification "github.com/cristianortiz/auctionhouse/internal/notification/domain"
	"github.com/google/uuid"
)

// Operation names accepted by FailNext.
const (
	OpLockAuction        = "lock_auction"
	OpInsertBid          = "insert_bid"
	OpSaveLifecycle      = "save_lifecycle"
	OpCreateNotification = "create_notification"
	OpCommit             = "commit"
	OpRead               = "read"
)

type Store struct {
	mu            sync.RWMutex
	auctions      map[uuid.UUID]domain.Auction
	bids          map[uuid.UUID][]domain.Bid
	notifications []notification.Notification
	// pending failures per operation
	failures map[string]int
}

func NewStore() *Store {
	return &Store{
		auctions: make(map[uuid.UUID]domain.Auction),
		bids:     make(map[uuid.UUID][]domain.Bid),
		failures: make(map[string]int),
	}
}

// FailNext makes the next n calls of op fail with domain.ErrStoreUnavailable.
func (s *Store) FailNext(op string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] += n
}

// failLocked consumes one injected failure for op. Callers hold s.mu.
func (s *Store) failLocked(op string) error {
	if s.failures[op] == 0 {
		return nil
	}
	s.failures[op]--
	return fmt.Errorf("%w: injected failure on %s", domain.ErrStoreUnavailable, op)
}

func (s *Store) fail(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failLocked(op)
}

func (s *Store) CreateAuction(_ context.Context, a *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auctions[a.ID]; ok {
		return fmt.Errorf("auction %s already exists", a.ID)
	}
	s.auctions[a.ID] = *a
	return nil
}

func (s *Store) GetAuction(_ context.Context, id uuid.UUID) (*domain.Auction, error) {
	if err := s.fail(OpRead); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	return &a, nil
}

func (s *Store) ListActive(_ context.Context) ([]*domain.Auction, error) {
	if err := s.fail(OpRead); err != nil {
		return nil, err
	}
	return s.filter(func(a *domain.Auction) bool { return a.State == domain.StateActive }), nil
}

func (s *Store) ListExpired(_ context.Context, now time.Time) ([]*domain.Auction, error) {
	if err := s.fail(OpRead); err != nil {
		return nil, err
	}
	return s.filter(func(a *domain.Auction) bool {
		return a.State == domain.StateActive && a.IsExpired(now)
	}), nil
}

func (s *Store) filter(keep func(a *domain.Auction) bool) []*domain.Auction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Auction
	for _, a := range s.auctions {
		if keep(&a) {
			out = append(out, &a)
		}
	}
	slices.SortFunc(out, func(x, y *domain.Auction) int {
		return x.Deadline.Compare(y.Deadline)
	})
	return out
}

func (s *Store) HighestBid(_ context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	if err := s.fail(OpRead); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return highest(s.bids[auctionID], nil), nil
}

func (s *Store) ListBids(_ context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	if err := s.fail(OpRead); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Bid, 0, len(s.bids[auctionID]))
	for _, b := range s.bids[auctionID] {
		out = append(out, &b)
	}
	slices.SortFunc(out, func(x, y *domain.Bid) int {
		return y.Amount.Cmp(x.Amount)
	})
	return out, nil
}

func highest(committed []domain.Bid, staged []domain.Bid) *domain.Bid {
	var top *domain.Bid
	for _, set := range [][]domain.Bid{committed, staged} {
		for i := range set {
			if top == nil || set[i].Amount.GreaterThan(top.Amount) {
				b := set[i]
				top = &b
			}
		}
	}
	return top
}

// InTx does not lock rows. Exclusion per auction comes from the caller's
// keyed lock, the amount uniqueness check on commit is the backstop.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	tx := &memTx{store: s, auctions: make(map[uuid.UUID]domain.Auction)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failLocked(OpCommit); err != nil {
		return err
	}
	for _, b := range tx.bids {
		if amountTaken(s.bids[b.AuctionID], b) {
			return domain.ErrDuplicateBidAmount
		}
	}

	for id, a := range tx.auctions {
		s.auctions[id] = a
	}
	for _, b := range tx.bids {
		s.bids[b.AuctionID] = append(s.bids[b.AuctionID], b)
	}
	s.notifications = append(s.notifications, tx.notifications...)
	return nil
}

func amountTaken(bids []domain.Bid, b domain.Bid) bool {
	for _, existing := range bids {
		if existing.Amount.Equal(b.Amount) {
			return true
		}
	}
	return false
}

type memTx struct {
	store         *Store
	auctions      map[uuid.UUID]domain.Auction
	bids          []domain.Bid
	notifications []notification.Notification
}

func (t *memTx) LockAuction(_ context.Context, id uuid.UUID) (*domain.Auction, error) {
	if err := t.store.fail(OpLockAuction); err != nil {
		return nil, err
	}
	if a, ok := t.auctions[id]; ok {
		return &a, nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	a, ok := t.store.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	return &a, nil
}

func (t *memTx) HighestBid(_ context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	var staged []domain.Bid
	for _, b := range t.bids {
		if b.AuctionID == auctionID {
			staged = append(staged, b)
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return highest(t.store.bids[auctionID], staged), nil
}

func (t *memTx) InsertBid(_ context.Context, bid *domain.Bid) error {
	if err := t.store.fail(OpInsertBid); err != nil {
		return err
	}
	if amountTaken(t.bids, *bid) {
		return domain.ErrDuplicateBidAmount
	}
	t.store.mu.RLock()
	taken := amountTaken(t.store.bids[bid.AuctionID], *bid)
	t.store.mu.RUnlock()
	if taken {
		return domain.ErrDuplicateBidAmount
	}
	t.bids = append(t.bids, *bid)
	return nil
}

func (t *memTx) SaveLifecycle(_ context.Context, a *domain.Auction) error {
	if err := t.store.fail(OpSaveLifecycle); err != nil {
		return err
	}
	t.auctions[a.ID] = *a
	return nil
}

func (t *memTx) CreateNotification(_ context.Context, n *notification.Notification) error {
	if err := t.store.fail(OpCreateNotification); err != nil {
		return err
	}
	t.notifications = append(t.notifications, *n)
	return nil
}

// ListByRecipient implements the inbox repository, newest first.
func (s *Store) ListByRecipient(_ context.Context, recipientID uuid.UUID) ([]*notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*notification.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if n := s.notifications[i]; n.RecipientID == recipientID {
			out = append(out, &n)
		}
	}
	slices.SortStableFunc(out, func(x, y *notification.Notification) int {
		return y.CreatedAt.Compare(x.CreatedAt)
	})
	return out, nil
}

func (s *Store) MarkRead(_ context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var marked int64
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.RecipientID != recipientID || n.Read || !slices.Contains(ids, n.ID) {
			continue
		}
		n.Read = true
		marked++
	}
	return marked, nil
}

func (s *Store) CountUnread(_ context.Context, recipientID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

// Notifications returns a copy of every stored notification in creation order.
func (s *Store) Notifications() []notification.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.notifications)
}
