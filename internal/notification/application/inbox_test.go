package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/notification/domain"
	"github.com/cristianortiz/auctionhouse/internal/shared/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu        sync.Mutex
	items     []domain.Notification
	createErr error
	markErr   error
	marked    [][]uuid.UUID
}

func (r *fakeRepo) CreateNotification(_ context.Context, n *domain.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, *n)
	return nil
}

func (r *fakeRepo) ListByRecipient(_ context.Context, recipientID uuid.UUID) ([]*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Notification
	for i := range r.items {
		if r.items[i].RecipientID == recipientID {
			n := r.items[i]
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeRepo) MarkRead(_ context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if r.markErr != nil {
		return 0, r.markErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marked = append(r.marked, ids)
	var n int64
	for _, id := range ids {
		for i := range r.items {
			if r.items[i].ID == id && r.items[i].RecipientID == recipientID && !r.items[i].Read {
				r.items[i].Read = true
				n++
			}
		}
	}
	return n, nil
}

func (r *fakeRepo) CountUnread(_ context.Context, recipientID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, item := range r.items {
		if item.RecipientID == recipientID && !item.Read {
			n++
		}
	}
	return n, nil
}

var start = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

func TestDispatcher_Notify(t *testing.T) {
	clk := clock.NewFake(start)
	repo := &fakeRepo{}
	d := NewDispatcher(clk)
	recipient := uuid.New()
	auctionID := uuid.New()

	n, err := d.Notify(context.Background(), repo, recipient, "hello", &auctionID)
	require.NoError(t, err)
	require.Equal(t, recipient, n.RecipientID)
	require.Equal(t, "hello", n.Message)
	require.Equal(t, start, n.CreatedAt)
	require.False(t, n.Read)
	require.Equal(t, auctionID, *n.AuctionID)

	// no dedup
	_, err = d.Notify(context.Background(), repo, recipient, "hello", &auctionID)
	require.NoError(t, err)
	require.Len(t, repo.items, 2)
}

func TestDispatcher_NotifyStoreFailure(t *testing.T) {
	boom := errors.New("boom")
	repo := &fakeRepo{createErr: boom}

	_, err := NewDispatcher(clock.NewFake(start)).Notify(context.Background(), repo, uuid.New(), "x", nil)
	require.ErrorIs(t, err, boom)
}

func TestInbox_ListMarksRead(t *testing.T) {
	clk := clock.NewFake(start)
	repo := &fakeRepo{}
	d := NewDispatcher(clk)
	me, other := uuid.New(), uuid.New()

	_, err := d.Notify(context.Background(), repo, me, "first", nil)
	require.NoError(t, err)
	clk.Advance(time.Minute)
	_, err = d.Notify(context.Background(), repo, me, "second", nil)
	require.NoError(t, err)
	_, err = d.Notify(context.Background(), repo, other, "not mine", nil)
	require.NoError(t, err)

	inbox := NewInbox(repo)
	count, err := inbox.UnreadCount(context.Background(), me)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	items, err := inbox.List(context.Background(), me)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "second", items[0].Message)
	require.False(t, items[0].Read)

	count, err = inbox.UnreadCount(context.Background(), me)
	require.NoError(t, err)
	require.Zero(t, count)
	count, err = inbox.UnreadCount(context.Background(), other)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	// a second listing has nothing left to mark
	items, err = inbox.List(context.Background(), me)
	require.NoError(t, err)
	require.True(t, items[0].Read)
	require.Len(t, repo.marked, 1)
}

func TestInbox_MarkFailure(t *testing.T) {
	repo := &fakeRepo{}
	me := uuid.New()
	_, err := NewDispatcher(clock.NewFake(start)).Notify(context.Background(), repo, me, "x", nil)
	require.NoError(t, err)

	repo.markErr = errors.New("down")
	_, err = NewInbox(repo).List(context.Background(), me)
	require.ErrorContains(t, err, "down")
}
