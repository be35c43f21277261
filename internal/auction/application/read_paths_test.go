package application

import (
	"context"
	"testing"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/cristianortiz/auctionhouse/internal/auction/infra/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGetAuctionState(t *testing.T) {
	f := newFixture(t)
	a := f.auction(t, "Kettle", testNow.Add(time.Minute))

	state, err := f.service.GetAuctionState(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, "10.00", domain.FormatMoney(state.CurrentPrice))
	require.Equal(t, "11.00", domain.FormatMoney(state.MinimumNextBid))
	require.Empty(t, state.CurrentHolder)

	_, err = f.service.PlaceBid(context.Background(), PlaceBidDTO{AuctionID: a.ID, BidderID: f.bob.ID, Amount: dec("14.00")})
	require.NoError(t, err)

	state, err = f.service.GetAuctionState(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, "14.00", domain.FormatMoney(state.CurrentPrice))
	require.Equal(t, "bob", state.CurrentHolder)
	require.Equal(t, domain.StateActive, state.State)

	// reading after the deadline closes the auction
	f.clock.Advance(time.Minute)
	state, err = f.service.GetAuctionState(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StateConcluded, state.State)
	require.Len(t, f.store.Notifications(), 2)

	_, err = f.service.GetAuctionState(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrAuctionNotFound)
}

func TestListActiveAuctions(t *testing.T) {
	f := newFixture(t)
	late := f.auction(t, "late", testNow.Add(3*time.Hour))
	gone := f.auction(t, "gone", testNow.Add(-time.Minute))
	early := f.auction(t, "early", testNow.Add(time.Hour))
	annulled := f.auction(t, "annulled", testNow.Add(time.Hour))
	require.NoError(t, f.service.Annul(context.Background(), annulled.ID))

	_, err := f.bid(late.ID, f.alice.ID, "30.00")
	require.NoError(t, err)

	list, err := f.service.ListActiveAuctions(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, early.ID, list[0].ID)
	require.Equal(t, late.ID, list[1].ID)
	require.Equal(t, "30.00", domain.FormatMoney(list[1].CurrentPrice))
	require.Equal(t, "alice", list[1].CurrentHolder)

	got, err := f.store.GetAuction(context.Background(), gone.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StateConcluded, got.State)
	require.Equal(t, []string{"Your auction 'gone' concluded without receiving any bids."}, f.notificationsFor(f.seller.ID))
}

func TestListActiveAuctions_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.auction(t, "x", testNow.Add(time.Hour))

	f.store.FailNext(memory.OpRead, 1)
	_, err := f.service.ListActiveAuctions(context.Background())
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestListBids(t *testing.T) {
	f := newFixture(t)
	a := f.auction(t, "Stamp", testNow.Add(time.Hour))

	for _, step := range []struct {
		bidder string
		amount string
	}{{"alice", "11.00"}, {"bob", "12.00"}, {"alice", "15.50"}} {
		id := f.alice.ID
		if step.bidder == "bob" {
			id = f.bob.ID
		}
		_, err := f.bid(a.ID, id, step.amount)
		require.NoError(t, err)
	}

	bids, err := f.service.ListBids(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, bids, 3)
	require.Equal(t, "15.50", domain.FormatMoney(bids[0].Amount))
	require.Equal(t, "alice", bids[0].Bidder)
	require.Equal(t, "12.00", domain.FormatMoney(bids[1].Amount))
	require.Equal(t, "bob", bids[1].Bidder)

	_, err = f.service.ListBids(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrAuctionNotFound)
}

func TestSweeper_SweepOnce(t *testing.T) {
	f := newFixture(t)
	expiredA := f.auction(t, "a", testNow.Add(-time.Hour))
	expiredB := f.auction(t, "b", testNow.Add(-time.Minute))
	f.auction(t, "c", testNow.Add(time.Hour))

	_, err := f.bid(expiredA.ID, f.alice.ID, "11.00")
	require.ErrorIs(t, err, domain.ErrAuctionClosed)

	closed, err := f.sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, closed)

	got, err := f.store.GetAuction(context.Background(), expiredB.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StateConcluded, got.State)

	closed, err = f.sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, closed)
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	s := NewSweeper(f.store, f.lifecycle, f.clock, 5*time.Millisecond, 2)
	a := f.auction(t, "tick", testNow.Add(-time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		got, err := f.store.GetAuction(context.Background(), a.ID)
		return err == nil && got.State == domain.StateConcluded
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
