package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/application"
	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/cristianortiz/auctionhouse/internal/auction/infra/repository/memory"
	notifapp "github.com/cristianortiz/auctionhouse/internal/notification/application"
	"github.com/cristianortiz/auctionhouse/internal/shared/clock"
	"github.com/cristianortiz/auctionhouse/internal/shared/keylock"
	"github.com/cristianortiz/auctionhouse/internal/shared/websocket"
	user "github.com/cristianortiz/auctionhouse/internal/user/domain"
	usermem "github.com/cristianortiz/auctionhouse/internal/user/infra/repository/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type liveFixture struct {
	hub     *websocket.Hub
	handler *AuctionWSHandler
	auction *domain.Auction
	alice   user.User
}

func newLiveFixture(t *testing.T) *liveFixture {
	t.Helper()
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	store := memory.NewStore()
	seller := user.User{ID: uuid.New(), Username: "sam", Role: user.RoleSeller}
	alice := user.User{ID: uuid.New(), Username: "alice", Role: user.RoleBuyer}
	users := usermem.NewUserRepository(seller, alice)

	a, err := domain.NewAuction(uuid.New(), seller.ID, "Radio", "", decimal.NewFromInt(10), decimal.NewFromInt(1), now.Add(time.Hour), now)
	require.NoError(t, err)
	require.NoError(t, store.CreateAuction(context.Background(), a))

	hub := websocket.NewHub(8)
	locks := keylock.New[uuid.UUID]()
	lifecycle := application.NewLifecycle(store, users, locks, clk, notifapp.NewDispatcher(clk))
	service := application.NewAuctionService(
		application.NewPlaceBidUseCase(store, users, locks, lifecycle, NewHubPublisher(hub), clk, time.Second),
		application.NewGetAuctionStateUseCase(store, users, lifecycle),
		application.NewListActiveAuctionsUseCase(store, users, lifecycle, clk, 2),
		application.NewListBidsUseCase(store, users, lifecycle),
		lifecycle,
	)
	return &liveFixture{hub: hub, handler: NewAuctionWSHandler(service, hub), auction: a, alice: alice}
}

func (f *liveFixture) subscribe(t *testing.T, id string) *websocket.Client {
	t.Helper()
	c := f.hub.NewClient(nil, f.auction.ID.String(), id)
	require.True(t, f.hub.Subscribe(c))
	return c
}

func receive[T any](t *testing.T, c *websocket.Client) T {
	t.Helper()
	var out T
	select {
	case data := <-c.Send:
		require.NoError(t, json.Unmarshal(data, &out))
	case <-time.After(time.Second):
		t.Fatalf("client %s received nothing", c.ID)
	}
	return out
}

func bidMessage(bidderID uuid.UUID, amount string) []byte {
	return []byte(`{"type":"client_bid","payload":{"bidder_id":"` + bidderID.String() + `","amount":"` + amount + `"}}`)
}

func TestHandleClientBid_AcceptedIsBroadcast(t *testing.T) {
	f := newLiveFixture(t)
	sender := f.subscribe(t, "sender")
	viewer := f.subscribe(t, "viewer")

	f.handler.processMessage(context.Background(), sender, bidMessage(f.alice.ID, "12.00"))

	for _, c := range []*websocket.Client{sender, viewer} {
		msg := receive[ServerBidAcceptedMessage](t, c)
		require.Equal(t, MessageTypeServerBidAccepted, msg.Type)
		require.Equal(t, "12.00", msg.Payload.NewPrice)
		require.Equal(t, "alice", msg.Payload.Bidder)
	}
}

func TestHandleClientBid_RejectionGoesToSenderOnly(t *testing.T) {
	f := newLiveFixture(t)
	sender := f.subscribe(t, "sender")
	viewer := f.subscribe(t, "viewer")

	f.handler.processMessage(context.Background(), sender, bidMessage(f.alice.ID, "10.50"))

	msg := receive[ServerErrorMessage](t, sender)
	require.Equal(t, MessageTypeServerError, msg.Type)
	require.Equal(t, string(application.ReasonRaiseTooLow), msg.Payload.Code)
	require.Contains(t, msg.Payload.Error, "11.00")
	require.Empty(t, viewer.Send)
}

func TestProcessMessage_BadInput(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "{"},
		{name: "unknown type", data: `{"type":"client_dance"}`},
		{name: "bad payload", data: `{"type":"client_bid","payload":{"amount":"abc"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLiveFixture(t)
			c := f.subscribe(t, "c")
			f.handler.processMessage(context.Background(), c, []byte(tt.data))
			msg := receive[ServerErrorMessage](t, c)
			require.Equal(t, string(application.ReasonInvalid), msg.Payload.Code)
		})
	}
}

func TestHubPublisher_SlowViewerDoesNotAffectOthers(t *testing.T) {
	hub := websocket.NewHub(1)
	publisher := NewHubPublisher(hub)
	auctionID := uuid.New()

	slow := hub.NewClient(nil, auctionID.String(), "slow")
	fast := hub.NewClient(nil, auctionID.String(), "fast")
	require.True(t, hub.Subscribe(slow))
	require.True(t, hub.Subscribe(fast))

	publisher.PublishBidAccepted(domain.BidAccepted{AuctionID: auctionID, NewPrice: decimal.RequireFromString("11"), Bidder: "a"})
	msg := receive[ServerBidAcceptedMessage](t, fast)
	require.Equal(t, "11.00", msg.Payload.NewPrice)

	// slow never drains, its buffer of one is full now
	done := make(chan struct{})
	go func() {
		publisher.PublishBidAccepted(domain.BidAccepted{AuctionID: auctionID, NewPrice: decimal.RequireFromString("12"), Bidder: "b"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow viewer")
	}

	msg = receive[ServerBidAcceptedMessage](t, fast)
	require.Equal(t, "12.00", msg.Payload.NewPrice)
	require.Equal(t, 1, hub.Subscribers(auctionID.String()))
}

func TestEncodeBidAccepted(t *testing.T) {
	data, err := encodeBidAccepted(domain.BidAccepted{AuctionID: uuid.New(), NewPrice: decimal.RequireFromString("12"), Bidder: "alice"})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"server_bid_accepted","payload":{"new_price":"12.00","bidder":"alice"}}`, string(data))
}
