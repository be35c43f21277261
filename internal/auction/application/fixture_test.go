package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/cristianortiz/auctionhouse/internal/auction/infra/repository/memory"
	notifapp "github.com/cristianortiz/auctionhouse/internal/notification/application"
	"github.com/cristianortiz/auctionhouse/internal/shared/clock"
	"github.com/cristianortiz/auctionhouse/internal/shared/keylock"
	user "github.com/cristianortiz/auctionhouse/internal/user/domain"
	usermem "github.com/cristianortiz/auctionhouse/internal/user/infra/repository/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.BidAccepted
}

func (p *recordingPublisher) PublishBidAccepted(e domain.BidAccepted) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) Events() []domain.BidAccepted {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.BidAccepted(nil), p.events...)
}

type fixture struct {
	store     *memory.Store
	users     *usermem.UserRepository
	clock     *clock.Fake
	locks     *keylock.Locker[uuid.UUID]
	publisher *recordingPublisher
	lifecycle *Lifecycle
	placeBid  *PlaceBidUseCase
	service   AuctionService
	sweeper   *Sweeper

	seller user.User
	alice  user.User
	bob    user.User
}

var testNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     memory.NewStore(),
		clock:     clock.NewFake(testNow),
		locks:     keylock.New[uuid.UUID](),
		publisher: &recordingPublisher{},
		seller:    user.User{ID: uuid.New(), Username: "sam", Role: user.RoleSeller},
		alice:     user.User{ID: uuid.New(), Username: "alice", Role: user.RoleBuyer},
		bob:       user.User{ID: uuid.New(), Username: "bob", Role: user.RoleBuyer},
	}
	f.users = usermem.NewUserRepository(f.seller, f.alice, f.bob)

	f.lifecycle = NewLifecycle(f.store, f.users, f.locks, f.clock, notifapp.NewDispatcher(f.clock))
	f.placeBid = NewPlaceBidUseCase(f.store, f.users, f.locks, f.lifecycle, f.publisher, f.clock, time.Second)
	f.service = NewAuctionService(
		f.placeBid,
		NewGetAuctionStateUseCase(f.store, f.users, f.lifecycle),
		NewListActiveAuctionsUseCase(f.store, f.users, f.lifecycle, f.clock, 4),
		NewListBidsUseCase(f.store, f.users, f.lifecycle),
		f.lifecycle,
	)
	f.sweeper = NewSweeper(f.store, f.lifecycle, f.clock, time.Minute, 4)
	return f
}

// auction creates an auction with base price 10.00 and minimum raise 1.00.
func (f *fixture) auction(t *testing.T, title string, deadline time.Time) *domain.Auction {
	t.Helper()
	a, err := domain.NewAuction(uuid.New(), f.seller.ID, title, "", dec("10.00"), dec("1.00"), deadline, testNow.Add(-time.Hour))
	require.NoError(t, err)
	require.NoError(t, f.store.CreateAuction(context.Background(), a))
	return a
}

func (f *fixture) buyer(t *testing.T, name string) user.User {
	t.Helper()
	u := user.User{ID: uuid.New(), Username: name, Role: user.RoleBuyer}
	require.NoError(t, f.users.Create(context.Background(), &u))
	return u
}

func (f *fixture) bid(auctionID, bidderID uuid.UUID, amount string) (*BidResultDTO, error) {
	return f.placeBid.Execute(context.Background(), PlaceBidDTO{
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    dec(amount),
	})
}

func (f *fixture) notificationsFor(id uuid.UUID) []string {
	var out []string
	for _, n := range f.store.Notifications() {
		if n.RecipientID == id {
			out = append(out, n.Message)
		}
	}
	return out
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
