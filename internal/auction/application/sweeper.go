package application

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/cristianortiz/auctionhouse/internal/shared/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sweeper closes expired auctions nobody is looking at.
type Sweeper struct {
	store       domain.Store
	lifecycle   *Lifecycle
	clock       clock.Clock
	interval    time.Duration
	concurrency int
}

func NewSweeper(store domain.Store, lifecycle *Lifecycle, clk clock.Clock, interval time.Duration, concurrency int) *Sweeper {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Sweeper{
		store:       store,
		lifecycle:   lifecycle,
		clock:       clk,
		interval:    interval,
		concurrency: concurrency,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	log.Info("Auction sweeper started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			log.Info("Auction sweeper stopped")
			return
		case <-ticker.C:
			closed, err := s.SweepOnce(ctx)
			if err != nil {
				log.Error("Auction sweep failed", zap.Int("closed", closed), zap.Error(err))
				continue
			}
			if closed > 0 {
				log.Info("Auction sweep finished", zap.Int("closed", closed))
			}
		}
	}
}

// SweepOnce runs CheckAndClose on every expired active auction and returns how
// many it closed. One failing auction does not stop the others.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	expired, err := s.store.ListExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("sweep: list expired: %w", err)
	}

	var closed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, a := range expired {
		g.Go(func() error {
			ok, err := s.lifecycle.CheckAndClose(ctx, a.ID)
			if err != nil {
				return err
			}
			if ok {
				closed.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()
	return int(closed.Load()), err
}
