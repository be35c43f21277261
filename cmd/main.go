package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/cristianortiz/auctionhouse/internal/auction/application"
	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	auctionhttp "github.com/cristianortiz/auctionhouse/internal/auction/infra/http"
	auctionmem "github.com/cristianortiz/auctionhouse/internal/auction/infra/repository/memory"
	auctionpg "github.com/cristianortiz/auctionhouse/internal/auction/infra/repository/postgres"
	auctionws "github.com/cristianortiz/auctionhouse/internal/auction/infra/websocket"
	notifapp "github.com/cristianortiz/auctionhouse/internal/notification/application"
	notification "github.com/cristianortiz/auctionhouse/internal/notification/domain"
	notifhttp "github.com/cristianortiz/auctionhouse/internal/notification/infra/http"
	notifpg "github.com/cristianortiz/auctionhouse/internal/notification/infra/repository/postgres"
	"github.com/cristianortiz/auctionhouse/internal/shared/clock"
	"github.com/cristianortiz/auctionhouse/internal/shared/config"
	"github.com/cristianortiz/auctionhouse/internal/shared/db"
	"github.com/cristianortiz/auctionhouse/internal/shared/db/migrations"
	"github.com/cristianortiz/auctionhouse/internal/shared/httpserver"
	"github.com/cristianortiz/auctionhouse/internal/shared/keylock"
	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	"github.com/cristianortiz/auctionhouse/internal/shared/ratelimit"
	"github.com/cristianortiz/auctionhouse/internal/shared/websocket"
	user "github.com/cristianortiz/auctionhouse/internal/user/domain"
	"github.com/cristianortiz/auctionhouse/internal/user/infra/repository/cached"
	usermem "github.com/cristianortiz/auctionhouse/internal/user/infra/repository/memory"
	userpg "github.com/cristianortiz/auctionhouse/internal/user/infra/repository/postgres"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// storage is what one driver hands to the rest of the wiring.
type storage struct {
	auctions domain.Store
	inbox    notification.Repository
	users    user.Repository
	close    func()
}

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML config file")
	flag.Parse()

	log := logger.GetLogger()
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	logger.SetLevel(cfg.Log.Level)

	log.Info("Starting auction house server...", zap.String("storage", cfg.Storage.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("Storage setup failed", zap.Error(err))
	}
	defer st.close()

	users, err := cached.NewUserRepository(st.users, cfg.Users.CacheSize)
	if err != nil {
		log.Fatal("User cache setup failed", zap.Error(err))
	}

	clk := clock.System()
	locks := keylock.New[uuid.UUID]()
	hub := websocket.NewHub(cfg.WS.SendBuffer)
	go hub.Run(ctx)

	lifecycle := application.NewLifecycle(st.auctions, users, locks, clk, notifapp.NewDispatcher(clk))
	auctionService := application.NewAuctionService(
		application.NewPlaceBidUseCase(st.auctions, users, locks, lifecycle, auctionws.NewHubPublisher(hub), clk, cfg.Bids.Timeout.Duration),
		application.NewGetAuctionStateUseCase(st.auctions, users, lifecycle),
		application.NewListActiveAuctionsUseCase(st.auctions, users, lifecycle, clk, cfg.Lifecycle.SweepConcurrency),
		application.NewListBidsUseCase(st.auctions, users, lifecycle),
		lifecycle,
	)

	sweeper := application.NewSweeper(st.auctions, lifecycle, clk, cfg.Lifecycle.SweepInterval.Duration, cfg.Lifecycle.SweepConcurrency)
	go sweeper.Run(ctx)

	wsHandler := auctionws.NewAuctionWSHandler(auctionService, hub)
	go wsHandler.ListenForMessages(ctx)

	server := httpserver.NewServer()
	api := server.App().Group("/api")
	auctionhttp.NewAuctionHandler(auctionService, bidLimiter(ctx, cfg, log)).RegisterRoutes(api)
	notifhttp.NewHandler(notifapp.NewInbox(st.inbox)).RegisterRoutes(api)
	wsHandler.RegisterRoutes(ctx, server.App())

	if err := server.Start(ctx, cfg.HTTP.Addr); err != nil {
		log.Fatal("HTTP server failed", zap.Error(err))
	}
	log.Info("Auction house server stopped")
}

func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storage, error) {
	if cfg.Storage.Driver == "memory" {
		store := auctionmem.NewStore()
		users := usermem.NewUserRepository()
		if err := seedDemo(ctx, store, users, clock.System().Now()); err != nil {
			return nil, err
		}
		log.Warn("Using in-memory storage, data is lost on exit")
		return &storage{auctions: store, inbox: store, users: users, close: func() {}}, nil
	}

	log.Info("Running database migrations...")
	if err := migrations.RunMigrations(cfg.PostgresDSN()); err != nil {
		return nil, err
	}
	log.Info("Database migrations completed successfully.")

	pool, err := db.GetPostgresDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	notifications := notifpg.NewNotificationRepository(pool)
	return &storage{
		auctions: auctionpg.NewStore(pool, notifications),
		inbox:    notifications,
		users:    userpg.NewUserRepository(pool),
		close:    pool.Close,
	}, nil
}

// bidLimiter returns nil when no redis is configured.
func bidLimiter(ctx context.Context, cfg *config.Config, log *zap.Logger) fiber.Handler {
	if cfg.RateLimit.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
	bucket := ratelimit.NewTokenBucket(client, "auctionhouse:bids", cfg.RateLimit.BucketSize, cfg.RateLimit.RefillRate)
	if !bucket.IsHealthy(ctx) {
		log.Warn("Redis unreachable, bid throttling fails open until it recovers", zap.String("addr", cfg.RateLimit.RedisAddr))
	}
	return ratelimit.Middleware(bucket, auctionhttp.BidderKey)
}
