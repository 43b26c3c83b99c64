package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-house/internal/api/handlers"
	apimw "auction-house/internal/api/middleware"
	"auction-house/internal/config"
	"auction-house/internal/domain"
	"auction-house/internal/infrastructure/imaging"
	"auction-house/internal/infrastructure/rabbitmq"
	"auction-house/internal/infrastructure/redis"
	"auction-house/internal/infrastructure/sqlstore"
	"auction-house/internal/infrastructure/websocket"
	"auction-house/internal/services"
	"auction-house/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// realtime is the notification path picked by realtime.bus.
type realtime struct {
	notifier   domain.Notifier
	subscriber domain.EventSubscriber // nil for the local bus
	close      func()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run wires the service and blocks until a signal arrives or the server
// fails. Deferred cleanups run on every return path.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.NewWithLevel(cfg.Log.Level)
	defer func() { _ = log.Sync() }()
	log.Info("Starting auction service", "config", cfg.GetConfigString())

	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, dialect, err := sqlstore.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening %s database: %w", cfg.Database.Driver, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", "error", err)
		}
	}()

	if err := sqlstore.Migrate(ctx, db, dialect); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	log.Info("Connected to database", "driver", dialect.Name)

	auctionRepo := sqlstore.NewSQLAuctionRepository(db, dialect)
	userRepo := sqlstore.NewSQLUserRepository(db, dialect)

	images, err := imaging.NewDiskStore(cfg.Uploads.Dir, cfg.Uploads.URLPrefix)
	if err != nil {
		return fmt.Errorf("preparing image store: %w", err)
	}

	connManager := websocket.NewConnectionManager(log)

	rt, err := newRealtime(cfg, connManager, log)
	if err != nil {
		return fmt.Errorf("setting up %s realtime bus: %w", cfg.Realtime.Bus, err)
	}
	defer rt.close()

	auctionService := services.NewAuctionService(auctionRepo, rt.notifier, images, services.AuctionServiceConfig{
		StrictDelete: cfg.Auction.StrictDelete,
		MaxPageSize:  cfg.Auction.MaxPageSize,
		SendTimeout:  cfg.Realtime.SendTimeout,
	}, log)

	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()
	if rt.subscriber != nil {
		relay := services.NewEventRelay(connManager, log)
		go func() {
			if err := relay.Start(relayCtx, rt.subscriber); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Event relay stopped", "error", err)
			}
		}()
	}

	sweeper := services.NewConnectionSweeper(cfg.Realtime.SweepSpec, connManager, log)
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("starting connection sweeper: %w", err)
	}
	defer sweeper.Stop()

	authenticator := apimw.NewAuthenticator(cfg.Auth.JWTSecret, userRepo, log)
	wsHandler := websocket.NewWebSocketHandler(authenticator.Authenticate, connManager, log)
	auctionHandler := handlers.NewAuctionHandler(auctionService, handlers.AuctionHandlerConfig{
		DefaultPageSize: cfg.Auction.DefaultPageSize,
		MaxImageBytes:   cfg.Uploads.MaxBytes,
	}, log)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(apimw.RequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(apimw.CORS())

	auctionHandler.Register(e.Group("/api"), authenticator.RequireUser())
	handlers.MountWebSocket(e, wsHandler.Router())
	e.Static(cfg.Uploads.URLPrefix, cfg.Uploads.Dir)
	e.GET("/health", handlers.Health("auction-house"))

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting HTTP server", "address", serverAddr)

	serverErr := make(chan error, 1)
	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info("Shutting down auction service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Auction service stopped")
	return nil
}

func newRealtime(cfg *config.Config, connManager domain.ConnectionManager, log logger.Logger) (*realtime, error) {
	switch cfg.Realtime.Bus {
	case "redis":
		rdb := redisClient.NewClient(&redisClient.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connecting to redis %s: %w", cfg.Redis.Address, err)
		}
		log.Info("Connected to Redis", "address", cfg.Redis.Address)

		return &realtime{
			notifier:   services.NewBusNotifier(redis.NewEventPublisher(rdb, cfg.Realtime.Channel)),
			subscriber: redis.NewRedisEventSubscriber(rdb, cfg.Realtime.Channel, log),
			close: func() {
				if err := rdb.Close(); err != nil {
					log.Error("Failed to close Redis client", "error", err)
				}
			},
		}, nil

	case "amqp":
		bus, err := rabbitmq.NewEventBus(cfg.AMQP.URL, cfg.Realtime.Exchange, log)
		if err != nil {
			return nil, err
		}
		log.Info("Connected to RabbitMQ", "exchange", cfg.Realtime.Exchange)

		return &realtime{
			notifier:   services.NewBusNotifier(bus),
			subscriber: bus,
			close: func() {
				if err := bus.Close(); err != nil {
					log.Error("Failed to close RabbitMQ connection", "error", err)
				}
			},
		}, nil
	}

	return &realtime{
		notifier: websocket.NewWebSocketNotifier(connManager),
		close:    func() {},
	}, nil
}
