package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cx-tal-miterani/fare-booking/internal/activities"
	"github.com/cx-tal-miterani/fare-booking/internal/auth"
	"github.com/cx-tal-miterani/fare-booking/internal/config"
	"github.com/cx-tal-miterani/fare-booking/internal/database"
	"github.com/cx-tal-miterani/fare-booking/internal/events"
	"github.com/cx-tal-miterani/fare-booking/internal/handlers"
	"github.com/cx-tal-miterani/fare-booking/internal/logging"
	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/cx-tal-miterani/fare-booking/internal/offers"
	"github.com/cx-tal-miterani/fare-booking/internal/provider"
	"github.com/cx-tal-miterani/fare-booking/internal/router"
	"github.com/cx-tal-miterani/fare-booking/internal/search"
	"github.com/cx-tal-miterani/fare-booking/internal/service"
	"github.com/cx-tal-miterani/fare-booking/internal/websocket"
	"github.com/cx-tal-miterani/fare-booking/internal/workflows"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"
)

const offerSweepInterval = time.Minute

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway := newGateway(cfg.Provider, logger)

	// Offer store
	var store offers.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		store = offers.NewRedisStore(rdb, cfg.OfferTTL)
		logger.Info("offer store: redis", "addr", cfg.RedisAddr)
	} else {
		mem := offers.NewMemoryStore(cfg.OfferTTL)
		go mem.Run(ctx, offerSweepInterval)
		store = mem
		logger.Info("offer store: memory")
	}

	// Booking repository
	var repo database.BookingRepository
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		if cfg.RunMigrations {
			if err := database.Migrate(ctx, pool); err != nil {
				logger.Error("failed to apply schema", "error", err)
				os.Exit(1)
			}
		}
		repo = database.NewPostgresRepository(pool)
		logger.Info("booking repository: postgres")
	} else {
		repo = database.NewMemoryRepository()
		logger.Warn("booking repository: memory, bookings are lost on restart")
	}

	// Ticketing runs through Temporal when a host is configured
	var ticketer service.Ticketer
	if cfg.TemporalHost != "" {
		tc, err := client.Dial(client.Options{HostPort: cfg.TemporalHost})
		if err != nil {
			logger.Error("failed to create temporal client", "host", cfg.TemporalHost, "error", err)
			os.Exit(1)
		}
		defer tc.Close()
		ticketer = workflows.NewTemporalTicketer(tc, cfg.TemporalQueue)
		logger.Info("ticketing: temporal", "host", cfg.TemporalHost, "queue", cfg.TemporalQueue)
	} else {
		ticketer = activities.NewActivities(gateway, repo, logger)
		logger.Info("ticketing: in-process")
	}

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	publishers := events.Multi{hub}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publishers = append(publishers, kp)
		logger.Info("booking events: kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	aggregator := search.New(search.Dependency{
		Gateway:   gateway,
		Offers:    store,
		BatchSize: cfg.SearchBatchSize,
		Logger:    logger,
	})

	bookingService := service.NewBookingService(service.Dependency{
		Gateway:  gateway,
		Offers:   store,
		Repo:     repo,
		Ticketer: ticketer,
		Events:   publishers,
		DefaultContact: models.Contact{
			Phone: cfg.DefaultContact.Phone,
			Email: cfg.DefaultContact.Email,
		},
		PublicBaseURL: cfg.PublicBaseURL,
		Logger:        logger,
	})

	h := handlers.NewHandler(bookingService, aggregator, hub, logger)
	r := router.SetupRouter(router.Options{
		Handler:     h,
		Auth:        auth.NewAuthenticator(cfg.JWTSecret),
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("api server starting", "addr", cfg.HTTPAddr, "provider", gateway.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	logger.Info("server stopped")
}

// newGateway picks the HTTP provider client when a URL is configured and
// the in-process provider otherwise.
func newGateway(cfg config.ProviderConfig, logger *slog.Logger) provider.Gateway {
	var gw provider.Gateway
	if cfg.URL != "" {
		gw = provider.NewClient(provider.ClientConfig{
			BaseURL: cfg.URL,
			Token:   cfg.Token,
			Name:    cfg.Name,
			Timeout: cfg.Timeout,
		}, logger)
	} else {
		logger.Warn("PROVIDER_URL not set, using local provider")
		gw = provider.NewLocal("local")
	}
	if cfg.MinInterval > 0 {
		gw = provider.NewRateLimited(gw, cfg.MinInterval)
	}
	return gw
}
