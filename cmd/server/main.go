// Command server runs the courier tracking API.
//
// @title        Courier Tracking API
// @version      1.0
// @description  Courier registry, GPS position ingestion and live position feed.
// @BasePath     /api
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/livraison/courier-tracking/internal/api"
	"github.com/livraison/courier-tracking/internal/api/middleware"
	"github.com/livraison/courier-tracking/internal/core/broadcast"
	"github.com/livraison/courier-tracking/internal/core/ports"
	"github.com/livraison/courier-tracking/internal/core/service"
	"github.com/livraison/courier-tracking/internal/infrastructure/db/memory"
	mongodb "github.com/livraison/courier-tracking/internal/infrastructure/db/mongo"
	redisdb "github.com/livraison/courier-tracking/internal/infrastructure/db/redis"
	"github.com/livraison/courier-tracking/internal/infrastructure/queue"
	"github.com/livraison/courier-tracking/internal/pkg/config"
	"github.com/livraison/courier-tracking/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "courier-tracking",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	var (
		positionStore ports.PositionStore
		courierRepo   ports.CourierRepository
		mongoClient   *mongo.Client
		mongoDB       *mongo.Database
	)
	switch cfg.StorageBackend {
	case config.StorageMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			log.Fatal().Err(err).Msg("mongodb connection failed")
		}
		mongoClient, mongoDB = client, db

		positions := mongodb.NewPositionRepository(db)
		couriers := mongodb.NewCourierRepository(db)
		if err := mongodb.EnsureIndexes(ctx, positions, couriers); err != nil {
			log.Fatal().Err(err).Msg("mongodb index creation failed")
		}
		positionStore, courierRepo = positions, couriers
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongodb connected")
	default:
		positionStore, courierRepo = memory.NewPositionStore(), memory.NewCourierRepository()
		log.Warn().Msg("using in-memory storage, data is lost on restart")
	}

	// --- Idempotency ---
	var (
		redisClient *goredis.Client
		idem        ports.IdempotencyStore
	)
	if cfg.Redis.Addr != "" {
		client, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		redisClient = client
		idem = redisdb.NewIdempotencyStore(client, cfg.Redis.IdempotencyTTL)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected, idempotency keys enabled")
	}

	// --- Broadcast hub ---
	hub := broadcast.NewHub(broadcast.Options{
		QueueSize:       cfg.Hub.QueueSize,
		DeliveryTimeout: cfg.Hub.DeliveryTimeout,
		MaxDrops:        cfg.Hub.MaxDrops,
		StallTimeout:    cfg.Hub.StallTimeout,
	}, logger.Component("hub"))

	var forwarder *queue.Forwarder
	if cfg.NSQ.NSQDAddr != "" {
		nsqLog := logger.Component("nsq")
		producer, err := queue.NewNSQProducer(cfg.NSQ.NSQDAddr, nsqLog)
		if err != nil {
			log.Fatal().Err(err).Msg("nsq connection failed")
		}
		forwarder = queue.NewForwarder(producer, cfg.NSQ.Topic, nsqLog)
		// ends when the hub closes during shutdown
		go forwarder.Run(context.Background(), hub)
		log.Info().Str("nsqd", cfg.NSQ.NSQDAddr).Str("topic", cfg.NSQ.Topic).Msg("forwarding positions to nsq")
	}

	// --- Services ---
	positionService := service.NewPositionService(positionStore, hub, idem, logger.Component("ingestion"))
	courierService := service.NewCourierService(courierRepo, logger.Component("couriers"))

	dispatcher := queue.NewDispatcher(cfg.BatchWorkers, positionService, logger.Component("dispatcher"))
	dispatcher.Start(context.Background())

	var limiter *middleware.LimiterStore
	if cfg.RateLimit.RPS > 0 {
		limiter = middleware.NewLimiterStore(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		limiter.StartJanitor(ctx)
	}

	e := api.NewRouter(api.Dependencies{
		APIPrefix:  cfg.APIPrefix,
		Couriers:   courierService,
		Positions:  positionService,
		Dispatcher: dispatcher,
		Hub:        hub,
		Limiter:    limiter,
		Mongo:      mongoDB,
		Redis:      redisClient,
		Logger:     log,
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("courier-tracking listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down courier-tracking")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	shutdown(shutdownCtx, log, srv, hub, dispatcher, forwarder, mongoClient, redisClient)
}

// shutdown stops accepting requests, ends live connections, drains the batch
// workers, then closes outbound clients.
func shutdown(
	ctx context.Context,
	log zerolog.Logger,
	srv *http.Server,
	hub *broadcast.Hub,
	dispatcher *queue.Dispatcher,
	forwarder *queue.Forwarder,
	mongoClient *mongo.Client,
	redisClient *goredis.Client,
) {
	// Shutdown leaves hijacked websockets open and would wait on SSE streams
	hub.Close()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}

	// queued batch reports are still stored; the hub no longer broadcasts them
	dispatcher.Close()
	dispatcher.Wait()

	if forwarder != nil {
		forwarder.Stop()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("redis close error")
		}
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("mongodb disconnect error")
		}
	}
	log.Info().Msg("shutdown complete")
}
