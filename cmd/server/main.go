package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"game-ladder/internal/config"
	"game-ladder/internal/elo"
	"game-ladder/internal/eventbus"
	"game-ladder/internal/handlers"
	"game-ladder/internal/lock"
	"game-ladder/internal/logging"
	"game-ladder/internal/middleware"
	"game-ladder/internal/services"
	"game-ladder/internal/store"
)

func main() {
	dotenv := config.LoadDotEnv()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting ladder server",
		zap.String("environment", cfg.Environment),
		zap.Bool("dotenv", dotenv),
		zap.String("storage", cfg.Storage.Driver),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	repo, err := store.Open(startCtx, cfg.Storage.Driver, store.Options{
		BoltPath:      cfg.Storage.BoltPath,
		MongoURI:      cfg.MongoDB.URI,
		MongoDatabase: cfg.MongoDB.Database,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		repo.Close(ctx)
	}()

	locker, closeLocker := newLocker(startCtx, cfg, logger)
	defer closeLocker()

	// Live feed: local websocket hub, fanned out across instances through
	// MongoDB when that is the storage backend.
	hub := handlers.NewHub(logger)
	go hub.Run()
	defer hub.Stop()

	var feedEvents *mongo.Collection
	if m, ok := repo.(*store.MongoDB); ok {
		feedEvents = m.FeedEvents()
	}
	bus := eventbus.New(feedEvents, hub.Deliver, logger)
	bus.Start()
	defer bus.Stop()

	deps := services.Deps{
		Repo:     repo,
		Locker:   locker,
		Notifier: bus,
		Logger:   logger,
	}
	userService := services.NewUserService(deps)
	matchRecorder := services.NewMatchRecorder(deps, elo.NewCalculatorWithK(cfg.Rating.KFactor))
	challengeService := services.NewChallengeService(deps)
	gameCatalog := services.NewGameCatalog(deps)

	if err := gameCatalog.EnsureDefaults(startCtx); err != nil {
		logger.Fatal("failed to seed game catalog", zap.Error(err))
	}

	cleanup := services.NewStaleChallengeCleanup(challengeService, cfg.PendingChallengeTTL(), cfg.Challenges.CleanupSchedule)
	if err := cleanup.Start(); err != nil {
		logger.Fatal("failed to start stale challenge cleanup", zap.Error(err))
	}
	defer cleanup.Stop()

	rateLimiter := middleware.NewRateLimiter()
	defer rateLimiter.Stop()

	api := &handlers.API{
		Users:      handlers.NewUserHandler(userService, logger),
		Matches:    handlers.NewMatchHandler(matchRecorder, logger),
		Games:      handlers.NewGameHandler(gameCatalog, logger),
		Challenges: handlers.NewChallengeHandler(challengeService, logger),
		Feed:       hub,
	}

	router := mux.NewRouter()
	api.Register(router,
		[]mux.MiddlewareFunc{rateLimiter.WriteRateLimitMiddleware(middleware.WriteLimit)},
		[]mux.MiddlewareFunc{rateLimiter.IPRateLimitMiddleware(middleware.WebSocketUpgradeLimit)},
	)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.Frontend.URL},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	var handler http.Handler = middleware.SecurityHeaders(router)
	handler = middleware.RequestLogger(logger)(handler)
	handler = middleware.Recoverer(logger)(handler)
	handler = corsHandler.Handler(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
}

// newLocker returns a Redis locker when redis.addr is configured, so that
// several instances serialize on the same keys, and an in-process one
// otherwise.
func newLocker(ctx context.Context, cfg *config.Config, logger *zap.Logger) (lock.Locker, func()) {
	if cfg.Redis.Addr == "" {
		logger.Info("using in-process locks")
		return lock.NewLocal(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to Redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	logger.Info("using Redis locks", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.LockTTL()))
	return lock.NewRedis(client, cfg.LockTTL()), func() { client.Close() }
}
