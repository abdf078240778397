package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chatql/infrastructure/db"
	"chatql/infrastructure/pubsub"
	"chatql/internal/config"
	gqlDelivery "chatql/internal/delivery/graphql"
	httpHandler "chatql/internal/delivery/http"
	"chatql/internal/delivery/websocket"
	"chatql/internal/repository"
	mongoRepo "chatql/internal/repository/mongo"
	postgresRepo "chatql/internal/repository/postgres"
	"chatql/internal/session"
	"chatql/internal/usecase"
	"chatql/pkg/jwt"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.MustLoad()
	logger := newLogger(cfg.Log)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Log) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

type migrator interface {
	Migrate(ctx context.Context) error
}

func openStore(ctx context.Context, cfg config.Store) (repository.Store, error) {
	var store repository.Store
	switch cfg.Driver {
	case config.StoreDriverPostgres:
		pg, err := db.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		store = postgresRepo.NewStore(pg)
	case config.StoreDriverMongo:
		m, err := db.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		store = mongoRepo.NewStore(m)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	if cfg.AutoMigrate {
		if err := store.(migrator).Migrate(ctx); err != nil {
			store.Close(ctx)
			return nil, err
		}
	}
	return store, nil
}

// openBus returns the event bus and a func releasing what the bus does
// not own.
func openBus(ctx context.Context, cfg config.Redis, logger *slog.Logger) (pubsub.Bus, func(), error) {
	if !cfg.Enabled() {
		logger.Info("using in-memory event bus (single server)")
		return pubsub.NewHub(logger), func() {}, nil
	}

	logger.Info("using redis event bus", "addr", cfg.Addr, "server_id", cfg.ServerID)
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}
	hub, err := pubsub.NewRedisHub(ctx, rdb, cfg.ServerID, logger)
	if err != nil {
		rdb.Close()
		return nil, nil, err
	}
	return hub, func() { rdb.Close() }, nil
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close(context.Background())
	logger.Info("connected to store", "driver", cfg.Store.Driver)

	bus, release, err := openBus(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer release()
	defer bus.Close()
	go bus.Run()

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "your-secret-key-change-this-in-production" // Default for development
		logger.Warn("using default JWT secret, set JWT_SECRET for production")
	}
	jwtManager := jwt.NewJWTManager(jwtSecret, cfg.Auth.AccessTokenTTL)

	// Initialize use cases
	authUc := usecase.NewAuthUsecase(store.Users(), jwtManager)
	conversationUc := usecase.NewConversationUsecase(store.Conversations(), store.Users(), bus, logger)

	sessions := session.NewResolver(authUc, store.Users(), cfg.Auth.SessionCacheTTL)
	defer sessions.Close()

	schema := gqlDelivery.NewSchema(conversationUc, logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(httpHandler.CORS(cfg.Server.AllowedOrigin))

	httpHandler.MapHttpRoutes(router,
		&relay.Handler{Schema: schema},
		websocket.NewWebsocketHandler(schema, sessions, cfg.Server.AllowedOrigin, logger),
		httpHandler.NewAuthHandler(authUc, logger),
		httpHandler.NewHealthHandler(store, logger),
		httpHandler.NewSessionMiddleware(sessions, logger),
	)

	// Hijacked websocket connections outlive Shutdown unless their base
	// context is canceled with it.
	baseCtx, stop := context.WithCancel(ctx)
	defer stop()

	server := &http.Server{
		Addr:        cfg.Server.Address(),
		BaseContext: func(net.Listener) context.Context { return baseCtx },
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
		ErrorLog:    slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig.String())
	}

	server.RegisterOnShutdown(stop)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
