package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/config"
	"github.com/fjod/storefront/internal/consumer"
	h "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/order"
	"github.com/fjod/storefront/internal/promo"
	"github.com/fjod/storefront/internal/publisher"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/internal/shipping"
	"github.com/fjod/storefront/internal/tax"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()
	zap.ReplaceGlobals(zl)

	// Continue traces started by upstream callers.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Database setup
	creds := &repository.Credentials{
		Driver:            cfg.DBDriver,
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		Path:              cfg.DBPath,
		MigrationsDirPath: cfg.MigrationsDirPath,
	}
	repo, err := repository.NewRepository(creds)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		zl.Fatal("failed to run migrations", zap.Error(err))
	}
	zl.Info("database migrations completed", zap.String("driver", cfg.DBDriver))

	store, ping, closeStore, err := newSessionStore(cfg)
	if err != nil {
		zl.Fatal("failed to set up cart store", zap.Error(err))
	}
	defer closeStore()

	carts := cart.NewService(store, repo, zl)
	promos := promo.NewService(repo, zl)
	ship := shipping.NewResolver(repo)
	taxes := tax.NewResolver(repo, zl)
	orders := order.NewService(repo, carts, promos, ship, taxes, zl)

	auth := h.NewAuthenticator(cfg.JWTSecret)
	if cfg.JWTSecret == "" {
		zl.Warn("JWT_SECRET is empty, bearer tokens will be rejected")
	}

	router := h.NewRouter(h.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		MaxBodySize:    cfg.MaxRequestBodySize,
		SessionTTL:     cfg.CartTTL,
		Auth:           auth,
		Log:            zl,
		Ready: func(ctx context.Context) error {
			if err := repo.Ping(ctx); err != nil {
				return err
			}
			return ping(ctx)
		},
	}, h.Handlers{
		Catalog:  h.NewCatalogHandler(catalog.NewService(repo), cfg.RequestTimeout),
		Cart:     h.NewCartHandler(carts, cfg.RequestTimeout),
		Promo:    h.NewPromoHandler(carts, promos, cfg.RequestTimeout),
		Lookup:   h.NewLookupHandler(ship, taxes, cfg.RequestTimeout),
		Checkout: h.NewCheckoutHandler(carts, orders, cfg.RequestTimeout),
		Orders:   h.NewOrdersHandler(orders, cfg.RequestTimeout),
	})

	var wg sync.WaitGroup
	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	var (
		poller  *publisher.OutboxPoller
		cleanup *consumer.CartCleanup
	)
	if len(cfg.KafkaBrokers) > 0 {
		poller = publisher.NewOutboxPoller(repo, zl.Named("outbox"), cfg.KafkaTopic, cfg.KafkaBrokers...)
		cleanup = consumer.NewCartCleanup(store, zl.Named("cart-cleanup"), cfg.KafkaTopic, cfg.KafkaBrokers...)
		wg.Add(2)
		go func() {
			defer wg.Done()
			poller.Run(pollerCtx)
		}()
		go func() {
			defer wg.Done()
			cleanup.Run(pollerCtx)
		}()
		zl.Info("outbox publisher started", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	} else {
		zl.Info("KAFKA_BROKERS not set, outbox publisher disabled")
	}

	// gRPC health port for orchestrators
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		zl.Fatal("failed to listen", zap.String("port", cfg.GRPCPort), zap.Error(err))
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	go func() {
		zl.Info("grpc health server listening", zap.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			zl.Fatal("grpc server error", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("storefront starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down storefront...")
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	pollerCancel()

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		zl.Info("kafka workers stopped cleanly")
	case <-ctx.Done():
		zl.Warn("kafka workers didn't stop in time")
	}
	if poller != nil {
		if err := poller.Close(); err != nil {
			zl.Error("failed to close kafka writer", zap.Error(err))
		}
		if err := cleanup.Close(); err != nil {
			zl.Error("failed to close kafka reader", zap.Error(err))
		}
	}

	zl.Info("storefront stopped")
}

// newSessionStore builds the configured cart store together with a
// readiness probe and a close function.
func newSessionStore(cfg *config.Config) (cart.SessionStore, func(context.Context) error, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.CartStore {
	case "mongo":
		db, err := cart.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, nil, err
		}
		store := cart.NewMongoStore(db, cfg.CartTTL)
		if err := store.CreateIndexes(ctx); err != nil {
			return nil, nil, nil, fmt.Errorf("create cart indexes: %w", err)
		}
		ping := func(ctx context.Context) error { return db.Client().Ping(ctx, nil) }
		closeFn := func() { _ = db.Client().Disconnect(context.Background()) }
		return store, ping, closeFn, nil
	default:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
		closeFn := func() { _ = client.Close() }
		return cart.NewRedisStore(client, cfg.CartTTL), ping, closeFn, nil
	}
}
