// Package main is the entry point for the sales ledger API server.
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

	"salesledger/internal/domain/auth"
	"salesledger/internal/domain/catalogs/party"
	"salesledger/internal/domain/catalogs/product"
	"salesledger/internal/domain/documents/sale"
	v1 "salesledger/internal/infrastructure/http/v1"
	"salesledger/internal/infrastructure/cache"
	"salesledger/internal/infrastructure/storage/postgres"
	"salesledger/internal/infrastructure/storage/postgres/catalog_repo"
	"salesledger/internal/infrastructure/storage/postgres/document_repo"
	"salesledger/pkg/logger"
	pkgnumerator "salesledger/pkg/numerator"
	"salesledger/pkg/telemetry"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Env == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting salesledger server", "version", version, "env", cfg.Env)

	// --- Telemetry ---
	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalw("failed to initialize telemetry", "error", err)
	}

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = int32(cfg.DBMaxConns)
	poolCfg.MinConns = int32(cfg.DBMinConns)

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatalw("failed to apply migrations", "error", err)
		}
	}

	txOpts := postgres.DefaultTxOptions()
	txOpts.StatementTimeout = cfg.StatementLimit
	txManager := postgres.NewTxManager(pool, txOpts)

	// --- Repositories ---
	products := catalog_repo.NewProductRepo(txManager)
	clients := catalog_repo.NewClientRepo(txManager)
	vendors := catalog_repo.NewVendorRepo(txManager)
	zones := catalog_repo.NewZoneRepo(txManager)
	sales := document_repo.NewSaleRepo(txManager)

	auditLog, err := postgres.NewAuditLog(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit log", "error", err)
	}

	// --- Product cache ---
	var productCache product.Cache = product.NoopCache{}
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisProductCache(cfg.Redis)
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			log.Warnw("redis unavailable, product cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			productCache = redisCache
			log.Infow("product cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
		}
	}

	// --- Services ---
	productService := product.NewService(products, txManager, productCache)
	partyServices := party.NewServices(clients, vendors, zones, txManager)

	numerator := pkgnumerator.New(func(ctx context.Context) pkgnumerator.Querier {
		return txManager.GetQuerier(ctx)
	})

	saleService := sale.NewService(sale.Deps{
		Repo:      sales,
		Products:  products,
		Parties:   party.NewDirectory(clients, vendors, zones),
		TxManager: txManager,
		Numerator: numerator,
		Events:    postgres.NewOutboxPublisher(txManager),
		Audit:     auditLog,
		Cache:     productService,
		Catalog:   productService,
	}, cfg.Sale)

	// --- Router ---
	routerCfg := v1.RouterConfig{
		Logger:      log,
		Sales:       saleService,
		Products:    productService,
		Parties:     partyServices,
		Database:    pool,
		CORSOrigins: cfg.CORSOrigins,
		Version:     version,
	}
	if cfg.AuthEnabled {
		routerCfg.JWTValidator = auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret))
	}
	if cfg.IdempotencyEnabled {
		routerCfg.Idempotency = postgres.NewIdempotencyStore(txManager, 24*time.Hour)
	}
	if cfg.Telemetry.Enabled {
		routerCfg.ServiceName = cfg.Telemetry.ServiceName
	}
	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting",
			"port", cfg.Port,
			"auth", cfg.AuthEnabled,
			"idempotency", cfg.IdempotencyEnabled,
			"numbering", cfg.Sale.NumberStrategy.String(),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Warnw("telemetry shutdown failed", "error", err)
	}

	log.Info("server stopped")
}
