package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/mercado-backend/api/controllers"
	"github.com/angelmondragon/mercado-backend/api/routes"
	"github.com/angelmondragon/mercado-backend/internal/admin"
	"github.com/angelmondragon/mercado-backend/internal/catalog"
	"github.com/angelmondragon/mercado-backend/internal/categories"
	"github.com/angelmondragon/mercado-backend/internal/events"
	"github.com/angelmondragon/mercado-backend/internal/identity"
	"github.com/angelmondragon/mercado-backend/internal/media"
	products "github.com/angelmondragon/mercado-backend/internal/products"
	"github.com/angelmondragon/mercado-backend/internal/users"
	"github.com/angelmondragon/mercado-backend/internal/vendors"
	"github.com/angelmondragon/mercado-backend/pkg/auth"
	"github.com/angelmondragon/mercado-backend/pkg/config"
	"github.com/angelmondragon/mercado-backend/pkg/db"
	"github.com/angelmondragon/mercado-backend/pkg/logger"
	"github.com/angelmondragon/mercado-backend/pkg/metrics"
	"github.com/angelmondragon/mercado-backend/pkg/migrate"
	"github.com/angelmondragon/mercado-backend/pkg/redis"
	"github.com/angelmondragon/mercado-backend/pkg/storage/local"
	"github.com/angelmondragon/mercado-backend/pkg/storage/s3"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(ctx, "redis not configured; rate limiting and idempotency disabled")
	}

	var (
		remote        media.RemoteStore
		storagePinger controllers.Pinger
	)
	if cfg.Storage.Enabled() {
		s3Client, err := s3.New(ctx, cfg.Storage, logg)
		if err != nil {
			return err
		}
		remote = s3Client
		storagePinger = s3Client
	} else {
		logg.Warn(ctx, "object storage not configured; uploads use the local store")
	}

	localStore, err := local.Open(cfg.Uploads.Dir)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mediaSvc, err := media.NewService(media.Options{
		Remote:   remote,
		Local:    localStore,
		MaxBytes: cfg.Uploads.MaxBytes(),
		Metrics:  metrics.NewStorageMetrics(registry),
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	verifier, err := auth.NewVerifier(cfg.Identity)
	if err != nil {
		return err
	}

	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)
	vendorsRepo := vendors.NewRepository(conn)
	categoriesRepo := categories.NewRepository(conn)
	productsRepo := products.NewRepository(conn)

	identitySvc, err := identity.NewService(usersRepo)
	if err != nil {
		return err
	}
	usersSvc, err := users.NewService(usersRepo)
	if err != nil {
		return err
	}
	vendorsSvc, err := vendors.NewService(vendorsRepo)
	if err != nil {
		return err
	}
	categoriesSvc, err := categories.NewService(categoriesRepo)
	if err != nil {
		return err
	}
	productsSvc, err := products.NewService(productsRepo, dbClient, categoriesRepo, mediaSvc, logg)
	if err != nil {
		return err
	}
	publicSvc, err := products.NewPublicService(productsRepo, cfg.App.PublicURL)
	if err != nil {
		return err
	}
	eventsSvc, err := events.NewService(events.NewRepository(conn), productsRepo, dbClient, cfg.App.PublicURL, logg)
	if err != nil {
		return err
	}
	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn), publicSvc, cfg.App, logg)
	if err != nil {
		return err
	}
	adminSvc, err := admin.NewService(admin.NewRepository(conn), usersRepo, vendorsRepo, dbClient, mediaSvc, logg)
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		Storage:        storagePinger,
		Registry:       registry,
		HTTPMetrics:    metrics.NewHTTPMetrics(registry),
		Verifier:       verifier,
		Identity:       identitySvc,
		Users:          usersSvc,
		Vendors:        vendorsSvc,
		Categories:     categoriesSvc,
		Products:       productsSvc,
		PublicProducts: publicSvc,
		Events:         eventsSvc,
		Catalog:        catalogSvc,
		Media:          mediaSvc,
		Admin:          adminSvc,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: cfg.App.WriteTimeout,
	}

	logCtx := logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr})
	logg.Info(logCtx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
