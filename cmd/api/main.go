package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/signup-forms/internal/api/http"
	"github.com/spec-kit/signup-forms/internal/api/http/handlers"
	"github.com/spec-kit/signup-forms/internal/auth"
	"github.com/spec-kit/signup-forms/internal/bigcommerce"
	"github.com/spec-kit/signup-forms/internal/cache"
	"github.com/spec-kit/signup-forms/internal/config"
	"github.com/spec-kit/signup-forms/internal/events"
	"github.com/spec-kit/signup-forms/internal/mailer"
	"github.com/spec-kit/signup-forms/internal/observability"
	"github.com/spec-kit/signup-forms/internal/persistence"
	"github.com/spec-kit/signup-forms/internal/repository"
	"github.com/spec-kit/signup-forms/internal/service"
	"github.com/spec-kit/signup-forms/internal/validation"
	"github.com/spec-kit/signup-forms/internal/worker"
	"github.com/spec-kit/signup-forms/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), migrations.FS, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer rdb.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	responseCache := cache.New(rdb.Cmdable(), cfg.Cache.TTL(), logger, metrics)

	mail, err := mailer.New(ctx, cfg.Notification, logger)
	if err != nil {
		logger.Fatal("failed to init mailer", zap.Error(err))
	}

	pool := pg.PoolHandle()
	storeRepo := repository.NewStoreRepository(pool)
	templateRepo := repository.NewEmailTemplateRepository(pool)
	signupRepo := repository.NewSignupRequestRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)

	validator := validation.MustNew()
	codec := auth.NewContextCodec(cfg.Auth.JWTKey, cfg.Auth.SessionTTL(), logger)
	bcClient := bigcommerce.NewClient(cfg.BigCommerce)
	dispatcher := events.NewInMemoryDispatcher()

	actionURL := cfg.Notification.ActionURL
	if actionURL == "" {
		actionURL = cfg.App.BaseURL
	}

	storeService := service.NewStoreService(service.StoreDependencies{
		StoreRepo:   storeRepo,
		BigCommerce: bcClient,
		Codec:       codec,
		BaseURL:     cfg.App.BaseURL,
		Logger:      logger,
	})
	templateService := service.NewEmailTemplateService(service.EmailTemplateDependencies{
		Repo:         templateRepo,
		Cache:        responseCache,
		Validator:    validator,
		Mailer:       mail,
		Metrics:      metrics,
		Logger:       logger,
		PlatformName: cfg.App.PlatformName,
		ActionURL:    actionURL,
	})
	settingsService := service.NewSettingsService(settingsRepo, responseCache, logger)
	signupService := service.NewSignupRequestService(service.SignupRequestDependencies{
		RequestRepo: signupRepo,
		StoreRepo:   storeRepo,
		Settings:    settingsService,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		RequestRepo: signupRepo,
		Renderer:    templateService,
		Mailer:      mail,
		Metrics:     metrics,
		Logger:      logger,
		App:         cfg.App,
		Config:      cfg.Notification,
	})

	notifier := worker.NewNotificationWorker(notificationService.Handle, cfg.Notification.Workers, cfg.Notification.QueueSize, logger)
	notifier.Register(dispatcher)
	notifier.Start()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	health := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
		handlers.Dependency{Name: "postgres", Pinger: pg},
		handlers.Dependency{Name: "redis", Pinger: rdb, Optional: true},
	)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            health,
		App:               handlers.NewAppHandler(storeService),
		EmailTemplates:    handlers.NewEmailTemplatesHandler(templateService),
		SignupRequests:    handlers.NewSignupRequestsHandler(signupService, validator),
		Settings:          handlers.NewSettingsHandler(settingsService, validator),
		SessionMiddleware: auth.NewSessionMiddleware(codec, storeRepo),
		MetricsHandler:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
		PublicRateLimit:   cfg.App.PublicRateLimit,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := notifier.Stop(shutdownCtx); err != nil {
		logger.Warn("notification worker shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
