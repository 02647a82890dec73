package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/portfolio-contact/internal/api/http"
	"github.com/spec-kit/portfolio-contact/internal/api/http/handlers"
	"github.com/spec-kit/portfolio-contact/internal/auth"
	"github.com/spec-kit/portfolio-contact/internal/config"
	"github.com/spec-kit/portfolio-contact/internal/events"
	"github.com/spec-kit/portfolio-contact/internal/mail"
	"github.com/spec-kit/portfolio-contact/internal/observability"
	"github.com/spec-kit/portfolio-contact/internal/persistence"
	"github.com/spec-kit/portfolio-contact/internal/queue"
	"github.com/spec-kit/portfolio-contact/internal/ratelimit"
	"github.com/spec-kit/portfolio-contact/internal/repository"
	"github.com/spec-kit/portfolio-contact/internal/service"
	"github.com/spec-kit/portfolio-contact/internal/validation"
	"github.com/spec-kit/portfolio-contact/internal/worker"
	"github.com/spec-kit/portfolio-contact/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
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

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	submissionRepo := repository.NewSubmissionRepository(pool)
	jobRepo := repository.NewNotificationJobRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	location := cfg.Mail.Location()

	composer, err := mail.NewComposer(mail.ComposerConfig{
		FromAddress:   cfg.Mail.FromAddress,
		FromName:      cfg.Mail.FromName,
		AdminAddress:  cfg.Mail.AdminAddress,
		AdminPanelURL: cfg.Mail.AdminPanelURL,
		Location:      location,
	})
	if err != nil {
		logger.Fatal("failed to load mail templates", zap.Error(err))
	}
	sender := mail.NewSMTPMailer(mail.SMTPConfig{
		Addr:     cfg.Mail.SMTPAddr,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		StartTLS: cfg.Mail.StartTLS,
		Timeout:  cfg.Mail.SMTPTimeout,
	}, logger)

	mailQueue := queue.NewRedisQueue(redis.Handle(), cfg.Queue.Connection, cfg.Queue.Name)
	notificationService := service.NewNotificationService(service.NotificationConfig{
		AdminAddress: cfg.Mail.AdminAddress,
		MaxAttempts:  cfg.Queue.MaxAttempts,
	}, service.NotificationDependencies{
		Dispatcher: dispatcher,
		JobRepo:    jobRepo,
		Queue:      mailQueue,
		Composer:   composer,
		Sender:     sender,
		Metrics:    metrics,
		Logger:     logger,
	})

	var validatorOpts []validation.Option
	if cfg.Mail.CheckDNS {
		validatorOpts = append(validatorOpts, validation.WithDomainChecker(validation.NewResolverChecker(2*time.Second, logger)))
	}

	contactService := service.NewContactService(service.ContactDependencies{
		Limiter:        ratelimit.NewLimiter(redis.Handle(), cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window(), logger),
		Validator:      validation.New(validatorOpts...),
		SubmissionRepo: submissionRepo,
		Dispatcher:     dispatcher,
		Namespace:      cfg.RateLimit.Namespace,
		Metrics:        metrics,
		Logger:         logger,
	})
	submissionService := service.NewSubmissionService(service.SubmissionDependencies{
		SubmissionRepo: submissionRepo,
		JobRepo:        jobRepo,
		Dispatcher:     dispatcher,
		Location:       location,
	})
	authService := service.NewAuthService(*cfg, logger)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager())

	workerCtx, stopWorkers := context.WithCancel(ctx)
	waitForWorkers := worker.StartNotificationWorker(workerCtx, notificationService, mailQueue, cfg.Queue, logger)

	app := fiber.New(fiber.Config{
		AppName:     cfg.App.Name,
		ProxyHeader: cfg.App.ProxyHeader,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:     cfg.App.RequestTimeout(),
		CORSOrigins: cfg.App.CORSOrigins,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Contact:        handlers.NewContactHandler(contactService),
		Auth:           handlers.NewAuthHandler(authService),
		Submissions:    handlers.NewSubmissionsHandler(submissionService),
		Metrics:        handlers.NewMetricsHandler(metrics),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	stopWorkers()
	waitForWorkers()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
