package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/relaydesk/live-chat/internal/api/http"
	"github.com/relaydesk/live-chat/internal/api/http/handlers"
	"github.com/relaydesk/live-chat/internal/auth"
	"github.com/relaydesk/live-chat/internal/config"
	"github.com/relaydesk/live-chat/internal/events"
	"github.com/relaydesk/live-chat/internal/llm"
	"github.com/relaydesk/live-chat/internal/observability"
	"github.com/relaydesk/live-chat/internal/persistence"
	"github.com/relaydesk/live-chat/internal/realtime"
	"github.com/relaydesk/live-chat/internal/repository"
	"github.com/relaydesk/live-chat/internal/service"
	"github.com/relaydesk/live-chat/internal/storage"
	"github.com/relaydesk/live-chat/internal/worker"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	var dispatcher events.Dispatcher = events.NewInMemoryDispatcher()
	if redis.Enabled() {
		bridge := events.NewRedisBridge(dispatcher, redis.Client, cfg.Realtime.RedisChannel, logger)
		if err := bridge.Start(ctx); err != nil {
			logger.Warn("redis bridge unavailable; change feed stays node-local", zap.Error(err))
		} else {
			defer bridge.Stop()
			dispatcher = bridge
		}
	}

	store, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to init storage", zap.Error(err))
	}

	pool := pg.PoolHandle()
	participantRepo := repository.NewParticipantRepository(pool)

	chatService := service.NewChatService(service.ChatDependencies{
		ParticipantRepo: participantRepo,
		RequestRepo:     repository.NewRequestRepository(pool),
		MessageRepo:     repository.NewMessageRepository(pool),
		TypingRepo:      repository.NewTypingRepository(pool),
		ObjectStore:     store,
		Dispatcher:      dispatcher,
		Metrics:         metrics,
		Logger:          logger,
		MaxImageBytes:   cfg.Chat.MaxImageBytes,
	})
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		CredentialRepo: repository.NewAgentCredentialRepository(pool),
		Participants:   chatService,
		TokenManager:   tokens,
	})
	var faqModel service.FAQModel
	if cfg.LLM.Enabled() {
		faqModel = llm.New(cfg.LLM, logger)
		logger.Info("faq responder using model", zap.String("model", cfg.LLM.Model))
	}
	faqService := service.NewFAQService(service.DefaultFAQ, repository.NewFAQRepository(pool), faqModel, logger)

	if cfg.Auth.SeedAgentEmail != "" && cfg.Auth.SeedAgentPassword != "" {
		if err := authService.RegisterAgent(ctx, cfg.Auth.SeedAgentEmail, cfg.Auth.SeedAgentPassword); err != nil {
			logger.Warn("failed to seed agent credentials", zap.Error(err))
		} else {
			logger.Info("agent credentials seeded", zap.String("email", cfg.Auth.SeedAgentEmail))
		}
	}

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notify)
	stopNotifications := worker.StartNotificationWorker(notificationService)
	defer stopNotifications()
	worker.StartTypingSweeper(ctx, chatService, cfg.Chat.TypingStale(), cfg.Chat.TypingStale(), logger)

	deps := map[string]handlers.Pinger{"postgres": pg}
	if redis.Enabled() {
		deps["redis"] = redis
	}
	var filesRoot string
	switch s := store.(type) {
	case *storage.S3Store:
		deps["storage"] = pingFunc(s.Health)
	case *storage.LocalStore:
		filesRoot = s.Root()
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler,
		BodyLimit:    cfg.App.BodyLimitBytes,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Auth:           handlers.NewAuthHandler(authService),
		Participants:   handlers.NewParticipantsHandler(chatService),
		Requests:       handlers.NewRequestsHandler(chatService),
		Messages:       handlers.NewMessagesHandler(chatService, cfg.Chat.PageSize),
		Uploads:        handlers.NewUploadsHandler(chatService, cfg.Chat.MaxImageBytes),
		FAQ:            handlers.NewFAQHandler(faqService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, participantRepo),
		Metrics:        metrics,
		FilesRoot:      filesRoot,
	})

	hub := realtime.NewHub(dispatcher, tokens, logger, metrics)
	feedServer := realtime.NewServer(cfg.Realtime, hub)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	go func() {
		logger.Info("realtime feed listening", zap.String("addr", feedServer.Addr))
		if err := feedServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("realtime listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	hub.CloseAll()
	_ = feedServer.Shutdown(shutdownCtx)
	_ = app.ShutdownWithContext(shutdownCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
