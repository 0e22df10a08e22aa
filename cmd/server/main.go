package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-marketplace/internal/config"
	"github.com/ignatzorin/freelance-marketplace/internal/db"
	"github.com/ignatzorin/freelance-marketplace/internal/events"
	"github.com/ignatzorin/freelance-marketplace/internal/goroutine"
	httpHandlers "github.com/ignatzorin/freelance-marketplace/internal/http/handlers"
	"github.com/ignatzorin/freelance-marketplace/internal/http/middleware"
	httpRouter "github.com/ignatzorin/freelance-marketplace/internal/http/router"
	"github.com/ignatzorin/freelance-marketplace/internal/infrastructure/persistence"
	newHandler "github.com/ignatzorin/freelance-marketplace/internal/interface/http/handler"
	"github.com/ignatzorin/freelance-marketplace/internal/logger"
	"github.com/ignatzorin/freelance-marketplace/internal/pubsub"
	"github.com/ignatzorin/freelance-marketplace/internal/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/service"
	"github.com/ignatzorin/freelance-marketplace/internal/storage"
	"github.com/ignatzorin/freelance-marketplace/internal/usecase/contract"
	"github.com/ignatzorin/freelance-marketplace/internal/usecase/job"
	"github.com/ignatzorin/freelance-marketplace/internal/usecase/message"
	"github.com/ignatzorin/freelance-marketplace/internal/usecase/proposal"
	"github.com/ignatzorin/freelance-marketplace/internal/ws"
	"github.com/ignatzorin/freelance-marketplace/migrations"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel)
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}
	goroutine.SetLogger(logger.RecoveryLogger{})

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	version, err := db.RunMigrations(dbConn, migrations.FS)
	if err != nil {
		logger.Log.Fatalf("main: ошибка миграций: %v", err)
	}
	logger.Log.WithField("version", version).Info("main: схема базы актуальна")

	// Redis нужен для брокера и лимитера, без него работаем в памяти процесса.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Log.Fatalf("main: некорректный REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Log.Fatalf("main: redis недоступен: %v", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Log.WithError(err).Warn("main: ошибка закрытия redis")
			}
		}()
	}

	var broker pubsub.Broker
	if cfg.BrokerDriver == "redis" {
		broker = pubsub.NewRedisBroker(rdb)
	} else {
		broker = pubsub.NewMemoryBroker()
	}
	defer func() {
		if err := broker.Close(); err != nil {
			logger.Log.WithError(err).Warn("main: ошибка закрытия брокера")
		}
	}()

	rateStore, err := middleware.NewRateLimitStore(rdb)
	if err != nil {
		logger.Log.Fatalf("main: %v", err)
	}

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	cache := service.NewCacheService(5 * time.Minute)
	defer cache.Close()

	submissions, err := storage.NewSubmissionStorage(cfg.UploadStoragePath)
	if err != nil {
		logger.Log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	bookmarkRepo := repository.NewBookmarkRepository(dbConn)
	postRepo := repository.NewPostRepository(dbConn)

	jobRepo := persistence.NewJobRepositoryAdapter(dbConn)
	proposalRepo := persistence.NewProposalRepositoryAdapter(dbConn)
	contractRepo := persistence.NewContractRepositoryAdapter(dbConn)
	messageRepo := persistence.NewMessageRepositoryAdapter(dbConn)

	// Сервисы.
	notificationService := service.NewNotificationService(notificationRepo, broker)
	if cfg.AMQPURL != "" {
		publisher, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Log.Fatalf("main: %v", err)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Log.WithError(err).Warn("main: ошибка закрытия amqp")
			}
		}()
		notificationService.SetEventPublisher(publisher)
	}

	authService := service.NewAuthService(userRepo, tokenManager)
	profileService := service.NewProfileService(userRepo, cache)
	bookmarkService := service.NewBookmarkService(bookmarkRepo)
	postService := service.NewPostService(postRepo, notificationService)

	cleanup, err := service.NewCleanupScheduler(notificationService, cfg.NotificationCleanupCron, cfg.NotificationRetention)
	if err != nil {
		logger.Log.Fatalf("main: %v", err)
	}
	cleanup.Start()

	// Вебсокеты.
	hub := ws.NewHub(ctx, broker)
	goroutine.SafeGo(hub.Run)

	// Сценарии.
	limits := contract.UploadLimits{MaxFiles: cfg.UploadMaxFiles, MaxFileSize: cfg.UploadMaxFileBytes()}

	jobHandler := newHandler.NewJobHandler(
		job.NewCreateJobUseCase(jobRepo),
		job.NewGetJobUseCase(jobRepo),
		job.NewListJobsUseCase(jobRepo),
		job.NewHotJobsUseCase(jobRepo),
		job.NewMyJobsUseCase(jobRepo, proposalRepo),
		job.NewUpdateJobUseCase(jobRepo),
		job.NewDeleteJobUseCase(jobRepo, contractRepo),
	)
	proposalHandler := newHandler.NewProposalHandler(
		proposal.NewApplyToJobUseCase(proposalRepo, jobRepo, notificationService),
		proposal.NewUpdateProposalStatusUseCase(proposalRepo, jobRepo, notificationService),
		proposal.NewGetProposalUseCase(proposalRepo, jobRepo),
		proposal.NewListJobProposalsUseCase(proposalRepo, jobRepo),
		proposal.NewMyProposalsUseCase(proposalRepo),
		proposal.NewWithdrawProposalUseCase(proposalRepo),
	)
	contractHandler := newHandler.NewContractHandler(newHandler.ContractUseCases{
		Create:       contract.NewCreateContractUseCase(contractRepo, proposalRepo, jobRepo, notificationService),
		Fund:         contract.NewFundEscrowUseCase(contractRepo, notificationService),
		Activate:     contract.NewActivateContractUseCase(contractRepo, notificationService),
		AddMilestone: contract.NewAddMilestoneUseCase(contractRepo),
		Submit:       contract.NewSubmitWorkUseCase(contractRepo, submissions, notificationService, limits),
		Review:       contract.NewReviewSubmissionUseCase(contractRepo, notificationService),
		Release:      contract.NewReleasePaymentUseCase(contractRepo, notificationService),
		Complete:     contract.NewCompleteContractUseCase(contractRepo, notificationService),
		Get:          contract.NewGetContractUseCase(contractRepo),
		My:           contract.NewMyContractsUseCase(contractRepo),
		Download:     contract.NewDownloadFileUseCase(contractRepo, submissions),
	}, limits)
	messageHandler := newHandler.NewMessageHandler(
		message.NewSendMessageUseCase(messageRepo, userRepo, notificationService, hub),
		message.NewGetConversationUseCase(messageRepo),
		message.NewListConversationsUseCase(messageRepo),
		message.NewUnreadCountUseCase(messageRepo),
		message.NewMarkReadUseCase(messageRepo, hub),
	)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Auth:         httpHandlers.NewAuthHandler(authService, cfg.IsProduction()),
		Profile:      httpHandlers.NewProfileHandler(profileService, hub),
		Notification: httpHandlers.NewNotificationHandler(notificationService),
		Bookmark:     httpHandlers.NewBookmarkHandler(bookmarkService),
		Post:         httpHandlers.NewPostHandler(postService),
		WS:           httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
		Health:       httpHandlers.NewHealthHandler(dbConn, rdb),
		Job:          jobHandler,
		Proposal:     proposalHandler,
		Contract:     contractHandler,
		Message:      messageHandler,
	}, tokenManager, rateStore)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("main: ошибка остановки http сервера")
		}
	}()

	logger.Log.WithFields(logrus.Fields{
		"port":   cfg.HTTPPort,
		"env":    cfg.Env,
		"broker": cfg.BrokerDriver,
	}).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.WithError(err).Error("main: сервер завершился с ошибкой")
	}

	// Остановка в обратном порядке: cron ждёт текущую очистку, остальное закрывают defer.
	<-cleanup.Stop().Done()
	logger.Log.Info("main: сервер остановлен")
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Log.WithError(err).Warn("main: ошибка закрытия базы")
	}
}
