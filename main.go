package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-hub/domain/repository"
	"social-hub/infrastructure/cache"
	facebookclient "social-hub/infrastructure/clients/facebook"
	instagramclient "social-hub/infrastructure/clients/instagram"
	twitterclient "social-hub/infrastructure/clients/twitter"
	youtubeclient "social-hub/infrastructure/clients/youtube"
	"social-hub/infrastructure/configuration"
	"social-hub/infrastructure/logger"
	"social-hub/infrastructure/media"
	"social-hub/infrastructure/persistence"
	"social-hub/infrastructure/pubsub"
	"social-hub/infrastructure/servicebus"
	httpHandler "social-hub/interfaces/http"
	"social-hub/server"
	"social-hub/usecase"

	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	app := configuration.C.App

	db, accountRepo, publishRepo, stateRepo := initiatePersistence()
	if accountRepo == nil {
		logger.GetLogger().Error("No database available; exiting")
		return
	}

	var store cache.Store
	redisCfg := configuration.C.RedisClient
	redisClient, err := cache.NewCache(ctx, redisCfg.Host+":"+redisCfg.Port, redisCfg.Username, redisCfg.Password)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - falling back to in-memory cache")
		store = cache.NewMemoryStore()
	} else {
		store = cache.NewRedisStore(redisClient)
	}

	stateTTL := time.Duration(configuration.C.OAuth.StateTTLSeconds) * time.Second
	stateStore := cache.NewStateStore(store, stateRepo, stateTTL)
	tokenCache := cache.NewTokenCache(store, nil)

	registry := usecase.NewPlatformRegistry(
		facebookclient.New(configuration.C.OAuth.Facebook),
		instagramclient.New(configuration.C.OAuth.Instagram),
		twitterclient.New(configuration.C.OAuth.Twitter),
		youtubeclient.New(configuration.C.OAuth.YouTube),
	)

	mediaResolver, err := media.NewLocalResolver(configuration.C.Media.Dir, configuration.C.Media.BaseURL)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Media resolver initialization failed")
		return
	}

	var notifiers []repository.IEventNotifier
	if configuration.C.Pubsub.ProjectID != "" {
		pubsubPublisher, err := pubsub.NewEventPublisher(ctx, configuration.C.Pubsub.ProjectID, configuration.C.Pubsub.Topic)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Pub/Sub not available - continuing without it")
		} else {
			notifiers = append(notifiers, pubsubPublisher)
		}
	}
	if configuration.C.ServiceBus.Namespace != "" {
		sbPublisher, err := servicebus.NewEventPublisher(configuration.C.ServiceBus.Namespace, configuration.C.ServiceBus.Queue)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Service Bus not available - continuing without it")
		} else {
			notifiers = append(notifiers, sbPublisher)
		}
	}

	authUsecase := usecase.NewAuthUsecase(registry, stateStore, tokenCache, accountRepo)
	publishUsecase := usecase.NewPublishUsecase(
		registry,
		accountRepo,
		publishRepo,
		mediaResolver,
		authUsecase,
		time.Duration(configuration.C.Publish.CallTimeoutSeconds)*time.Second,
		notifiers...,
	)

	authHandler := httpHandler.NewAuthHandler(authUsecase)
	publishHandler := httpHandler.NewPublishHandler(publishUsecase)
	router := server.InitiateRouter(authHandler, publishHandler)

	httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.Port),
		Handler: router,
	}

	g.Go(func() error {
		logger.GetLogger().WithField("port", app.Port).Info("HTTP server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return runScheduler(ctx, publishUsecase)
	})

	g.Go(func() error {
		select {
		case sig := <-interrupt:
			logger.GetLogger().WithField("signal", sig.String()).Info("Shutdown signal received")
		case <-ctx.Done():
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if db != nil {
			defer db.Close()
		}
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server exited with error")
	}
	logger.GetLogger().Info("Server stopped")
}

// initiatePersistence opens the configured database and builds the
// repositories against it. SQL Server is used when configured, otherwise
// PostgreSQL.
func initiatePersistence() (*sql.DB, repository.ILinkedAccount, repository.IPublish, repository.IOAuthState) {
	if configuration.C.Database.Mssql.Host != "" {
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("SQL Server initialization failed")
		} else {
			return db,
				persistence.NewLinkedAccountRepositoryMSSQL(db),
				persistence.NewPublishRepositoryMSSQL(db),
				persistence.NewOAuthStateRepositoryMSSQL(db)
		}
	}

	db, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("PostgreSQL initialization failed")
		return nil, nil, nil, nil
	}
	if err := persistence.EnsureSchema(db); err != nil {
		logger.GetLogger().WithField("error", err).Error("Schema migration failed")
	}
	return db,
		persistence.NewLinkedAccountRepository(db),
		persistence.NewPublishRepository(db),
		persistence.NewOAuthStateRepository(db)
}

// runScheduler executes scheduled publishes whose time has come. The
// interval and batch size are configurable; the loop exits with the
// server context.
func runScheduler(ctx context.Context, publishUsecase usecase.IPublishUsecase) error {
	interval := time.Duration(configuration.C.Publish.SchedulerIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}
	batch := configuration.C.Publish.SchedulerBatchSize
	if batch <= 0 {
		batch = 10
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			n, err := publishUsecase.RunDue(ctx, now, batch)
			if err != nil {
				logger.GetLogger().WithField("error", err).Error("Scheduler run failed")
				continue
			}
			if n > 0 {
				logger.GetLogger().WithField("count", n).Info("Scheduled publishes executed")
			}
		}
	}
}
