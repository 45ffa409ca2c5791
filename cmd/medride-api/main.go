// README: Entry point; loads config, wires storage, sinks and services, starts HTTP server and background workers.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"medride/internal/config"
	httptransport "medride/internal/http"
	"medride/internal/http/middleware"
	"medride/internal/infra"
	"medride/internal/modules/distance"
	"medride/internal/modules/notification"
	"medride/internal/modules/pricing"
	"medride/internal/modules/request"
	"medride/internal/modules/reward"
)

type storage struct {
	requests request.Repository
	ledger   reward.Ledger
	close    func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := infra.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.close()

	var workers sync.WaitGroup
	goWorker := func(fn func()) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			fn()
		}()
	}

	hub := notification.NewHub(log)
	sinks := []notification.Sink{hub}

	if cfg.Redis.Addr != "" {
		rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		sinks = append(sinks, notification.NewRedisQueue(rdb, cfg.Redis.QueueKey))
		worker := notification.NewWebhookWorker(rdb, cfg.Redis.QueueKey, notification.WebhookConfig{
			URL:        cfg.Webhook.URL,
			Secret:     cfg.Webhook.Secret,
			Timeout:    cfg.Webhook.Timeout,
			MaxRetries: cfg.Webhook.MaxRetries,
			BaseDelay:  cfg.Webhook.BaseDelay,
		}, log)
		goWorker(func() { worker.Run(ctx) })
		log.Info("Redis notification queue enabled")
	}

	if cfg.RabbitMQ.URL != "" {
		mq, err := infra.NewRabbitMQ(ctx, cfg.RabbitMQ.URL, 5, log)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer mq.Close()
		sink, err := notification.NewRabbitSink(mq.Chan, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Fatalf("Failed to set up RabbitMQ sink: %v", err)
		}
		sinks = append(sinks, sink)
		log.Info("RabbitMQ notification sink enabled")
	}

	if cfg.Telegram.Token != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			log.Fatalf("Failed to create Telegram bot: %v", err)
		}
		sinks = append(sinks, notification.NewTelegramSink(bot, cfg.Telegram.ChatID, notification.Severity(cfg.Telegram.MinSeverity)))
		log.WithField("bot", bot.Self.UserName).Info("Telegram notification sink enabled")
	}

	inbox := notification.NewInbox(notification.DefaultInboxSize)
	dispatcher := notification.NewDispatcher(inbox, log, sinks...)
	goWorker(func() { dispatcher.Run(ctx) })

	var router distance.Router
	if cfg.Maps.APIKey != "" {
		g, err := distance.NewGoogleRouter(cfg.Maps.APIKey, cfg.Maps.Region)
		if err != nil {
			log.Fatalf("Failed to create maps client: %v", err)
		}
		router = g
	}

	rewardSvc := reward.NewService(store.ledger, dispatcher, log)
	requestSvc := request.NewService(store.requests, rewardSvc, dispatcher, log)
	goWorker(func() { requestSvc.RunStaleMonitor(ctx, cfg.Requests.PendingTTL, cfg.Requests.SweepInterval) })

	limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst, 10*time.Minute, log)
	goWorker(func() { limiter.Cleanup(ctx) })

	api := httptransport.NewServer(httptransport.ServerDeps{
		Requests:    requestSvc,
		Pricing:     pricing.NewService(),
		Rewards:     rewardSvc,
		Distance:    distance.NewService(router, log),
		Inbox:       inbox,
		Hub:         hub,
		RateLimiter: limiter,
		Logger:      log,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: api.Routes()}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()
	log.WithFields(logrus.Fields{"addr": cfg.HTTP.Addr, "storage": cfg.Storage.Driver}).Info("HTTP server started")

	<-ctx.Done()
	log.Info("Received shutdown signal, shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	workers.Wait()
	log.Info("Server gracefully stopped")
}

func openStorage(ctx context.Context, cfg config.Config, log *logrus.Logger) (storage, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		if err := infra.Migrate(cfg.Storage.DSN, cfg.Storage.MigrationsDir, log); err != nil {
			return storage{}, err
		}
		pool, err := infra.NewDB(ctx, cfg.Storage.DSN)
		if err != nil {
			return storage{}, err
		}
		return storage{
			requests: request.NewStore(pool),
			ledger:   reward.NewStore(pool),
			close:    pool.Close,
		}, nil
	case config.StorageSQLite:
		db, err := infra.NewSQLite(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return storage{}, err
		}
		return storage{
			requests: request.NewSQLiteStore(db),
			ledger:   reward.NewSQLiteStore(db),
			close:    closer(db),
		}, nil
	default:
		log.Warn("Using in-memory storage; data is lost on restart")
		return storage{
			requests: request.NewMemoryStore(),
			ledger:   reward.NewMemoryLedger(),
			close:    func() {},
		}, nil
	}
}

func closer(db *sql.DB) func() {
	return func() { _ = db.Close() }
}
