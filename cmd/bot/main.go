package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	telebot "gopkg.in/telebot.v3"

	"github.com/relaydesk/support-bot/internal/activity"
	"github.com/relaydesk/support-bot/internal/bot"
	"github.com/relaydesk/support-bot/internal/database"
	apperrors "github.com/relaydesk/support-bot/internal/errors"
	"github.com/relaydesk/support-bot/internal/health"
	"github.com/relaydesk/support-bot/internal/idempotency"
	"github.com/relaydesk/support-bot/internal/lifecycle"
	"github.com/relaydesk/support-bot/internal/middleware"
	"github.com/relaydesk/support-bot/internal/provider"
	"github.com/relaydesk/support-bot/internal/ratelimit"
	"github.com/relaydesk/support-bot/internal/relay"
	"github.com/relaydesk/support-bot/internal/repository"
	"github.com/relaydesk/support-bot/internal/topics"
	"github.com/relaydesk/support-bot/pkg/config"
	"github.com/relaydesk/support-bot/pkg/graceful"
	"github.com/relaydesk/support-bot/pkg/logger"
	redisclient "github.com/relaydesk/support-bot/pkg/redis"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(*cfg)
	slog.SetDefault(log)

	log.Info("starting support bot",
		slog.String("env", cfg.AppEnv),
		slog.Int64("support_chat_id", cfg.Bot.SupportChatID),
	)

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	migrator := database.NewMigrator(db, log)
	if err := migrator.ApplyDir(ctx, cfg.Database.MigrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	var rdb *redisclient.Client
	if cfg.Redis.Enabled {
		rdb, err = redisclient.New(ctx, redisclient.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			PoolTimeout:  cfg.Redis.PoolTimeout,
			IdleTimeout:  cfg.Redis.IdleTimeout,
		})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
	}

	tb, err := bot.NewTelebot(cfg.Bot)
	if err != nil {
		return err
	}

	repo := repository.NewUserRepository(db, log)
	prov := provider.NewTelegram(tb, cfg.Bot.SupportChatID, log)
	resolver := topics.NewResolver(repo, prov, cfg.Bot.CallTimeout, log)

	var gate activity.Gate
	if rdb != nil {
		gate = activity.NewRedisGate(rdb.Client, cfg.Bot.AckCooldown, log)
	} else {
		gate = activity.NewMemoryGate(cfg.Bot.AckCooldown)
	}

	router := relay.New(repo, prov, resolver, relay.TextMatcher{}, gate, relay.Config{
		SupportChatID: cfg.Bot.SupportChatID,
		CallTimeout:   cfg.Bot.CallTimeout,
		AckMessage:    bot.AckMessage,
	}, log)

	errHandler := apperrors.NewHandler(log, cfg.Sentry.Enabled)

	supportBot := bot.New(tb, router, repo, errHandler, cfg.Bot, log, botMiddleware(cfg, rdb, log)...)

	checker := health.NewChecker(log)
	checker.AddCheck("database", health.NewDBChecker(db))
	checker.AddCheck("telegram", health.NewTelegramChecker(tb))
	if rdb != nil {
		checker.AddCheck("redis", health.NewRedisChecker(rdb.Client))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", checker.Handler())

	srv := graceful.NewServer(log, &http.Server{
		Addr:    cfg.Server.Port,
		Handler: logger.Middleware(middleware.HTTPLogging(log)(mux)),
	}, cfg.Server.ShutdownTimeout)

	config.Watch(v, log, func(updated config.Config) {
		logger.SetLevel(updated.Logger.Level)
	})

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("bot", func(context.Context) error {
		supportBot.Stop()
		return nil
	})
	shutdown.Register("database", func(context.Context) error {
		return db.Close()
	})
	if rdb != nil {
		shutdown.Register("redis", func(context.Context) error {
			return rdb.Close()
		})
	}

	go supportBot.Start()

	err = srv.ListenAndServe(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if shutdownErr := shutdown.Execute(shutdownCtx); shutdownErr != nil {
		log.Error("shutdown incomplete", slog.Any("error", shutdownErr))
	}

	return err
}

// botMiddleware assembles the update middleware chain. Redis-backed layers
// are skipped when Redis is disabled; flood limits are skipped when disabled
// in config.
func botMiddleware(cfg *config.Config, rdb *redisclient.Client, log *slog.Logger) []telebot.MiddlewareFunc {
	mws := []telebot.MiddlewareFunc{
		middleware.Recovery(log),
		middleware.Logging(log),
		middleware.Metrics,
	}

	if rdb != nil {
		store := idempotency.NewRedisStore(rdb.Client, log)
		mws = append(mws, middleware.Idempotency(idempotency.NewManager(store, log), log))
	}

	if cfg.RateLimit.Enabled {
		var limiter ratelimit.Limiter
		if rdb != nil {
			limiter = ratelimit.NewRedisLimiter(rdb.Client, log)
		} else {
			limiter = ratelimit.NewMemoryLimiter(log)
		}

		mws = append(mws, middleware.RateLimit(limiter, ratelimit.NewRules(cfg.RateLimit), log))
	}

	return mws
}
