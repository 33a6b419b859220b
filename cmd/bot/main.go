package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quantfx/pricewatch-bot/internal/alert"
	"github.com/quantfx/pricewatch-bot/internal/bot"
	"github.com/quantfx/pricewatch-bot/internal/engine"
	"github.com/quantfx/pricewatch-bot/internal/feed"
	"github.com/quantfx/pricewatch-bot/internal/flow"
	"github.com/quantfx/pricewatch-bot/internal/health"
	"github.com/quantfx/pricewatch-bot/internal/lifecycle"
	"github.com/quantfx/pricewatch-bot/internal/matcher"
	"github.com/quantfx/pricewatch-bot/pkg/config"
	"github.com/quantfx/pricewatch-bot/pkg/graceful"
	"github.com/quantfx/pricewatch-bot/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:         cfg.Log.Level,
		Format:        cfg.Log.Format,
		File:          cfg.Log.File,
		MaxSizeMB:     cfg.Log.MaxSizeMB,
		MaxBackups:    cfg.Log.MaxBackups,
		MaxAgeDays:    cfg.Log.MaxAgeDays,
		SentryEnabled: cfg.Sentry.Enabled,
	})

	log.Info("starting pricewatch bot",
		"env", cfg.AppEnv,
		"poll_interval", cfg.Feed.PollInterval,
		"allowed_users", len(cfg.Bot.AllowedUsers),
	)

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.AppEnv,
		}); err != nil {
			log.Error("sentry init failed", "error", err)
		}
	}

	config.Watch(v, log, func(updated config.Config) {
		// the full config applies on restart; log level and allow list
		// changes are the ones worth noticing live
		log.Info("configuration updated",
			"log_level", updated.Log.Level,
			"allowed_users", len(updated.Bot.AllowedUsers),
		)
	})

	priceFeed := feed.NewYahoo(cfg.Feed.ProbeSymbol, log)
	if err := priceFeed.Reconnect(ctx); err != nil {
		// degraded start: alerts save but will not fire until the
		// matching loop reconnects
		log.Warn("price feed unavailable at startup", "error", err)
	}

	store := alert.NewStore(log)
	flows := flow.NewManager(log)
	eng := engine.New(flows, store, priceFeed, log)

	b, err := bot.New(*cfg, log, eng)
	if err != nil {
		log.Error("bot init failed", "error", err)
		os.Exit(1)
	}

	notifier := bot.NewNotifier(b, log)
	match := matcher.New(store, priceFeed, notifier, cfg.Feed.PollInterval, log)

	checker := health.NewChecker(log)
	checker.AddCheck("telegram", health.NewTelegramChecker(b.Telebot()))
	checker.AddCheck("feed", health.NewFeedChecker(priceFeed))

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("sentry", func(_ context.Context) error {
		if cfg.Sentry.Enabled {
			sentry.Flush(2 * time.Second)
		}
		return nil
	})
	shutdown.Register("telegram bot", func(_ context.Context) error {
		b.Stop()
		return nil
	})

	go match.Run(ctx)
	go b.Start()

	opsServer := graceful.NewServer(log, &http.Server{
		Addr:    cfg.Server.Port,
		Handler: logger.Middleware(opsMux(checker)),
	}, cfg.Server.ShutdownTimeout)

	go func() {
		if err := opsServer.ListenAndServe(ctx); err != nil {
			log.Error("ops server failed", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", "error", err)
	}

	log.Info("pricewatch bot stopped")
}

func opsMux(checker *health.Checker) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		results := checker.Check(r.Context())

		status := http.StatusOK
		for _, state := range results {
			if state != "OK" {
				status = http.StatusServiceUnavailable
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(results)
	})

	return mux
}
