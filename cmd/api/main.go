package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mopesa.org/internal/account"
	"mopesa.org/internal/config"
	"mopesa.org/internal/directory"
	"mopesa.org/internal/history"
	"mopesa.org/internal/httpapi"
	"mopesa.org/internal/notify"
	"mopesa.org/internal/obs"
	"mopesa.org/internal/store/pg"
	"mopesa.org/internal/stream"
	"mopesa.org/internal/transfer"
)

var version = "0.3.1"

func main() {
	cfg := config.Load()

	log, err := obs.NewLogger(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	obs.Init()

	if cfg.DatabaseURL == "" {
		log.Fatal("MOPESA_PG_DSN is required")
	}
	store, err := pg.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("open db", zap.Error(err))
	}
	defer store.Close()

	var notifier notify.Notifier
	if cfg.NotificationWebhookURL != "" {
		notifier = notify.NewWebhook(cfg.NotificationWebhookURL)
	} else {
		notifier = &notify.Logged{Log: log}
	}

	var events *stream.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		events = stream.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		defer func() { _ = events.Close() }()
	}

	accounts := account.NewService(store, store)
	transfers := transfer.NewService(store, store, store, notifier, events, log)
	dir := directory.NewService(store, store, notifier, log)
	statements := history.NewService(store, store)

	api := httpapi.New(accounts, transfers, dir, statements,
		httpapi.ReadyProbe{DB: store.DB()}, log, version)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("starting mopesa-api",
		zap.String("version", version),
		zap.String("addr", srv.Addr),
		zap.String("env", cfg.Env),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Info("stopped")
}
