package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"mindreel.dev/mindreel/cmd/web/internal/web"
	"mindreel.dev/mindreel/internal/application"
	"mindreel.dev/mindreel/internal/config"
	"mindreel.dev/mindreel/internal/db"
	"mindreel.dev/mindreel/internal/delta"
	"mindreel.dev/mindreel/internal/queue"
	"mindreel.dev/mindreel/internal/rss"
	"mindreel.dev/mindreel/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting web service")

	conf, err := config.LoadConfig(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	pool, err := application.OpenDBPoolWithRetry(ctx, *conf)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	dbc, err := db.NewDatabaseConnection(ctx, pool)
	if err != nil {
		slog.Error("failed to create database connection", "error", err)
		os.Exit(1)
	}
	defer dbc.Close()

	jobQueue := queue.NewQueue(dbc)

	// On-demand channel refresh shares the worker's refresh machinery; the
	// interval is irrelevant here since Run is never called.
	refresher := worker.NewRefresher(
		dbc.Queries(ctx),
		rss.NewClient(conf.FeedBaseURL),
		delta.NewDetector(dbc.Queries(ctx)),
		jobQueue,
		time.Duration(conf.RefreshIntervalMinutes)*time.Minute,
	)

	e, err := web.NewWebserver(dbc, jobQueue, refresher)
	if err != nil {
		slog.Error("failed to create webserver", "error", err)
		os.Exit(1)
	}

	addr := ":" + strconv.Itoa(conf.WebServerPort)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	slog.Info("Listening", "addr", addr)
	if err := e.Start(addr); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		// Echo returns an error on Shutdown; treat it as normal if context is done.
		if ctx.Err() != nil {
			return
		}
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
