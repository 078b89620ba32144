package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mindreel.dev/mindreel/internal/application"
	"mindreel.dev/mindreel/internal/config"
	"mindreel.dev/mindreel/internal/db"
	"mindreel.dev/mindreel/internal/delta"
	"mindreel.dev/mindreel/internal/embedder"
	"mindreel.dev/mindreel/internal/processor"
	"mindreel.dev/mindreel/internal/queue"
	"mindreel.dev/mindreel/internal/rss"
	"mindreel.dev/mindreel/internal/transcripts"
	"mindreel.dev/mindreel/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting ingestion worker service")

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

	// Recover jobs stuck in "processing" from previous crashes/restarts
	slog.Info("Recovering stale ingestion jobs from previous service instances")
	if _, err := jobQueue.RecoverStaleJobs(ctx); err != nil {
		slog.Error("failed to recover stale jobs", "error", err)
		// Non-fatal - continue startup
	}

	embedding := embedder.NewClient(conf.EmbeddingServiceURL)
	proc := processor.New(
		dbc.Queries(ctx),
		jobQueue,
		transcripts.NewClient(conf.TranscriptServiceURL),
		embedding,
		embedding,
		conf.EmbeddingModel,
	)

	wake := make(chan struct{}, 1)
	go listenAndSignal(ctx, conf.DatabaseDSN, wake)

	workers := conf.WorkerCount
	if workers <= 0 {
		workers = 2
	}

	slog.Info("Ingestion workers started", "workers", workers)
	for i := 0; i < workers; i++ {
		go worker.New(jobQueue, proc, wake, 5*time.Second).Run(ctx)
	}

	sweeper := worker.NewSweeper(jobQueue, time.Duration(conf.SweepIntervalMinutes)*time.Minute)
	go sweeper.Run(ctx)

	refresher := worker.NewRefresher(
		dbc.Queries(ctx),
		rss.NewClient(conf.FeedBaseURL),
		delta.NewDetector(dbc.Queries(ctx)),
		jobQueue,
		time.Duration(conf.RefreshIntervalMinutes)*time.Minute,
	)
	go refresher.Run(ctx)

	<-ctx.Done()
	slog.Info("Ingestion worker service stopping")
}

// listenAndSignal holds a dedicated LISTEN connection on the ingest_jobs
// channel and nudges the wake channel on every notification. Reconnects
// forever; workers fall back to polling while the listener is down.
func listenAndSignal(ctx context.Context, dsn string, signalCh chan<- struct{}) {
	for {
		if ctx.Err() != nil {
			return
		}

		// Parse using pgxpool so pool_* DSN params are consumed client-side
		// (otherwise they get forwarded to Postgres as startup params and cause FATAL).
		poolConf, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			slog.Error("listen parse config failed", "error", err)
			time.Sleep(2 * time.Second)
			continue
		}

		conn, err := pgx.ConnectConfig(ctx, poolConf.ConnConfig)
		if err != nil {
			slog.Error("listen connect failed", "error", err)
			time.Sleep(2 * time.Second)
			continue
		}

		if err := db.New(conn).ListenIngestJobs(ctx); err != nil {
			slog.Error("LISTEN failed", "error", err)
			_ = conn.Close(ctx)
			time.Sleep(2 * time.Second)
			continue
		}

		for {
			if ctx.Err() != nil {
				_ = conn.Close(ctx)
				return
			}

			if err := conn.PgConn().WaitForNotification(ctx); err != nil {
				slog.Error("wait for notification failed", "error", err)
				_ = conn.Close(ctx)
				break
			}

			select {
			case signalCh <- struct{}{}:
			default:
			}
		}
	}
}
