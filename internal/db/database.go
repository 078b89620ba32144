package db

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type DatabaseConnection struct {
	*pgxpool.Pool
}

// pingRetryCount bounds the readiness loop below. Connection-level retries
// are configured separately (DATABASE_RETRIES, consumed when the pool is
// opened); this guard only covers a pool that opened before the server was
// ready to answer queries.
const pingRetryCount = 15

// NewDatabaseConnection wraps an open pool once it answers a ping.
func NewDatabaseConnection(ctx context.Context, pool *pgxpool.Pool) (*DatabaseConnection, error) {
	for i := range pingRetryCount {
		err := pool.Ping(ctx)
		if err == nil {
			return &DatabaseConnection{pool}, nil
		}

		// Golden ratio backoff
		sleep := time.Duration(float64(i)*1.61803398875) * time.Second
		slog.Warn("database not answering ping, retrying", "error", err, "wait", sleep)
		time.Sleep(sleep)
	}

	return nil, fmt.Errorf("database did not answer ping after %d retries", pingRetryCount)
}

func (db *DatabaseConnection) Close() {
	db.Pool.Close()
}

func (db *DatabaseConnection) Queries(ctx context.Context) *Queries {
	return New(db)
}

func (db *DatabaseConnection) NewWithTX(ctx context.Context) (*Queries, pgx.Tx, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return New(tx), tx, nil
}

//go:embed sql/migrations/*.sql
var embedMigrations embed.FS

// Migrate runs the embedded goose migrations up to the latest version, or to
// the version named by GOOSE_UP_TO / GOOSE_DOWN_TO when set.
func (db *DatabaseConnection) Migrate(ctx context.Context) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	stdDb := stdlib.OpenDBFromPool(db.Pool)
	defer stdDb.Close()

	currentVersion, err := goose.GetDBVersionContext(ctx, stdDb)
	if err != nil {
		return err
	}

	migrations, err := goose.CollectMigrations("sql/migrations", 0, goose.MaxVersion)
	if err != nil {
		return err
	}
	slog.Info("migrations embedded", "count", len(migrations), "current_version", currentVersion)

	if down, ok := os.LookupEnv("GOOSE_DOWN_TO"); ok {
		targetVersion, err := strconv.ParseInt(down, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse GOOSE_DOWN_TO version: %w", err)
		}
		return goose.DownToContext(ctx, stdDb, "sql/migrations", targetVersion)
	}

	targetVersion := int64(goose.MaxVersion)
	if up, ok := os.LookupEnv("GOOSE_UP_TO"); ok {
		targetVersion, err = strconv.ParseInt(up, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse GOOSE_UP_TO version: %w", err)
		}
	}

	return goose.UpToContext(ctx, stdDb, "sql/migrations", targetVersion)
}
