package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// requestConns is the share of the pool kept for HTTP requests and view
// reloads, on top of one connection per write-behind worker.
const requestConns = 16

// PoolSize returns the connection limit for a server running writeWorkers
// write-behind goroutines. An explicit maxConns wins.
func PoolSize(maxConns, writeWorkers int) int32 {
	if maxConns > 0 {
		return int32(maxConns)
	}
	return int32(requestConns + max(writeWorkers, 0))
}

// NewPostgresPool opens and pings the timer store's pgx pool.
func NewPostgresPool(databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse timer store URL: %w", err)
	}

	config.MaxConns = max(maxConns, 2)
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("open timer store pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping timer store: %w", err)
	}
	return pool, nil
}

type migration struct {
	version int
	path    string
}

// pendingMigrations lists the NNN_name.sql files in dir, in version order.
// Files without a numeric prefix are ignored.
func pendingMigrations(dir string) ([]migration, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}

	var out []migration
	for _, path := range paths {
		prefix, _, ok := strings.Cut(filepath.Base(path), "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			continue
		}
		out = append(out, migration{version: version, path: path})
	}
	return out, nil
}

// RunMigrations applies the accounts, profiles and timers schema from
// migrationsDir. Each file runs once, in its own transaction, and is
// recorded in schema_migrations.
func RunMigrations(pool *pgxpool.Pool, migrationsDir string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	migrations, err := pendingMigrations(migrationsDir)
	if err != nil {
		return fmt.Errorf("list migrations in %s: %w", migrationsDir, err)
	}

	applied := 0
	for _, m := range migrations {
		ok, err := applyMigration(ctx, pool, m)
		if err != nil {
			return err
		}
		if ok {
			applied++
			log.Printf("database: applied migration %03d (%s)", m.version, filepath.Base(m.path))
		}
	}
	if applied == 0 {
		log.Printf("database: timer schema up to date (%d migrations)", len(migrations))
	}
	return nil
}

// applyMigration runs m unless it is already recorded. It reports whether
// the file was applied.
func applyMigration(ctx context.Context, pool *pgxpool.Pool, m migration) (bool, error) {
	var exists bool
	if err := pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", m.version,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check migration %03d: %w", m.version, err)
	}
	if exists {
		return false, nil
	}

	content, err := os.ReadFile(m.path)
	if err != nil {
		return false, fmt.Errorf("read migration %03d: %w", m.version, err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin migration %03d: %w", m.version, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(content)); err != nil {
		return false, fmt.Errorf("execute migration %03d: %w", m.version, err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.version); err != nil {
		return false, fmt.Errorf("record migration %03d: %w", m.version, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit migration %03d: %w", m.version, err)
	}
	return true, nil
}
