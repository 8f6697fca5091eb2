package games

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Open selects a repository by URL scheme: postgres:// or postgresql://
// for Postgres, sqlite:// or file: for SQLite, and an empty URL for the
// in-memory repository. SQL schemas are created on open.
func Open(ctx context.Context, rawURL string) (Repository, error) {
	u := strings.TrimSpace(rawURL)
	switch {
	case u == "":
		return NewMemoryRepository(), nil
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return OpenPostgres(ctx, u)
	case strings.HasPrefix(u, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(u, "sqlite://"))
	case strings.HasPrefix(u, "file:"):
		return OpenSQLite(ctx, u)
	default:
		return nil, fmt.Errorf("unsupported database url scheme: %q", u)
	}
}

func OpenPostgres(ctx context.Context, dsn string) (Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	return finishOpen(ctx, db, postgresDialect)
}

// OpenSQLite opens path with the pure Go driver. ":memory:" is supported.
func OpenSQLite(ctx context.Context, path string) (Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection keeps :memory: databases shared and serialises writers
	db.SetMaxOpenConns(1)
	return finishOpen(ctx, db, sqliteDialect)
}

func finishOpen(ctx context.Context, db *sql.DB, d dialect) (Repository, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.name, err)
	}
	repo := newSQLRepository(db, d)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}
