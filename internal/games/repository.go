package games

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// dialect holds the statements that differ between Postgres and SQLite.
type dialect struct {
	name   string
	schema []string
	insert string
	list   string
	get    string
}

var postgresDialect = dialect{
	name: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS fenscan_games (
			id BIGSERIAL PRIMARY KEY,
			uuid TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			fen TEXT NOT NULL,
			scan_id TEXT NOT NULL DEFAULT '',
			created_ms BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS fenscan_games_owner_idx ON fenscan_games (owner_id, created_ms DESC)`,
	},
	insert: `INSERT INTO fenscan_games (uuid, owner_id, title, fen, scan_id, created_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (uuid) DO NOTHING
		RETURNING id`,
	list: `SELECT id, uuid, owner_id, title, fen, scan_id, created_ms
		FROM fenscan_games
		WHERE owner_id = $1
		ORDER BY created_ms DESC, id DESC
		LIMIT $2`,
	get: `SELECT id, uuid, owner_id, title, fen, scan_id, created_ms
		FROM fenscan_games
		WHERE id = $1 AND owner_id = $2`,
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS fenscan_games (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			fen TEXT NOT NULL,
			scan_id TEXT NOT NULL DEFAULT '',
			created_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS fenscan_games_owner_idx ON fenscan_games (owner_id, created_ms DESC)`,
	},
	insert: `INSERT INTO fenscan_games (uuid, owner_id, title, fen, scan_id, created_ms)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (uuid) DO NOTHING
		RETURNING id`,
	list: `SELECT id, uuid, owner_id, title, fen, scan_id, created_ms
		FROM fenscan_games
		WHERE owner_id = ?
		ORDER BY created_ms DESC, id DESC
		LIMIT ?`,
	get: `SELECT id, uuid, owner_id, title, fen, scan_id, created_ms
		FROM fenscan_games
		WHERE id = ? AND owner_id = ?`,
}

type repository struct {
	db *sql.DB
	d  dialect
}

func newSQLRepository(db *sql.DB, d dialect) *repository {
	return &repository{db: db, d: d}
}

// Migrate creates the table and index when missing.
func (r *repository) Migrate(ctx context.Context) error {
	for _, stmt := range r.d.schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", r.d.name, err)
		}
	}
	return nil
}

func (r *repository) Insert(ctx context.Context, g *Game) (int64, error) {
	if g == nil {
		return 0, fmt.Errorf("nil game payload")
	}
	var id sql.NullInt64
	err := r.db.QueryRowContext(ctx, r.d.insert,
		g.UUID,
		g.OwnerID,
		g.Title,
		g.FEN,
		g.ScanID,
		g.CreatedAt.UnixMilli(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicate
	}
	if err != nil {
		return 0, fmt.Errorf("insert game: %w", err)
	}
	return id.Int64, nil
}

func (r *repository) List(ctx context.Context, ownerID string, limit int) ([]*Game, error) {
	rows, err := r.db.QueryContext(ctx, r.d.list, ownerID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	out := []*Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return out, nil
}

func (r *repository) Get(ctx context.Context, id int64, ownerID string) (*Game, error) {
	g, err := scanGame(r.db.QueryRowContext(ctx, r.d.get, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return g, err
}

func (r *repository) Close() error { return r.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*Game, error) {
	var (
		g         Game
		createdMS int64
	)
	if err := row.Scan(&g.ID, &g.UUID, &g.OwnerID, &g.Title, &g.FEN, &g.ScanID, &createdMS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan game: %w", err)
	}
	g.CreatedAt = time.UnixMilli(createdMS).UTC()
	return &g, nil
}
