package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// SQLiteStore persists workspace records in a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the schema
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases coherent and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Debug().Str("path", path).Msg("Workspace store opened")
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS workspaces (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			path TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'stopped',
			pid INTEGER,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_workspaces_created ON workspaces(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Create inserts a new record
func (s *SQLiteStore) Create(ctx context.Context, ws *Workspace) error {
	if err := prepareNew(ws, time.Now()); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workspaces (id, name, path, status, pid, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ws.ID, ws.Name, ws.Path, string(ws.Status), nullablePID(ws.PID),
		ws.CreatedAt.UnixNano(), ws.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert workspace: %w", err)
	}
	return nil
}

// Get returns the record with the given id
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Workspace, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, path, status, pid, created_at, updated_at
		 FROM workspaces WHERE id = ?`, id)

	ws, err := scanWorkspace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}
	return ws, nil
}

// Update replaces a stored record
func (s *SQLiteStore) Update(ctx context.Context, ws *Workspace) error {
	if !ws.Status.Valid() {
		return ErrInvalidStatus
	}
	ws.UpdatedAt = time.Now()

	res, err := s.db.ExecContext(ctx,
		`UPDATE workspaces SET name = ?, path = ?, status = ?, pid = ?, updated_at = ?
		 WHERE id = ?`,
		ws.Name, ws.Path, string(ws.Status), nullablePID(ws.PID), ws.UpdatedAt.UnixNano(), ws.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a record
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	return requireAffected(res)
}

// List returns all records ordered by creation time
func (s *SQLiteStore) List(ctx context.Context) ([]*Workspace, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, path, status, pid, created_at, updated_at
		 FROM workspaces ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var result []*Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		result = append(result, ws)
	}
	return result, rows.Err()
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkspace(row scanner) (*Workspace, error) {
	var (
		ws        Workspace
		status    string
		pid       sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&ws.ID, &ws.Name, &ws.Path, &status, &pid, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	ws.Status = Status(status)
	if pid.Valid {
		ws.PID = int(pid.Int64)
	}
	ws.CreatedAt = time.Unix(0, createdAt)
	ws.UpdatedAt = time.Unix(0, updatedAt)
	return &ws, nil
}

func nullablePID(pid int) sql.NullInt64 {
	if pid <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(pid), Valid: true}
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
