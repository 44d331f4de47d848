package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
	"git.home.luguber.info/inful/assetflow/internal/orchestrator"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and creates) the database at dbPath. Use ":memory:" for an
// in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, storageError("create history directory", dbPath, err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, storageError("open sqlite database", dbPath, err)
	}
	// One connection: an in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, storageError("initialize schema", dbPath, err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		plan TEXT NOT NULL,
		status TEXT NOT NULL,
		started INTEGER NOT NULL,
		finished INTEGER NOT NULL,
		error TEXT
	);
	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL REFERENCES builds(id),
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		started INTEGER,
		finished INTEGER,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started ON builds(started);
	CREATE INDEX IF NOT EXISTS idx_tasks_build_id ON tasks(build_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores r and its task records in one transaction.
func (s *SQLiteStore) Record(ctx context.Context, r *orchestrator.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := FromReport(r)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO builds (id, plan, status, started, finished, error) VALUES (?, ?, ?, ?, ?, ?)",
		b.ID, b.Plan, b.Status, toMillis(b.Started), toMillis(b.Finished), nullString(b.Error),
	); err != nil {
		return fmt.Errorf("insert build: %w", err)
	}
	for _, t := range b.Tasks {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tasks (build_id, name, status, started, finished, error) VALUES (?, ?, ?, ?, ?, ?)",
			b.ID, t.Name, t.Status, nullMillis(t.Started), nullMillis(t.Finished), nullString(t.Error),
		); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Recent returns up to limit builds, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, plan, status, started, finished, error FROM builds ORDER BY started DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var builds []Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return builds, nil
}

// Get returns the build with the given id and its tasks.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, plan, status, started, finished, error FROM builds WHERE id = ?", id)
	b, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, foundationerrors.NotFoundError("build not found").WithContext("build_id", id).Build()
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT name, status, started, finished, error FROM tasks WHERE build_id = ? ORDER BY id", id)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			t                 Task
			started, finished sql.NullInt64
			taskErr           sql.NullString
		)
		if err := rows.Scan(&t.Name, &t.Status, &started, &finished, &taskErr); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Started, t.Finished, t.Error = fromNullMillis(started), fromNullMillis(finished), taskErr.String
		b.Tasks = append(b.Tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return &b, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(row scanner) (Build, error) {
	var (
		b                 Build
		started, finished int64
		buildErr          sql.NullString
	)
	if err := row.Scan(&b.ID, &b.Plan, &b.Status, &started, &finished, &buildErr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return b, err
		}
		return b, fmt.Errorf("scan build: %w", err)
	}
	b.Started, b.Finished, b.Error = time.UnixMilli(started), time.UnixMilli(finished), buildErr.String
	return b, nil
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func nullMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullMillis(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func storageError(msg, path string, err error) error {
	return foundationerrors.WrapError(err, foundationerrors.CategoryStorage, msg).
		WithContext("path", path).
		Build()
}
