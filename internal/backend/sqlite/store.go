// Package sqlite implements service.Service on an embedded SQLite database.
//
// This is the authoritative store behind the REST server. Ids come from an
// AUTOINCREMENT primary key, so a deleted id is never handed out again.
// Every mutation is a single statement, which SQLite applies atomically.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"todo/internal/service"
)

// DefaultFileName is the database file name used when none is configured.
const DefaultFileName = "todo.db"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tasks (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	text      TEXT    NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0
);
`

// Store wraps the database connection.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) the database at path and initializes the schema.
// The caller must call Close when done.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	q := url.Values{}
	q.Add("_pragma", "journal_mode(wal)")
	q.Add("_pragma", "busy_timeout(5000)")
	dsn := "file:" + path + "?" + q.Encode()

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(4)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.conn = nil
	return nil
}

// List implements service.Service.
func (s *Store) List(ctx context.Context) ([]service.Task, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, text, completed FROM tasks ORDER BY id`)
	if err != nil {
		return nil, dbError("list", err)
	}
	defer rows.Close()

	tasks := []service.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("list", err)
	}
	return tasks, nil
}

// Create implements service.Service.
func (s *Store) Create(ctx context.Context, text string, completed bool) (service.Task, error) {
	text, err := service.NormalizeText(text)
	if err != nil {
		return service.Task{}, err
	}
	row := s.conn.QueryRowContext(ctx,
		`INSERT INTO tasks (text, completed) VALUES (?, ?) RETURNING id, text, completed`,
		text, completed)
	task, err := scanTask(row)
	if err != nil {
		return service.Task{}, withOp("create", err)
	}
	return task, nil
}

// Update implements service.Service.
func (s *Store) Update(ctx context.Context, id service.ID, text string, completed bool) (service.Task, error) {
	text, err := service.NormalizeText(text)
	if err != nil {
		return service.Task{}, err
	}
	key, ok := id.Int()
	if !ok {
		return service.Task{}, &service.NotFoundError{ID: id}
	}
	row := s.conn.QueryRowContext(ctx,
		`UPDATE tasks SET text = ?, completed = ? WHERE id = ? RETURNING id, text, completed`,
		text, completed, key)
	return s.single("update", id, row)
}

// Toggle implements service.Service.
func (s *Store) Toggle(ctx context.Context, id service.ID) (service.Task, error) {
	key, ok := id.Int()
	if !ok {
		return service.Task{}, &service.NotFoundError{ID: id}
	}
	row := s.conn.QueryRowContext(ctx,
		`UPDATE tasks SET completed = NOT completed WHERE id = ? RETURNING id, text, completed`,
		key)
	return s.single("toggle", id, row)
}

// Delete implements service.Service.
func (s *Store) Delete(ctx context.Context, id service.ID) error {
	key, ok := id.Int()
	if !ok {
		return &service.NotFoundError{ID: id}
	}
	res, err := s.conn.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, key)
	if err != nil {
		return dbError("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError("delete", err)
	}
	if n == 0 {
		return &service.NotFoundError{ID: id}
	}
	return nil
}

func (s *Store) single(op string, id service.ID, row *sql.Row) (service.Task, error) {
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return service.Task{}, &service.NotFoundError{ID: id}
	}
	if err != nil {
		return service.Task{}, withOp(op, err)
	}
	return task, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (service.Task, error) {
	var (
		id        int64
		text      string
		completed bool
	)
	if err := sc.Scan(&id, &text, &completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return service.Task{}, err
		}
		return service.Task{}, dbError("scan", err)
	}
	return service.Task{ID: service.IntID(id), Text: text, Completed: completed}, nil
}

func dbError(op string, err error) error {
	return &service.TransportError{Op: op, Err: err}
}

// withOp relabels a scan failure with the operation that triggered it.
func withOp(op string, err error) error {
	var te *service.TransportError
	if errors.As(err, &te) {
		return &service.TransportError{Op: op, Err: te.Err}
	}
	return dbError(op, err)
}
