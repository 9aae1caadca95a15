package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"

	_ "github.com/mattn/go-sqlite3"
)

const createDocumentsTable = `
CREATE TABLE IF NOT EXISTS documents (
	path       TEXT PRIMARY KEY,
	body       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore implements Store on SQLite. Suited to deployments that want
// the document tree inspectable with ordinary SQL tooling.
type SQLiteStore struct {
	db      *sql.DB
	dialect goqu.DialectWrapper
	path    string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite-backed document store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path
	if !strings.Contains(path, ":memory:") {
		if strings.Contains(dsn, "?") {
			dsn += "&_journal_mode=WAL&_busy_timeout=5000"
		} else {
			dsn += "?_journal_mode=WAL&_busy_timeout=5000"
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open docstore database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(createDocumentsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create documents table: %w", err)
	}

	return &SQLiteStore{
		db:      db,
		dialect: goqu.Dialect("sqlite3"),
		path:    path,
	}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	query, args, err := s.dialect.From("documents").
		Select("body").
		Where(goqu.C("path").Eq(path)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("docstore get %s: %w", path, err)
	}

	var body []byte
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("docstore get %s: %w", path, err)
	}

	return body, nil
}

func (s *SQLiteStore) Put(ctx context.Context, path string, value json.RawMessage) error {
	now := time.Now().UnixNano()
	query, args, err := s.dialect.Insert("documents").
		Rows(goqu.Record{"path": path, "body": []byte(value), "updated_at": now}).
		OnConflict(goqu.DoUpdate("path", goqu.Record{"body": []byte(value), "updated_at": now})).
		ToSQL()
	if err != nil {
		return fmt.Errorf("docstore put %s: %w", path, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("docstore put %s: %w", path, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, path string) error {
	query, args, err := s.dialect.Delete("documents").
		Where(goqu.C("path").Eq(path)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("docstore delete %s: %w", path, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("docstore delete %s: %w", path, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
