package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"lifeos/internal/storage"
)

// Store keeps every collection in one documents table and writes only the
// documents a change touches.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
            owner TEXT NOT NULL,
            collection TEXT NOT NULL,
            id TEXT NOT NULL,
            body TEXT NOT NULL,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (owner, collection, id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_documents_scope ON documents(owner, collection);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Load returns the owner's documents of a collection in insertion order.
func (s *Store) Load(ctx context.Context, scope storage.Scope) ([]storage.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, body FROM documents
        WHERE owner = ? AND collection = ? ORDER BY rowid`, scope.Owner, scope.Collection.Name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", scope, err)
	}
	defer rows.Close()

	docs := []storage.Document{}
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		var doc storage.Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			s.logger.Warn("skipping undecodable document",
				slog.String("scope", scope.String()),
				slog.String("id", id),
				slog.String("error", err.Error()))
			continue
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Persist applies the upserts and deletes of change in one transaction.
// Rows are keyed by the canonical id, so retired legacy keys never name a
// separate row here.
func (s *Store) Persist(ctx context.Context, scope storage.Scope, change storage.Change) error {
	if len(change.Upserts) == 0 && len(change.Deletes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, doc := range change.Upserts {
		id, err := storage.DocumentID(scope.Collection, doc)
		if err != nil {
			return err
		}
		body, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", scope, id, err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO documents(owner, collection, id, body) VALUES(?, ?, ?, ?)
            ON CONFLICT(owner, collection, id) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`,
			scope.Owner, scope.Collection.Name, id, string(body))
		if err != nil {
			return fmt.Errorf("upsert %s %s: %w", scope, id, err)
		}
	}

	for _, id := range change.Deletes {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE owner = ? AND collection = ? AND id = ?`,
			scope.Owner, scope.Collection.Name, id); err != nil {
			return fmt.Errorf("delete %s %s: %w", scope, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", scope, err)
	}
	return nil
}

// Count returns the number of documents stored for scope.
func (s *Store) Count(ctx context.Context, scope storage.Scope) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE owner = ? AND collection = ?`,
		scope.Owner, scope.Collection.Name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", scope, err)
	}
	return n, nil
}
