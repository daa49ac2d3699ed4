// Package store is a small embedded vector store: named collections of
// documents with metadata and an embedding per document, kept in one SQLite
// file.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/foomo/contentexport/embed"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const Filename = "store.sqlite"

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrResetNotAllowed    = errors.New("reset is disabled, open the store with WithAllowReset")
	ErrEmbedderMismatch   = errors.New("collection was created with a different embedder")
	ErrNoEmbedder         = errors.New("collection has no embedder")
)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    embedder    TEXT NOT NULL,
    created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
    seq            INTEGER PRIMARY KEY AUTOINCREMENT,
    collection_id  TEXT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
    id             TEXT NOT NULL,
    document       TEXT NOT NULL,
    metadata       TEXT NOT NULL DEFAULT '{}',
    embedding      BLOB,
    UNIQUE (collection_id, id)
);
`

type Option func(*Store)

// WithAllowReset enables Reset. Without it Reset fails with
// ErrResetNotAllowed.
func WithAllowReset() Option {
	return func(s *Store) { s.allowReset = true }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

type Store struct {
	db         *sql.DB
	dir        string
	allowReset bool
	logger     *zap.Logger
}

type CollectionInfo struct {
	ID    uuid.UUID
	Name  string
	Count int
}

// Open opens or creates the store in dir.
func Open(dir string, opts ...Option) (*Store, error) {
	s := &Store{dir: dir, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, Filename))
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// one connection keeps the pragmas and serializes writers
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	s.db = db
	s.logger.Debug("store opened", zap.String("dir", dir))
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetOrCreateCollection returns the named collection, creating it bound to
// embedder when missing. An existing collection must have been created with
// an embedder of the same name.
func (s *Store) GetOrCreateCollection(ctx context.Context, name string, embedder embed.Embedder) (*Collection, error) {
	if embedder == nil {
		return nil, ErrNoEmbedder
	}
	c, err := s.GetCollection(ctx, name)
	switch {
	case err == nil:
		if c.EmbedderName != embedder.Name() {
			return nil, fmt.Errorf("%w: %s uses %s, got %s", ErrEmbedderMismatch, name, c.EmbedderName, embedder.Name())
		}
		c.embedder = embedder
		return c, nil
	case !errors.Is(err, ErrCollectionNotFound):
		return nil, err
	}

	c = &Collection{
		ID:           uuid.New(),
		Name:         name,
		EmbedderName: embedder.Name(),
		db:           s.db,
		embedder:     embedder,
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (id, name, embedder, created_at) VALUES (?, ?, ?, ?)`,
		c.ID.String(), c.Name, c.EmbedderName, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}
	s.logger.Info("collection created", zap.String("collection", name), zap.String("embedder", c.EmbedderName))
	return c, nil
}

// GetCollection returns an existing collection. It can be read but not
// written or queried until an embedder is attached by GetOrCreateCollection.
func (s *Store) GetCollection(ctx context.Context, name string) (*Collection, error) {
	var id string
	c := &Collection{Name: name, db: s.db}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, embedder FROM collections WHERE name = ?`, name,
	).Scan(&id, &c.EmbedderName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get collection %s: %w", name, err)
	}
	if c.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("collection %s has invalid id %q: %w", name, id, err)
	}
	return c, nil
}

// ListCollections returns all collections ordered by name.
func (s *Store) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.id, c.name, COUNT(d.seq)
FROM collections c LEFT JOIN documents d ON d.collection_id = c.id
GROUP BY c.id, c.name
ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var infos []CollectionInfo
	for rows.Next() {
		var (
			id   string
			info CollectionInfo
		)
		if err := rows.Scan(&id, &info.Name, &info.Count); err != nil {
			return nil, fmt.Errorf("list collections: %w", err)
		}
		if info.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("collection %s has invalid id %q: %w", info.Name, id, err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Reset removes every collection and document.
func (s *Store) Reset(ctx context.Context) error {
	if !s.allowReset {
		return ErrResetNotAllowed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range []string{`DELETE FROM documents`, `DELETE FROM collections`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	s.logger.Warn("store reset", zap.String("dir", s.dir))
	return nil
}
