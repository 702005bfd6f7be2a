// Package store wraps the persistent full-text index (C6): a SQLite
// database with an FTS5 virtual table for topics and a small key-value
// table for run metadata. It is built with database/sql against
// github.com/mattn/go-sqlite3, the way other embedded-store tools in the
// corpus open their databases, configured for write-ahead logging so the
// dispatcher can keep reading while the indexing task is writing.
//
// Building this package requires the mattn/go-sqlite3 FTS5 build tag:
//
//	go build -tags sqlite_fts5 ./...
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	xerrors "github.com/hawkxtreme/mini-ai-1c-help/internal/errors"
)

// batchSize is the number of topic rows the indexing pipeline commits per
// transaction (§4.7).
const batchSize = 100

// snippetWindow is the token window passed to the FTS5 snippet() function.
const snippetWindow = 30

// fallbackExcerptLen is the excerpt length used by the substring fallback
// search, in characters of content.
const fallbackExcerptLen = 300

const schema = `
CREATE TABLE IF NOT EXISTS metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE VIRTUAL TABLE IF NOT EXISTS topics USING fts5(
	topic_id UNINDEXED,
	title,
	content,
	category UNINDEXED,
	version UNINDEXED,
	tokenize = 'unicode61'
);
`

// Topic is one persisted help page row.
type Topic struct {
	TopicID  string
	Title    string
	Content  string
	Category string
	Version  string
}

// SearchHit is one ranked or fallback search result.
type SearchHit struct {
	TopicID string
	Title   string
	Excerpt string
}

// Meta is the indexing run metadata; a zero value means nothing has been
// recorded yet.
type Meta struct {
	Version   string
	Count     int
	IndexedAt string
}

// Store is a handle to one open help.db.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates path's parent directory if missing, opens the database in
// write-ahead-log mode with normal synchronous durability, and creates the
// schema if absent.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, xerrors.NewStoreUnavailableError("open", path, err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, xerrors.NewStoreUnavailableError("open", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite handle is single-writer; avoid pool churn.

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, xerrors.NewStoreUnavailableError("open", path, fmt.Errorf("%s: %w", pragma, err))
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, xerrors.NewStoreUnavailableError("open", path, fmt.Errorf("schema: %w", err))
	}

	return &Store{db: db, path: path}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ClearVersion deletes all topic rows for a given version, making indexing
// idempotent across restarts on the same installation.
func (s *Store) ClearVersion(ctx context.Context, version string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM topics WHERE version = ?", version)
	if err != nil {
		return xerrors.NewStoreUnavailableError("clear_version", s.path, err)
	}
	return nil
}

// ClearAll truncates both tables, used by reindex_1c_help.
func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.NewStoreUnavailableError("clear_all", s.path, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM topics"); err != nil {
		return xerrors.NewStoreUnavailableError("clear_all", s.path, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM metadata"); err != nil {
		return xerrors.NewStoreUnavailableError("clear_all", s.path, err)
	}
	if err := tx.Commit(); err != nil {
		return xerrors.NewStoreUnavailableError("clear_all", s.path, err)
	}
	return nil
}

// BatchSize reports the insert batch size the indexing pipeline should use.
func BatchSize() int { return batchSize }

// InsertBatch atomically inserts rows. The indexing pipeline flushes rows in
// groups of BatchSize(), but InsertBatch itself accepts any length.
func (s *Store) InsertBatch(ctx context.Context, rows []Topic) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.NewStoreUnavailableError("insert_batch", s.path, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO topics (topic_id, title, content, category, version) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return xerrors.NewStoreUnavailableError("insert_batch", s.path, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.TopicID, row.Title, row.Content, row.Category, row.Version); err != nil {
			return xerrors.NewStoreUnavailableError("insert_batch", s.path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return xerrors.NewStoreUnavailableError("insert_batch", s.path, err)
	}
	return nil
}

// Count returns the number of topic rows for version.
func (s *Store) Count(ctx context.Context, version string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM topics WHERE version = ?", version).Scan(&n)
	if err != nil {
		return 0, xerrors.NewStoreUnavailableError("count", s.path, err)
	}
	return n, nil
}

// RecordMeta upserts the three metadata keys the core reads on startup.
func (s *Store) RecordMeta(ctx context.Context, version string, count int, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.NewStoreUnavailableError("record_meta", s.path, err)
	}
	defer tx.Rollback()

	upsert := "INSERT INTO metadata (key, value) VALUES (?, ?) " +
		"ON CONFLICT(key) DO UPDATE SET value = excluded.value"

	pairs := map[string]string{
		"indexed_version": version,
		"topic_count":     fmt.Sprintf("%d", count),
		"indexed_at":      at.UTC().Format(time.RFC3339),
	}
	for key, value := range pairs {
		if _, err := tx.ExecContext(ctx, upsert, key, value); err != nil {
			return xerrors.NewStoreUnavailableError("record_meta", s.path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return xerrors.NewStoreUnavailableError("record_meta", s.path, err)
	}
	return nil
}

// ReadMeta reads back the recorded metadata; a key that was never written
// leaves the corresponding Meta field at its zero value.
func (s *Store) ReadMeta(ctx context.Context) (Meta, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM metadata")
	if err != nil {
		return Meta{}, xerrors.NewStoreUnavailableError("read_meta", s.path, err)
	}
	defer rows.Close()

	var meta Meta
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Meta{}, xerrors.NewStoreUnavailableError("read_meta", s.path, err)
		}
		switch key {
		case "indexed_version":
			meta.Version = value
		case "topic_count":
			fmt.Sscanf(value, "%d", &meta.Count)
		case "indexed_at":
			meta.IndexedAt = value
		}
	}
	return meta, rows.Err()
}

// Get returns the title and content for topicID, or ok=false if no such row
// exists.
func (s *Store) Get(ctx context.Context, topicID string) (title, content string, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, "SELECT title, content FROM topics WHERE topic_id = ?", topicID)
	err = row.Scan(&title, &content)
	if err == sql.ErrNoRows {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, xerrors.NewStoreUnavailableError("get", s.path, err)
	}
	return title, content, true, nil
}

// Search runs a ranked FTS5 query restricted to category when non-empty,
// falling back transparently to a substring match over title and content on
// any query-parse failure from the FTS engine (§4.6, §7 QuerySyntaxError).
func (s *Store) Search(ctx context.Context, query, category string, limit int) ([]SearchHit, error) {
	hits, err := s.searchFTS(ctx, query, category, limit)
	if err == nil {
		return hits, nil
	}
	return s.searchFallback(ctx, query, category, limit)
}

func (s *Store) searchFTS(ctx context.Context, query, category string, limit int) ([]SearchHit, error) {
	sqlText := "SELECT topic_id, title, snippet(topics, 2, '>>', '<<', '...', ?) " +
		"FROM topics WHERE topics MATCH ?"
	args := []interface{}{snippetWindow, query}

	if category != "" {
		sqlText += " AND category = ?"
		args = append(args, category)
	}
	sqlText += " ORDER BY bm25(topics) LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err // FTS5 query-parse failure: caller falls back.
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.TopicID, &h.Title, &h.Excerpt); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (s *Store) searchFallback(ctx context.Context, query, category string, limit int) ([]SearchHit, error) {
	sqlText := "SELECT topic_id, title, content FROM topics " +
		"WHERE (title LIKE ? OR content LIKE ?)"
	like := "%" + query + "%"
	args := []interface{}{like, like}

	if category != "" {
		sqlText += " AND category = ?"
		args = append(args, category)
	}
	sqlText += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, xerrors.NewStoreUnavailableError("search_fallback", s.path, err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var topicID, title, content string
		if err := rows.Scan(&topicID, &title, &content); err != nil {
			return nil, xerrors.NewStoreUnavailableError("search_fallback", s.path, err)
		}
		hits = append(hits, SearchHit{
			TopicID: topicID,
			Title:   title,
			Excerpt: excerptOf(content),
		})
	}
	return hits, rows.Err()
}

func excerptOf(content string) string {
	runes := []rune(content)
	if len(runes) <= fallbackExcerptLen {
		return content
	}
	return string(runes[:fallbackExcerptLen])
}
