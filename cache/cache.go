// Package cache stores provider translations in a SQLite database so that
// repeated runs do not pay for the same text twice.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Key identifies one cached translation.
type Key struct {
	Provider   string
	Model      string
	SourceLang string
	TargetLang string
	// PromptHash fingerprints the rendered system prompt; see HashPrompt.
	PromptHash string
	Text       string
}

// HashPrompt returns the PromptHash for a rendered prompt.
func HashPrompt(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// Cache is a SQLite-backed translation cache. It is safe for concurrent use.
type Cache struct {
	db *sql.DB
	sq sq.StatementBuilderType
}

// Open opens (creating if needed) the cache database at dbPath and applies
// pending migrations.
func Open(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("make cache dir: %w", err)
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Translations finish concurrently; a single connection serialises writers.
	db.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Cache{db: db, sq: sq.StatementBuilder}, nil
}

// Close closes the database.
func (c *Cache) Close() error { return c.db.Close() }

// Get returns the cached translation for k. ok is false on a miss.
func (c *Cache) Get(ctx context.Context, k Key) (translation string, ok bool, err error) {
	q := c.sq.Select("translation").
		From("translations").
		Where(sq.Eq{
			"provider":    k.Provider,
			"model":       k.Model,
			"src_lang":    k.SourceLang,
			"tgt_lang":    k.TargetLang,
			"prompt_hash": k.PromptHash,
			"source_text": k.Text,
		}).
		Limit(1)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return "", false, err
	}
	if err := c.db.QueryRowContext(ctx, sqlStr, args...).Scan(&translation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("cache lookup: %w", err)
	}
	return translation, true, nil
}

// Put stores translation for k, replacing an earlier value.
func (c *Cache) Put(ctx context.Context, k Key, translation string) error {
	q := c.sq.Insert("translations").
		Columns("provider", "model", "src_lang", "tgt_lang", "prompt_hash", "source_text", "translation", "created_at").
		Values(k.Provider, k.Model, k.SourceLang, k.TargetLang, k.PromptHash, k.Text, translation, time.Now().UTC().Format(time.RFC3339)).
		Suffix("ON CONFLICT(provider, model, src_lang, tgt_lang, prompt_hash, source_text) DO UPDATE SET translation=excluded.translation, created_at=excluded.created_at")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return err
	}
	if _, err := c.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}

// Len returns the number of cached translations.
func (c *Cache) Len(ctx context.Context) (int, error) {
	sqlStr, args, err := c.sq.Select("COUNT(*)").From("translations").ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := c.db.QueryRowContext(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Migrations
// ---------------------------------------------------------------------------

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL UNIQUE,
        applied_at TEXT NOT NULL
    )`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, name := range files {
		applied, err := isApplied(db, name)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(b)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_migrations(name, applied_at) VALUES (?, ?)`, name, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}
	return nil
}

func isApplied(db *sql.DB, name string) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT 1 FROM schema_migrations WHERE name = ?`, name).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check migration %s: %w", name, err)
	}
	return true, nil
}
