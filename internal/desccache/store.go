package desccache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"picname/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes. Older databases must
// be cleared (`picname cache clear` or delete the file).
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was written by a different schema.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	timeLayout              = time.RFC3339Nano
)

// Key identifies one cached description. The same bytes described by a
// different model or prompt are cached separately.
type Key struct {
	ContentHash string
	Model       string
	Prompt      string
}

func (k Key) promptHash() string {
	sum := sha256.Sum256([]byte(k.Prompt))
	return hex.EncodeToString(sum[:])
}

func (k Key) valid() bool {
	return strings.TrimSpace(k.ContentHash) != "" && strings.TrimSpace(k.Model) != ""
}

// Entry is one cached description.
type Entry struct {
	Key         Key
	Description string
	SourceName  string
	Elapsed     time.Duration
	Hits        int
	CreatedAt   time.Time
	LastUsedAt  time.Time
}

// Stats summarizes the cache contents.
type Stats struct {
	Path      string
	Entries   int
	Hits      int
	SizeBytes int64
	Models    map[string]int
	Oldest    time.Time
	Newest    time.Time
}

// Cache persists image descriptions in SQLite.
type Cache struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// Open initializes or connects to the description database at path.
func Open(path string, logger *slog.Logger) (*Cache, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("description cache: path required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	cache := &Cache{
		db:     db,
		path:   path,
		logger: logging.NewComponentLogger(logger, "desccache"),
		now:    time.Now,
	}
	if err := cache.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return cache, nil
}

// Path returns the database location.
func (c *Cache) Path() string {
	return c.path
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Lookup returns the cached description for key, bumping its hit counter.
func (c *Cache) Lookup(ctx context.Context, key Key) (Entry, bool, error) {
	if !key.valid() {
		return Entry{}, false, nil
	}
	ctx = ensureContext(ctx)
	promptHash := key.promptHash()

	var (
		entry             Entry
		elapsedMS         int64
		createdAt, usedAt string
	)
	err := retryOnBusy(ctx, func() error {
		return c.db.QueryRowContext(ctx,
			`SELECT description, source_name, elapsed_ms, hits, created_at, last_used_at
			 FROM descriptions WHERE content_hash = ? AND model = ? AND prompt_hash = ?`,
			key.ContentHash, key.Model, promptHash,
		).Scan(&entry.Description, &entry.SourceName, &elapsedMS, &entry.Hits, &createdAt, &usedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("lookup description: %w", err)
	}

	now := c.now().UTC()
	if err := c.execWithRetry(ctx,
		`UPDATE descriptions SET hits = hits + 1, last_used_at = ?
		 WHERE content_hash = ? AND model = ? AND prompt_hash = ?`,
		now.Format(timeLayout), key.ContentHash, key.Model, promptHash,
	); err != nil {
		c.logger.Debug("failed to record cache hit", logging.Error(err))
	}

	entry.Key = key
	entry.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	entry.Hits++
	entry.CreatedAt = parseTime(createdAt)
	entry.LastUsedAt = now
	return entry, true, nil
}

// Store adds or replaces the description for entry.Key.
func (c *Cache) Store(ctx context.Context, entry Entry) error {
	if !entry.Key.valid() {
		return errors.New("store description: content hash and model required")
	}
	if strings.TrimSpace(entry.Description) == "" {
		return errors.New("store description: description required")
	}
	ctx = ensureContext(ctx)
	now := c.now().UTC().Format(timeLayout)
	if err := c.execWithRetry(ctx,
		`INSERT INTO descriptions
		   (content_hash, model, prompt_hash, description, source_name, elapsed_ms, hits, created_at, last_used_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
		 ON CONFLICT(content_hash, model, prompt_hash) DO UPDATE SET
		   description = excluded.description,
		   source_name = excluded.source_name,
		   elapsed_ms = excluded.elapsed_ms,
		   last_used_at = excluded.last_used_at`,
		entry.Key.ContentHash, entry.Key.Model, entry.Key.promptHash(),
		entry.Description, entry.SourceName, entry.Elapsed.Milliseconds(), now, now,
	); err != nil {
		return fmt.Errorf("store description: %w", err)
	}
	c.logger.Debug("cached description",
		logging.String("content_hash", shortHash(entry.Key.ContentHash)),
		logging.String("model", entry.Key.Model),
		logging.String("source", entry.SourceName))
	return nil
}

// Stats reports entry counts per model and the database size on disk.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	stats := Stats{Path: c.path, Models: map[string]int{}}

	rows, err := c.db.QueryContext(ctx,
		`SELECT model, COUNT(1), COALESCE(SUM(hits), 0), MIN(created_at), MAX(created_at)
		 FROM descriptions GROUP BY model`)
	if err != nil {
		return stats, fmt.Errorf("cache stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			model          string
			count, hits    int
			oldest, newest string
		)
		if err := rows.Scan(&model, &count, &hits, &oldest, &newest); err != nil {
			return stats, fmt.Errorf("cache stats: scan: %w", err)
		}
		stats.Models[model] = count
		stats.Entries += count
		stats.Hits += hits
		if t := parseTime(oldest); !t.IsZero() && (stats.Oldest.IsZero() || t.Before(stats.Oldest)) {
			stats.Oldest = t
		}
		if t := parseTime(newest); t.After(stats.Newest) {
			stats.Newest = t
		}
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("cache stats: %w", err)
	}

	for _, suffix := range []string{"", "-wal"} {
		if info, err := os.Stat(c.path + suffix); err == nil {
			stats.SizeBytes += info.Size()
		}
	}
	return stats, nil
}

// Clear removes every cached description and returns how many were deleted.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := c.db.ExecContext(ctx, "DELETE FROM descriptions")
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("clear descriptions: %w", err)
	}
	c.logger.Info("cleared description cache",
		logging.Int64("removed", removed),
		logging.String(logging.FieldEventType, "desccache_cleared"))
	return removed, nil
}

func (c *Cache) initSchema(ctx context.Context) error {
	var tableExists int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return c.createSchema(ctx)
	}

	var version int
	if err := c.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, c.path)
	}
	return nil
}

func (c *Cache) createSchema(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func (c *Cache) execWithRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := c.db.ExecContext(ctx, query, args...)
		return err
	})
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}
	}
	return t
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
