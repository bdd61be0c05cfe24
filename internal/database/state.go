package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/reaper/internal/frontier"
)

// SchemaVersion is the version of the snapshot schema.
const SchemaVersion = 1

// FileName is the database file name inside the data directory.
const FileName = "state.db"

// insertChunk bounds the rows per INSERT statement to stay well under
// SQLite's bound-parameter limit.
const insertChunk = 200

const (
	metaSchemaVersion = "schema_version"
	metaSavedAt       = "snapshot_saved_at"
)

// StateDB stores crawl state in SQLite.
type StateDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures StateDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the state database in dir.
func Open(dir string, opts Options) (*StateDB, error) {
	dbPath := filepath.Join(dir, FileName)

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?mode=rwc"
	} else if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database not found at %s: %w", dbPath, err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &StateDB{db: db, dbPath: dbPath}
	ctx := context.Background()

	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// OpenOrReset opens the database and, if the existing file cannot be used,
// moves it aside as "<name>.corrupt-<unix>" and starts a fresh one.
// The returned path is the quarantined file, or "" if none.
func OpenOrReset(dir string, opts Options) (*StateDB, string, error) {
	s, err := Open(dir, opts)
	if err == nil {
		return s, "", nil
	}
	dbPath := filepath.Join(dir, FileName)
	if _, statErr := os.Stat(dbPath); statErr != nil {
		return nil, "", err
	}
	moved := dbPath + ".corrupt-" + strconv.FormatInt(time.Now().Unix(), 10)
	if renameErr := os.Rename(dbPath, moved); renameErr != nil {
		return nil, "", errors.Join(err, renameErr)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(dbPath + suffix)
	}
	s, err = Open(dir, opts)
	if err != nil {
		return nil, moved, err
	}
	return s, moved, nil
}

// Path returns the database file path.
func (s *StateDB) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *StateDB) Close() error {
	return s.db.Close()
}

func (s *StateDB) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	-- URLs already claimed by a worker
	CREATE TABLE IF NOT EXISTS visited (
		url TEXT PRIMARY KEY
	);

	-- queued URLs; position keeps FIFO order
	CREATE TABLE IF NOT EXISTS pending (
		position INTEGER PRIMARY KEY,
		url TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS failed (
		url TEXT PRIMARY KEY,
		reason TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		visited INTEGER DEFAULT 0,
		pending INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		state TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	query, args, err := sq.Insert("meta").
		Options("OR IGNORE").
		Columns("key", "value").
		Values(metaSchemaVersion, strconv.Itoa(SchemaVersion)).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// SaveSnapshot replaces the stored snapshot with snap in one transaction.
func (s *StateDB) SaveSnapshot(ctx context.Context, snap *frontier.Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"visited", "pending", "failed"} {
		query, args, buildErr := sq.Delete(table).ToSql()
		if buildErr != nil {
			return buildErr
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err = insertRows(ctx, tx, "visited", []string{"url"}, len(snap.Visited), func(i int) []any {
		return []any{snap.Visited[i]}
	}); err != nil {
		return err
	}
	if err = insertRows(ctx, tx, "pending", []string{"position", "url"}, len(snap.Pending), func(i int) []any {
		return []any{i, snap.Pending[i]}
	}); err != nil {
		return err
	}

	failedURLs := make([]string, 0, len(snap.Failed))
	for u := range snap.Failed {
		failedURLs = append(failedURLs, u)
	}
	if err = insertRows(ctx, tx, "failed", []string{"url", "reason"}, len(failedURLs), func(i int) []any {
		return []any{failedURLs[i], snap.Failed[failedURLs[i]]}
	}); err != nil {
		return err
	}

	query, args, err := sq.Insert("meta").
		Options("OR REPLACE").
		Columns("key", "value").
		Values(metaSavedAt, time.Now().UTC().Format(time.RFC3339Nano)).
		ToSql()
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to stamp snapshot: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, table string, cols []string, n int, row func(int) []any) error {
	for start := 0; start < n; start += insertChunk {
		end := min(start+insertChunk, n)
		b := sq.Insert(table).Columns(cols...)
		for i := start; i < end; i++ {
			b = b.Values(row(i)...)
		}
		query, args, err := b.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}

// LoadSnapshot reads the stored snapshot. It returns (nil, nil) when no
// snapshot has been saved yet.
func (s *StateDB) LoadSnapshot(ctx context.Context) (*frontier.Snapshot, error) {
	version, err := s.metaValue(ctx, metaSchemaVersion)
	if err != nil {
		return nil, err
	}
	if version != strconv.Itoa(SchemaVersion) {
		return nil, fmt.Errorf("%w: %q", ErrSchemaVersion, version)
	}
	if _, err := s.metaValue(ctx, metaSavedAt); errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	snap := &frontier.Snapshot{Failed: make(map[string]string)}

	snap.Visited, err = s.queryStrings(ctx, sq.Select("url").From("visited").OrderBy("url"))
	if err != nil {
		return nil, fmt.Errorf("failed to load visited: %w", err)
	}
	snap.Pending, err = s.queryStrings(ctx, sq.Select("url").From("pending").OrderBy("position"))
	if err != nil {
		return nil, fmt.Errorf("failed to load pending: %w", err)
	}

	query, args, err := sq.Select("url", "reason").From("failed").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var u, reason string
		if err := rows.Scan(&u, &reason); err != nil {
			return nil, err
		}
		snap.Failed[u] = reason
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}

// SavedAt returns when the stored snapshot was written, or the zero time.
func (s *StateDB) SavedAt(ctx context.Context) time.Time {
	v, err := s.metaValue(ctx, metaSavedAt)
	if err != nil {
		return time.Time{}
	}
	return parseTimestamp(v)
}

func (s *StateDB) metaValue(ctx context.Context, key string) (string, error) {
	query, args, err := sq.Select("value").From("meta").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return "", err
	}
	var v string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&v); err != nil {
		return "", err
	}
	return v, nil
}

func (s *StateDB) queryStrings(ctx context.Context, b sq.SelectBuilder) ([]string, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// timestampFormats contains the timestamp formats SQLite may return.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
}

// parseTimestamp tries each known format and returns the zero time if none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
