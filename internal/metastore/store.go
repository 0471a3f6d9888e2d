package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"vidbunch/internal/meta"
	"vidbunch/internal/vberr"
)

// ErrLocked is returned when another process holds the import lock.
var ErrLocked = errors.New("metadata index is locked by another import")

const lockRetryDelay = 50 * time.Millisecond

// Store manages a metadata index backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Import describes one completed import.
type Import struct {
	ID         string
	SourcePath string
	Rows       int
	Classes    int
	ImportedAt time.Time
}

// ClassCount is the number of indexed rows for one class.
type ClassCount struct {
	LID   int
	Label string
	Count int
}

// Open initializes or connects to the index database and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure index directory: %w", err)
		}
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
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, lock: flock.New(path + ".lock")}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Replace swaps the indexed rows for table and records the import. It waits
// for the import lock until ctx is done.
func (s *Store) Replace(ctx context.Context, table meta.Table, sourcePath string) (Import, error) {
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return Import{}, fmt.Errorf("%w: %w", ErrLocked, ctx.Err())
		}
		return Import{}, fmt.Errorf("acquire import lock: %w", err)
	}
	if !locked {
		return Import{}, ErrLocked
	}
	defer func() { _ = s.lock.Unlock() }()

	if err := checkUniqueIDs(table); err != nil {
		return Import{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Import{}, fmt.Errorf("begin import tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM clips"); err != nil {
		return Import{}, fmt.Errorf("clear clips: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO clips (position, id, label, lid, path, length, height, width, framerate)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Import{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for i, clip := range table {
		if _, err := stmt.ExecContext(ctx, i, clip.ID, clip.Label, clip.LID, clip.Path,
			clip.Length, clip.Height, clip.Width, clip.Framerate); err != nil {
			return Import{}, fmt.Errorf("insert clip %s: %w", clip.ID, err)
		}
	}

	record := Import{
		ID:         uuid.NewString(),
		SourcePath: sourcePath,
		Rows:       len(table),
		Classes:    len(table.ClassCounts()),
		ImportedAt: time.Now().UTC(),
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO imports (import_id, source_path, row_count, class_count, imported_at)
        VALUES (?, ?, ?, ?, ?)`,
		record.ID, record.SourcePath, record.Rows, record.Classes, record.ImportedAt.Format(time.RFC3339Nano),
	); err != nil {
		return Import{}, fmt.Errorf("record import: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Import{}, fmt.Errorf("commit import: %w", err)
	}
	return record, nil
}

// Table returns every indexed row in source file order.
func (s *Store) Table(ctx context.Context) (meta.Table, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, lid, path, length, height, width, framerate FROM clips ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query clips: %w", err)
	}
	defer rows.Close()

	var table meta.Table
	for rows.Next() {
		var clip meta.VideoMeta
		if err := rows.Scan(&clip.ID, &clip.Label, &clip.LID, &clip.Path,
			&clip.Length, &clip.Height, &clip.Width, &clip.Framerate); err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		table = append(table, clip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clips: %w", err)
	}
	return table, nil
}

// Count returns the number of indexed rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM clips").Scan(&n); err != nil {
		return 0, fmt.Errorf("count clips: %w", err)
	}
	return n, nil
}

// ClassCounts returns per-class row counts ordered by class id. The label
// reported for a class is the one on its first row.
func (s *Store) ClassCounts(ctx context.Context) ([]ClassCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.lid, (SELECT label FROM clips f WHERE f.lid = c.lid ORDER BY position LIMIT 1), COUNT(1)
        FROM clips c GROUP BY c.lid ORDER BY c.lid`)
	if err != nil {
		return nil, fmt.Errorf("query class counts: %w", err)
	}
	defer rows.Close()

	var out []ClassCount
	for rows.Next() {
		var cc ClassCount
		if err := rows.Scan(&cc.LID, &cc.Label, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan class count: %w", err)
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

// LastImport returns the most recent import, or nil when the index is empty.
func (s *Store) LastImport(ctx context.Context) (*Import, error) {
	var (
		record     Import
		importedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT import_id, source_path, row_count, class_count, imported_at
        FROM imports ORDER BY imported_at DESC LIMIT 1`,
	).Scan(&record.ID, &record.SourcePath, &record.Rows, &record.Classes, &importedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last import: %w", err)
	}
	if record.ImportedAt, err = time.Parse(time.RFC3339Nano, importedAt); err != nil {
		return nil, fmt.Errorf("parse import time: %w", err)
	}
	return &record, nil
}

func checkUniqueIDs(table meta.Table) error {
	seen := make(map[string]int, len(table))
	for i, clip := range table {
		if prev, ok := seen[clip.ID]; ok {
			return vberr.Configf("metastore", "duplicate clip id %q at rows %d and %d", clip.ID, prev, i)
		}
		seen[clip.ID] = i
	}
	return nil
}
