package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const currentSchemaVersion = 1

// timeLayout has a fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Entry is one guarded write of a bookmark file.
type Entry struct {
	ID          int64
	Op          string
	ProfilePath string
	BackupPath  string
	Summary     string
	CreatedAt   time.Time
}

// Journal records guarded writes in a SQLite database.
type Journal struct {
	db   *sql.DB
	path string
}

// Open opens (and creates if needed) the journal database at path.
func Open(path string) (*Journal, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	j := &Journal{db: db, path: path}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return j, nil
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// migrate runs database migrations.
func (j *Journal) migrate() error {
	var version int
	err := j.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Table doesn't exist or is empty, start fresh
		version = 0
	}

	if version < currentSchemaVersion {
		if err := j.migrateV1(); err != nil {
			return err
		}
	}

	return nil
}

// migrateV1 creates the initial schema.
func (j *Journal) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS backups (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			op TEXT NOT NULL,
			profile_path TEXT NOT NULL,
			backup_path TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_backups_profile_path ON backups(profile_path);
		CREATE INDEX IF NOT EXISTS idx_backups_created_at ON backups(created_at);

		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record appends an entry. CreatedAt defaults to now.
func (j *Journal) Record(ctx context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO backups (op, profile_path, backup_path, summary, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.Op, entry.ProfilePath, entry.BackupPath, entry.Summary,
		entry.CreatedAt.UTC().Format(timeLayout))
	return err
}

// ListOptions filters List.
type ListOptions struct {
	// ProfilePath restricts results to one bookmark file when set.
	ProfilePath string
	// Limit defaults to 20.
	Limit int
}

// List returns entries newest first.
func (j *Journal) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, op, profile_path, backup_path, summary, created_at
		FROM backups
	`
	var args []any
	if opts.ProfilePath != "" {
		query += " WHERE profile_path = ?"
		args = append(args, opts.ProfilePath)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAtStr string
		if err := rows.Scan(&e.ID, &e.Op, &e.ProfilePath, &e.BackupPath, &e.Summary, &createdAtStr); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(timeLayout, createdAtStr)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
