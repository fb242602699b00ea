// Package store persists game-server instance records in SQLite.
//
// Every game category owns one table. The schema is created by the embedded
// migrations in migrations/, applied in order and tracked in the _versions
// table. Table[T] gives each game typed CRUD over its own table without any
// business logic beyond presence checks.
//
// The store is used from a single control thread and holds a single
// connection; there is no locking.
package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/xoxserver/xox-server/internal/logging"
)

// MemoryPath opens a private in-memory database. Used by tests.
const MemoryPath = ":memory:"

//go:embed migrations/*.sql
var migrationFS embed.FS

const versionsSchema = `
CREATE TABLE IF NOT EXISTS _versions (
	type TEXT PRIMARY KEY,
	version INTEGER NOT NULL,
	updated TIMESTAMP
)
`

const updateVersionSQL = `
INSERT INTO _versions (type, version, updated)
VALUES ($1, $2, datetime())
ON CONFLICT (type)
DO UPDATE SET version = $2, updated = datetime();
`

const schemaVersionType = "schema"

// DB is the process-wide database handle.
type DB struct {
	db     *sqlx.DB
	path   string
	logger *logging.Logger
}

// Open connects to the SQLite database at path, creating parent directories
// as needed, and applies pending migrations.
func Open(ctx context.Context, dbPath string, logger *logging.Logger) (*DB, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	dsn := dbPath
	if dbPath != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = "file:" + dbPath + "?_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}
	// A single connection keeps :memory: databases alive and matches the
	// single control thread.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &DB{db: db, path: dbPath, logger: logger.With("db", dbPath)}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database location.
func (s *DB) Path() string {
	return s.path
}

// Close closes the underlying connection.
func (s *DB) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the highest applied migration.
func (s *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.GetContext(ctx, &version,
		"SELECT COALESCE(MAX(version), 0) FROM _versions WHERE type = $1", schemaVersionType)
	return version, err
}

// HasTable reports whether a table with the given name exists.
func (s *DB) HasTable(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = $1", name)
	return count > 0, err
}

type migration struct {
	version int
	name    string
}

func listMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, err
	}

	var migrations []migration
	for _, e := range entries {
		prefix, _, ok := strings.Cut(e.Name(), "_")
		if !ok {
			return nil, fmt.Errorf("migration %s has no version prefix", e.Name())
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s: invalid version: %w", e.Name(), err)
		}
		migrations = append(migrations, migration{version: version, name: e.Name()})
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].version < migrations[j].version })
	return migrations, nil
}

// migrate applies every migration newer than the recorded schema version,
// each in its own transaction.
func (s *DB) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, versionsSchema); err != nil {
		return fmt.Errorf("failed to create versions table: %w", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	migrations, err := listMigrations()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		body, err := migrationFS.ReadFile(path.Join("migrations", m.name))
		if err != nil {
			return err
		}

		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
		if _, err := tx.ExecContext(ctx, updateVersionSQL, schemaVersionType, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s: failed to record version: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		s.logger.Info("applied migration", "migration", m.name, "version", m.version)
	}
	return nil
}
