package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

// SQLiteDB manages the SQLite database connection
type SQLiteDB struct {
	db     *sql.DB
	logger arbor.ILogger
	path   string
}

// ParseDatabaseURL resolves a connection URL to a filesystem path. The
// scheme prefix "sqlite://" is optional; ":memory:" selects an in-memory
// database.
func ParseDatabaseURL(url string) (string, error) {
	path := strings.TrimSpace(url)
	path = strings.TrimPrefix(path, "sqlite://")
	if path == "" {
		return "", fmt.Errorf("database url is empty")
	}
	return path, nil
}

// NewSQLiteDB opens (creating if necessary) the database behind the given
// connection URL and applies schema migrations.
func NewSQLiteDB(logger arbor.ILogger, url string) (*SQLiteDB, error) {
	path, err := ParseDatabaseURL(url)
	if err != nil {
		return nil, err
	}

	if path != memoryPath {
		// Ensure the directory exists
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	// modernc.org/sqlite uses "sqlite" driver name (not "sqlite3")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to :memory: would see its own empty
	// database, so pin the pool to a single connection.
	if path == memoryPath {
		db.SetMaxOpenConns(1)
	}

	s := &SQLiteDB{
		db:     db,
		logger: logger,
		path:   path,
	}

	if err := s.configure(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if err := s.InitSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info().Str("path", path).Msg("SQLite database initialized")
	return s, nil
}

// configure sets up SQLite pragmas and settings
func (s *SQLiteDB) configure() error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}

	// WAL only applies to file-backed databases
	if s.path != memoryPath {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

// DB returns the underlying database connection
func (s *SQLiteDB) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping verifies the database connection
func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
