package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// InitDB opens the database and applies the embedded migrations.
// With an empty primaryUrl dbPath is a local SQLite file (or ":memory:"),
// otherwise the remote Turso database at primaryUrl is used.
// The returned teardown closes the connection pool.
func InitDB(dbPath string, primaryUrl string, authToken string) (*sql.DB, func(), error) {
	var db *sql.DB
	var err error

	if primaryUrl == "" {
		log.Info("Initializing local-only SQLite database", "path", dbPath)
		db, err = sql.Open("sqlite3", localDSN(dbPath))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open local database: %w", err)
		}
		// One writer connection keeps SQLite from returning SQLITE_BUSY under
		// concurrent transactions and keeps ":memory:" databases alive.
		db.SetMaxOpenConns(1)
	} else {
		log.Info("Initializing Turso database", "url", primaryUrl)
		db, err = sql.Open("libsql", primaryUrl+"?authToken="+authToken)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open db %s: %w", primaryUrl, err)
		}
	}

	if err = runMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	teardown := func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", "error", err)
		}
	}
	log.Info("Database initialized successfully")
	return db, teardown, nil
}

// localDSN enables foreign keys, a busy timeout and immediate write locks for
// every transaction so that read-then-write sequences cannot interleave.
func localDSN(dbPath string) string {
	dsn := "file:" + dbPath
	params := "_fk=1&_busy_timeout=5000&_txlock=immediate"
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("could not create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	for _, r := range results {
		log.Debug("Applied migration", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}
