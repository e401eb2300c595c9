package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/calyptra/memtide/internal/profile"
	"github.com/calyptra/memtide/store"
)

// SQLite is supported on a best-effort basis for local development and tests
// only. Embeddings are stored as JSON blobs rather than native vectors, which
// is sufficient here: neither pipeline performs vector search. Production
// instances run on Postgres.

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a SQLite database using the DSN from the profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// WAL journal mode and a busy timeout prevent locking surprises when a
	// dev instance's serving path holds the same file.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetConnMaxLifetime(30 * time.Minute)

	driver := DB{db: sqliteDB, profile: profile}
	return &driver, nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.db.Close()
}

// placeholders returns a comma-separated list of n query placeholders.
func placeholders(n int) string {
	list := make([]string, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, "?")
	}
	return strings.Join(list, ", ")
}
