package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kosavsech/SchoolDiary-sub000/internal/filelock"
	_ "modernc.org/sqlite"
)

const (
	dbFile       = "diary.db"
	lockFile     = "db.lock"
	lockTimeout  = 5 * time.Second
	dateLayout   = "2006-01-02"
	stampLayout  = "2006-01-02T15:04:05.000000000Z07:00"
	busyTimeout  = 5000
	defaultLimit = 50
)

// DefaultDriver is the pure Go SQLite driver.
const DefaultDriver = "sqlite"

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("not found")

// DB wraps the database connection
type DB struct {
	conn    *sql.DB
	dataDir string
	driver  string
}

// Open opens (creating if needed) the diary database in dataDir using the
// default driver and runs any pending migrations.
func Open(dataDir string) (*DB, error) {
	return OpenWithDriver(dataDir, DefaultDriver)
}

// OpenWithDriver is Open with an explicit database/sql driver name.
// See Drivers for the names compiled into this binary.
func OpenWithDriver(dataDir, driver string) (*DB, error) {
	if !driverAvailable(driver) {
		return nil, fmt.Errorf("sqlite driver %q not available (have %v)", driver, Drivers())
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	conn, err := sql.Open(driver, filepath.Join(dataDir, dbFile))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Concurrent reads while writes are serialized
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")

	db := &DB{conn: conn, dataDir: dataDir, driver: driver}
	if _, err := db.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// Close closes the database
func (db *DB) Close() error {
	return db.conn.Close()
}

// DataDir returns the directory holding the database file
func (db *DB) DataDir() string {
	return db.dataDir
}

// Driver returns the database/sql driver name in use
func (db *DB) Driver() string {
	return db.driver
}

// withMigrationLock runs fn while holding the cross-process migration lock.
func (db *DB) withMigrationLock(fn func() error) error {
	l := filelock.New(filepath.Join(db.dataDir, lockFile))
	if err := l.Acquire(lockTimeout); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func formatStamp(t time.Time) string {
	return t.UTC().Format(stampLayout)
}

// parseTimestamp tries common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{
		stampLayout,
		"2006-01-02 15:04:05",
		time.RFC3339,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &time.ParseError{Layout: stampLayout, Value: s}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}
