package storage

import (
	"database/sql"
	"embed"
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/thuner-project/thuner/internal/trackerr"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunDB is a crash-resumability aid, not part of §6's file contract:
// it records, per interval, the last successfully processed time, so a
// cancelled interval (§5 "Cancellation/timeouts") can resume instead of
// restarting from scratch. The attribute/mask csvs remain the
// authoritative output; ClearInterval drops an interval's row, and
// nothing in this package deletes the database file. Schema managed via golang-migrate in the teacher's
// internal/db.MigrateUp style, trimmed to the one table this package
// needs.
type RunDB struct {
	db *sql.DB
}

// OpenRunDB opens (creating if absent) the sqlite registry at path and
// migrates it to the latest schema.
func OpenRunDB(path string) (*RunDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, trackerr.New(trackerr.KindIO, "storage.OpenRunDB", err)
	}
	r := &RunDB{db: db}
	if err := r.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *RunDB) migrateUp() error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return trackerr.New(trackerr.KindIO, "storage.RunDB.migrateUp", err)
	}
	sourceDriver, err := iofs.New(sub, ".")
	if err != nil {
		return trackerr.New(trackerr.KindIO, "storage.RunDB.migrateUp", err)
	}
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return trackerr.New(trackerr.KindIO, "storage.RunDB.migrateUp", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return trackerr.New(trackerr.KindIO, "storage.RunDB.migrateUp", err)
	}
	m.Log = &migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return trackerr.New(trackerr.KindIO, "storage.RunDB.migrateUp", err)
	}
	return nil
}

type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) { log.Printf("[migrate] "+format, v...) }
func (l *migrateLogger) Verbose() bool                          { return false }

// RecordProgress upserts the last successfully processed time for one
// interval index.
func (r *RunDB) RecordProgress(intervalIndex int, lastProcessed time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO run_progress (interval_index, last_processed_time)
		VALUES (?, ?)
		ON CONFLICT(interval_index) DO UPDATE SET last_processed_time = excluded.last_processed_time
	`, intervalIndex, lastProcessed.UTC().Format(time.RFC3339))
	if err != nil {
		return trackerr.New(trackerr.KindIO, "storage.RunDB.RecordProgress", err)
	}
	return nil
}

// LastProcessed returns the last successfully processed time for an
// interval, and false if that interval has no recorded progress yet
// (a fresh run, not a resumed one).
func (r *RunDB) LastProcessed(intervalIndex int) (time.Time, bool, error) {
	var raw string
	err := r.db.QueryRow(`SELECT last_processed_time FROM run_progress WHERE interval_index = ?`, intervalIndex).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, trackerr.New(trackerr.KindIO, "storage.RunDB.LastProcessed", err)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, trackerr.New(trackerr.KindIO, "storage.RunDB.LastProcessed", err)
	}
	return t, true, nil
}

// ClearInterval drops an interval's progress row once it has fully
// completed and been stitched, so a later unrelated run reusing the
// same path starts clean.
func (r *RunDB) ClearInterval(intervalIndex int) error {
	if _, err := r.db.Exec(`DELETE FROM run_progress WHERE interval_index = ?`, intervalIndex); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.RunDB.ClearInterval", err)
	}
	return nil
}

// Close releases the underlying sqlite connection.
func (r *RunDB) Close() error {
	return r.db.Close()
}
