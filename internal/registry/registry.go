package registry

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	// Register the pure-Go SQLite driver (no CGO required).
	_ "modernc.org/sqlite"

	"github.com/giantswarm/subproc/internal/fileutil"
)

// dbName is the registry database file inside the registry directory.
const dbName = "launches.db"

// Entry describes one recorded launch.
type Entry struct {
	PID      int      // child process id
	OwnerPID int      // pid of the host that performed the launch
	Path     string   // executable path, for diagnostics
	TempDirs []string // temp directories owned by the launch
}

// open opens (creating if needed) the registry database in dir. Sessions
// are short-lived: every exported operation opens, works, and closes, so
// no connection outlives the call and concurrent hosts only contend via
// SQLite's own busy handling.
func open(dir string) (*sql.DB, error) {
	if err := fileutil.EnsureDir(dir); err != nil {
		return nil, err
	}

	// WAL with a generous busy timeout handles concurrent hosts recording
	// launches; NORMAL synchronous is acceptable because the registry is
	// reconstructible bookkeeping, not durable data.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(30000)&_pragma=synchronous(NORMAL)",
		filepath.Join(dir, dbName),
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open launch registry: %w", err)
	}
	db.SetMaxOpenConns(1)

	const schema = `CREATE TABLE IF NOT EXISTS launches (
		pid        INTEGER PRIMARY KEY,
		owner_pid  INTEGER NOT NULL,
		path       TEXT    NOT NULL,
		temp_dirs  TEXT    NOT NULL,
		started_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create launch registry schema: %w", err)
	}
	return db, nil
}

// Record inserts or replaces the row for e.PID. A pid can be reused by the
// OS after the previous holder died, so REPLACE semantics keep the table
// consistent without a prior sweep.
func Record(dir string, e Entry) error {
	db, err := open(dir)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	dirs, err := json.Marshal(e.TempDirs)
	if err != nil {
		return fmt.Errorf("encode temp dirs: %w", err)
	}
	if _, err := db.Exec(
		`INSERT OR REPLACE INTO launches (pid, owner_pid, path, temp_dirs, started_at) VALUES (?, ?, ?, ?, ?)`,
		e.PID, e.OwnerPID, e.Path, string(dirs), time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("record launch pid %d: %w", e.PID, err)
	}
	return nil
}

// Remove deletes the row for pid. Removing an absent row is not an error.
func Remove(dir string, pid int) error {
	db, err := open(dir)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(`DELETE FROM launches WHERE pid = ?`, pid); err != nil {
		return fmt.Errorf("remove launch pid %d: %w", pid, err)
	}
	return nil
}

// list returns all recorded entries.
func list(db *sql.DB) ([]Entry, error) {
	rows, err := db.Query(`SELECT pid, owner_pid, path, temp_dirs FROM launches`)
	if err != nil {
		return nil, fmt.Errorf("query launches: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err() below catches read errors

	var entries []Entry
	for rows.Next() {
		var e Entry
		var dirs string
		if err := rows.Scan(&e.PID, &e.OwnerPID, &e.Path, &dirs); err != nil {
			return nil, fmt.Errorf("scan launch row: %w", err)
		}
		if err := json.Unmarshal([]byte(dirs), &e.TempDirs); err != nil {
			return nil, fmt.Errorf("decode temp dirs for pid %d: %w", e.PID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate launch rows: %w", err)
	}
	return entries, nil
}
