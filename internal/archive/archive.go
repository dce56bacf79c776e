// Package archive stores backup snapshots in a SQLite file. It is an
// alternative export format; the live store never reads from it.
package archive

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"plando/internal/backup"
	"plando/internal/storage"
)

// IsArchivePath reports whether path names a SQLite archive rather than a
// JSON document.
func IsArchivePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

type Archive struct {
	db *sql.DB
}

// Open opens or creates the archive at path and brings its schema up to
// date.
func Open(path string) (*Archive, error) {
	if path == "" {
		return nil, errors.New("archive path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, err
	}
	db, err := sql.Open("sqlite", sqliteDSN(path, "rwc"))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	a := &Archive{db: db}
	if err := a.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// openReadOnly opens an existing archive without touching its schema.
func openReadOnly(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path, "ro"))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *Archive) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS lists (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	color TEXT DEFAULT NULL,
	sort_order INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	date TEXT NOT NULL,
	start_time TEXT DEFAULT NULL,
	priority TEXT NOT NULL DEFAULT 'medium',
	list_id INTEGER DEFAULT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`
	if _, err := a.db.Exec(ddl); err != nil {
		return err
	}
	return a.ensureTaskColumns()
}

// ensureTaskColumns upgrades archives written before the optional task
// columns existed.
func (a *Archive) ensureTaskColumns() error {
	required := map[string]string{
		"end_time":  "ALTER TABLE tasks ADD COLUMN end_time TEXT DEFAULT NULL;",
		"notes":     "ALTER TABLE tasks ADD COLUMN notes TEXT DEFAULT NULL;",
		"remind_at": "ALTER TABLE tasks ADD COLUMN remind_at TEXT DEFAULT NULL;",
	}
	existing, err := a.taskColumns()
	if err != nil {
		return err
	}
	for col, alter := range required {
		if _, ok := existing[col]; ok {
			continue
		}
		if _, err := a.db.Exec(alter); err != nil {
			return err
		}
	}
	return nil
}

func (a *Archive) taskColumns() (map[string]struct{}, error) {
	existing := map[string]struct{}{}
	rows, err := a.db.Query(`PRAGMA table_info(tasks);`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		existing[name] = struct{}{}
	}
	return existing, rows.Err()
}

func (a *Archive) hasTable(name string) (bool, error) {
	var n int
	err := a.db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?;`, name).Scan(&n)
	return n > 0, err
}

// Save replaces the archive content with snap in one transaction.
func (a *Archive) Save(snap backup.Snapshot) error {
	tx, err := a.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM lists;`, `DELETE FROM tasks;`} {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	meta := map[string]string{
		"version":   snap.Version,
		"timestamp": formatTime(snap.Timestamp),
	}
	for k, v := range meta {
		if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value;`, k, v); err != nil {
			return err
		}
	}
	for _, l := range snap.Data.Lists {
		_, err := tx.Exec(`INSERT INTO lists (id, name, color, sort_order, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?);`,
			l.ID, l.Name, nullString(l.Color), l.SortOrder, formatTime(l.CreatedAt), formatTime(l.UpdatedAt))
		if err != nil {
			return fmt.Errorf("list %d: %w", l.ID, err)
		}
	}
	for _, t := range snap.Data.Tasks {
		var listID sql.NullInt64
		if t.ListID != nil {
			listID = sql.NullInt64{Int64: *t.ListID, Valid: true}
		}
		var remind sql.NullString
		if t.RemindAt != nil {
			remind = sql.NullString{String: formatTime(*t.RemindAt), Valid: true}
		}
		_, err := tx.Exec(`INSERT INTO tasks (id, title, date, start_time, end_time, priority, list_id, status, notes, remind_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
			t.ID, t.Title, t.Date, nullString(t.StartTime), nullString(t.EndTime), string(t.Priority), listID,
			string(t.Status), nullString(t.Notes), remind, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
		if err != nil {
			return fmt.Errorf("task %d: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

func (a *Archive) Load() (backup.Snapshot, error) {
	snap := backup.Snapshot{Data: backup.Data{Lists: []storage.List{}, Tasks: []storage.Task{}}}

	for _, table := range []string{"lists", "tasks"} {
		ok, err := a.hasTable(table)
		if err != nil {
			return snap, err
		}
		if !ok {
			return snap, fmt.Errorf("%w: no %s table", backup.ErrInvalidFormat, table)
		}
	}
	if err := a.loadMeta(&snap); err != nil {
		return snap, err
	}

	lists, err := a.fetchLists()
	if err != nil {
		return snap, err
	}
	tasks, err := a.fetchTasks()
	if err != nil {
		return snap, err
	}
	snap.Data.Lists = lists
	snap.Data.Tasks = tasks
	return snap, nil
}

// loadMeta reads the version and timestamp. Archives without a meta table
// load with both left empty.
func (a *Archive) loadMeta(snap *backup.Snapshot) error {
	ok, err := a.hasTable("meta")
	if err != nil || !ok {
		return err
	}
	rows, err := a.db.Query(`SELECT key, value FROM meta;`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		switch k {
		case "version":
			snap.Version = v
		case "timestamp":
			snap.Timestamp = parseTime(v)
		}
	}
	return rows.Err()
}

func (a *Archive) fetchLists() ([]storage.List, error) {
	rows, err := a.db.Query(`SELECT id, name, color, sort_order, created_at, updated_at FROM lists ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lists := []storage.List{}
	for rows.Next() {
		var l storage.List
		var color sql.NullString
		var created, updated string
		if err := rows.Scan(&l.ID, &l.Name, &color, &l.SortOrder, &created, &updated); err != nil {
			return nil, err
		}
		l.Color = stringPtr(color)
		l.CreatedAt = parseTime(created)
		l.UpdatedAt = parseTime(updated)
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

func (a *Archive) fetchTasks() ([]storage.Task, error) {
	cols, err := a.taskColumns()
	if err != nil {
		return nil, err
	}
	optional := func(name string) string {
		if _, ok := cols[name]; ok {
			return name
		}
		return "NULL"
	}
	rows, err := a.db.Query(fmt.Sprintf(
		`SELECT id, title, date, start_time, %s, priority, list_id, status, %s, %s, created_at, updated_at FROM tasks ORDER BY id;`,
		optional("end_time"), optional("notes"), optional("remind_at")))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []storage.Task{}
	for rows.Next() {
		var t storage.Task
		var start, end, notes, remind sql.NullString
		var listID sql.NullInt64
		var priority, status, created, updated string
		if err := rows.Scan(&t.ID, &t.Title, &t.Date, &start, &end, &priority, &listID, &status, &notes, &remind, &created, &updated); err != nil {
			return nil, err
		}
		t.StartTime = stringPtr(start)
		t.EndTime = stringPtr(end)
		t.Notes = stringPtr(notes)
		t.Priority = storage.Priority(priority)
		t.Status = storage.Status(status)
		if listID.Valid {
			id := listID.Int64
			t.ListID = &id
		}
		if remind.Valid {
			if at := parseTime(remind.String); !at.IsZero() {
				t.RemindAt = &at
			}
		}
		t.CreatedAt = parseTime(created)
		t.UpdatedAt = parseTime(updated)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Write replaces the archive at path with snap.
func Write(path string, snap backup.Snapshot) error {
	a, err := Open(path)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Save(snap)
}

// Read loads the snapshot held in the archive at path. The file must exist
// and is opened read-only; it fails with backup.ErrInvalidFormat unless it
// holds lists and tasks tables.
func Read(path string) (backup.Snapshot, error) {
	if _, err := os.Stat(path); err != nil {
		return backup.Snapshot{}, err
	}
	a, err := openReadOnly(path)
	if err != nil {
		return backup.Snapshot{}, fmt.Errorf("%w: %v", backup.ErrInvalidFormat, err)
	}
	defer a.Close()
	snap, err := a.Load()
	if errors.Is(err, backup.ErrInvalidFormat) {
		return backup.Snapshot{}, err
	}
	if err != nil {
		return backup.Snapshot{}, fmt.Errorf("%w: %v", backup.ErrInvalidFormat, err)
	}
	return snap, nil
}

func sqliteDSN(path, mode string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", mode)
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
