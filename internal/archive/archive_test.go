package archive_test

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"plando/internal/archive"
	"plando/internal/backup"
	"plando/internal/storage"
)

func strp(s string) *string { return &s }

func sampleSnapshot() backup.Snapshot {
	created := time.Date(2024, 5, 1, 9, 0, 0, 123000000, time.UTC)
	remind := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	listID := int64(2)
	return backup.Snapshot{
		Version:   backup.FormatVersion,
		Timestamp: time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
		Data: backup.Data{
			Lists: []storage.List{
				{ID: 1, Name: "Inbox", Color: strp("#3b82f6"), SortOrder: 0, CreatedAt: created, UpdatedAt: created},
				{ID: 2, Name: "Work", SortOrder: 1, CreatedAt: created, UpdatedAt: created},
			},
			Tasks: []storage.Task{
				{ID: 1, Title: "Ship", Date: "2024-05-01", Priority: storage.PriorityHigh, ListID: &listID,
					Status: storage.StatusCompleted, RemindAt: &remind, CreatedAt: created, UpdatedAt: created},
				{ID: 2, Title: "Read", Date: "2024-05-02", StartTime: strp("20:00"), EndTime: strp("21:00"),
					Notes: strp("chapter 3"), Priority: storage.PriorityLow, Status: storage.StatusPending,
					CreatedAt: created, UpdatedAt: created},
			},
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backups", "plando.db")
	want := sampleSnapshot()

	if err := archive.Write(path, want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := archive.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got.Version != want.Version || !got.Timestamp.Equal(want.Timestamp) {
		t.Errorf("header mismatch: %q %v", got.Version, got.Timestamp)
	}
	if len(got.Data.Lists) != 2 || len(got.Data.Tasks) != 2 {
		t.Fatalf("unexpected sizes: %d lists %d tasks", len(got.Data.Lists), len(got.Data.Tasks))
	}
	if got.Data.Lists[0].Color == nil || *got.Data.Lists[0].Color != "#3b82f6" || got.Data.Lists[1].Color != nil {
		t.Errorf("colors not preserved: %+v", got.Data.Lists)
	}
	if !got.Data.Lists[0].CreatedAt.Equal(want.Data.Lists[0].CreatedAt) {
		t.Errorf("created_at lost precision: %v", got.Data.Lists[0].CreatedAt)
	}

	ship := got.Data.Tasks[0]
	if ship.ListID == nil || *ship.ListID != 2 || ship.Status != storage.StatusCompleted || ship.Priority != storage.PriorityHigh {
		t.Errorf("task fields not preserved: %+v", ship)
	}
	if ship.RemindAt == nil || !ship.RemindAt.Equal(*want.Data.Tasks[0].RemindAt) {
		t.Errorf("remind_at not preserved: %v", ship.RemindAt)
	}
	read := got.Data.Tasks[1]
	if read.ListID != nil || read.StartTime == nil || *read.StartTime != "20:00" || read.Notes == nil || *read.Notes != "chapter 3" {
		t.Errorf("optional fields not preserved: %+v", read)
	}
}

func TestWriteReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plando.sqlite")
	if err := archive.Write(path, sampleSnapshot()); err != nil {
		t.Fatal(err)
	}
	smaller := sampleSnapshot()
	smaller.Data.Tasks = smaller.Data.Tasks[:1]
	if err := archive.Write(path, smaller); err != nil {
		t.Fatal(err)
	}
	got, err := archive.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Data.Tasks) != 1 {
		t.Errorf("expected 1 task after rewrite, got %d", len(got.Data.Tasks))
	}
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := archive.Read(filepath.Join(dir, "missing.db")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}

	bogus := filepath.Join(dir, "bogus.db")
	if err := os.WriteFile(bogus, []byte(`{"this is":"json, not sqlite"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := archive.Read(bogus); !errors.Is(err, backup.ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestReadRejectsNonBackupDatabases(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.db")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := archive.Read(empty); !errors.Is(err, backup.ErrInvalidFormat) {
		t.Errorf("empty file: expected ErrInvalidFormat, got %v", err)
	}
	info, err := os.Stat(empty)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("empty file must stay untouched, size=%d", info.Size())
	}

	foreign := filepath.Join(dir, "foreign.db")
	db, err := sql.Open("sqlite", foreign)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT);`); err != nil {
		t.Fatal(err)
	}
	db.Close()

	if _, err := archive.Read(foreign); !errors.Is(err, backup.ErrInvalidFormat) {
		t.Errorf("foreign database: expected ErrInvalidFormat, got %v", err)
	}
	db, err = sql.Open("sqlite", foreign)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE name IN ('lists', 'tasks', 'meta');`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("read created %d plando tables in the source file", n)
	}
}

func TestIsArchivePath(t *testing.T) {
	cases := map[string]bool{
		"a.db":        true,
		"a.SQLITE":    true,
		"a.sqlite3":   true,
		"a.json":      false,
		"backup":      false,
		"dir.db/x.js": false,
	}
	for path, want := range cases {
		if got := archive.IsArchivePath(path); got != want {
			t.Errorf("IsArchivePath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestArchiveFeedsImport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plando.db")
	if err := archive.Write(path, sampleSnapshot()); err != nil {
		t.Fatal(err)
	}
	snap, err := archive.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	dst := storage.New(storage.WithDefaultList("Inbox", ""))
	if n := backup.Import(dst, snap); n != 3 {
		t.Errorf("expected Work plus 2 tasks imported, got %d", n)
	}
}
