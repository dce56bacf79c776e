package backup_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"plando/internal/backup"
	"plando/internal/storage"
)

var exportTime = time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC)

func strp(s string) *string { return &s }

func populated(t *testing.T) *storage.Store {
	t.Helper()
	s := storage.New(storage.WithDefaultList("Inbox", "#3b82f6"))
	work, err := s.CreateList("Work", strp("#ff8800"))
	if err != nil {
		t.Fatal(err)
	}
	remind := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	inputs := []storage.TaskInput{
		{Title: "Ship", Date: "2024-05-01", Priority: storage.PriorityHigh, ListID: &work.ID, RemindAt: &remind},
		{Title: "Read", Date: "2024-05-02", StartTime: strp("20:00"), Notes: strp("chapter 3")},
		{Title: "Ship", Date: "2024-05-03"},
	}
	for _, in := range inputs {
		if _, err := s.CreateTask(in); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestRoundTripIntoEmptyStore(t *testing.T) {
	src := populated(t)

	var buf bytes.Buffer
	if err := backup.Encode(&buf, backup.Export(src, exportTime)); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	snap, err := backup.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if snap.Version != backup.FormatVersion || !snap.Timestamp.Equal(exportTime) {
		t.Errorf("unexpected header: %q %v", snap.Version, snap.Timestamp)
	}

	dst := storage.New()
	imported := backup.Import(dst, snap)
	if imported != 5 {
		t.Fatalf("expected 5 records imported, got %d", imported)
	}

	srcLists, srcTasks := src.Snapshot()
	dstLists, dstTasks := dst.Snapshot()
	for _, l := range srcLists {
		if !containsList(dstLists, l.Name) {
			t.Errorf("list %q missing after import", l.Name)
		}
	}
	for _, tk := range srcTasks {
		if !containsTask(dstTasks, tk.Title, tk.Date) {
			t.Errorf("task %q/%s missing after import", tk.Title, tk.Date)
		}
	}

	// list references follow the lists to their new ids
	var work storage.List
	for _, l := range dstLists {
		if l.Name == "Work" {
			work = l
		}
	}
	for _, tk := range dstTasks {
		if tk.Title == "Ship" && tk.Date == "2024-05-01" {
			if tk.ListID == nil || *tk.ListID != work.ID {
				t.Errorf("expected list_id %d, got %v", work.ID, tk.ListID)
			}
			if tk.RemindAt == nil || tk.Priority != storage.PriorityHigh {
				t.Errorf("fields not preserved: %+v", tk)
			}
		}
	}
}

func TestReimportIsDuplicateFree(t *testing.T) {
	s := populated(t)
	snap := backup.Export(s, exportTime)
	if n := backup.Import(s, snap); n != 0 {
		t.Fatalf("expected 0 new records, got %d", n)
	}
	lists, tasks := s.Snapshot()
	if len(lists) != 2 || len(tasks) != 3 {
		t.Errorf("store changed: %d lists %d tasks", len(lists), len(tasks))
	}
}

func TestRoundTripKeepsListOrder(t *testing.T) {
	src := storage.New()
	a, _ := src.CreateList("A", nil)
	b, _ := src.CreateList("B", nil)
	if _, err := src.UpdateList(a.ID, storage.ListPatch{SortOrder: storage.Some(10)}); err != nil {
		t.Fatal(err)
	}
	if _, err := src.UpdateList(b.ID, storage.ListPatch{SortOrder: storage.Some(2)}); err != nil {
		t.Fatal(err)
	}

	dst := storage.New()
	if n := backup.Import(dst, backup.Export(src, exportTime)); n != 2 {
		t.Fatalf("expected 2 imports, got %d", n)
	}
	lists := dst.Lists()
	if len(lists) != 2 || lists[0].Name != "B" || lists[1].Name != "A" {
		t.Fatalf("order not kept: %+v", lists)
	}
	if lists[0].SortOrder != 2 || lists[1].SortOrder != 10 {
		t.Errorf("sort_order = %d, %d; want 2, 10", lists[0].SortOrder, lists[1].SortOrder)
	}
}

func TestImportClearsDanglingListReference(t *testing.T) {
	dst := storage.New()
	ghost := int64(77)
	snap := backup.Snapshot{Data: backup.Data{
		Tasks: []storage.Task{{ID: 1, Title: "Orphan", Date: "2024-05-01", ListID: &ghost}},
	}}
	if n := backup.Import(dst, snap); n != 1 {
		t.Fatalf("expected 1 import, got %d", n)
	}
	tasks := dst.Tasks()
	if tasks[0].ListID != nil {
		t.Errorf("expected dangling list_id cleared, got %d", *tasks[0].ListID)
	}
}

func TestDecodeRejectsInvalidPayloads(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"version":`,
		"missing data":   `{"version":"1.0"}`,
		"missing lists":  `{"data":{"tasks":[]}}`,
		"missing tasks":  `{"data":{"lists":[]}}`,
		"lists object":   `{"data":{"lists":{},"tasks":[]}}`,
		"tasks null":     `{"data":{"lists":[],"tasks":null}}`,
		"bad task shape": `{"data":{"lists":[],"tasks":[{"title":5}]}}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := backup.Decode(strings.NewReader(payload)); !errors.Is(err, backup.ErrInvalidFormat) {
				t.Errorf("expected ErrInvalidFormat, got %v", err)
			}
		})
	}
}

func TestDecodeIgnoresUnknownFields(t *testing.T) {
	payload := `{
  "version": "1.0",
  "timestamp": "not a time",
  "exported_by": "someone",
  "data": {
    "lists": [{"id": 4, "name": "Errands", "color": null, "sort_order": 3, "icon": "cart",
               "created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-01T00:00:00Z"}],
    "tasks": [{"id": 9, "title": "Milk", "date": "2024-05-01", "priority": "low", "list_id": 4,
               "status": "pending", "tags": ["x"],
               "created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-01T00:00:00Z"}]
  }
}`
	snap, err := backup.Decode(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !snap.Timestamp.IsZero() {
		t.Error("malformed timestamp should decode as zero")
	}
	dst := storage.New(storage.WithDefaultList("Inbox", ""))
	if n := backup.Import(dst, snap); n != 2 {
		t.Fatalf("expected 2 imported, got %d", n)
	}
	task := dst.Tasks()[0]
	if task.ListID == nil || *task.ListID != 2 {
		t.Errorf("expected remapped list id 2, got %v", task.ListID)
	}
}

func TestWriteAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", backup.SuggestedName(exportTime))
	if filepath.Base(path) != "plando-backup-2024-05-02.json" {
		t.Errorf("unexpected suggested name %s", filepath.Base(path))
	}
	snap := backup.Export(populated(t), exportTime)
	if err := backup.WriteFile(path, snap); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(raw, []byte(`"version": "1.0"`)) || !bytes.Contains(raw, []byte(`"data": {`)) {
		t.Errorf("unexpected document layout:\n%s", raw)
	}

	got, err := backup.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got.Data.Lists) != 2 || len(got.Data.Tasks) != 3 {
		t.Errorf("unexpected content: %d lists %d tasks", len(got.Data.Lists), len(got.Data.Tasks))
	}
	if _, err := backup.ReadFile(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestDirPicker(t *testing.T) {
	dir := t.TempDir()
	p := backup.DirPicker{Dir: dir}
	ctx := context.Background()

	if _, err := p.OpenPath(ctx); !errors.Is(err, backup.ErrCancelled) {
		t.Errorf("expected ErrCancelled with no backups, got %v", err)
	}

	save, err := p.SavePath(ctx, "a.json")
	if err != nil || save != filepath.Join(dir, "a.json") {
		t.Fatalf("SavePath = %q, %v", save, err)
	}

	old := filepath.Join(dir, "old.json")
	newer := filepath.Join(dir, "new.db")
	for _, f := range []string{old, newer, filepath.Join(dir, "notes.txt")} {
		if err := os.WriteFile(f, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	got, err := p.OpenPath(ctx)
	if err != nil || got != newer {
		t.Errorf("OpenPath = %q, %v; want %q", got, err, newer)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := p.SavePath(cancelled, "a.json"); !errors.Is(err, backup.ErrCancelled) {
		t.Errorf("expected ErrCancelled for a cancelled context, got %v", err)
	}
}

func containsList(lists []storage.List, name string) bool {
	for _, l := range lists {
		if l.Name == name {
			return true
		}
	}
	return false
}

func containsTask(tasks []storage.Task, title, date string) bool {
	for _, t := range tasks {
		if t.Title == title && t.Date == date {
			return true
		}
	}
	return false
}
