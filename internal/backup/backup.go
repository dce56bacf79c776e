// Package backup converts the store to and from the snapshot document and
// merges snapshots back into a store with duplicate skipping.
//
// The document layout is
//
//	{"version": "1.0", "timestamp": "...", "data": {"lists": [...], "tasks": [...]}}
//
// Unknown fields are ignored on decode.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"plando/internal/storage"
)

const FormatVersion = "1.0"

var (
	ErrInvalidFormat = errors.New("invalid backup file format")
	ErrCancelled     = errors.New("cancelled by user")
)

type Data struct {
	Lists []storage.List `json:"lists"`
	Tasks []storage.Task `json:"tasks"`
}

type Snapshot struct {
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Data      Data      `json:"data"`
}

// Source is the read side of a store.
type Source interface {
	Snapshot() ([]storage.List, []storage.Task)
}

// Sink is the write side Import needs. Both methods must check for a
// duplicate and insert atomically.
type Sink interface {
	AddListIfAbsent(l storage.List) (storage.List, bool)
	AddTaskIfAbsent(t storage.Task) (storage.Task, bool)
	HasList(id int64) bool
}

func Export(src Source, now time.Time) Snapshot {
	lists, tasks := src.Snapshot()
	return Snapshot{
		Version:   FormatVersion,
		Timestamp: now.UTC(),
		Data:      Data{Lists: lists, Tasks: tasks},
	}
}

// Import merges snap into dst record by record and returns how many lists
// and tasks were inserted. A list is skipped when one with the same name
// exists; a task is skipped when one with the same title and date exists.
// Task list references are rewritten to the ids the lists have in dst.
func Import(dst Sink, snap Snapshot) int {
	imported := 0
	listIDs := make(map[int64]int64, len(snap.Data.Lists))
	for _, l := range snap.Data.Lists {
		name := strings.TrimSpace(l.Name)
		if name == "" {
			continue
		}
		l.Name = name
		stored, inserted := dst.AddListIfAbsent(l)
		listIDs[l.ID] = stored.ID
		if inserted {
			imported++
		}
	}
	for _, t := range snap.Data.Tasks {
		if strings.TrimSpace(t.Title) == "" {
			continue
		}
		t.ListID = remapList(t.ListID, listIDs, dst)
		if _, inserted := dst.AddTaskIfAbsent(t); inserted {
			imported++
		}
	}
	return imported
}

func remapList(id *int64, listIDs map[int64]int64, dst Sink) *int64 {
	if id == nil {
		return nil
	}
	if mapped, ok := listIDs[*id]; ok {
		return &mapped
	}
	if dst.HasList(*id) {
		v := *id
		return &v
	}
	return nil
}

func Encode(w io.Writer, snap Snapshot) error {
	if snap.Data.Lists == nil {
		snap.Data.Lists = []storage.List{}
	}
	if snap.Data.Tasks == nil {
		snap.Data.Tasks = []storage.Task{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// Decode parses a snapshot document. It fails with ErrInvalidFormat unless
// data.lists and data.tasks are both present and both arrays.
func Decode(r io.Reader) (Snapshot, error) {
	var raw struct {
		Version   string          `json:"version"`
		Timestamp json.RawMessage `json:"timestamp"`
		Data      *struct {
			Lists json.RawMessage `json:"lists"`
			Tasks json.RawMessage `json:"tasks"`
		} `json:"data"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if raw.Data == nil {
		return Snapshot{}, fmt.Errorf("%w: missing data", ErrInvalidFormat)
	}
	if !isArray(raw.Data.Lists) {
		return Snapshot{}, fmt.Errorf("%w: data.lists is not an array", ErrInvalidFormat)
	}
	if !isArray(raw.Data.Tasks) {
		return Snapshot{}, fmt.Errorf("%w: data.tasks is not an array", ErrInvalidFormat)
	}

	snap := Snapshot{Version: raw.Version}
	if err := json.Unmarshal(raw.Data.Lists, &snap.Data.Lists); err != nil {
		return Snapshot{}, fmt.Errorf("%w: lists: %v", ErrInvalidFormat, err)
	}
	if err := json.Unmarshal(raw.Data.Tasks, &snap.Data.Tasks); err != nil {
		return Snapshot{}, fmt.Errorf("%w: tasks: %v", ErrInvalidFormat, err)
	}
	// a malformed timestamp does not make the payload unusable
	var ts string
	if json.Unmarshal(raw.Timestamp, &ts) == nil {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			snap.Timestamp = parsed
		}
	}
	return snap, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func WriteFile(path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func ReadFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()
	return Decode(f)
}

// SuggestedName is the default export file name for the day of now.
func SuggestedName(now time.Time) string {
	return fmt.Sprintf("plando-backup-%s.json", now.Format(storage.DateLayout))
}
