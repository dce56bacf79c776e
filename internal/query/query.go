// Package query filters and orders task snapshots. Every function is pure
// and returns a fresh slice.
package query

import (
	"sort"

	"plando/internal/storage"
)

type listMode int

const (
	anyList listMode = iota
	noList
	oneList
)

// ListFilter selects tasks by list membership. The zero value matches every
// task.
type ListFilter struct {
	mode listMode
	id   int64
}

func AnyList() ListFilter        { return ListFilter{mode: anyList} }
func NoList() ListFilter         { return ListFilter{mode: noList} }
func InList(id int64) ListFilter { return ListFilter{mode: oneList, id: id} }

func (f ListFilter) IsAny() bool  { return f.mode == anyList }
func (f ListFilter) IsNone() bool { return f.mode == noList }

func (f ListFilter) ID() (int64, bool) {
	return f.id, f.mode == oneList
}

func (f ListFilter) match(t storage.Task) bool {
	switch f.mode {
	case noList:
		return t.ListID == nil
	case oneList:
		return t.ListID != nil && *t.ListID == f.id
	default:
		return true
	}
}

// Filter narrows a snapshot. Empty Status, DateFrom and DateTo disable the
// corresponding check; date bounds are inclusive.
type Filter struct {
	List     ListFilter
	Status   storage.Status
	DateFrom string
	DateTo   string
}

// Tasks returns the tasks matching f ordered by date, start time (absent
// first), creation instant and id.
func Tasks(snapshot []storage.Task, f Filter) []storage.Task {
	out := make([]storage.Task, 0, len(snapshot))
	for _, t := range snapshot {
		if !f.List.match(t) {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.DateFrom != "" && t.Date < f.DateFrom {
			continue
		}
		if f.DateTo != "" && t.Date > f.DateTo {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

func Less(a, b storage.Task) bool {
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	as, bs := deref(a.StartTime), deref(b.StartTime)
	if as != bs {
		return as < bs
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
