package storage

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

type List struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     *string   `json:"color"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Task is a dated work item. Date is a plain calendar date (DateLayout) and
// compares lexically; StartTime and EndTime are free-form time strings.
type Task struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Date      string     `json:"date"`
	StartTime *string    `json:"start_time,omitempty"`
	EndTime   *string    `json:"end_time,omitempty"`
	Priority  Priority   `json:"priority"`
	ListID    *int64     `json:"list_id"`
	Status    Status     `json:"status"`
	Notes     *string    `json:"notes,omitempty"`
	RemindAt  *time.Time `json:"remind_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TaskInput carries the caller-supplied fields of a new task. Empty
// optional strings are treated as absent.
type TaskInput struct {
	Title     string     `json:"title"`
	Date      string     `json:"date"`
	StartTime *string    `json:"start_time"`
	EndTime   *string    `json:"end_time"`
	Priority  Priority   `json:"priority"`
	ListID    *int64     `json:"list_id"`
	Status    Status     `json:"status"`
	Notes     *string    `json:"notes"`
	RemindAt  *time.Time `json:"remind_at"`
}

// Move lists the scheduling fields BulkMove may overwrite. Nil fields are
// left alone.
type Move struct {
	Date      *string `json:"date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

func (l List) clone() List {
	l.Color = clonePtr(l.Color)
	return l
}

func (t Task) clone() Task {
	t.StartTime = clonePtr(t.StartTime)
	t.EndTime = clonePtr(t.EndTime)
	t.ListID = clonePtr(t.ListID)
	t.Notes = clonePtr(t.Notes)
	t.RemindAt = clonePtr(t.RemindAt)
	return t
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func blankToNil(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	return clonePtr(p)
}

// ValidDate reports whether s is a calendar date in DateLayout.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
