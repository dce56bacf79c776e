// Package reminder keeps a registry of pending task alerts, each backed by
// its own timer.
//
// Every entry is in one of three states:
//
//	Scheduled -> Fired      (timer ran, entry removed, notifier called)
//	Scheduled -> Cancelled  (Cancel, CancelTask, Stop or replacement)
//
// Both end states are terminal. Once Cancel reports true for an entry its
// notifier call is guaranteed not to happen.
package reminder

import (
	"errors"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultBody = "Task reminder"

var ErrInvalidTime = errors.New("reminder time must be in the future")

// Notifier shows an alert. It is called from timer goroutines and must be
// safe for concurrent use.
type Notifier interface {
	Notify(title, body string) error
}

type NotifierFunc func(title, body string) error

func (f NotifierFunc) Notify(title, body string) error { return f(title, body) }

// Key identifies an entry. Instants are kept at millisecond precision so
// the same wall-clock reminder always maps to the same key.
type Key struct {
	TaskID int64
	At     int64
}

func KeyFor(taskID int64, at time.Time) Key {
	return Key{TaskID: taskID, At: at.UnixMilli()}
}

// Reminder describes a pending entry.
type Reminder struct {
	Handle string    `json:"handle"`
	TaskID int64     `json:"task_id"`
	At     time.Time `json:"at"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
}

type entry struct {
	Reminder
	timer *time.Timer
}

type Scheduler struct {
	mu       sync.Mutex
	entries  map[Key]*entry
	notifier Notifier
	now      func() time.Time
	logger   *log.Logger
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(n Notifier, opts ...Option) *Scheduler {
	s := &Scheduler{
		entries:  make(map[Key]*entry),
		notifier: n,
		now:      time.Now,
		logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule arranges for the notifier to be called with title and body at
// at. An existing entry for the same task and instant is replaced.
func (s *Scheduler) Schedule(taskID int64, at time.Time, title, body string) (Reminder, error) {
	delay := at.Sub(s.now())
	if delay <= 0 {
		return Reminder{}, ErrInvalidTime
	}
	if body == "" {
		body = DefaultBody
	}
	key := KeyFor(taskID, at)
	e := &entry{Reminder: Reminder{
		Handle: uuid.NewString(),
		TaskID: taskID,
		At:     time.UnixMilli(key.At).UTC(),
		Title:  title,
		Body:   body,
	}}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[key]; ok {
		old.timer.Stop()
		s.logger.Printf("reminder %s for task %d replaced", old.Handle, taskID)
	}
	s.entries[key] = e
	e.timer = time.AfterFunc(delay, func() { s.fire(key, e) })
	return e.Reminder, nil
}

func (s *Scheduler) fire(key Key, e *entry) {
	s.mu.Lock()
	cur, ok := s.entries[key]
	if !ok || cur != e {
		// cancelled or replaced after the timer was already running
		s.mu.Unlock()
		return
	}
	delete(s.entries, key)
	s.mu.Unlock()

	s.logger.Printf("reminder %s for task %d fired", e.Handle, e.TaskID)
	if err := s.notifier.Notify(e.Title, e.Body); err != nil {
		s.logger.Printf("reminder %s for task %d: notify: %v", e.Handle, e.TaskID, err)
	}
}

// Cancel removes the entry for taskID at at. It reports false when no such
// entry is pending, including when it has already fired.
func (s *Scheduler) Cancel(taskID int64, at time.Time) bool {
	key := KeyFor(taskID, at)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.entries, key)
	return true
}

// CancelTask removes every pending entry of taskID and returns how many
// were removed.
func (s *Scheduler) CancelTask(taskID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, e := range s.entries {
		if key.TaskID != taskID {
			continue
		}
		e.timer.Stop()
		delete(s.entries, key)
		n++
	}
	return n
}

// FireNow calls the notifier immediately, bypassing the registry.
func (s *Scheduler) FireNow(title, body string) error {
	if body == "" {
		body = DefaultBody
	}
	return s.notifier.Notify(title, body)
}

// Pending lists every scheduled entry ordered by instant, then task id.
func (s *Scheduler) Pending() []Reminder {
	s.mu.Lock()
	out := make([]Reminder, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Reminder)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		return out[i].TaskID < out[j].TaskID
	})
	return out
}

// Upcoming lists the entries due within window from now.
func (s *Scheduler) Upcoming(window time.Duration) []Reminder {
	limit := s.now().Add(window)
	var out []Reminder
	for _, r := range s.Pending() {
		if r.At.After(limit) {
			break
		}
		out = append(out, r)
	}
	return out
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop cancels every pending entry. The scheduler stays usable.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, key)
	}
}
