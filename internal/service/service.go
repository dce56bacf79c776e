// Package service exposes every plando operation with its outcome wrapped
// in a result envelope. Presentation layers (TUI, HTTP, CLI) only talk to
// this package.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"plando/internal/archive"
	"plando/internal/backup"
	"plando/internal/query"
	"plando/internal/reminder"
	"plando/internal/result"
	"plando/internal/stats"
	"plando/internal/storage"
)

type Removed struct {
	Removed bool `json:"removed"`
}

type Updated struct {
	Updated int `json:"updated"`
}

type Exported struct {
	FilePath string `json:"filePath"`
}

type Imported struct {
	Imported int    `json:"imported"`
	FilePath string `json:"filePath"`
}

type Scheduled struct {
	Scheduled bool   `json:"scheduled"`
	Handle    string `json:"handle,omitempty"`
}

type Cancelled struct {
	Cancelled bool `json:"cancelled"`
}

type Shown struct {
	Shown bool `json:"shown"`
}

const remindNowBody = "You have a task to take care of"

type Service struct {
	store     *storage.Store
	reminders *reminder.Scheduler
	picker    backup.Picker
	now       func() time.Time
	logger    *log.Logger
}

type Option func(*Service)

// WithPicker sets the collaborator asked for a file when an export or
// import is started without a path.
func WithPicker(p backup.Picker) Option {
	return func(s *Service) { s.picker = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(store *storage.Store, reminders *reminder.Scheduler, opts ...Option) *Service {
	s := &Service{
		store:     store,
		reminders: reminders,
		picker:    backup.DirPicker{},
		now:       time.Now,
		logger:    log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Lists() result.Result[[]storage.List] {
	return result.Ok(s.store.Lists())
}

func (s *Service) CreateList(name string, color *string) result.Result[storage.List] {
	l, err := s.store.CreateList(name, color)
	if err != nil {
		return fail[storage.List](s, result.DBError, "Failed to create list", err)
	}
	return result.Ok(l)
}

func (s *Service) UpdateList(id int64, patch storage.ListPatch) result.Result[storage.List] {
	l, err := s.store.UpdateList(id, patch)
	if err != nil {
		return fail[storage.List](s, result.DBError, "Failed to update list", err)
	}
	return result.Ok(l)
}

func (s *Service) DeleteList(id int64) result.Result[Removed] {
	return result.Ok(Removed{Removed: s.store.DeleteList(id)})
}

func (s *Service) QueryTasks(f query.Filter) result.Result[[]storage.Task] {
	return result.Ok(query.Tasks(s.store.Tasks(), f))
}

func (s *Service) GetTask(id int64) result.Result[storage.Task] {
	t, err := s.store.GetTask(id)
	if err != nil {
		return fail[storage.Task](s, result.DBError, "Failed to get task", err)
	}
	return result.Ok(t)
}

// CreateTask stores a new task and arms its remind_at, if any.
func (s *Service) CreateTask(in storage.TaskInput) result.Result[storage.Task] {
	t, err := s.store.CreateTask(in)
	if err != nil {
		return fail[storage.Task](s, result.DBError, "Failed to create task", err)
	}
	s.ArmTaskReminder(t)
	return result.Ok(t)
}

// UpdateTask applies patch. When the patch sets or clears remind_at the
// reminder for the previous instant is cancelled and the new one armed.
func (s *Service) UpdateTask(id int64, patch storage.TaskPatch) result.Result[storage.Task] {
	var prev *time.Time
	if patch.RemindAt.Set {
		if cur, err := s.store.GetTask(id); err == nil {
			prev = cur.RemindAt
		}
	}
	t, err := s.store.UpdateTask(id, patch)
	if err != nil {
		return fail[storage.Task](s, result.DBError, "Failed to update task", err)
	}
	if patch.RemindAt.Set {
		if prev != nil && s.reminders != nil {
			s.reminders.Cancel(t.ID, *prev)
		}
		s.ArmTaskReminder(t)
	}
	return result.Ok(t)
}

// ToggleComplete flips a task between pending and completed, or sets the
// state given by done.
func (s *Service) ToggleComplete(id int64, done *bool) result.Result[storage.Task] {
	t, err := s.store.ToggleComplete(id, done)
	if err != nil {
		return fail[storage.Task](s, result.DBError, "Failed to toggle task", err)
	}
	return result.Ok(t)
}

func (s *Service) BulkMove(ids []int64, mv storage.Move) result.Result[Updated] {
	n, err := s.store.BulkMove(ids, mv)
	if err != nil {
		return fail[Updated](s, result.DBError, "Failed to move tasks", err)
	}
	return result.Ok(Updated{Updated: n})
}

// DeleteTask removes a task and cancels every reminder still pending for
// it.
func (s *Service) DeleteTask(id int64) result.Result[Removed] {
	removed := s.store.DeleteTask(id)
	if removed && s.reminders != nil {
		if n := s.reminders.CancelTask(id); n > 0 {
			s.logger.Printf("task %d deleted, %d reminder(s) cancelled", id, n)
		}
	}
	return result.Ok(Removed{Removed: removed})
}

func (s *Service) StatsRange(from, to string) result.Result[stats.Summary] {
	for _, d := range []string{from, to} {
		if !storage.ValidDate(d) {
			return result.Fail[stats.Summary](result.InvalidInput, fmt.Sprintf("date %q must be YYYY-MM-DD", d))
		}
	}
	return result.Ok(stats.Range(s.store.Tasks(), from, to))
}

// ExportBackup writes the whole store to path. Paths ending in .db or
// .sqlite produce a SQLite archive, anything else the JSON document. An
// empty path asks the picker for one.
func (s *Service) ExportBackup(ctx context.Context, path string) result.Result[Exported] {
	now := s.now()
	if path == "" {
		p, err := s.picker.SavePath(ctx, backup.SuggestedName(now))
		if err != nil {
			return fail[Exported](s, result.ExportError, "Failed to export backup", err)
		}
		path = p
	}

	snap := backup.Export(s.store, now)
	var err error
	if archive.IsArchivePath(path) {
		err = archive.Write(path, snap)
	} else {
		err = backup.WriteFile(path, snap)
	}
	if err != nil {
		return fail[Exported](s, result.ExportError, "Failed to export backup", err)
	}
	s.logger.Printf("exported %d lists and %d tasks to %s", len(snap.Data.Lists), len(snap.Data.Tasks), path)
	return result.Ok(Exported{FilePath: path})
}

// ImportBackup merges the backup at path into the store, skipping lists
// whose name and tasks whose title and date already exist, then arms the
// future reminders of pending tasks.
func (s *Service) ImportBackup(ctx context.Context, path string) result.Result[Imported] {
	if path == "" {
		p, err := s.picker.OpenPath(ctx)
		if err != nil {
			return fail[Imported](s, result.ImportError, "Failed to import backup", err)
		}
		path = p
	}

	var (
		snap backup.Snapshot
		err  error
	)
	if archive.IsArchivePath(path) {
		snap, err = archive.Read(path)
	} else {
		snap, err = backup.ReadFile(path)
	}
	if err != nil {
		return fail[Imported](s, result.ImportError, "Failed to import backup", err)
	}
	n := backup.Import(s.store, snap)
	armed := s.armAll()
	s.logger.Printf("imported %d records from %s, %d reminder(s) armed", n, path, armed)
	return result.Ok(Imported{Imported: n, FilePath: path})
}

// armAll arms the remind_at of every stored task. Tasks already armed for
// the same instant are replaced, not duplicated.
func (s *Service) armAll() int {
	armed := 0
	for _, t := range s.store.Tasks() {
		if r := s.ArmTaskReminder(t); r.OK && r.Data.Scheduled {
			armed++
		}
	}
	return armed
}

func (s *Service) ScheduleReminder(taskID int64, at time.Time, title, body string) result.Result[Scheduled] {
	r, err := s.reminders.Schedule(taskID, at, title, body)
	if err != nil {
		return fail[Scheduled](s, result.ReminderError, "Failed to schedule reminder", err)
	}
	return result.Ok(Scheduled{Scheduled: true, Handle: r.Handle})
}

// ArmTaskReminder schedules the alert for a saved task's remind_at. Tasks
// without one, completed tasks and instants already past are left alone.
func (s *Service) ArmTaskReminder(t storage.Task) result.Result[Scheduled] {
	if s.reminders == nil || t.RemindAt == nil || t.Status == storage.StatusCompleted || !t.RemindAt.After(s.now()) {
		return result.Ok(Scheduled{})
	}
	return s.ScheduleReminder(t.ID, *t.RemindAt, t.Title, "Task reminder: "+t.Title)
}

func (s *Service) CancelReminder(taskID int64, at time.Time) result.Result[Cancelled] {
	return result.Ok(Cancelled{Cancelled: s.reminders.Cancel(taskID, at)})
}

func (s *Service) ShowNotification(title, body string) result.Result[Shown] {
	if strings.TrimSpace(title) == "" {
		return result.Fail[Shown](result.InvalidInput, "notification title is required")
	}
	if err := s.reminders.FireNow(title, body); err != nil {
		return fail[Shown](s, result.NotificationError, "Failed to show notification", err)
	}
	return result.Ok(Shown{Shown: true})
}

// RemindNow shows a task's alert immediately, using its notes as the body.
func (s *Service) RemindNow(id int64) result.Result[Shown] {
	t, err := s.store.GetTask(id)
	if err != nil {
		return fail[Shown](s, result.NotificationError, "Failed to show reminder", err)
	}
	body := remindNowBody
	if t.Notes != nil && strings.TrimSpace(*t.Notes) != "" {
		body = *t.Notes
	}
	return s.ShowNotification("Task reminder: "+t.Title, body)
}

func (s *Service) UpcomingReminders(window time.Duration) result.Result[[]reminder.Reminder] {
	out := s.reminders.Upcoming(window)
	if out == nil {
		out = []reminder.Reminder{}
	}
	return result.Ok(out)
}

// fail maps err onto the envelope. Known sentinels get their own code;
// anything else is logged and reported under fallback.
func fail[T any](s *Service, fallback result.Code, action string, err error) result.Result[T] {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return result.Fail[T](result.NotFound, notFoundMessage(action))
	case errors.Is(err, storage.ErrInvalidInput):
		return result.Fail[T](result.InvalidInput, err.Error())
	case errors.Is(err, backup.ErrInvalidFormat):
		return result.Fail[T](result.InvalidFormat, "Invalid backup file format")
	case errors.Is(err, reminder.ErrInvalidTime):
		return result.Fail[T](result.InvalidTime, "Reminder time must be in the future")
	case errors.Is(err, backup.ErrCancelled):
		return result.Fail[T](result.Cancelled, cancelledMessage(fallback))
	}
	s.logger.Printf("%s: %v", strings.ToLower(action), err)
	return result.Fail[T](fallback, fmt.Sprintf("%s: %v", action, err))
}

func notFoundMessage(action string) string {
	if strings.Contains(action, "list") {
		return "List not found"
	}
	return "Task not found"
}

func cancelledMessage(code result.Code) string {
	if code == result.ImportError {
		return "Import cancelled by user"
	}
	return "Export cancelled by user"
}
