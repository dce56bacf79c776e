package storage

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Store holds every List and Task in memory. All access is serialized by a
// single lock and callers only ever receive copies.
type Store struct {
	mu         sync.Mutex
	lists      []List
	tasks      []Task
	nextListID int64
	nextTaskID int64
	now        func() time.Time

	seedName  string
	seedColor string
}

type Option func(*Store)

// WithDefaultList seeds the store with one list at sort_order 0, so user
// lists start at id 2.
func WithDefaultList(name, color string) Option {
	return func(s *Store) {
		s.seedName = strings.TrimSpace(name)
		s.seedColor = color
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = func() time.Time { return now().UTC() }
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		nextListID: 1,
		nextTaskID: 1,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.seedName != "" {
		s.insertList(s.seedName, blankToNil(&s.seedColor), 0)
	}
	return s
}

// Lists returns every list ordered by sort_order, then creation.
func (s *Store) Lists() []List {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]List, len(s.lists))
	for i, l := range s.lists {
		out[i] = l.clone()
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

func (s *Store) CreateList(name string, color *string) (List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return List{}, invalidf("name is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertList(name, blankToNil(color), s.nextSortOrder()), nil
}

func (s *Store) nextSortOrder() int {
	maxOrder := 0
	for _, l := range s.lists {
		if l.SortOrder > maxOrder {
			maxOrder = l.SortOrder
		}
	}
	return maxOrder + 1
}

func (s *Store) insertList(name string, color *string, order int) List {
	now := s.now()
	l := List{
		ID:        s.nextListID,
		Name:      name,
		Color:     color,
		SortOrder: order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextListID++
	s.lists = append(s.lists, l)
	return l.clone()
}

func (s *Store) UpdateList(id int64, patch ListPatch) (List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.listIndex(id)
	if i < 0 {
		return List{}, ErrNotFound
	}
	l := s.lists[i].clone()
	if err := patch.apply(&l); err != nil {
		return List{}, err
	}
	l.UpdatedAt = s.now()
	s.lists[i] = l
	return l.clone(), nil
}

// DeleteList removes the list and moves its tasks to the inbox.
func (s *Store) DeleteList(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.listIndex(id)
	if i < 0 {
		return false
	}
	now := s.now()
	for j := range s.tasks {
		if s.tasks[j].ListID != nil && *s.tasks[j].ListID == id {
			s.tasks[j].ListID = nil
			s.tasks[j].UpdatedAt = now
		}
	}
	s.lists = append(s.lists[:i], s.lists[i+1:]...)
	return true
}

func (s *Store) CreateTask(in TaskInput) (Task, error) {
	t, err := newTask(in)
	if err != nil {
		return Task{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertTask(t), nil
}

func newTask(in TaskInput) (Task, error) {
	t := Task{
		Title:     strings.TrimSpace(in.Title),
		Date:      in.Date,
		StartTime: blankToNil(in.StartTime),
		EndTime:   blankToNil(in.EndTime),
		Priority:  in.Priority,
		ListID:    clonePtr(in.ListID),
		Status:    in.Status,
		Notes:     blankToNil(in.Notes),
		RemindAt:  clonePtr(in.RemindAt),
	}
	if t.Title == "" {
		return Task{}, invalidf("title is empty")
	}
	if !ValidDate(t.Date) {
		return Task{}, invalidf("date %q is not YYYY-MM-DD", t.Date)
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if !t.Priority.Valid() {
		return Task{}, invalidf("unknown priority %q", t.Priority)
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if !t.Status.Valid() {
		return Task{}, invalidf("unknown status %q", t.Status)
	}
	if t.ListID != nil && *t.ListID == 0 {
		t.ListID = nil
	}
	return t, nil
}

func (s *Store) insertTask(t Task) Task {
	now := s.now()
	t.ID = s.nextTaskID
	t.CreatedAt = now
	t.UpdatedAt = now
	s.nextTaskID++
	s.tasks = append(s.tasks, t)
	return t.clone()
}

func (s *Store) GetTask(id int64) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.taskIndex(id)
	if i < 0 {
		return Task{}, ErrNotFound
	}
	return s.tasks[i].clone(), nil
}

func (s *Store) UpdateTask(id int64, patch TaskPatch) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.taskIndex(id)
	if i < 0 {
		return Task{}, ErrNotFound
	}
	t := s.tasks[i].clone()
	if err := patch.apply(&t); err != nil {
		return Task{}, err
	}
	t.UpdatedAt = s.now()
	s.tasks[i] = t
	return t.clone(), nil
}

// ToggleComplete sets the status to completed when done is true, pending
// when false, and flips it when done is nil.
func (s *Store) ToggleComplete(id int64, done *bool) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.taskIndex(id)
	if i < 0 {
		return Task{}, ErrNotFound
	}
	completed := s.tasks[i].Status == StatusPending
	if done != nil {
		completed = *done
	}
	s.tasks[i].Status = StatusPending
	if completed {
		s.tasks[i].Status = StatusCompleted
	}
	s.tasks[i].UpdatedAt = s.now()
	return s.tasks[i].clone(), nil
}

// BulkMove applies the supplied fields to every existing id and returns how
// many tasks were touched. Unknown ids are skipped.
func (s *Store) BulkMove(ids []int64, mv Move) (int, error) {
	if mv.Date != nil && !ValidDate(*mv.Date) {
		return 0, invalidf("date %q is not YYYY-MM-DD", *mv.Date)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	updated := 0
	for _, id := range ids {
		i := s.taskIndex(id)
		if i < 0 {
			continue
		}
		t := &s.tasks[i]
		if mv.Date != nil {
			t.Date = *mv.Date
		}
		if mv.StartTime != nil {
			t.StartTime = blankToNil(mv.StartTime)
		}
		if mv.EndTime != nil {
			t.EndTime = blankToNil(mv.EndTime)
		}
		t.UpdatedAt = now
		updated++
	}
	return updated, nil
}

func (s *Store) DeleteTask(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.taskIndex(id)
	if i < 0 {
		return false
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	return true
}

// Snapshot returns deep copies of both collections in insertion order.
func (s *Store) Snapshot() ([]List, []Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lists := make([]List, len(s.lists))
	for i, l := range s.lists {
		lists[i] = l.clone()
	}
	tasks := make([]Task, len(s.tasks))
	for i, t := range s.tasks {
		tasks[i] = t.clone()
	}
	return lists, tasks
}

// Tasks returns a copy of every task in insertion order.
func (s *Store) Tasks() []Task {
	_, tasks := s.Snapshot()
	return tasks
}

// AddListIfAbsent inserts l with a fresh id and timestamps unless a list
// with the same name exists. Name, color and sort order are kept. It
// returns the stored list and whether it was inserted.
func (s *Store) AddListIfAbsent(l List) (List, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.lists {
		if cur.Name == l.Name {
			return cur.clone(), false
		}
	}
	return s.insertList(l.Name, blankToNil(l.Color), l.SortOrder), true
}

// AddTaskIfAbsent inserts t with a fresh id and timestamps unless a task
// with the same title and date exists.
func (s *Store) AddTaskIfAbsent(t Task) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.tasks {
		if cur.Title == t.Title && cur.Date == t.Date {
			return cur.clone(), false
		}
	}
	t = t.clone()
	if !t.Priority.Valid() {
		t.Priority = PriorityMedium
	}
	if !t.Status.Valid() {
		t.Status = StatusPending
	}
	return s.insertTask(t), true
}

func (s *Store) HasList(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listIndex(id) >= 0
}

func (s *Store) listIndex(id int64) int {
	for i, l := range s.lists {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) taskIndex(id int64) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
