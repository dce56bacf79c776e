package reminder_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"plando/internal/reminder"
)

type alert struct {
	title, body string
}

type chanNotifier chan alert

func (c chanNotifier) Notify(title, body string) error {
	c <- alert{title, body}
	return nil
}

func discard(string, string) error { return nil }

func newScheduler() (*reminder.Scheduler, chanNotifier) {
	n := make(chanNotifier, 16)
	return reminder.New(n), n
}

func expectAlert(t *testing.T, n chanNotifier, want alert) {
	t.Helper()
	select {
	case got := <-n:
		if got != want {
			t.Errorf("got alert %+v, want %+v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("alert %+v never fired", want)
	}
}

func expectSilence(t *testing.T, n chanNotifier, d time.Duration) {
	t.Helper()
	select {
	case got := <-n:
		t.Errorf("unexpected alert %+v", got)
	case <-time.After(d):
	}
}

func TestScheduleFiresOnceAndRemovesEntry(t *testing.T) {
	s, n := newScheduler()
	r, err := s.Schedule(1, time.Now().Add(30*time.Millisecond), "Ship", "")
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if r.Handle == "" || r.Body != reminder.DefaultBody {
		t.Errorf("unexpected reminder %+v", r)
	}

	expectAlert(t, n, alert{"Ship", reminder.DefaultBody})
	expectSilence(t, n, 50*time.Millisecond)
	if s.Len() != 0 {
		t.Errorf("expected fired entry removed, %d left", s.Len())
	}
}

func TestScheduleRejectsPastAndPresent(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s := reminder.New(reminder.NotifierFunc(discard), reminder.WithClock(func() time.Time { return now }))

	for _, at := range []time.Time{now, now.Add(-time.Minute)} {
		if _, err := s.Schedule(1, at, "x", "y"); !errors.Is(err, reminder.ErrInvalidTime) {
			t.Errorf("Schedule(%v) = %v, want ErrInvalidTime", at, err)
		}
	}
	if s.Len() != 0 {
		t.Error("rejected reminders must not be registered")
	}
}

func TestCancelPreventsFiring(t *testing.T) {
	s, n := newScheduler()
	at := time.Now().Add(40 * time.Millisecond)
	if _, err := s.Schedule(7, at, "Call", "dentist"); err != nil {
		t.Fatal(err)
	}
	if !s.Cancel(7, at) {
		t.Fatal("expected Cancel to report true")
	}
	if s.Cancel(7, at) {
		t.Error("second Cancel should report false")
	}
	expectSilence(t, n, 100*time.Millisecond)
}

func TestCancelAbsentIsFalse(t *testing.T) {
	s, _ := newScheduler()
	if s.Cancel(99, time.Now().Add(time.Hour)) {
		t.Error("expected false for unknown entry")
	}
}

func TestCancelAfterFireIsFalse(t *testing.T) {
	s, n := newScheduler()
	at := time.Now().Add(20 * time.Millisecond)
	if _, err := s.Schedule(3, at, "Go", ""); err != nil {
		t.Fatal(err)
	}
	expectAlert(t, n, alert{"Go", reminder.DefaultBody})
	if s.Cancel(3, at) {
		t.Error("Cancel after firing should report false")
	}
}

func TestRescheduleSameKeyReplaces(t *testing.T) {
	s, n := newScheduler()
	at := time.Now().Add(40 * time.Millisecond)
	first, err := s.Schedule(5, at, "old", "a")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Schedule(5, at, "new", "b")
	if err != nil {
		t.Fatal(err)
	}
	if first.Handle == second.Handle {
		t.Error("replacement should get a fresh handle")
	}
	if s.Len() != 1 {
		t.Fatalf("expected one entry, got %d", s.Len())
	}
	expectAlert(t, n, alert{"new", "b"})
	expectSilence(t, n, 80*time.Millisecond)
}

func TestKeysAreMillisecondPrecision(t *testing.T) {
	s, _ := newScheduler()
	at := time.Now().Add(time.Hour).Truncate(time.Millisecond)
	if _, err := s.Schedule(1, at.Add(300*time.Microsecond), "a", ""); err != nil {
		t.Fatal(err)
	}
	if !s.Cancel(1, at) {
		t.Error("sub-millisecond difference should address the same entry")
	}
}

func TestCancelTaskAndStop(t *testing.T) {
	s, n := newScheduler()
	base := time.Now().Add(50 * time.Millisecond)
	for i, id := range []int64{1, 1, 2} {
		if _, err := s.Schedule(id, base.Add(time.Duration(i)*time.Millisecond), "t", ""); err != nil {
			t.Fatal(err)
		}
	}
	if got := s.CancelTask(1); got != 2 {
		t.Errorf("CancelTask removed %d, want 2", got)
	}
	if got := s.CancelTask(1); got != 0 {
		t.Errorf("second CancelTask removed %d, want 0", got)
	}
	s.Stop()
	if s.Len() != 0 {
		t.Errorf("Stop left %d entries", s.Len())
	}
	expectSilence(t, n, 120*time.Millisecond)

	if _, err := s.Schedule(4, time.Now().Add(10*time.Millisecond), "after stop", ""); err != nil {
		t.Fatal(err)
	}
	expectAlert(t, n, alert{"after stop", reminder.DefaultBody})
}

func TestPendingAndUpcoming(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s := reminder.New(reminder.NotifierFunc(discard), reminder.WithClock(func() time.Time { return now }))
	defer s.Stop()

	plan := []struct {
		id int64
		in time.Duration
	}{
		{3, 90 * time.Minute},
		{2, 10 * time.Minute},
		{1, 10 * time.Minute},
		{4, 59 * time.Minute},
	}
	for _, p := range plan {
		if _, err := s.Schedule(p.id, now.Add(p.in), "t", ""); err != nil {
			t.Fatal(err)
		}
	}

	pending := s.Pending()
	var order []int64
	for _, r := range pending {
		order = append(order, r.TaskID)
	}
	want := []int64{1, 2, 4, 3}
	if len(order) != len(want) {
		t.Fatalf("pending = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("pending order = %v, want %v", order, want)
		}
	}

	if got := s.Upcoming(time.Hour); len(got) != 3 {
		t.Errorf("expected 3 reminders within the hour, got %d", len(got))
	}
	if got := s.Upcoming(time.Minute); len(got) != 0 {
		t.Errorf("expected none within a minute, got %d", len(got))
	}
}

func TestFireNow(t *testing.T) {
	s, n := newScheduler()
	if err := s.FireNow("Hello", "world"); err != nil {
		t.Fatal(err)
	}
	expectAlert(t, n, alert{"Hello", "world"})
	if err := s.FireNow("Hello", ""); err != nil {
		t.Fatal(err)
	}
	expectAlert(t, n, alert{"Hello", reminder.DefaultBody})
	if s.Len() != 0 {
		t.Error("FireNow must not register entries")
	}
}

func TestConcurrentScheduleAndCancel(t *testing.T) {
	var mu sync.Mutex
	fired := map[int64]int{}
	s := reminder.New(reminder.NotifierFunc(func(title, _ string) error {
		mu.Lock()
		defer mu.Unlock()
		fired[int64(len(title))]++
		return nil
	}))
	defer s.Stop()

	at := time.Now().Add(time.Hour)
	var wg sync.WaitGroup
	for i := int64(1); i <= 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if _, err := s.Schedule(id, at, "t", ""); err != nil {
				t.Error(err)
				return
			}
			if id%2 == 0 && !s.Cancel(id, at) {
				t.Errorf("cancel %d failed", id)
			}
		}(i)
	}
	wg.Wait()
	if s.Len() != 25 {
		t.Errorf("expected 25 live entries, got %d", s.Len())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 0 {
		t.Errorf("nothing should have fired yet: %v", fired)
	}
}
