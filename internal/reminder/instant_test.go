package reminder_test

import (
	"errors"
	"testing"
	"time"

	"plando/internal/reminder"
)

func TestParseInstant(t *testing.T) {
	loc := time.FixedZone("KST", 9*60*60)
	want := time.Date(2024, 5, 1, 9, 30, 0, 0, loc)

	for _, in := range []string{
		"2024-05-01T09:30:00+09:00",
		"2024-05-01T00:30:00Z",
		"2024-05-01T09:30",
		" 2024-05-01 09:30:00 ",
	} {
		got, err := reminder.ParseInstant(in, loc)
		if err != nil {
			t.Errorf("ParseInstant(%q): %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseInstant(%q) = %v, want %v", in, got, want)
		}
	}

	for _, in := range []string{"", "tomorrow", "2024-05-01", "09:30"} {
		if _, err := reminder.ParseInstant(in, loc); !errors.Is(err, reminder.ErrInvalidTime) {
			t.Errorf("ParseInstant(%q) = %v, want ErrInvalidTime", in, err)
		}
	}
}
