package ui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

var errAlertQueueFull = errors.New("alert queue full")

// Alert is a fired reminder waiting to be shown.
type Alert struct {
	Title string
	Body  string
}

// Alerts delivers fired reminders into the program's event loop. It
// implements reminder.Notifier.
type Alerts chan Alert

func NewAlerts() Alerts {
	return make(Alerts, 32)
}

// Notify never blocks the timer goroutine; it reports an error when the
// queue is full.
func (a Alerts) Notify(title, body string) error {
	select {
	case a <- Alert{Title: title, Body: body}:
		return nil
	default:
		return errAlertQueueFull
	}
}

type alertMsg Alert

func waitForAlert(a Alerts) tea.Cmd {
	if a == nil {
		return nil
	}
	return func() tea.Msg {
		return alertMsg(<-a)
	}
}
