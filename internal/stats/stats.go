// Package stats aggregates completion counts over a date window.
package stats

import (
	"sort"
	"time"

	"plando/internal/storage"
)

type Day struct {
	Date      string `json:"date"`
	Count     int    `json:"count"`
	Completed int    `json:"completed"`
	Pending   int    `json:"pending"`
}

type Summary struct {
	Completed      int     `json:"completed"`
	Pending        int     `json:"pending"`
	CompletionRate float64 `json:"completionRate"`
	Heatmap        []Day   `json:"heatmap"`
}

func (s Summary) Total() int { return s.Completed + s.Pending }

// Range summarizes tasks whose date falls in [from, to]. The heatmap is
// sparse: dates without tasks are omitted.
func Range(snapshot []storage.Task, from, to string) Summary {
	sum := Summary{Heatmap: []Day{}}
	days := map[string]*Day{}
	for _, t := range snapshot {
		if t.Date < from || t.Date > to {
			continue
		}
		d, ok := days[t.Date]
		if !ok {
			d = &Day{Date: t.Date}
			days[t.Date] = d
		}
		d.Count++
		if t.Status == storage.StatusCompleted {
			sum.Completed++
			d.Completed++
		} else {
			sum.Pending++
			d.Pending++
		}
	}
	if total := sum.Total(); total > 0 {
		sum.CompletionRate = float64(sum.Completed) / float64(total)
	}
	for _, d := range days {
		sum.Heatmap = append(sum.Heatmap, *d)
	}
	sort.Slice(sum.Heatmap, func(i, j int) bool { return sum.Heatmap[i].Date < sum.Heatmap[j].Date })
	return sum
}

// DefaultWindow returns the window starting at today and spanning days more
// days, formatted as calendar dates.
func DefaultWindow(today time.Time, days int) (from, to string) {
	if days < 0 {
		days = 0
	}
	return today.Format(storage.DateLayout), today.AddDate(0, 0, days).Format(storage.DateLayout)
}

// Presets are the look-back spans offered by the stats views.
var Presets = []struct {
	Name string
	Days int
}{
	{"week", 7},
	{"month", 30},
	{"year", 365},
}

// Trailing returns the window of days calendar dates ending at today.
func Trailing(today time.Time, days int) (from, to string) {
	if days < 1 {
		days = 1
	}
	return today.AddDate(0, 0, -(days - 1)).Format(storage.DateLayout), today.Format(storage.DateLayout)
}
