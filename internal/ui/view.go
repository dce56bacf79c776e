package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"plando/internal/stats"
	"plando/internal/storage"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3b82f6"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	doneStyle     = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("241"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	priorityStyles = map[storage.Priority]lipgloss.Style{
		storage.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")),
		storage.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b")),
		storage.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("#10b981")),
	}

	heatLevels = []lipgloss.Color{"#2d333b", "#0e4429", "#006d32", "#26a641", "#39d353"}
)

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("plando"))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  %s • %s", m.listLabel(), m.filterDone)))
	b.WriteString("\n\n")

	switch m.mode {
	case modeStats:
		b.WriteString(m.renderStats())
	default:
		b.WriteString(m.renderTasks())
	}

	switch {
	case m.mode == modeAdd:
		b.WriteString("\nNew task: " + m.input.View() + "\n")
	case m.mode == modePath:
		b.WriteString("\n" + m.pathPrompt() + "\n" + m.input.View() + "\n")
	case m.meta != nil:
		b.WriteString("\n" + m.renderMetadataEditor())
	}

	if up := m.renderUpcoming(); up != "" {
		b.WriteString("\n" + up)
	}
	if m.status != "" {
		b.WriteString("\n" + statusStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n" + mutedStyle.Render(m.renderHelp()))
	return b.String()
}

func (m Model) renderTasks() string {
	if len(m.tasks) == 0 {
		return mutedStyle.Render("No tasks. Press "+m.cfg.Keys.Add+" to add one.") + "\n"
	}
	var b strings.Builder
	for i, t := range m.tasks {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		box := "[ ]"
		if t.Status == storage.StatusCompleted {
			box = "[x]"
		}
		when := t.Date
		if t.StartTime != nil {
			when += " " + *t.StartTime
		}
		title := t.Title
		switch {
		case t.Status == storage.StatusCompleted:
			title = doneStyle.Render(title)
		case i == m.cursor:
			title = selectedStyle.Render(title)
		}
		line := fmt.Sprintf("%s%s %s  %s %s", cursor, box, mutedStyle.Render(when), title,
			priorityStyles[t.Priority].Render("●"))
		if name := m.listName(t.ListID); name != "" && m.listSel == 0 {
			line += mutedStyle.Render("  #" + name)
		}
		if t.RemindAt != nil {
			line += mutedStyle.Render("  ⏰")
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m Model) renderMetadataEditor() string {
	var b strings.Builder
	values := m.meta.values()
	for i, label := range metaFields() {
		prefix := "  "
		value := values[i]
		if i == m.meta.index {
			prefix = "> "
			value = m.input.View()
		}
		b.WriteString(fmt.Sprintf("%s%-30s %s\n", prefix, label, value))
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n")) + "\n"
}

func (m Model) renderStats() string {
	preset := stats.Presets[m.preset]
	from, to := stats.Trailing(m.now().In(m.loc), preset.Days)
	s := m.summary

	var b strings.Builder
	var tabs []string
	for i, p := range stats.Presets {
		name := p.Name
		if i == m.preset {
			name = selectedStyle.Render("[" + name + "]")
		}
		tabs = append(tabs, name)
	}
	b.WriteString(strings.Join(tabs, "  ") + "\n\n")
	b.WriteString(fmt.Sprintf("%s → %s\n", from, to))
	b.WriteString(fmt.Sprintf("completed %d • pending %d • rate %.0f%%\n\n", s.Completed, s.Pending, s.CompletionRate*100))
	b.WriteString(renderHeatmap(s, from, preset.Days))
	return b.String()
}

// renderHeatmap lays the window out in weekly columns, one row per weekday
// offset from the first day.
func renderHeatmap(s stats.Summary, from string, days int) string {
	start, err := time.Parse(storage.DateLayout, from)
	if err != nil {
		return ""
	}
	counts := make(map[string]int, len(s.Heatmap))
	peak := 0
	for _, d := range s.Heatmap {
		counts[d.Date] = d.Completed
		if d.Completed > peak {
			peak = d.Completed
		}
	}

	rows := make([][]string, 7)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(storage.DateLayout)
		cell := lipgloss.NewStyle().Foreground(heatLevels[heatLevel(counts[date], peak)]).Render("■")
		rows[i%7] = append(rows[i%7], cell)
	}
	var b strings.Builder
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		b.WriteString(strings.Join(row, " ") + "\n")
	}
	return b.String()
}

func heatLevel(count, peak int) int {
	if count <= 0 || peak <= 0 {
		return 0
	}
	top := len(heatLevels) - 1
	level := (count*top + peak - 1) / peak
	if level > top {
		level = top
	}
	return level
}

func (m Model) renderUpcoming() string {
	if len(m.upcoming) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Upcoming reminders\n")
	for _, r := range m.upcoming {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  %s  %s", r.At.In(m.loc).Format("Jan 2 15:04"), r.Title)) + "\n")
	}
	return b.String()
}

func (m Model) renderHelp() string {
	k := m.cfg.Keys
	switch {
	case m.meta != nil:
		return "enter: next/save • tab: move • esc: cancel"
	case m.confirmDel:
		return "y: delete • n: keep"
	case m.mode == modeAdd, m.mode == modePath:
		return fmt.Sprintf("%s: confirm • %s: cancel", k.Confirm, k.Cancel)
	case m.mode == modeStats:
		return fmt.Sprintf("tab: range • %s: back", k.Cancel)
	}
	toggle := k.Toggle
	if toggle == " " {
		toggle = "space"
	}
	return fmt.Sprintf("%s: add • %s: toggle • %s: edit • %s/%s: priority • %s/%s: move day • %s: list • %s: filter • %s: stats • %s/%s: export/import • %s: remind • %s: delete • %s: quit",
		k.Add, toggle, k.Edit, k.PriorityUp, k.PriorityDown, k.DueBack, k.DueForward,
		k.NextList, k.Filter, k.Stats, k.Export, k.Import, k.Remind, k.Delete, k.Quit)
}
