package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"plando/internal/config"
	"plando/internal/query"
	"plando/internal/reminder"
	"plando/internal/result"
	"plando/internal/service"
	"plando/internal/stats"
	"plando/internal/storage"
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeMetadata
	modeStats
	modePath
)

type pathAction int

const (
	actionExport pathAction = iota
	actionImport
)

type metaState struct {
	taskID   int64
	date     string
	start    string
	end      string
	priority string
	list     string
	notes    string
	remind   string
	index    int
}

type Model struct {
	svc    *service.Service
	cfg    config.Config
	alerts Alerts
	loc    *time.Location
	now    func() time.Time

	lists      []storage.List
	listSel    int
	tasks      []storage.Task
	cursor     int
	mode       mode
	input      textinput.Model
	status     string
	filterDone string
	confirmDel bool
	pendingDel *storage.Task
	meta       *metaState
	path       pathAction
	preset     int
	summary    stats.Summary
	upcoming   []reminder.Reminder
}

// New builds the model. alerts may be nil when no reminders are delivered
// to the UI.
func New(svc *service.Service, cfg config.Config, alerts Alerts) Model {
	ti := textinput.New()
	ti.Placeholder = "Task title"
	ti.CharLimit = 256
	ti.Width = 40

	m := Model{
		svc:        svc,
		cfg:        cfg,
		alerts:     alerts,
		loc:        time.Local,
		now:        time.Now,
		input:      ti,
		mode:       modeList,
		filterDone: strings.ToLower(cfg.DefaultFilter),
		status:     fmt.Sprintf("Press '%s' to add, space to toggle, '%s' to delete.", cfg.Keys.Add, cfg.Keys.Delete),
	}
	m.reload()
	return m
}

func Run(svc *service.Service, cfg config.Config, alerts Alerts) error {
	program := tea.NewProgram(New(svc, cfg, alerts))
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return waitForAlert(m.alerts)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case alertMsg:
		m.status = fmt.Sprintf("Reminder: %s • %s", msg.Title, msg.Body)
		m.refreshUpcoming()
		return m, waitForAlert(m.alerts)
	case tea.KeyMsg:
		if m.meta != nil {
			return m.updateMetadataMode(msg.String(), msg)
		}
		if m.confirmDel {
			return m.updateDeleteConfirm(msg.String())
		}
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 10
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch m.mode {
	case modeAdd:
		return m.updateAddMode(key, msg)
	case modePath:
		return m.updatePathMode(key, msg)
	case modeStats:
		return m.updateStatsMode(key)
	}
	return m.updateListMode(key)
}

func (m Model) updateAddMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.mode = modeList
		m.input.SetValue("")
		m.input.Blur()
		m.status = "Cancelled"
		return m, nil
	case m.cfg.Keys.Confirm:
		title := strings.TrimSpace(m.input.Value())
		if title == "" {
			m.status = "Title cannot be empty"
			return m, nil
		}
		in := storage.TaskInput{Title: title, Date: m.today()}
		if id, ok := m.listFilter().ID(); ok {
			in.ListID = &id
		}
		res := m.svc.CreateTask(in)
		if !res.OK {
			m.status = describe(res.Error)
			return m, nil
		}
		m.reload()
		m.selectTask(res.Data.ID)
		m.status = "Added task"
		m.input.SetValue("")
		m.input.Blur()
		m.mode = modeList
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	switch key {
	case "ctrl+c", k.Quit:
		return m, tea.Quit
	case k.Down, "down":
		if len(m.tasks) == 0 {
			return m, nil
		}
		m.cursor = clampCursor(m.cursor+1, len(m.tasks))
	case k.Up, "up":
		if m.cursor > 0 {
			m.cursor = clampCursor(m.cursor-1, len(m.tasks))
		}
	case k.Add:
		m.mode = modeAdd
		m.input.Placeholder = "Task title"
		m.input.Focus()
		m.status = "Add mode: type a title and press Enter"
	case k.Toggle:
		if len(m.tasks) == 0 {
			return m, nil
		}
		res := m.svc.ToggleComplete(m.tasks[m.cursor].ID, nil)
		if !res.OK {
			m.status = describe(res.Error)
			return m, nil
		}
		m.reload()
		m.status = fmt.Sprintf("Marked %s", res.Data.Status)
	case k.Delete:
		if len(m.tasks) == 0 {
			return m, nil
		}
		t := m.tasks[m.cursor]
		m.confirmDel = true
		m.pendingDel = &t
		m.status = fmt.Sprintf("Delete \"%s\"? y/n", t.Title)
	case k.Detail:
		if len(m.tasks) == 0 {
			m.status = "No tasks"
			return m, nil
		}
		m.status = m.detail(m.tasks[m.cursor])
	case k.Edit:
		if len(m.tasks) == 0 {
			m.status = "No tasks to edit"
			return m, nil
		}
		return m.startMetadataEdit(m.tasks[m.cursor])
	case k.PriorityUp, k.PriorityDown:
		if len(m.tasks) == 0 {
			return m, nil
		}
		step := 1
		if key == k.PriorityDown {
			step = -1
		}
		t := m.tasks[m.cursor]
		res := m.svc.UpdateTask(t.ID, storage.TaskPatch{Priority: storage.Some(bumpPriority(t.Priority, step))})
		if !res.OK {
			m.status = describe(res.Error)
			return m, nil
		}
		m.reload()
		m.selectTask(t.ID)
		m.status = "Priority " + string(res.Data.Priority)
	case k.DueForward, k.DueBack:
		if len(m.tasks) == 0 {
			return m, nil
		}
		days := 1
		if key == k.DueBack {
			days = -1
		}
		return m.shiftDate(m.tasks[m.cursor], days)
	case k.NextList:
		m.listSel = wrapIndex(m.listSel+1, len(m.lists)+2)
		m.reload()
		m.cursor = 0
		m.status = "Showing " + m.listLabel()
	case k.Filter:
		m.filterDone = nextFilter(m.filterDone)
		m.reload()
		m.status = "Filter: " + m.filterDone
	case k.Stats:
		m.mode = modeStats
		m.loadStats()
		m.status = "Stats: tab to change range, esc to go back"
	case k.Export, k.Import:
		m.path = actionExport
		if key == k.Import {
			m.path = actionImport
		}
		m.mode = modePath
		m.input.SetValue("")
		m.input.Placeholder = "file path (empty: backup directory)"
		m.input.Focus()
		m.status = m.pathPrompt()
	case k.Remind:
		if len(m.tasks) == 0 {
			return m, nil
		}
		res := m.svc.RemindNow(m.tasks[m.cursor].ID)
		if !res.OK {
			m.status = describe(res.Error)
		}
	}
	return m, nil
}

func (m Model) shiftDate(t storage.Task, days int) (tea.Model, tea.Cmd) {
	d, err := time.Parse(storage.DateLayout, t.Date)
	if err != nil {
		m.status = fmt.Sprintf("date invalid: %v", err)
		return m, nil
	}
	next := d.AddDate(0, 0, days).Format(storage.DateLayout)
	res := m.svc.BulkMove([]int64{t.ID}, storage.Move{Date: &next})
	if !res.OK {
		m.status = describe(res.Error)
		return m, nil
	}
	m.reload()
	m.selectTask(t.ID)
	m.status = "Moved to " + next
	return m, nil
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.cfg.Keys.Cancel:
		m.status = "Delete cancelled"
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	case "y", "Y":
		if m.pendingDel == nil {
			m.status = "Nothing to delete"
			m.confirmDel = false
			return m, nil
		}
		res := m.svc.DeleteTask(m.pendingDel.ID)
		switch {
		case !res.OK:
			m.status = describe(res.Error)
		case !res.Data.Removed:
			m.status = "Task was already gone"
		default:
			m.status = "Deleted task"
		}
		m.reload()
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) updateStatsMode(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c":
		return m, tea.Quit
	case m.cfg.Keys.Cancel, m.cfg.Keys.Stats, m.cfg.Keys.Quit:
		m.mode = modeList
		m.status = ""
	case m.cfg.Keys.NextList, "tab", "right":
		m.preset = wrapIndex(m.preset+1, len(stats.Presets))
		m.loadStats()
	case "shift+tab", "left":
		m.preset = wrapIndex(m.preset-1, len(stats.Presets))
		m.loadStats()
	}
	return m, nil
}

func (m Model) updatePathMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.mode = modeList
		m.input.SetValue("")
		m.input.Blur()
		m.status = "Cancelled"
		return m, nil
	case m.cfg.Keys.Confirm:
		path := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		m.input.Blur()
		m.mode = modeList
		ctx := context.Background()
		if m.path == actionExport {
			res := m.svc.ExportBackup(ctx, path)
			if !res.OK {
				m.status = describe(res.Error)
				return m, nil
			}
			m.status = "Exported to " + res.Data.FilePath
			return m, nil
		}
		res := m.svc.ImportBackup(ctx, path)
		if !res.OK {
			m.status = describe(res.Error)
			return m, nil
		}
		m.reload()
		m.status = fmt.Sprintf("Imported %d record(s) from %s", res.Data.Imported, res.Data.FilePath)
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) startMetadataEdit(t storage.Task) (tea.Model, tea.Cmd) {
	m.meta = &metaState{
		taskID:   t.ID,
		date:     t.Date,
		start:    deref(t.StartTime),
		end:      deref(t.EndTime),
		priority: string(t.Priority),
		list:     m.listName(t.ListID),
		notes:    deref(t.Notes),
		remind:   m.formatInstant(t.RemindAt),
	}
	m.input.SetValue(m.meta.currentValue())
	m.input.Placeholder = m.meta.currentLabel()
	m.input.Focus()
	m.mode = modeMetadata
	m.status = "Edit task: tab to move, enter to save/next, esc to cancel"
	return m, nil
}

func (m Model) updateMetadataMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.meta = nil
		m.mode = modeList
		m.input.Blur()
		m.status = "Edit cancelled"
		return m, nil
	case "tab", "down":
		m.meta.setCurrentValue(m.input.Value())
		m.meta.index = wrapIndex(m.meta.index+1, len(metaFields()))
		m.input.SetValue(m.meta.currentValue())
		m.input.Placeholder = m.meta.currentLabel()
		m.status = m.metaPrompt()
		return m, nil
	case "shift+tab", "up":
		m.meta.setCurrentValue(m.input.Value())
		m.meta.index = wrapIndex(m.meta.index-1, len(metaFields()))
		m.input.SetValue(m.meta.currentValue())
		m.input.Placeholder = m.meta.currentLabel()
		m.status = m.metaPrompt()
		return m, nil
	case m.cfg.Keys.Confirm, "enter":
		m.meta.setCurrentValue(m.input.Value())
		if m.meta.index >= len(metaFields())-1 {
			return m.saveMetadata()
		}
		m.meta.index++
		m.input.SetValue(m.meta.currentValue())
		m.input.Placeholder = m.meta.currentLabel()
		m.status = m.metaPrompt()
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) saveMetadata() (tea.Model, tea.Cmd) {
	ms := m.meta
	patch := storage.TaskPatch{
		Date:      storage.Some(strings.TrimSpace(ms.date)),
		StartTime: optional(ms.start),
		EndTime:   optional(ms.end),
		Notes:     optional(ms.notes),
	}
	if p := strings.ToLower(strings.TrimSpace(ms.priority)); p != "" {
		patch.Priority = storage.Some(storage.Priority(p))
	}

	switch name := strings.TrimSpace(ms.list); name {
	case "":
		patch.ListID = storage.Null[int64]()
	default:
		id, ok := m.listID(name)
		if !ok {
			m.status = fmt.Sprintf("unknown list %q", name)
			return m, nil
		}
		patch.ListID = storage.Some(id)
	}

	if v := strings.TrimSpace(ms.remind); v == "" {
		patch.RemindAt = storage.Null[time.Time]()
	} else {
		at, err := reminder.ParseInstant(v, m.loc)
		if err != nil {
			m.status = fmt.Sprintf("remind at invalid: %v", err)
			return m, nil
		}
		patch.RemindAt = storage.Some(at)
	}

	res := m.svc.UpdateTask(ms.taskID, patch)
	if !res.OK {
		m.status = describe(res.Error)
		return m, nil
	}
	m.meta = nil
	m.mode = modeList
	m.input.Blur()
	m.reload()
	m.selectTask(res.Data.ID)
	m.status = "Saved"
	if at := res.Data.RemindAt; at != nil && at.After(m.now()) && res.Data.Status == storage.StatusPending {
		m.status = "Saved, reminder set for " + m.formatInstant(at)
	}
	return m, nil
}

func metaFields() []string {
	return []string{
		"date (YYYY-MM-DD)",
		"start time",
		"end time",
		"priority (high/medium/low)",
		"list",
		"notes",
		"remind at (YYYY-MM-DD HH:MM)",
	}
}

func (ms metaState) currentLabel() string {
	return metaFields()[ms.index]
}

func (ms metaState) values() []string {
	return []string{ms.date, ms.start, ms.end, ms.priority, ms.list, ms.notes, ms.remind}
}

func (ms metaState) currentValue() string {
	v := ms.values()
	if ms.index < 0 || ms.index >= len(v) {
		return ""
	}
	return v[ms.index]
}

func (ms *metaState) setCurrentValue(v string) {
	switch ms.index {
	case 0:
		ms.date = v
	case 1:
		ms.start = v
	case 2:
		ms.end = v
	case 3:
		ms.priority = v
	case 4:
		ms.list = v
	case 5:
		ms.notes = v
	case 6:
		ms.remind = v
	}
}

func (m Model) metaPrompt() string {
	if m.meta == nil {
		return ""
	}
	return fmt.Sprintf("Editing %s (field %d of %d). Enter to advance, Esc to cancel, tab to move.",
		m.meta.currentLabel(), m.meta.index+1, len(metaFields()))
}

func (m Model) pathPrompt() string {
	verb := "Export to"
	if m.path == actionImport {
		verb = "Import from"
	}
	return verb + ": type a .json or .db path, or leave empty to use the backup directory"
}

// reload refreshes lists, tasks and upcoming reminders from the service.
func (m *Model) reload() {
	if res := m.svc.Lists(); res.OK {
		m.lists = res.Data
	}
	if m.listSel > len(m.lists)+1 {
		m.listSel = 0
	}
	res := m.svc.QueryTasks(m.filter())
	if !res.OK {
		m.status = describe(res.Error)
		return
	}
	m.tasks = res.Data
	m.cursor = clampCursor(m.cursor, len(m.tasks))
	m.refreshUpcoming()
}

func (m *Model) refreshUpcoming() {
	if res := m.svc.UpcomingReminders(m.cfg.Window()); res.OK {
		m.upcoming = res.Data
	}
}

func (m *Model) loadStats() {
	from, to := stats.Trailing(m.now().In(m.loc), stats.Presets[m.preset].Days)
	res := m.svc.StatsRange(from, to)
	if !res.OK {
		m.status = describe(res.Error)
		return
	}
	m.summary = res.Data
}

func (m *Model) selectTask(id int64) {
	for i, t := range m.tasks {
		if t.ID == id {
			m.cursor = i
			return
		}
	}
	m.cursor = clampCursor(m.cursor, len(m.tasks))
}

func (m Model) filter() query.Filter {
	f := query.Filter{List: m.listFilter()}
	switch m.filterDone {
	case "pending":
		f.Status = storage.StatusPending
	case "completed":
		f.Status = storage.StatusCompleted
	}
	return f
}

// listFilter maps the list selector: 0 is every task, 1..n one list and
// n+1 the tasks without a list.
func (m Model) listFilter() query.ListFilter {
	switch {
	case m.listSel == 0:
		return query.AnyList()
	case m.listSel <= len(m.lists):
		return query.InList(m.lists[m.listSel-1].ID)
	default:
		return query.NoList()
	}
}

func (m Model) listLabel() string {
	switch {
	case m.listSel == 0:
		return "all tasks"
	case m.listSel <= len(m.lists):
		return m.lists[m.listSel-1].Name
	default:
		return "no list"
	}
}

func (m Model) listName(id *int64) string {
	if id == nil {
		return ""
	}
	for _, l := range m.lists {
		if l.ID == *id {
			return l.Name
		}
	}
	return ""
}

func (m Model) listID(name string) (int64, bool) {
	for _, l := range m.lists {
		if strings.EqualFold(l.Name, name) {
			return l.ID, true
		}
	}
	return 0, false
}

func (m Model) today() string {
	return m.now().In(m.loc).Format(storage.DateLayout)
}

func (m Model) formatInstant(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(m.loc).Format("2006-01-02 15:04")
}

func (m Model) detail(t storage.Task) string {
	info := fmt.Sprintf("Task #%d • %s • %s • %s", t.ID, t.Title, t.Status, t.Date)
	if t.StartTime != nil {
		info += " • " + *t.StartTime
		if t.EndTime != nil {
			info += "-" + *t.EndTime
		}
	}
	info += " • priority:" + string(t.Priority)
	if name := m.listName(t.ListID); name != "" {
		info += " • list:" + name
	}
	if t.RemindAt != nil {
		info += " • remind:" + m.formatInstant(t.RemindAt)
	}
	return info
}

func describe(e *result.Error) string {
	if e == nil {
		return ""
	}
	if e.Code == result.Cancelled {
		return "Cancelled"
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func optional(v string) storage.Field[string] {
	v = strings.TrimSpace(v)
	if v == "" {
		return storage.Null[string]()
	}
	return storage.Some(v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var priorityOrder = []storage.Priority{storage.PriorityLow, storage.PriorityMedium, storage.PriorityHigh}

func bumpPriority(p storage.Priority, step int) storage.Priority {
	idx := 1
	for i, q := range priorityOrder {
		if q == p {
			idx = i
		}
	}
	idx += step
	if idx < 0 {
		idx = 0
	}
	if idx >= len(priorityOrder) {
		idx = len(priorityOrder) - 1
	}
	return priorityOrder[idx]
}

func nextFilter(f string) string {
	switch f {
	case "all":
		return "pending"
	case "pending":
		return "completed"
	default:
		return "all"
	}
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
