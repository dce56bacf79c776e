package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"plando/internal/query"
	"plando/internal/reminder"
	"plando/internal/result"
	"plando/internal/stats"
	"plando/internal/storage"
)

type createListRequest struct {
	Name  string  `json:"name"`
	Color *string `json:"color"`
}

type toggleRequest struct {
	Completed *bool `json:"completed"`
}

type bulkMoveRequest struct {
	IDs []int64 `json:"ids"`
	storage.Move
}

type backupRequest struct {
	Path string `json:"path"`
}

type reminderRequest struct {
	ID    int64  `json:"id"`
	When  string `json:"when"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type notificationRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (s *Server) handleLists(c *gin.Context) {
	respond(c, s.svc.Lists())
}

func (s *Server) handleCreateList(c *gin.Context) {
	var req createListRequest
	if !bind(c, &req, false) {
		return
	}
	respond(c, s.svc.CreateList(req.Name, req.Color))
}

func (s *Server) handleUpdateList(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch storage.ListPatch
	if !bind(c, &patch, false) {
		return
	}
	respond(c, s.svc.UpdateList(id, patch))
}

func (s *Server) handleDeleteList(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	respond(c, s.svc.DeleteList(id))
}

func (s *Server) handleQueryTasks(c *gin.Context) {
	var f query.Filter
	switch raw := c.Query("list_id"); raw {
	case "":
		f.List = query.AnyList()
	case "none", "null":
		f.List = query.NoList()
	default:
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			invalid(c, fmt.Sprintf("list_id %q must be an integer or none", raw))
			return
		}
		f.List = query.InList(id)
	}

	if raw := c.Query("status"); raw != "" {
		st := storage.Status(raw)
		if !st.Valid() {
			invalid(c, fmt.Sprintf("unknown status %q", raw))
			return
		}
		f.Status = st
	}

	f.DateFrom = c.Query("date_from")
	f.DateTo = c.Query("date_to")
	for _, d := range []string{f.DateFrom, f.DateTo} {
		if d != "" && !storage.ValidDate(d) {
			invalid(c, fmt.Sprintf("date %q must be YYYY-MM-DD", d))
			return
		}
	}
	respond(c, s.svc.QueryTasks(f))
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	respond(c, s.svc.GetTask(id))
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var in storage.TaskInput
	if !bind(c, &in, false) {
		return
	}
	respond(c, s.svc.CreateTask(in))
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch storage.TaskPatch
	if !bind(c, &patch, false) {
		return
	}
	respond(c, s.svc.UpdateTask(id, patch))
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	respond(c, s.svc.DeleteTask(id))
}

func (s *Server) handleToggle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req toggleRequest
	if !bind(c, &req, true) {
		return
	}
	respond(c, s.svc.ToggleComplete(id, req.Completed))
}

func (s *Server) handleRemindNow(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	respond(c, s.svc.RemindNow(id))
}

func (s *Server) handleBulkMove(c *gin.Context) {
	var req bulkMoveRequest
	if !bind(c, &req, false) {
		return
	}
	respond(c, s.svc.BulkMove(req.IDs, req.Move))
}

func (s *Server) handleStats(c *gin.Context) {
	from, to := stats.DefaultWindow(s.now().In(s.loc), s.statsDays)
	if v := c.Query("from"); v != "" {
		from = v
	}
	if v := c.Query("to"); v != "" {
		to = v
	}
	respond(c, s.svc.StatsRange(from, to))
}

func (s *Server) handleExport(c *gin.Context) {
	var req backupRequest
	if !bind(c, &req, true) {
		return
	}
	respond(c, s.svc.ExportBackup(c.Request.Context(), req.Path))
}

func (s *Server) handleImport(c *gin.Context) {
	var req backupRequest
	if !bind(c, &req, true) {
		return
	}
	respond(c, s.svc.ImportBackup(c.Request.Context(), req.Path))
}

func (s *Server) handleUpcoming(c *gin.Context) {
	window := s.window
	if raw := c.Query("within"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			invalid(c, fmt.Sprintf("within %q must be a positive duration", raw))
			return
		}
		window = d
	}
	respond(c, s.svc.UpcomingReminders(window))
}

func (s *Server) handleSchedule(c *gin.Context) {
	var req reminderRequest
	if !bind(c, &req, false) {
		return
	}
	at, err := reminder.ParseInstant(req.When, s.loc)
	if err != nil {
		respond(c, result.Fail[any](result.InvalidTime, err.Error()))
		return
	}
	respond(c, s.svc.ScheduleReminder(req.ID, at, req.Title, req.Body))
}

func (s *Server) handleCancel(c *gin.Context) {
	var req reminderRequest
	if !bind(c, &req, false) {
		return
	}
	at, err := reminder.ParseInstant(req.When, s.loc)
	if err != nil {
		respond(c, result.Fail[any](result.InvalidTime, err.Error()))
		return
	}
	respond(c, s.svc.CancelReminder(req.ID, at))
}

func (s *Server) handleNotify(c *gin.Context) {
	var req notificationRequest
	if !bind(c, &req, false) {
		return
	}
	respond(c, s.svc.ShowNotification(req.Title, req.Body))
}

func respond[T any](c *gin.Context, r result.Result[T]) {
	c.JSON(statusFor(r.Error), r)
}

func statusFor(e *result.Error) int {
	if e == nil {
		return http.StatusOK
	}
	switch e.Code.Kind() {
	case result.KindNotFound:
		return http.StatusNotFound
	case result.KindValidation:
		return http.StatusBadRequest
	case result.KindCancelled:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

func invalid(c *gin.Context, msg string) {
	respond(c, result.Fail[any](result.InvalidInput, msg))
}

func pathID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		invalid(c, fmt.Sprintf("id %q must be a positive integer", raw))
		return 0, false
	}
	return id, true
}

// bind decodes the JSON body into v. With optional set an empty body is
// accepted and leaves v untouched.
func bind(c *gin.Context, v any, optional bool) bool {
	err := c.ShouldBindJSON(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	invalid(c, "invalid request body: "+err.Error())
	return false
}
