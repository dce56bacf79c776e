// Package server serves the plando operations as a JSON API. Every response
// body is a result envelope.
package server

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"plando/internal/service"
)

type Server struct {
	svc       *service.Service
	router    *gin.Engine
	logger    *log.Logger
	loc       *time.Location
	window    time.Duration
	statsDays int
	now       func() time.Time
}

type Option func(*Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocation sets the zone used for reminder instants given without an
// offset and for the default stats window.
func WithLocation(loc *time.Location) Option {
	return func(s *Server) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithReminderWindow sets the horizon GET /api/reminders uses when no
// within parameter is given.
func WithReminderWindow(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.window = d
		}
	}
}

func WithStatsDays(days int) Option {
	return func(s *Server) {
		if days > 0 {
			s.statsDays = days
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates the API server
func New(svc *service.Service, opts ...Option) *Server {
	s := &Server{
		svc:       svc,
		router:    gin.New(),
		logger:    log.New(io.Discard, "", 0),
		loc:       time.Local,
		window:    time.Hour,
		statsDays: 30,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(gin.Recovery(), requestLogger(s.logger))

	api := s.router.Group("/api")
	{
		api.GET("/lists", s.handleLists)
		api.POST("/lists", s.handleCreateList)
		api.PATCH("/lists/:id", s.handleUpdateList)
		api.DELETE("/lists/:id", s.handleDeleteList)

		api.GET("/tasks", s.handleQueryTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.POST("/tasks/bulk-move", s.handleBulkMove)
		api.GET("/tasks/:id", s.handleGetTask)
		api.PATCH("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.POST("/tasks/:id/toggle", s.handleToggle)
		api.POST("/tasks/:id/remind-now", s.handleRemindNow)

		api.GET("/stats", s.handleStats)

		api.POST("/backup/export", s.handleExport)
		api.POST("/backup/import", s.handleImport)

		api.GET("/reminders", s.handleUpcoming)
		api.POST("/reminders", s.handleSchedule)
		api.POST("/reminders/cancel", s.handleCancel)
		api.POST("/notifications", s.handleNotify)
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Printf("listening on %s", addr)
	return s.router.Run(addr)
}

func requestLogger(l *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Printf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Microsecond))
	}
}
