// Package api serves the dashboard: JSON endpoints over the live alert feed
// and participant timers, plus the server-rendered header and overlay pages.
package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/eventconnect/eventconnect/internal/alertfeed"
	"github.com/eventconnect/eventconnect/internal/config"
	"github.com/eventconnect/eventconnect/internal/export"
	"github.com/eventconnect/eventconnect/internal/presence"
	"github.com/eventconnect/eventconnect/internal/types"
	"github.com/eventconnect/eventconnect/internal/version"
	"github.com/eventconnect/eventconnect/internal/webui"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// FeedReader is the read side of the alert feed
type FeedReader interface {
	Alerts() []types.Alert
	UnreadCount() int
	UpdatedAt() time.Time
	Items() []alertfeed.Item
}

// Timers mounts and tears down participant overlays
type Timers interface {
	Mount(participantID string) (*presence.Timer, error)
	Lookup(participantID string) (*presence.Timer, bool)
	Unmount(participantID string) (bool, error)
	Len() int
}

// Server provides HTTP API endpoints and web UI
type Server struct {
	feed       FeedReader
	timers     Timers
	logBuffer  *webui.LogBuffer
	logger     zerolog.Logger
	cfg        config.ServerConfig
	startTime  time.Time
	router     *gin.Engine
	httpServer *http.Server
}

// NewServer creates the dashboard server. logBuffer may be nil.
func NewServer(feed FeedReader, timers Timers, logBuffer *webui.LogBuffer, cfg config.ServerConfig, logger zerolog.Logger) *Server {
	s := &Server{
		feed:      feed,
		timers:    timers,
		logBuffer: logBuffer,
		logger:    logger.With().Str("component", "api").Logger(),
		cfg:       cfg,
		startTime: time.Now(),
	}
	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(Logger(s.logger))

	router.GET("/health", s.handleHealth)
	router.GET("/", s.handleDashboard)

	apiGroup := router.Group("/api")
	apiGroup.GET("/alerts", s.handleAlerts)
	apiGroup.GET("/alerts/export", s.handleExport)
	apiGroup.GET("/logs", s.handleLogs)

	participant := router.Group("", MobileOnly(s.cfg.RequireMobile))
	participant.GET("/api/participants/:id/timer", s.handleTimer)
	participant.POST("/api/participants/:id/timer/dismiss", s.handleDismiss)
	participant.DELETE("/api/participants/:id/timer", s.handleUnmount)
	participant.GET("/participant/:id", s.handleOverlay)

	return router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info().
		Str("address", s.httpServer.Addr).
		Msg("Starting API server with Web UI")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"time":           time.Now().UTC().Format(time.RFC3339),
		"uptime":         time.Since(s.startTime).Round(time.Second).String(),
		"version":        version.Get(),
		"mounted_timers": s.timers.Len(),
	})
}

func (s *Server) handleAlerts(c *gin.Context) {
	resp := gin.H{
		"unreadCount": s.feed.UnreadCount(),
		"alerts":      s.feed.Items(),
	}
	if at := s.feed.UpdatedAt(); !at.IsZero() {
		resp["updatedAt"] = at.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleExport(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, s.feed.Alerts()); err != nil {
		s.logger.Error().Err(err).Str("format", string(format)).Msg("Failed to export alerts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+format.Filename(time.Now())+`"`)
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (s *Server) handleLogs(c *gin.Context) {
	if s.logBuffer == nil {
		c.JSON(http.StatusOK, []webui.LogEntry{})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	c.JSON(http.StatusOK, s.logBuffer.Recent(limit, c.Query("level")))
}

func (s *Server) handleTimer(c *gin.Context) {
	timer, err := s.timers.Mount(c.Param("id"))
	if err != nil {
		s.mountFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, timer.View())
}

func (s *Server) handleDismiss(c *gin.Context) {
	id := c.Param("id")
	timer, ok := s.timers.Lookup(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "timer not mounted"})
		return
	}
	view := timer.Dismiss()

	// The overlay page posts a plain form.
	if c.ContentType() == "application/x-www-form-urlencoded" {
		c.Redirect(http.StatusSeeOther, "/participant/"+id)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleUnmount(c *gin.Context) {
	removed, err := s.timers.Unmount(c.Param("id"))
	if err != nil {
		s.logger.Warn().Err(err).Str("participant_id", c.Param("id")).Msg("Timer teardown reported an error")
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "timer not mounted"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) mountFailed(c *gin.Context, err error) {
	if errors.Is(err, presence.ErrRegistryClosed) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	s.logger.Error().Err(err).Str("participant_id", c.Param("id")).Msg("Failed to mount timer")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start timer"})
}

// DashboardData holds data for the dashboard header page
type DashboardData struct {
	Version     version.Info
	UnreadCount int
	Items       []alertfeed.Item
	UpdatedAt   time.Time
	Logs        []webui.LogEntry
}

// OverlayData holds data for the participant overlay page
type OverlayData struct {
	View     presence.View
	Progress float64
}

func (s *Server) handleDashboard(c *gin.Context) {
	data := DashboardData{
		Version:     version.Get(),
		UnreadCount: s.feed.UnreadCount(),
		Items:       s.feed.Items(),
		UpdatedAt:   s.feed.UpdatedAt(),
	}
	if s.logBuffer != nil {
		data.Logs = s.logBuffer.Recent(100, "")
	}
	s.render(c, "base", data)
}

func (s *Server) handleOverlay(c *gin.Context) {
	timer, err := s.timers.Mount(c.Param("id"))
	if err != nil {
		s.mountFailed(c, err)
		return
	}

	data := OverlayData{View: timer.View()}
	if cd := data.View.Countdown; cd != nil {
		data.Progress = min(100, max(0, cd.PercentageUsed))
	}
	s.render(c, "overlay", data)
}

func (s *Server) render(c *gin.Context, name string, data any) {
	var buf bytes.Buffer
	if err := webui.Templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error().Err(err).Str("template", name).Msg("Failed to render template")
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
