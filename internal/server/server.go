// Package server exposes the rotation to the site: theme and state for the
// page, the active media, generated posters and the viewer websocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/hub"
	"github.com/genricoloni/backdrop/internal/player"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const shutdownGrace = 5 * time.Second

// Rotation is the read side of the scheduler
type Rotation interface {
	State() domain.RotationState
	CurrentTheme() domain.Theme
	ActivePlayer() domain.Player
	Items() []domain.MediaItem
}

// contentSource is implemented by players that keep the downloaded media
type contentSource interface {
	Content() ([]byte, bool)
}

// optionsSource is implemented by players with playback attributes
type optionsSource interface {
	Options() player.Options
}

// StateView is the page-facing snapshot of the rotation
type StateView struct {
	State   domain.RotationState `json:"state"`
	Theme   domain.Theme         `json:"theme"`
	Item    *domain.MediaItem    `json:"item,omitempty"`
	Options player.Options       `json:"options"`
	Viewers int                  `json:"viewers"`
}

// Server is the HTTP surface
type Server struct {
	logger   *zap.Logger
	cfg      domain.Config
	rotation Rotation
	hub      *hub.Hub
	posters  domain.PosterRenderer
	engine   *gin.Engine
	srv      *http.Server
	addr     net.Addr
}

// NewServer creates the router
func NewServer(logger *zap.Logger, cfg domain.Config, rotation Rotation, viewers *hub.Hub, posters domain.PosterRenderer) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		logger:   logger,
		cfg:      cfg,
		rotation: rotation,
		hub:      viewers,
		posters:  posters,
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/theme", s.handleTheme)
	api.GET("/state", s.handleState)
	api.GET("/playlist", s.handlePlaylist)

	r.GET("/media/active", s.handleActiveMedia)
	r.GET("/posters/:file", s.handlePoster)
	r.GET("/ws", s.handleWS)

	if dir := cfg.StaticDir(); dir != "" {
		files := http.FileServer(http.Dir(dir))
		r.NoRoute(gin.WrapH(files))
		logger.Info("Serving static assets", zap.String("dir", dir))
	}

	s.engine = r
	return s
}

// Handler returns the router, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start binds the listen address and serves in the background
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	s.addr = ln.Addr()
	s.srv = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()

	s.logger.Info("HTTP server listening", zap.String("addr", s.addr.String()))
	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() net.Addr {
	return s.addr
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleTheme(c *gin.Context) {
	c.JSON(http.StatusOK, s.rotation.CurrentTheme())
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.stateView())
}

func (s *Server) handlePlaylist(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": s.rotation.Items()})
}

// handleActiveMedia serves the downloaded bytes of the on-screen item, or
// sends the page to the origin while the download is still running
func (s *Server) handleActiveMedia(c *gin.Context) {
	active := s.rotation.ActivePlayer()
	if active == nil || active.Source() == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active media"})
		return
	}

	if cs, ok := active.(contentSource); ok {
		if data, ready := cs.Content(); ready && len(data) > 0 {
			c.Header("Cache-Control", "no-store")
			c.Data(http.StatusOK, http.DetectContentType(data), data)
			return
		}
	}

	c.Redirect(http.StatusFound, active.Source())
}

func (s *Server) handlePoster(c *gin.Context) {
	file := c.Param("file")
	name, ok := strings.CutSuffix(file, ".jpg")
	if !ok || name == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown poster"})
		return
	}

	for _, item := range s.rotation.Items() {
		if item.Theme.Name != name {
			continue
		}
		data, err := s.posters.Render(item.Theme)
		if err != nil {
			s.logger.Error("Failed to render poster", zap.String("theme", name), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "poster rendering failed"})
			return
		}
		c.Header("Cache-Control", "public, max-age=86400")
		c.Data(http.StatusOK, "image/jpeg", data)
		return
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "unknown poster"})
}

func (s *Server) handleWS(c *gin.Context) {
	greeting := &hub.Message{Type: hub.MessageTypeState, Data: s.stateView()}
	if err := s.hub.ServeWS(c.Writer, c.Request, greeting); err != nil {
		s.logger.Debug("Websocket upgrade failed", zap.Error(err))
	}
}

func (s *Server) stateView() StateView {
	view := StateView{
		State:   s.rotation.State(),
		Theme:   s.rotation.CurrentTheme(),
		Options: player.DefaultOptions,
		Viewers: s.hub.ClientCount(),
	}

	items := s.rotation.Items()
	if idx := view.State.CurrentIndex; idx >= 0 && idx < len(items) {
		item := items[idx]
		view.Item = &item
	}
	if src, ok := s.rotation.ActivePlayer().(optionsSource); ok {
		view.Options = src.Options()
	}
	return view
}

// requestLogger logs each request through zap
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if status >= http.StatusInternalServerError {
			s.logger.Warn("Request failed", fields...)
			return
		}
		s.logger.Debug("Request served", fields...)
	}
}
