// Package httpapi exposes admission, session snapshots, scene listings and
// the shared channel relay over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bnema/classroom/internal/application"
	"github.com/bnema/classroom/internal/domain"
	"github.com/bnema/classroom/internal/ports"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Rooms interface {
	Admit(ctx context.Context, req application.JoinRequest) (application.Admission, error)
	Session(sessionID domain.SessionID) (domain.Session, error)
}

// ChannelRelay serves websocket connections for a channel.
type ChannelRelay interface {
	ServeChannel(w http.ResponseWriter, req *http.Request, channelUUID string)
	Close()
}

type Options struct {
	Address            string
	Rooms              Rooms
	Relay              ChannelRelay
	Scenes             ports.SceneStore
	Logger             *slog.Logger
	DisableRequestLogs bool
}

type Server struct {
	opts   Options
	app    *echo.Echo
	logger *slog.Logger
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		opts:   opts,
		app:    echo.New(),
		logger: logger.With("component", "httpapi"),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.HidePort = true

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.Recover())
	if !s.opts.DisableRequestLogs {
		s.app.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			LogMethod:   true,
			LogURIPath:  true,
			LogStatus:   true,
			LogLatency:  true,
			LogError:    true,
			HandleError: true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				attrs := []any{"method", v.Method, "path", v.URIPath, "status", v.Status, "latency", v.Latency}
				if v.Error != nil {
					s.logger.Warn("request failed", append(attrs, "error", v.Error)...)
					return nil
				}
				s.logger.Debug("request", attrs...)
				return nil
			},
		}))
	}

	s.app.HTTPErrorHandler = newHTTPErrorHandler(s.logger)

	s.app.GET("/healthz", health)
	registerSessionAPI(s.app, s.opts.Rooms, s.opts.Scenes)
	if s.opts.Relay != nil {
		relay := s.opts.Relay
		s.app.GET("/channels/:channel/ws", func(c echo.Context) error {
			relay.ServeChannel(c.Response(), c.Request(), c.Param("channel"))
			return nil
		})
	}
}

// Start listens on Options.Address until Stop. It returns nil after a
// graceful stop.
func (s *Server) Start() error {
	s.logger.Info("listening", "address", s.opts.Address)
	if err := s.app.Start(s.opts.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.opts.Relay != nil {
		s.opts.Relay.Close()
	}
	return s.app.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

func health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
