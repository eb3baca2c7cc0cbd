package shortener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"rss_relay/internal/metrics"
)

const notFoundHTML = "<h1>404 - Short URL Not Found</h1>"

type shortenRequest struct {
	URL string `json:"url"`
}

type shortenResponse struct {
	ShortCode   string `json:"short_code"`
	OriginalURL string `json:"original_url"`
}

// Server exposes the redirect and creation endpoints of a Service.
type Server struct {
	echo    *echo.Echo
	service *Service
	metrics *metrics.Metrics
	log     *slog.Logger
	addr    string
	ln      net.Listener
}

// NewServer creates a Server that will listen on addr. When m is not nil
// its collectors are served at /metrics.
func NewServer(addr string, service *Service, m *metrics.Metrics, log *slog.Logger) *Server {
	s := &Server{
		echo:    echo.New(),
		service: service,
		metrics: m,
		log:     log,
		addr:    addr,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ctx := c.Request().Context()
			if v.Error == nil {
				log.DebugContext(ctx, "request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				log.WarnContext(ctx, "request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))

	e.GET("/", s.handleRoot)
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
	e.GET("/*", s.handleRedirect)
	e.POST("/shorten", s.handleShorten)
	e.POST("/*", s.handleUnknown)

	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start binds the listen address and serves in the background. Bind
// errors are returned to the caller.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.ln = ln
	s.echo.Listener = ln

	go func() {
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("shortener server", "error", err)
		}
	}()
	s.log.Info("shortener server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address. It is only valid after Start.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Stop stops accepting connections and waits for in-flight requests to
// finish or ctx to expire.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("shortener server stopped")
	return nil
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.HTML(http.StatusOK, "")
}

func (s *Server) handleRedirect(c echo.Context) error {
	code := strings.TrimRight(c.Param("*"), "/)")
	u, ok := s.service.Resolve(code)
	if !ok {
		s.metrics.Redirect(metrics.ResultNotFound)
		return c.HTML(http.StatusNotFound, notFoundHTML)
	}
	s.metrics.Redirect(metrics.ResultFound)
	return c.Redirect(http.StatusFound, u)
}

func (s *Server) handleShorten(c echo.Context) error {
	var req shortenRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json body")
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing url parameter")
	}

	code, err := s.service.Shorten(req.URL)
	if err != nil {
		s.log.Error("shorten url", "url", req.URL, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, shortenResponse{ShortCode: code, OriginalURL: req.URL})
}

func (s *Server) handleUnknown(c echo.Context) error {
	return echo.NewHTTPError(http.StatusNotFound, "endpoint not found")
}
