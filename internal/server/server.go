package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ahmad-alkadri/luna-converter/internal/config"
	"github.com/ahmad-alkadri/luna-converter/internal/handlers"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// Server wraps the echo instance serving the conversion API
type Server struct {
	echo            *echo.Echo
	addr            string
	shutdownTimeout time.Duration
	logger          zerolog.Logger
}

// New builds the HTTP server, its middleware chain and its routes
func New(
	cfg config.ServerConfig,
	upload config.UploadConfig,
	handler *handlers.HTTPHandler,
	metricsHandler http.Handler,
	logger zerolog.Logger,
) *Server {
	logger = logger.With().Str("component", "server").Logger()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(handler.Formatter(), logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.AllowedOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentDisposition, handlers.HeaderArchiveObject},
	}))
	if upload.MaxRequestBytes != "" {
		e.Use(middleware.BodyLimit(upload.MaxRequestBytes))
	}
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: cfg.RequestTimeout,
		}))
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(metricsHandler))
	}
	handler.Register(e)

	return &Server{
		echo:            e,
		addr:            ":" + cfg.Port,
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("HTTP server listening")
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.shutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info().Msg("Shutting down HTTP server")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}

// errorHandler renders every error through formatter.FormatError
func errorHandler(formatter handlers.ResponseFormatter, logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}

		req := c.Request()
		event := logger.Warn()
		if code >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.Err(err).
			Int("status", code).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Msg("Request failed")

		if req.Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, formatter.FormatError(msg))
		}
		if err != nil {
			logger.Error().Err(err).Msg("Failed to write error response")
		}
	}
}

func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info().
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
