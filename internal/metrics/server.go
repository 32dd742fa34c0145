package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Enabled bool   `default:"false"`
	Host    string `default:"0.0.0.0"`
	Port    string `default:"9090"`
}

// Server exposes /metrics and /healthz.
type Server struct {
	echo   *echo.Echo
	addr   string
	logger *logrus.Logger
}

func NewServer(cfg Config, services []string, logger *logrus.Logger) *Server {
	RegisterMetrics(services, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(instrument)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return &Server{
		echo:   e,
		addr:   net.JoinHostPort(cfg.Host, cfg.Port),
		logger: logger,
	}
}

// Handler is the router, for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves until ctx is done, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.addr).Info("metrics server started")
		err := s.echo.Start(s.addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Stop(context.Background())
	}
}

func (s *Server) Stop(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
