package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"MarketScanner/internal/collector"
	"MarketScanner/internal/metrics"
	"MarketScanner/internal/model"
	"MarketScanner/internal/orchestrator"
	"MarketScanner/internal/recorder"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// CycleSource exposes the orchestrator's retained state.
type CycleSource interface {
	Last() *orchestrator.Cycle
	Errors() []model.ScanError
	Count() int
	ClearErrors()
}

// MarketData exposes the store operations served over HTTP.
type MarketData interface {
	CacheStats() collector.CacheStats
	ClearCache()
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
	Indices(ctx context.Context) ([]collector.IndexQuote, error)
}

// TriggerFunc runs a scan cycle on demand.
type TriggerFunc func(ctx context.Context) (*orchestrator.Cycle, error)

// Deps are the collaborators behind the handlers.
type Deps struct {
	Cycles  CycleSource
	Data    MarketData
	History recorder.Recorder
	Trigger TriggerFunc
	Metrics *metrics.Recorder
	// Busy is the error Trigger returns while a cycle is running.
	Busy error
}

// Server wraps the Echo HTTP server.
type Server struct {
	echo *echo.Echo
	addr string
}

// NewServer builds the router with recovery and request logging.
func NewServer(addr string, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	reqLog := log.With().Str("component", "http").Logger()
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := zerolog.DebugLevel
			if v.Status >= http.StatusInternalServerError {
				level = zerolog.WarnLevel
			}
			reqLog.WithLevel(level).Str("method", v.Method).Str("uri", v.URI).
				Int("status", v.Status).Dur("latency", v.Latency).Msg("request")
			return nil
		},
	}))

	h := &handler{deps: deps}
	h.RegisterRoutes(e)

	if reg := deps.Metrics.Registry(); reg != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}
	return &Server{echo: e, addr: addr}
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.addr).Msg("http server listening")
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
		}
	}()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	log.Info().Msg("http server stopped")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo { return s.echo }

// StopTimeout bounds graceful shutdown.
const StopTimeout = 10 * time.Second
