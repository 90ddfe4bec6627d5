// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api serves the analysis pipeline over HTTP. Clients POST raw
// communication text and receive the finished report as JSON.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/bcem/commanalysis/internal/batch"
	"github.com/bcem/commanalysis/internal/models"
	"github.com/bcem/commanalysis/internal/parser"
	"github.com/bcem/commanalysis/internal/pipeline"
	"github.com/bcem/commanalysis/internal/store"
)

// maxBodyBytes caps the request size accepted by the analyze endpoint.
const maxBodyBytes = "2M"

// Runner runs one batch. Implemented by *batch.Runner.
type Runner interface {
	Run(ctx context.Context, req batch.Request) (*batch.Result, error)
}

// ReportReader loads stored reports. Implemented by *store.ReportStore.
type ReportReader interface {
	Get(ctx context.Context, id string) (*models.AnalysisReport, error)
}

// Pinger is a dependency checked by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the server dependencies.
type Config struct {
	Runner Runner
	// Checks maps a dependency name to its health probe.
	Checks map[string]Pinger
	// Reports serves GET /api/v1/reports/:id when set.
	Reports ReportReader
	// RateLimit is requests per second per client IP; zero disables it.
	RateLimit float64
}

// Server is the HTTP front end of the pipeline.
type Server struct {
	echo   *echo.Echo
	runner  Runner
	reports ReportReader
	checks  map[string]Pinger
}

// AnalyzeRequest is the body of POST /api/v1/analyze.
type AnalyzeRequest struct {
	Text           string     `json:"text" validate:"required"`
	Source         string     `json:"source" validate:"omitempty,max=256"`
	Format         string     `json:"format" validate:"omitempty,oneof=email multi_email whatsapp freeform sms text other"`
	Sender         string     `json:"sender" validate:"omitempty,max=256"`
	ConversationID string     `json:"conversation_id" validate:"omitempty,max=256"`
	Timestamp      *time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// requestValidator adapts validator/v10 to echo.Validator.
type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

// NewServer builds the echo instance and registers routes.
func NewServer(cfg Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{v: validator.New()}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				slog.Warn("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Info("request", attrs...)
			return nil
		},
	}))
	if cfg.RateLimit > 0 {
		e.Use(rateLimit(cfg.RateLimit))
	}

	s := &Server{
		echo:    e,
		runner:  cfg.Runner,
		reports: cfg.Reports,
		checks:  cfg.Checks,
	}

	e.GET("/health", s.health)
	e.POST("/api/v1/analyze", s.analyze, middleware.BodyLimit(maxBodyBytes))
	if s.reports != nil {
		e.GET("/api/v1/reports/:id", s.getReport)
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	slog.Info("analysis API listening", "addr", addr)
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down analysis API")
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	for name, p := range s.checks {
		if err := p.Ping(c.Request().Context()); err != nil {
			slog.Warn("health check failed", "dependency", name, "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": name + " unhealthy",
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) analyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	in := pipeline.Input{
		Text: req.Text,
		Hints: parser.Hints{
			Source:         req.Source,
			Sender:         req.Sender,
			ConversationID: req.ConversationID,
			Timestamp:      req.Timestamp,
		},
	}
	if req.Format != "" {
		f, err := models.ParseFormat(req.Format)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
		in.Format = f
	}

	res, err := s.runner.Run(c.Request().Context(), batch.Request{Inputs: []pipeline.Input{in}})
	switch {
	case errors.Is(err, pipeline.ErrEmptyBatch):
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: "no messages found in input"})
	case err != nil:
		slog.Error("analysis failed", "source", req.Source, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "analysis failed"})
	}

	return c.JSON(http.StatusOK, res.Report)
}

func (s *Server) getReport(c echo.Context) error {
	id := c.Param("id")
	r, err := s.reports.Get(c.Request().Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "report not found"})
	case err != nil:
		slog.Error("load report failed", "report_id", id, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "could not load report"})
	}
	return c.JSON(http.StatusOK, r)
}
