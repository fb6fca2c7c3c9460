// Package server exposes the query pipeline over HTTP for the chat UI.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/helpdesk-ai/helpdesk/internal/access"
	"github.com/helpdesk-ai/helpdesk/internal/rag"
)

// Answerer answers the latest user message of a conversation.
type Answerer interface {
	Answer(ctx context.Context, email string, messages []rag.Message) (string, error)
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Email    string        `json:"email"`
	Messages []rag.Message `json:"messages"`
}

// Server is the HTTP entry point consumed by the chat UI.
type Server struct {
	echo     *echo.Echo
	pipeline Answerer
	logger   *log.Logger
}

// New creates a new server around the given pipeline
func New(pipeline Answerer, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		pipeline: pipeline,
		logger:   logger,
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.POST("/api/chat", s.handleChat)

	return s
}

// handleChat runs one query turn. Pipeline failures are reported to the
// client as generic statuses; raw error detail stays in the server log.
func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "Bad Request")
	}

	answer, err := s.pipeline.Answer(c.Request().Context(), req.Email, req.Messages)
	if err != nil {
		switch {
		case errors.Is(err, access.ErrUnauthorized):
			s.logger.Printf("unauthorized chat request from %s", req.Email)
			return c.String(http.StatusUnauthorized, "Unauthorized")
		case errors.Is(err, rag.ErrNoQuestion):
			return c.String(http.StatusBadRequest, "Bad Request")
		default:
			s.logger.Printf("chat turn failed for %s: %v", req.Email, err)
			return c.String(http.StatusInternalServerError, "Internal Server Error")
		}
	}

	return c.String(http.StatusOK, answer)
}

// Start begins serving on addr and blocks until shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Printf("listening on %s", addr)
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
