package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/causerie-app/causerie/usecase"
)

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, sessions *usecase.SessionService, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "causerie",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.POST("/session", func(c echo.Context) error {
		return startSession(c, sessions, logger)
	})
	v1.GET("/session", func(c echo.Context) error {
		return sessionStatus(c, sessions)
	})
	v1.DELETE("/session", func(c echo.Context) error {
		return endSession(c, sessions, logger)
	})
	v1.POST("/session/mute", func(c echo.Context) error {
		return toggleMute(c, sessions)
	})
	v1.POST("/session/text", func(c echo.Context) error {
		return sendText(c, sessions, logger)
	})
	v1.GET("/session/transcript", func(c echo.Context) error {
		return getTranscript(c, sessions)
	})
}

func startSession(c echo.Context, sessions *usecase.SessionService, logger *zap.Logger) error {
	session, err := sessions.Start(c.Request().Context())
	if err != nil {
		logger.Error("Failed to start session", zap.Error(err))
		return c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "start_failed",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusCreated, StartSessionResponse{
		ID:        session.ID,
		Phase:     session.Phase,
		StartedAt: session.StartedAt.Format(time.RFC3339),
	})
}

func sessionStatus(c echo.Context, sessions *usecase.SessionService) error {
	status, err := sessions.Status()
	if err != nil {
		return noSession(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

func endSession(c echo.Context, sessions *usecase.SessionService, logger *zap.Logger) error {
	result, err := sessions.End()
	if err != nil {
		return noSession(c, err)
	}
	logger.Info("Session ended via API", zap.String("sessionID", result.Summary.ID))
	return c.JSON(http.StatusOK, result)
}

func toggleMute(c echo.Context, sessions *usecase.SessionService) error {
	muted, err := sessions.ToggleMute()
	if err != nil {
		return noSession(c, err)
	}
	return c.JSON(http.StatusOK, MuteResponse{Muted: muted})
}

func sendText(c echo.Context, sessions *usecase.SessionService, logger *zap.Logger) error {
	var req SendTextRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Text == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Text is required",
		})
	}
	if err := sessions.SendText(req.Text); err != nil {
		if errors.Is(err, usecase.ErrNoActiveSession) {
			return noSession(c, err)
		}
		logger.Error("Failed to send text turn", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "send_failed",
			Message: err.Error(),
		})
	}
	return c.NoContent(http.StatusAccepted)
}

func getTranscript(c echo.Context, sessions *usecase.SessionService) error {
	transcript, err := sessions.Transcript()
	if err != nil {
		return noSession(c, err)
	}
	return c.JSON(http.StatusOK, TranscriptResponse{Transcript: transcript})
}

func noSession(c echo.Context, err error) error {
	return c.JSON(http.StatusNotFound, ErrorResponse{
		Error:   "no_session",
		Message: err.Error(),
	})
}
