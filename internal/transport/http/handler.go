// Package handler provides the HTTP surface: the signed webhook and the
// read API used by the dashboard.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kotahealth/healthbot/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service       *service.Service
	channelSecret string
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, channelSecret string) *Handler {
	return &Handler{
		service:       svc,
		channelSecret: channelSecret,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhook", h.Webhook)

	e.GET("/v1/users/:user_id/records/:date", h.GetDailyRecord)
	e.GET("/v1/users/:user_id/records", h.GetDailyRecords)
	e.PUT("/v1/users/:user_id/reminders", h.PutReminders)
	e.GET("/v1/users/:user_id/reminders", h.GetReminders)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
