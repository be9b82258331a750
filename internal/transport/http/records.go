package handler

import (
	"net/http"
	"regexp"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kotahealth/healthbot/internal/domain"
)

var dayPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// GetDailyRecord returns one day's ledger bucket.
func (h *Handler) GetDailyRecord(c echo.Context) error {
	userID := c.Param("user_id")
	day := c.Param("date")
	if !dayPattern.MatchString(day) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
	}

	record, err := h.service.GetDailyRecord(c.Request().Context(), userID, day)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get record"})
	}
	return c.JSON(http.StatusOK, record)
}

// GetDailyRecords returns the buckets for an inclusive day range. The
// range defaults to the last seven days when unset.
func (h *Handler) GetDailyRecords(c echo.Context) error {
	userID := c.Param("user_id")
	from := c.QueryParam("from")
	to := c.QueryParam("to")
	if to == "" {
		to = time.Now().UTC().Format("2006-01-02")
	}
	if from == "" {
		d, _ := time.Parse("2006-01-02", to)
		from = d.AddDate(0, 0, -6).Format("2006-01-02")
	}
	if !dayPattern.MatchString(from) || !dayPattern.MatchString(to) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "from/to must be YYYY-MM-DD"})
	}

	records, err := h.service.GetDailyRecords(c.Request().Context(), userID, from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get records"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"from":    from,
		"to":      to,
		"records": records,
	})
}

type putRemindersRequest struct {
	MorningAt string `json:"morning_at"`
	EveningAt string `json:"evening_at"`
	TZ        string `json:"tz"`
}

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// PutReminders sets a user's reminder times. Empty times disable the
// corresponding prompt.
func (h *Handler) PutReminders(c echo.Context) error {
	userID := c.Param("user_id")

	var req putRemindersRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.MorningAt != "" && !clockPattern.MatchString(req.MorningAt) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "morning_at must be HH:MM"})
	}
	if req.EveningAt != "" && !clockPattern.MatchString(req.EveningAt) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "evening_at must be HH:MM"})
	}
	if req.TZ == "" {
		req.TZ = "UTC"
	}
	if _, err := time.LoadLocation(req.TZ); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown timezone"})
	}

	settings := &domain.ReminderSettings{
		UserID:    userID,
		MorningAt: req.MorningAt,
		EveningAt: req.EveningAt,
		TZ:        req.TZ,
	}
	if err := h.service.SetReminders(c.Request().Context(), settings); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save reminders"})
	}
	return c.JSON(http.StatusOK, settings)
}

// GetReminders returns a user's reminder times.
func (h *Handler) GetReminders(c echo.Context) error {
	userID := c.Param("user_id")

	settings, err := h.service.GetReminders(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get reminders"})
	}
	if settings == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no reminders configured"})
	}
	return c.JSON(http.StatusOK, settings)
}
