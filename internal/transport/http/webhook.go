package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kotahealth/healthbot/internal/domain"
)

const headerSignature = "X-Line-Signature"

// Webhook receives an event batch from the messaging platform. The body
// is authenticated with an HMAC-SHA256 signature over the raw bytes; a
// bad signature rejects the whole batch before any event is looked at.
func (h *Handler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read body"})
	}

	if !VerifySignature(h.channelSecret, body, c.Request().Header.Get(headerSignature)) {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
	}

	var batch domain.WebhookBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	// Per-event failures are contained inside the batch; once the
	// signature has verified the platform always gets a 200 so it does
	// not redeliver.
	h.service.HandleBatch(c.Request().Context(), &batch)

	return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
}

// VerifySignature checks the platform signature: base64 of
// HMAC-SHA256(channelSecret, rawBody).
func VerifySignature(channelSecret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	return hmac.Equal(decoded, mac.Sum(nil))
}
