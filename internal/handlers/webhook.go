package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/smsrelay/smsrelay/internal/gateway"
)

// twimlAck is the empty TwiML document Twilio expects in response to an
// inbound SMS webhook.
const twimlAck = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// TwilioWebhookHandler receives inbound SMS deliveries from the carrier.
type TwilioWebhookHandler struct {
	gateway *gateway.Gateway
	logger  *slog.Logger
}

func NewTwilioWebhookHandler(log *slog.Logger, gw *gateway.Gateway) *TwilioWebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &TwilioWebhookHandler{
		gateway: gw,
		logger:  log.With(slog.String("handler", "twilio_webhook")),
	}
}

func (h *TwilioWebhookHandler) Register(e *echo.Echo) {
	e.POST("/webhooks/twilio-sms", h.HandleSMS)
}

// HandleSMS acknowledges the carrier with a 200 TwiML response no matter
// what: Twilio retries non-2xx responses, and a processing failure on our
// side must not trigger redelivery. Internal errors are logged and
// suppressed.
func (h *TwilioWebhookHandler) HandleSMS(c echo.Context) error {
	from := c.FormValue("From")
	body := c.FormValue("Body")

	if _, err := h.gateway.HandleInbound(c.Request().Context(), from, body); err != nil {
		h.logger.Error("inbound webhook processing failed",
			slog.String("from", from),
			slog.Any("error", err))
	}
	return c.Blob(http.StatusOK, echo.MIMETextXMLCharsetUTF8, []byte(twimlAck))
}
