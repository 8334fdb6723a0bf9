package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/smsrelay/smsrelay/internal/auth"
	"github.com/smsrelay/smsrelay/internal/conversation"
	"github.com/smsrelay/smsrelay/internal/gateway"
	"github.com/smsrelay/smsrelay/internal/phone"
)

// MessageHandler exposes the conversation log and outbound sending.
type MessageHandler struct {
	gateway *gateway.Gateway
	store   conversation.Store
	logger  *slog.Logger
}

func NewMessageHandler(log *slog.Logger, gw *gateway.Gateway, store conversation.Store) *MessageHandler {
	if log == nil {
		log = slog.Default()
	}
	return &MessageHandler{
		gateway: gw,
		store:   store,
		logger:  log.With(slog.String("handler", "messages")),
	}
}

func (h *MessageHandler) Register(e *echo.Echo) {
	e.GET("/conversations", h.ListConversations)
	e.GET("/messages", h.ListMessages)
	e.POST("/messages", h.Send)
}

// ListConversations returns one summary per customer, most recently active
// first.
func (h *MessageHandler) ListConversations(c echo.Context) error {
	summaries, err := h.store.ListConversations(c.Request().Context())
	if err != nil {
		h.logger.Error("list conversations failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "list conversations failed")
	}
	if summaries == nil {
		summaries = []conversation.Summary{}
	}
	return c.JSON(http.StatusOK, summaries)
}

// ListMessages returns the full thread for one customer, oldest first. The
// phone query parameter accepts any raw format and is normalized before
// lookup.
func (h *MessageHandler) ListMessages(c echo.Context) error {
	raw := strings.TrimSpace(c.QueryParam("phone"))
	if raw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "phone is required")
	}
	identity := phone.Normalize(raw)

	messages, err := h.store.ListMessages(c.Request().Context(), identity)
	if err != nil {
		h.logger.Error("list messages failed",
			slog.String("identity", identity),
			slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "list messages failed")
	}
	if messages == nil {
		messages = []conversation.Message{}
	}
	return c.JSON(http.StatusOK, messages)
}

type sendRequest struct {
	To   string `json:"to" validate:"required"`
	Body string `json:"body" validate:"required"`
}

type sendResponse struct {
	OK      bool                 `json:"ok"`
	SID     string               `json:"sid"`
	Message conversation.Message `json:"message"`
}

// Send delivers an outbound SMS and appends it to the conversation log on
// carrier acceptance.
func (h *MessageHandler) Send(c echo.Context) error {
	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "to and body are required")
	}

	result, err := h.gateway.Send(c.Request().Context(), req.To, req.Body)
	if err != nil {
		var vErr *gateway.ValidationError
		var dErr *gateway.DeliveryError
		switch {
		case errors.As(err, &vErr):
			return echo.NewHTTPError(http.StatusBadRequest, vErr.Error())
		case errors.Is(err, gateway.ErrCarrierNotConfigured):
			return echo.NewHTTPError(http.StatusInternalServerError, gateway.ErrCarrierNotConfigured.Error())
		case errors.As(err, &dErr):
			h.logger.Error("send failed", slog.Any("error", err))
			return echo.NewHTTPError(http.StatusInternalServerError, "message delivery failed")
		default:
			h.logger.Error("send failed", slog.Any("error", err))
			return echo.NewHTTPError(http.StatusInternalServerError, "send failed")
		}
	}
	if agentID, err := auth.UserIDFromContext(c); err == nil {
		h.logger.Info("send accepted",
			slog.String("agent_id", agentID),
			slog.String("sid", result.SID))
	}
	return c.JSON(http.StatusOK, sendResponse{OK: true, SID: result.SID, Message: result.Message})
}
