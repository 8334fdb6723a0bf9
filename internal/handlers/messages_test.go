package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smsrelay/smsrelay/internal/conversation"
	"github.com/smsrelay/smsrelay/internal/gateway"
	"github.com/smsrelay/smsrelay/internal/server"
)

type stubCarrier struct {
	sid string
	err error
}

func (s *stubCarrier) Send(context.Context, string, string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.sid, nil
}

func newMessagesEcho() *echo.Echo {
	e := echo.New()
	e.Validator = server.NewValidator()
	return e
}

func seedStore(t *testing.T, store conversation.Store) {
	t.Helper()
	ctx := context.Background()
	_, err := store.Append(ctx, conversation.AppendInput{Identity: "+15551230001", Direction: conversation.DirectionInbound, Body: "first"})
	require.NoError(t, err)
	_, err = store.Append(ctx, conversation.AppendInput{Identity: "+15551230001", Direction: conversation.DirectionOutbound, Body: "second"})
	require.NoError(t, err)
	_, err = store.Append(ctx, conversation.AppendInput{Identity: "+15551230002", Direction: conversation.DirectionInbound, Body: "third"})
	require.NoError(t, err)
}

func TestListConversations(t *testing.T) {
	t.Parallel()

	store := conversation.NewMemoryStore(nil)
	seedStore(t, store)
	h := NewMessageHandler(nil, gateway.New(nil, store, nil, nil), store)

	e := newMessagesEcho()
	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.ListConversations(e.NewContext(req, rec)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []struct {
		CustomerPhone string `json:"customer_phone"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "+15551230002", resp[0].CustomerPhone)
	assert.Equal(t, "+15551230001", resp[1].CustomerPhone)
}

func TestListConversationsEmptyStore(t *testing.T) {
	t.Parallel()

	store := conversation.NewMemoryStore(nil)
	h := NewMessageHandler(nil, gateway.New(nil, store, nil, nil), store)

	e := newMessagesEcho()
	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.ListConversations(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestListMessagesNormalizesPhoneParam(t *testing.T) {
	t.Parallel()

	store := conversation.NewMemoryStore(nil)
	seedStore(t, store)
	h := NewMessageHandler(nil, gateway.New(nil, store, nil, nil), store)

	e := newMessagesEcho()
	q := url.Values{}
	q.Set("phone", "(555) 123-0001")
	req := httptest.NewRequest(http.MethodGet, "/messages?"+q.Encode(), nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.ListMessages(e.NewContext(req, rec)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []struct {
		Body string `json:"body"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "first", resp[0].Body)
	assert.Equal(t, "second", resp[1].Body)
}

func TestListMessagesRequiresPhone(t *testing.T) {
	t.Parallel()

	store := conversation.NewMemoryStore(nil)
	h := NewMessageHandler(nil, gateway.New(nil, store, nil, nil), store)

	e := newMessagesEcho()
	req := httptest.NewRequest(http.MethodGet, "/messages", nil)
	rec := httptest.NewRecorder()
	err := h.ListMessages(e.NewContext(req, rec))

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func postSend(t *testing.T, h *MessageHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := newMessagesEcho()
	req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Send(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	store := conversation.NewMemoryStore(nil)
	gw := gateway.New(nil, store, &stubCarrier{sid: "SM99"}, nil)
	h := NewMessageHandler(nil, gw, store)

	rec := postSend(t, h, `{"to":"555-123-4567","body":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		OK      bool   `json:"ok"`
		SID     string `json:"sid"`
		Message struct {
			CustomerPhone string `json:"customer_phone"`
			Direction     string `json:"direction"`
		} `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "SM99", resp.SID)
	assert.Equal(t, "+15551234567", resp.Message.CustomerPhone)
	assert.Equal(t, "outbound", resp.Message.Direction)
}

func TestSendMessageLogsRequestingAgent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	store := conversation.NewMemoryStore(nil)
	gw := gateway.New(nil, store, &stubCarrier{sid: "SM42"}, nil)
	h := NewMessageHandler(log, gw, store)

	e := newMessagesEcho()
	req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(`{"to":"+15551234567","body":"hello"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user", &jwt.Token{Claims: jwt.MapClaims{"user_id": "agent-7"}, Valid: true})
	require.NoError(t, h.Send(c))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), "agent_id=agent-7")
	assert.Contains(t, buf.String(), "sid=SM42")
}

func TestSendMessageMissingBodyAppendsNothing(t *testing.T) {
	t.Parallel()

	store := conversation.NewMemoryStore(nil)
	gw := gateway.New(nil, store, &stubCarrier{sid: "SM99"}, nil)
	h := NewMessageHandler(nil, gw, store)

	rec := postSend(t, h, `{"to":"+15551234567"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	messages, err := store.ListMessages(context.Background(), "+15551234567")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestSendMessageCarrierNotConfigured(t *testing.T) {
	t.Parallel()

	store := conversation.NewMemoryStore(nil)
	h := NewMessageHandler(nil, gateway.New(nil, store, nil, nil), store)

	rec := postSend(t, h, `{"to":"+15551234567","body":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "carrier is not configured")
}

func TestSendMessageDeliveryFailure(t *testing.T) {
	t.Parallel()

	store := conversation.NewMemoryStore(nil)
	gw := gateway.New(nil, store, &stubCarrier{err: errors.New("undeliverable")}, nil)
	h := NewMessageHandler(nil, gw, store)

	rec := postSend(t, h, `{"to":"+15551234567","body":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	messages, err := store.ListMessages(context.Background(), "+15551234567")
	require.NoError(t, err)
	assert.Empty(t, messages)
}
