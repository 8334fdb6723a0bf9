package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/smsrelay/smsrelay/internal/activity"
	"github.com/smsrelay/smsrelay/internal/carrier"
	"github.com/smsrelay/smsrelay/internal/conversation"
	"github.com/smsrelay/smsrelay/internal/phone"
)

// Gateway orchestrates inbound webhook handling and outbound sends: phone
// normalization, the conversation log, the carrier, and the CRM side channel.
type Gateway struct {
	store    conversation.Store
	carrier  carrier.Carrier
	recorder *activity.Recorder
	logger   *slog.Logger
}

// SendResult carries the carrier delivery reference and the appended message.
type SendResult struct {
	SID     string
	Message conversation.Message
}

// New creates a gateway. carrier may be nil when outbound sending is
// unconfigured; recorder may be nil-sinked when the CRM is unconfigured.
func New(log *slog.Logger, store conversation.Store, sender carrier.Carrier, recorder *activity.Recorder) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		store:    store,
		carrier:  sender,
		recorder: recorder,
		logger:   log.With(slog.String("service", "gateway")),
	}
}

// HandleInbound processes one carrier webhook delivery. The store append is
// synchronous: its failure fails the call. CRM sync is dispatched to the
// recorder and never awaited.
func (g *Gateway) HandleInbound(ctx context.Context, rawFrom, rawBody string) (conversation.Message, error) {
	identity := phone.Normalize(strings.TrimSpace(rawFrom))
	msg, err := g.store.Append(ctx, conversation.AppendInput{
		Identity:  identity,
		Direction: conversation.DirectionInbound,
		Body:      rawBody,
	})
	if err != nil {
		return conversation.Message{}, fmt.Errorf("append inbound message: %w", err)
	}

	g.logger.Info("inbound message received",
		slog.String("message_id", msg.ID),
		slog.String("identity", msg.Identity))
	g.recordActivity(msg)
	return msg, nil
}

// Send validates the request, delivers through the carrier, and appends the
// outbound message only after carrier acceptance. A carrier failure leaves
// the log untouched.
func (g *Gateway) Send(ctx context.Context, toRaw, body string) (SendResult, error) {
	if strings.TrimSpace(toRaw) == "" {
		return SendResult{}, &ValidationError{Field: "to"}
	}
	if strings.TrimSpace(body) == "" {
		return SendResult{}, &ValidationError{Field: "body"}
	}
	if g.carrier == nil {
		return SendResult{}, ErrCarrierNotConfigured
	}

	identity := phone.Normalize(strings.TrimSpace(toRaw))
	sid, err := g.carrier.Send(ctx, identity, body)
	if err != nil {
		return SendResult{}, &DeliveryError{Err: err}
	}

	msg, err := g.store.Append(ctx, conversation.AppendInput{
		Identity:  identity,
		Direction: conversation.DirectionOutbound,
		Body:      body,
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("append outbound message: %w", err)
	}

	g.logger.Info("outbound message sent",
		slog.String("message_id", msg.ID),
		slog.String("identity", msg.Identity),
		slog.String("sid", sid))
	g.recordActivity(msg)
	return SendResult{SID: sid, Message: msg}, nil
}

func (g *Gateway) recordActivity(msg conversation.Message) {
	if g.recorder == nil {
		return
	}
	g.recorder.Record(activity.Event{
		Direction:  msg.Direction,
		Identity:   msg.Identity,
		Body:       msg.Body,
		OccurredAt: msg.CreatedAt,
	})
}
