package conversation

import (
	"context"
	"time"
)

// Direction marks which way a message travelled relative to the gateway.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Message is a single entry in the append-only conversation log. Messages are
// immutable once created; the store assigns the id and creation timestamp.
type Message struct {
	ID        string    `json:"id"`
	Identity  string    `json:"customer_phone"`
	Direction Direction `json:"direction"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is the derived per-identity conversation view: one entry per
// distinct identity, carrying the timestamp of its most recent message.
type Summary struct {
	Identity      string    `json:"customer_phone"`
	LastMessageAt time.Time `json:"last_at"`
}

// AppendInput is the caller-supplied part of a message. The store fills in
// the id and timestamp.
type AppendInput struct {
	Identity  string
	Direction Direction
	Body      string
}

// Store is the append-only message log plus its derived conversation
// summaries. Implementations must serialize appends and reads against each
// other and guarantee read-your-writes: every append completed before a list
// call is reflected in its result.
type Store interface {
	// Append creates a message from input and adds it to the log. Assigned
	// timestamps are monotonic non-decreasing across appends; ties are broken
	// by append order.
	Append(ctx context.Context, input AppendInput) (Message, error)

	// ListConversations returns one summary per distinct identity, ordered by
	// last activity, most recent first.
	ListConversations(ctx context.Context) ([]Summary, error)

	// ListMessages returns all messages for an identity, oldest first. An
	// unknown identity yields an empty slice, not an error.
	ListMessages(ctx context.Context, identity string) ([]Message, error)
}
