package activity

import (
	"context"
	"time"

	"github.com/smsrelay/smsrelay/internal/conversation"
)

// Event is one message occurrence to mirror into the CRM.
type Event struct {
	Direction  conversation.Direction
	Identity   string
	Body       string
	OccurredAt time.Time
}

// Log is the external CRM collaborator: contact records keyed by phone
// identity plus timestamped notes. Non-authoritative; every call is
// best-effort.
type Log interface {
	// FindContact looks up a contact by normalized phone identity. found is
	// false when no contact exists; that is not an error.
	FindContact(ctx context.Context, phone string) (id string, found bool, err error)

	CreateContact(ctx context.Context, phone string) (id string, err error)

	AddNote(ctx context.Context, contactID string, event Event) error
}
