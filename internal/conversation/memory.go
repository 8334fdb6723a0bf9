package conversation

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the reference Store implementation: a volatile in-memory log
// guarded by a single mutex. Expected throughput is low enough that one
// serialization point is sufficient.
type MemoryStore struct {
	logger *slog.Logger

	mu       sync.Mutex
	messages map[string][]Message
	lastAt   map[string]time.Time
	lastSeq  map[string]uint64
	clock    time.Time
	seq      uint64
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(log *slog.Logger) *MemoryStore {
	if log == nil {
		log = slog.Default()
	}
	return &MemoryStore{
		logger:   log.With(slog.String("service", "conversation")),
		messages: map[string][]Message{},
		lastAt:   map[string]time.Time{},
		lastSeq:  map[string]uint64{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Append implements Store. Timestamps are clamped to be non-decreasing so a
// backwards wall-clock step cannot reorder the log.
func (s *MemoryStore) Append(_ context.Context, input AppendInput) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.now()
	if at.Before(s.clock) {
		at = s.clock
	}
	s.clock = at
	s.seq++

	msg := Message{
		ID:        uuid.NewString(),
		Identity:  input.Identity,
		Direction: input.Direction,
		Body:      input.Body,
		CreatedAt: at,
	}
	s.messages[msg.Identity] = append(s.messages[msg.Identity], msg)
	s.lastAt[msg.Identity] = at
	s.lastSeq[msg.Identity] = s.seq
	return msg, nil
}

// ListConversations implements Store.
func (s *MemoryStore) ListConversations(_ context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make([]Summary, 0, len(s.lastAt))
	for identity, lastAt := range s.lastAt {
		summaries = append(summaries, Summary{Identity: identity, LastMessageAt: lastAt})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].LastMessageAt.Equal(summaries[j].LastMessageAt) {
			return summaries[i].LastMessageAt.After(summaries[j].LastMessageAt)
		}
		return s.lastSeq[summaries[i].Identity] > s.lastSeq[summaries[j].Identity]
	})
	return summaries, nil
}

// ListMessages implements Store. Messages are stored in append order, which
// matches created-at ascending because assigned timestamps never decrease.
func (s *MemoryStore) ListMessages(_ context.Context, identity string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.messages[identity]
	messages := make([]Message, len(stored))
	copy(messages, stored)
	return messages, nil
}
