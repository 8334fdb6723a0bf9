package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is a Postgres-backed Store. It keeps the same semantics as
// MemoryStore: append-only log, created-at ordering with a serial tie-break,
// derived summaries computed from the log on every read.
type PGStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPGStore creates a Store backed by the given connection pool. The schema
// is managed by the migrations under internal/db.
func NewPGStore(log *slog.Logger, pool *pgxpool.Pool) *PGStore {
	if log == nil {
		log = slog.Default()
	}
	return &PGStore{
		pool:   pool,
		logger: log.With(slog.String("service", "conversation")),
	}
}

// Append implements Store.
func (s *PGStore) Append(ctx context.Context, input AppendInput) (Message, error) {
	id := uuid.NewString()
	row := s.pool.QueryRow(ctx,
		`INSERT INTO messages (id, identity, direction, body)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		id, input.Identity, string(input.Direction), input.Body)

	var createdAt time.Time
	if err := row.Scan(&createdAt); err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}
	return Message{
		ID:        id,
		Identity:  input.Identity,
		Direction: input.Direction,
		Body:      input.Body,
		CreatedAt: createdAt.UTC(),
	}, nil
}

// ListConversations implements Store.
func (s *PGStore) ListConversations(ctx context.Context) ([]Summary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT identity, max(created_at) AS last_at
		 FROM messages
		 GROUP BY identity
		 ORDER BY last_at DESC, max(seq) DESC`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	summaries := make([]Summary, 0)
	for rows.Next() {
		var summary Summary
		if err := rows.Scan(&summary.Identity, &summary.LastMessageAt); err != nil {
			return nil, fmt.Errorf("scan conversation summary: %w", err)
		}
		summary.LastMessageAt = summary.LastMessageAt.UTC()
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return summaries, nil
}

// ListMessages implements Store.
func (s *PGStore) ListMessages(ctx context.Context, identity string) ([]Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, identity, direction, body, created_at
		 FROM messages
		 WHERE identity = $1
		 ORDER BY created_at ASC, seq ASC`,
		identity)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var msg Message
		var direction string
		if err := rows.Scan(&msg.ID, &msg.Identity, &direction, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Direction = Direction(direction)
		msg.CreatedAt = msg.CreatedAt.UTC()
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}
