package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreAppendAssignsIDAndTimestamp(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(nil)
	msg, err := store.Append(context.Background(), AppendInput{
		Identity:  "+15551234567",
		Direction: DirectionInbound,
		Body:      "hi",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())
	assert.Equal(t, "+15551234567", msg.Identity)
	assert.Equal(t, DirectionInbound, msg.Direction)
	assert.Equal(t, "hi", msg.Body)
}

func TestMemoryStoreListMessagesOldestFirst(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(nil)
	ctx := context.Background()
	first, err := store.Append(ctx, AppendInput{Identity: "+15551234567", Direction: DirectionInbound, Body: "one"})
	require.NoError(t, err)
	second, err := store.Append(ctx, AppendInput{Identity: "+15551234567", Direction: DirectionOutbound, Body: "two"})
	require.NoError(t, err)

	messages, err := store.ListMessages(ctx, "+15551234567")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, first.ID, messages[0].ID)
	assert.Equal(t, second.ID, messages[1].ID)
	assert.False(t, messages[1].CreatedAt.Before(messages[0].CreatedAt))
}

func TestMemoryStoreListMessagesUnknownIdentity(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(nil)
	messages, err := store.ListMessages(context.Background(), "+10000000000")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestMemoryStoreListConversationsMostRecentFirst(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{
		base,
		base.Add(1 * time.Second),
		base.Add(2 * time.Second),
	}
	idx := 0
	store.now = func() time.Time {
		at := ticks[idx]
		idx++
		return at
	}
	ctx := context.Background()

	_, err := store.Append(ctx, AppendInput{Identity: "+15551230001", Direction: DirectionInbound, Body: "a"})
	require.NoError(t, err)
	_, err = store.Append(ctx, AppendInput{Identity: "+15551230002", Direction: DirectionInbound, Body: "b"})
	require.NoError(t, err)
	_, err = store.Append(ctx, AppendInput{Identity: "+15551230001", Direction: DirectionOutbound, Body: "c"})
	require.NoError(t, err)

	summaries, err := store.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "+15551230001", summaries[0].Identity)
	assert.Equal(t, base.Add(2*time.Second), summaries[0].LastMessageAt)
	assert.Equal(t, "+15551230002", summaries[1].Identity)
	assert.Equal(t, base.Add(1*time.Second), summaries[1].LastMessageAt)
}

func TestMemoryStoreTimestampsNeverDecrease(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{
		base.Add(2 * time.Second),
		base, // wall clock stepped backwards
		base.Add(1 * time.Second),
	}
	idx := 0
	store.now = func() time.Time {
		at := ticks[idx]
		idx++
		return at
	}
	ctx := context.Background()

	for _, body := range []string{"a", "b", "c"} {
		_, err := store.Append(ctx, AppendInput{Identity: "+15551234567", Direction: DirectionInbound, Body: body})
		require.NoError(t, err)
	}

	messages, err := store.ListMessages(ctx, "+15551234567")
	require.NoError(t, err)
	require.Len(t, messages, 3)
	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
	}
	// The clamped appends share the first timestamp and keep append order.
	assert.Equal(t, "a", messages[0].Body)
	assert.Equal(t, "b", messages[1].Body)
	assert.Equal(t, "c", messages[2].Body)
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(nil)
	ctx := context.Background()
	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := store.Append(ctx, AppendInput{Identity: "+15551234567", Direction: DirectionInbound, Body: "x"})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	messages, err := store.ListMessages(ctx, "+15551234567")
	require.NoError(t, err)
	assert.Len(t, messages, writers*perWriter)
	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
	}

	summaries, err := store.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, messages[len(messages)-1].CreatedAt, summaries[0].LastMessageAt)
}
