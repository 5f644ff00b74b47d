package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novapay/rag-chat-backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.InitSchema())
	return client
}

func TestInsertAndListChatTurns(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute).Truncate(time.Second)
	for i, id := range []string{"t1", "t2", "t3"} {
		require.NoError(t, client.InsertChatTurn(ctx, &models.ChatTurn{
			ID:        id,
			SessionID: "sess-1",
			Question:  "q " + id,
			Answer:    "a " + id,
			LatencyMS: 100 * (i + 1),
			FlowID:    "flow-1",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	turns, err := client.ListChatTurns(ctx, "sess-1", 10)
	require.NoError(t, err)

	require.Len(t, turns, 3)
	assert.Equal(t, "t3", turns[0].ID, "newest first")
	assert.Equal(t, "t1", turns[2].ID)
	assert.Equal(t, "q t3", turns[0].Question)
	assert.Equal(t, "flow-1", turns[0].FlowID)
}

func TestListChatTurnsLimit(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	base := time.Now().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		require.NoError(t, client.InsertChatTurn(ctx, &models.ChatTurn{
			ID:        string(rune('a' + i)),
			SessionID: "sess-1",
			Question:  "q",
			Answer:    "a",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	turns, err := client.ListChatTurns(ctx, "sess-1", 2)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestListChatTurnsIsolatesSessions(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.InsertChatTurn(ctx, &models.ChatTurn{
		ID: "t1", SessionID: "sess-1", Question: "q", Answer: "a", CreatedAt: time.Now(),
	}))
	require.NoError(t, client.InsertChatTurn(ctx, &models.ChatTurn{
		ID: "t2", SessionID: "sess-2", Question: "q", Answer: "a", CreatedAt: time.Now(),
	}))

	turns, err := client.ListChatTurns(ctx, "sess-1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "t1", turns[0].ID)
}

func TestInsertChatTurnReplacesByID(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	turn := &models.ChatTurn{
		ID: "t1", SessionID: "sess-1", Question: "q", Answer: "first", CreatedAt: time.Now(),
	}
	require.NoError(t, client.InsertChatTurn(ctx, turn))

	turn.Answer = "second"
	require.NoError(t, client.InsertChatTurn(ctx, turn))

	turns, err := client.ListChatTurns(ctx, "sess-1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "second", turns[0].Answer)
}
