package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/events"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTransport(t *testing.T) (*RedisTransport, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	client, err := Connect(context.Background(), config.RedisConfig{Addr: s.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	tr := NewRedisTransport(client)
	tr.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return tr, s
}

func TestEmitToOfflineUserIsNotAnError(t *testing.T) {
	tr, _ := setupTransport(t)

	err := tr.EmitToUser(context.Background(), "nobody", events.ProposalNewComment, map[string]string{"k": "v"})
	assert.NoError(t, err)
}

func TestSubscribeReceivesUserMessages(t *testing.T) {
	tr, _ := setupTransport(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := tr.Subscribe(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, tr.EmitToUser(ctx, "u2", events.ProposalNewComment, "for someone else"))
	require.NoError(t, tr.EmitToUser(ctx, "u1", events.ProposalStatusChanged, map[string]string{"status": "approved"}))

	select {
	case msg := <-stream:
		assert.Equal(t, events.ProposalStatusChanged, msg.Event)
		assert.JSONEq(t, `{"status":"approved"}`, string(msg.Data))
		assert.Equal(t, 2026, msg.SentAt.Year())
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}

	cancel()
	select {
	case _, ok := <-stream:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream was not closed")
	}
}

func TestEmitFailsWhenRedisIsDown(t *testing.T) {
	tr, s := setupTransport(t)
	s.Close()

	err := tr.EmitToUser(context.Background(), "u1", events.ProposalNewComment, nil)
	assert.Error(t, err)
}

func TestMessageShape(t *testing.T) {
	body, err := json.Marshal(Message{Event: "e", Data: json.RawMessage(`1`), SentAt: time.Unix(0, 0).UTC()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"e","data":1,"sent_at":"1970-01-01T00:00:00Z"}`, string(body))
}
