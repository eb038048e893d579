// Package notify carries live notifications to connected users over redis
// pub/sub, one channel per user.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	console "marketplace/internal/utils/logger"

	"github.com/redis/go-redis/v9"
)

var log = console.New("NOTIFY")

// Message is the JSON body published on a user channel.
type Message struct {
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	SentAt time.Time       `json:"sent_at"`
}

// Channel names the pub/sub channel of a user.
func Channel(userID string) string {
	return "user:" + userID
}

// RedisTransport delivers notifications through redis PUBLISH. Nothing is
// stored for users without a live subscription.
type RedisTransport struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisTransport(client *redis.Client) *RedisTransport {
	return &RedisTransport{client: client, now: time.Now}
}

func (t *RedisTransport) EmitToUser(ctx context.Context, userID, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}
	body, err := json.Marshal(Message{Event: event, Data: data, SentAt: t.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode %s message: %w", event, err)
	}

	receivers, err := t.client.Publish(ctx, Channel(userID), body).Result()
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", event, userID, err)
	}
	if receivers == 0 {
		log.Debug("User %s is offline, dropped %s", userID, event)
	}
	return nil
}

// Subscribe streams the messages published for userID until ctx ends. The
// returned channel is closed once the subscription is torn down.
func (t *RedisTransport) Subscribe(ctx context.Context, userID string) (<-chan Message, error) {
	sub := t.client.Subscribe(ctx, Channel(userID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", userID, err)
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		defer sub.Close()

		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-in:
				if !ok {
					return
				}
				var msg Message
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					_ = log.Error("Dropping malformed message on %s", err, raw.Channel)
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
