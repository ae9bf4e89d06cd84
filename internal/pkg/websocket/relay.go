package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// DefaultRelayChannel is the Redis channel used when none is configured
const DefaultRelayChannel = "classroom:notifications"

// relayMessage is the wire format on the Redis channel
type relayMessage struct {
	Room string          `json:"room"`
	Data json.RawMessage `json:"data"`
}

// RedisRelay fans events out across instances. Publish writes to a Redis channel;
// Run subscribes to it and emits every message into the local hub, so a user
// connected to any instance receives it.
type RedisRelay struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  zerolog.Logger
}

// NewRedisRelay creates a relay over client
func NewRedisRelay(client *redis.Client, channel string, hub *Hub, logger zerolog.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &RedisRelay{
		client:  client,
		channel: channel,
		hub:     hub,
		logger:  logger,
	}
}

// Publish sends event to room on every instance
func (r *RedisRelay) Publish(ctx context.Context, room string, event Event) error {
	payload, err := encodeRelay(room, event)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Run subscribes to the relay channel until ctx is cancelled
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}
	r.logger.Info().Str("channel", r.channel).Msg("Notification relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			room, data, err := decodeRelay([]byte(msg.Payload))
			if err != nil {
				r.logger.Warn().Err(err).Msg("Dropping malformed relay message")
				continue
			}
			if err := r.hub.Emit(ctx, room, data); err != nil {
				r.logger.Debug().Err(err).Str("room", room).Msg("Relay emit failed")
			}
		}
	}
}

func encodeRelay(room string, event Event) ([]byte, error) {
	data, err := encodeEvent(room, event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(relayMessage{Room: room, Data: data})
}

func decodeRelay(payload []byte) (string, []byte, error) {
	var msg relayMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return "", nil, err
	}
	if msg.Room == "" {
		return "", nil, fmt.Errorf("relay message without room")
	}
	return msg.Room, msg.Data, nil
}
