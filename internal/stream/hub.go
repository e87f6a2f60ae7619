package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	redisPrefix  = "brief:stream:"
	redisPattern = redisPrefix + "*"
	sendBuffer   = 64
)

// Hub fans messages out to websocket clients grouped by channel name
// (for example "post:<id>"). With redis configured, every message goes through
// redis pub/sub so that clients on other instances receive it too.
type Hub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	Channel string
	Send    chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{clients: map[string]map[*Client]struct{}{}}

	if redisClient != nil {
		ctx := context.Background()
		pubsub := redisClient.PSubscribe(ctx, redisPattern)
		if _, err := pubsub.Receive(ctx); err != nil {
			slog.Error("stream: redis subscribe failed, using local delivery", "error", err)
			_ = pubsub.Close()
		} else {
			h.redis = redisClient
			h.pubsub = pubsub
			go h.forward(pubsub.Channel())
		}
	}
	return h
}

func (h *Hub) Register(channel string) *Client {
	client := &Client{Channel: channel, Send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[channel] == nil {
		h.clients[channel] = map[*Client]struct{}{}
	}
	h.clients[channel][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if channelClients, ok := h.clients[client.Channel]; ok {
		if _, registered := channelClients[client]; !registered {
			return
		}
		delete(channelClients, client)
		if len(channelClients) == 0 {
			delete(h.clients, client.Channel)
		}
		close(client.Send)
	}
}

// Subscribers returns the number of local clients listening on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[channel])
}

func (h *Hub) Broadcast(channel string, payload []byte) {
	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(channel), payload).Err()
		if err == nil {
			return
		}
		slog.Warn("stream: redis publish failed, delivering locally", "channel", channel, "error", err)
	}
	h.deliver(channel, payload)
}

// BroadcastJSON marshals v and broadcasts it on channel.
func (h *Hub) BroadcastJSON(channel string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("stream: marshal payload", "channel", channel, "error", err)
		return
	}
	h.Broadcast(channel, payload)
}

func (h *Hub) Close() error {
	if h.pubsub != nil {
		return h.pubsub.Close()
	}
	return nil
}

// deliver never blocks: a client with a full buffer misses the message.
func (h *Hub) deliver(channel string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[channel] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) forward(messages <-chan *redis.Message) {
	for msg := range messages {
		channel := channelFromRedis(msg.Channel)
		if channel == "" {
			continue
		}
		h.deliver(channel, []byte(msg.Payload))
	}
}

func redisChannel(channel string) string {
	return redisPrefix + channel
}

func channelFromRedis(ch string) string {
	if !strings.HasPrefix(ch, redisPrefix) {
		return ""
	}
	return strings.TrimPrefix(ch, redisPrefix)
}

// PostChannel is the channel that carries live counters for a brief.
func PostChannel(postID string) string {
	return "post:" + postID
}

// UserChannel is the channel that carries a user's notification badge updates.
func UserChannel(userID string) string {
	return "user:" + userID
}
