package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrHubStopped is returned when emitting to a hub that is no longer running
var ErrHubStopped = errors.New("websocket hub stopped")

// Event is the JSON frame pushed to clients
type Event struct {
	// Type of event, e.g. "notification"
	Type string `json:"type"`

	// Room the event was published to
	Room string `json:"room,omitempty"`

	// Event payload
	Data interface{} `json:"data"`

	// Timestamp when the event was published
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers an event to every connection in a room.
// Delivery is best effort: no acknowledgment, ordering or retry.
type Publisher interface {
	Publish(ctx context.Context, room string, event Event) error
}

// UserRoom returns the room a user's connections join
func UserRoom(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// envelope is a serialized frame addressed to a room
type envelope struct {
	room string
	data []byte
}

// Hub maintains the set of active clients and broadcasts messages to rooms
type Hub struct {
	// Registered clients organized by room
	rooms map[string]map[*Client]bool

	// Frames to deliver
	broadcast chan envelope

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	// Guards rooms for readers outside the Run loop
	mu sync.RWMutex

	// Logger for Hub operations
	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run handles registrations and broadcasts until ctx is cancelled.
// All open client send channels are closed on return.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for room, clients := range h.rooms {
			for client := range clients {
				h.detach(client)
			}
			delete(h.rooms, room)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case env := <-h.broadcast:
			h.broadcastMessage(env)
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// registerClient registers a new client in each of its rooms
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, room := range client.rooms {
		if _, ok := h.rooms[room]; !ok {
			h.rooms[room] = make(map[*Client]bool)
		}
		h.rooms[room][client] = true
	}

	h.logger.Debug().
		Int64("userID", client.userID).
		Strs("rooms", client.rooms).
		Msg("Client registered")
}

// unregisterClient unregisters a client from the hub
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.removeLocked(client) {
		h.logger.Debug().
			Int64("userID", client.userID).
			Msg("Client unregistered")
	}
}

// removeLocked drops client from all rooms. Caller holds mu.
func (h *Hub) removeLocked(client *Client) bool {
	found := false
	for _, room := range client.rooms {
		clients, ok := h.rooms[room]
		if !ok {
			continue
		}
		if _, ok := clients[client]; ok {
			found = true
			delete(clients, client)
		}
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	if found {
		h.detach(client)
	}
	return found
}

// detach closes the client's send channel once
func (h *Hub) detach(client *Client) {
	client.closeOnce.Do(func() { close(client.send) })
}

// broadcastMessage delivers a frame to every client in its room.
// Clients whose send buffer is full are dropped.
func (h *Hub) broadcastMessage(env envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[env.room]
	if !ok {
		h.logger.Debug().Str("room", env.room).Msg("No clients in room for broadcast")
		return
	}

	var slow []*Client
	for client := range clients {
		select {
		case client.send <- env.data:
		default:
			slow = append(slow, client)
		}
	}
	for _, client := range slow {
		h.logger.Warn().
			Int64("userID", client.userID).
			Str("room", env.room).
			Msg("Dropping slow websocket client")
		h.removeLocked(client)
	}
}

// Emit queues raw data for delivery to room
func (h *Hub) Emit(ctx context.Context, room string, data []byte) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.broadcast <- envelope{room: room, data: data}:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish serializes event and emits it to the local room
func (h *Hub) Publish(ctx context.Context, room string, event Event) error {
	data, err := encodeEvent(room, event)
	if err != nil {
		return err
	}
	return h.Emit(ctx, room, data)
}

// ClientCount returns the number of connected clients in a room
func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func encodeEvent(room string, event Event) ([]byte, error) {
	event.Room = room
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return json.Marshal(event)
}
