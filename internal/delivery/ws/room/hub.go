package ws_room

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Subscriber receives encoded frames for the rooms it is subscribed to.
type Subscriber interface {
	ID() string
	// Deliver enqueues msg without blocking and reports whether it was accepted.
	Deliver(msg []byte) bool
	Close()
}

type Hub struct {
	mu sync.RWMutex

	// Keep track of sets of subscribers within each room
	rooms map[uuid.UUID]map[Subscriber]struct{}

	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:  make(map[uuid.UUID]map[Subscriber]struct{}),
		logger: logger,
	}
}

func (h *Hub) Subscribe(roomID uuid.UUID, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[Subscriber]struct{})
	}
	h.rooms[roomID][sub] = struct{}{}

	h.logger.Debug("subscriber registered", "room_id", roomID, "conn_id", sub.ID())
}

// Unsubscribe reports whether sub was subscribed to the room.
func (h *Hub) Unsubscribe(roomID uuid.UUID, sub Subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := room[sub]; !ok {
		return false
	}
	delete(room, sub)
	if len(room) == 0 {
		delete(h.rooms, roomID)
	}

	h.logger.Debug("subscriber unregistered", "room_id", roomID, "conn_id", sub.ID())
	return true
}

func (h *Hub) Count(roomID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) snapshot(roomID uuid.UUID, except Subscriber) []Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room := h.rooms[roomID]
	subs := make([]Subscriber, 0, len(room))
	for sub := range room {
		if sub != except {
			subs = append(subs, sub)
		}
	}
	return subs
}

// Broadcast encodes event once and hands it to every subscriber of the room
// except the given one. Subscribers that cannot keep up are dropped.
func (h *Hub) Broadcast(roomID uuid.UUID, event Event, except Subscriber) int {
	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode event", "event", event.Event, "error", err)
		return 0
	}

	delivered := 0
	for _, sub := range h.snapshot(roomID, except) {
		if sub.Deliver(msg) {
			delivered++
			continue
		}
		h.logger.Warn("dropping slow subscriber", "room_id", roomID, "conn_id", sub.ID())
		h.Unsubscribe(roomID, sub)
		sub.Close()
	}
	return delivered
}

// Send delivers event to a single subscriber.
func (h *Hub) Send(sub Subscriber, event Event) bool {
	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode event", "event", event.Event, "error", err)
		return false
	}
	return sub.Deliver(msg)
}
