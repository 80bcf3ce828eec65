package infra_memory_message

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/humanbelnik/dinevote/internal/model"
)

type roomLog struct {
	mu   sync.RWMutex
	msgs []model.Message
}

// Driver keeps an append-only message log per room.
type Driver struct {
	rooms sync.Map // uuid.UUID -> *roomLog
}

func New() *Driver {
	return &Driver{}
}

func (d *Driver) logFor(roomID uuid.UUID) *roomLog {
	v, _ := d.rooms.LoadOrStore(roomID, &roomLog{})
	return v.(*roomLog)
}

func (d *Driver) Append(ctx context.Context, msg model.Message) (model.Message, error) {
	l := d.logFor(msg.RoomID)
	l.mu.Lock()
	defer l.mu.Unlock()

	// Creation order must match timestamp order within a room.
	if n := len(l.msgs); n > 0 && msg.CreatedAt.Before(l.msgs[n-1].CreatedAt) {
		msg.CreatedAt = l.msgs[n-1].CreatedAt
	}
	l.msgs = append(l.msgs, msg)
	return msg, nil
}

func (d *Driver) Recent(ctx context.Context, roomID uuid.UUID, limit int) ([]model.Message, error) {
	v, ok := d.rooms.Load(roomID)
	if !ok {
		return []model.Message{}, nil
	}
	l := v.(*roomLog)
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.msgs)
	if limit > n {
		limit = n
	}
	out := make([]model.Message, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, l.msgs[i])
	}
	return out, nil
}
