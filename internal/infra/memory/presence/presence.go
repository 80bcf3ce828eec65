package infra_memory_presence

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Driver counts connected sessions per room in process memory.
type Driver struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]map[string]struct{}
}

func New() *Driver {
	return &Driver{rooms: make(map[uuid.UUID]map[string]struct{})}
}

func (d *Driver) Enter(ctx context.Context, roomID uuid.UUID, sessionID string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.rooms[roomID]
	if !ok {
		set = make(map[string]struct{})
		d.rooms[roomID] = set
	}
	set[sessionID] = struct{}{}
	return len(set), nil
}

func (d *Driver) Leave(ctx context.Context, roomID uuid.UUID, sessionID string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.rooms[roomID]
	if !ok {
		return 0, nil
	}
	delete(set, sessionID)
	n := len(set)
	if n == 0 {
		delete(d.rooms, roomID)
	}
	return n, nil
}

func (d *Driver) Count(ctx context.Context, roomID uuid.UUID) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms[roomID]), nil
}
