package infra_memory_room

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/humanbelnik/dinevote/internal/model"
)

// roomRecord owns the mutable state of a single room. Its mutex serializes
// mutations of that room only.
type roomRecord struct {
	mu         sync.RWMutex
	room       model.Room
	members    []model.Member
	hasHost    bool
	candidates []model.Candidate
	byRest     map[int64]int
}

// Driver keeps rooms in process memory. The index lock only guards lookups
// and inserts of room records, never per-room mutations.
type Driver struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*roomRecord
	byCode map[string]*roomRecord
}

func New() *Driver {
	return &Driver{
		byID:   make(map[uuid.UUID]*roomRecord),
		byCode: make(map[string]*roomRecord),
	}
}

func (d *Driver) Create(ctx context.Context, room model.Room) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, taken := d.byCode[room.Code]; taken {
		return model.ErrCodeConflict
	}
	rec := &roomRecord{
		room:   room,
		byRest: make(map[int64]int),
	}
	d.byID[room.ID] = rec
	d.byCode[room.Code] = rec
	return nil
}

func (d *Driver) record(id uuid.UUID) (*roomRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.byID[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return rec, nil
}

func (d *Driver) recordByCode(code string) (*roomRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.byCode[code]
	if !ok {
		return nil, model.ErrNotFound
	}
	return rec, nil
}

func (d *Driver) ByCode(ctx context.Context, code string) (model.Room, error) {
	rec, err := d.recordByCode(code)
	if err != nil {
		return model.Room{}, err
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return rec.room, nil
}

func (d *Driver) ByID(ctx context.Context, id uuid.UUID) (model.Room, error) {
	rec, err := d.record(id)
	if err != nil {
		return model.Room{}, err
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return rec.room, nil
}

func (d *Driver) Close(ctx context.Context, code string) (model.Room, error) {
	rec, err := d.recordByCode(code)
	if err != nil {
		return model.Room{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.room.Active = false
	return rec.room, nil
}

func (d *Driver) WhileActive(ctx context.Context, roomID uuid.UUID, fn func(context.Context) error) error {
	rec, err := d.record(roomID)
	if err != nil {
		return err
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()

	if !rec.room.Active {
		return model.ErrRoomClosed
	}
	return fn(ctx)
}

func (d *Driver) AddMember(ctx context.Context, member model.Member) (model.Member, error) {
	rec, err := d.record(member.RoomID)
	if err != nil {
		return model.Member{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if !rec.room.Active {
		return model.Member{}, model.ErrRoomClosed
	}
	if member.IsHost && rec.hasHost {
		member.IsHost = false
	}
	if member.IsHost {
		rec.hasHost = true
	}
	rec.members = append(rec.members, member)
	return member, nil
}

func (d *Driver) Members(ctx context.Context, roomID uuid.UUID) ([]model.Member, error) {
	rec, err := d.record(roomID)
	if err != nil {
		return nil, err
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()

	out := make([]model.Member, len(rec.members))
	copy(out, rec.members)
	return out, nil
}

func (d *Driver) AddCandidate(ctx context.Context, candidate model.Candidate) (model.Candidate, bool, error) {
	rec, err := d.record(candidate.RoomID)
	if err != nil {
		return model.Candidate{}, false, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if idx, ok := rec.byRest[candidate.RestaurantID]; ok {
		return rec.candidates[idx], false, nil
	}
	if !rec.room.Active {
		return model.Candidate{}, false, model.ErrRoomClosed
	}
	rec.byRest[candidate.RestaurantID] = len(rec.candidates)
	rec.candidates = append(rec.candidates, candidate)
	return candidate, true, nil
}

func (d *Driver) Candidates(ctx context.Context, roomID uuid.UUID) ([]model.Candidate, error) {
	rec, err := d.record(roomID)
	if err != nil {
		return nil, err
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()

	out := make([]model.Candidate, len(rec.candidates))
	copy(out, rec.candidates)
	return out, nil
}
