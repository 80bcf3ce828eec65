package infra_memory_vote

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/humanbelnik/dinevote/internal/model"
)

// entry is one vote record. Its mutex serializes casts for a single
// (voter, restaurant, context) key.
type entry struct {
	mu      sync.Mutex
	vote    model.Vote
	created bool
	events  []model.VoteEvent
}

// ledger indexes the entries of a single context. Its lock is taken for
// writing only when a new key appears in that context.
type ledger struct {
	mu      sync.RWMutex
	order   []int64
	entries map[int64][]*entry
}

type voterIndex struct {
	mu      sync.RWMutex
	entries []*entry
}

type Driver struct {
	entries sync.Map // model.VoteKey -> *entry
	ledgers sync.Map // model.RoomContext -> *ledger
	voters  sync.Map // voter key -> *voterIndex
}

func New() *Driver {
	return &Driver{}
}

func (d *Driver) Upsert(ctx context.Context, voter model.Identity, restaurantID int64, roomCtx model.RoomContext, delta int, at time.Time) (model.Vote, error) {
	key := model.VoteKey{Voter: voter.Key(), RestaurantID: restaurantID, Context: roomCtx}

	e := d.acquire(key, voter, restaurantID, roomCtx, at)
	defer e.mu.Unlock()

	prev := e.vote.Count
	next := prev + delta
	if !e.created {
		e.created = true
		next = delta
	}
	if next < 0 {
		next = 0
	}
	e.vote.Count = next
	e.vote.UpdatedAt = at

	if applied := next - prev; applied != 0 {
		e.events = append(e.events, model.VoteEvent{
			Context:      roomCtx,
			RestaurantID: restaurantID,
			Delta:        applied,
			At:           at,
		})
	}
	return e.vote, nil
}

// acquire returns the locked entry for key, registering a fresh one in the
// context and voter indexes before anyone else can observe it.
func (d *Driver) acquire(key model.VoteKey, voter model.Identity, restaurantID int64, roomCtx model.RoomContext, at time.Time) *entry {
	if v, ok := d.entries.Load(key); ok {
		e := v.(*entry)
		e.mu.Lock()
		return e
	}

	fresh := &entry{vote: model.Vote{
		Voter:        voter,
		RestaurantID: restaurantID,
		Context:      roomCtx,
		CreatedAt:    at,
		UpdatedAt:    at,
	}}
	fresh.mu.Lock()

	v, loaded := d.entries.LoadOrStore(key, fresh)
	if loaded {
		fresh.mu.Unlock()
		e := v.(*entry)
		e.mu.Lock()
		return e
	}

	l := d.ledgerFor(roomCtx)
	l.mu.Lock()
	if _, seen := l.entries[restaurantID]; !seen {
		l.order = append(l.order, restaurantID)
	}
	l.entries[restaurantID] = append(l.entries[restaurantID], fresh)
	l.mu.Unlock()

	vi := d.voterIndexFor(key.Voter)
	vi.mu.Lock()
	vi.entries = append(vi.entries, fresh)
	vi.mu.Unlock()

	return fresh
}

func (d *Driver) ledgerFor(roomCtx model.RoomContext) *ledger {
	if v, ok := d.ledgers.Load(roomCtx); ok {
		return v.(*ledger)
	}
	v, _ := d.ledgers.LoadOrStore(roomCtx, &ledger{entries: make(map[int64][]*entry)})
	return v.(*ledger)
}

func (d *Driver) voterIndexFor(voterKey string) *voterIndex {
	if v, ok := d.voters.Load(voterKey); ok {
		return v.(*voterIndex)
	}
	v, _ := d.voters.LoadOrStore(voterKey, &voterIndex{})
	return v.(*voterIndex)
}

// snapshot copies the entry lists of a context so no ledger lock is held
// while individual entries are read.
func (d *Driver) snapshot(roomCtx model.RoomContext) ([]int64, map[int64][]*entry) {
	v, ok := d.ledgers.Load(roomCtx)
	if !ok {
		return nil, nil
	}
	l := v.(*ledger)
	l.mu.RLock()
	defer l.mu.RUnlock()

	order := make([]int64, len(l.order))
	copy(order, l.order)
	entries := make(map[int64][]*entry, len(l.entries))
	for id, es := range l.entries {
		entries[id] = append([]*entry(nil), es...)
	}
	return order, entries
}

func sum(es []*entry) int {
	total := 0
	for _, e := range es {
		e.mu.Lock()
		total += e.vote.Count
		e.mu.Unlock()
	}
	return total
}

func (d *Driver) Tally(ctx context.Context, roomCtx model.RoomContext) ([]model.TallyEntry, error) {
	order, entries := d.snapshot(roomCtx)
	tally := make([]model.TallyEntry, 0, len(order))
	for _, id := range order {
		tally = append(tally, model.TallyEntry{RestaurantID: id, Votes: sum(entries[id])})
	}
	return tally, nil
}

func (d *Driver) RestaurantTally(ctx context.Context, roomCtx model.RoomContext, restaurantID int64) (int, error) {
	v, ok := d.ledgers.Load(roomCtx)
	if !ok {
		return 0, nil
	}
	l := v.(*ledger)
	l.mu.RLock()
	es := append([]*entry(nil), l.entries[restaurantID]...)
	l.mu.RUnlock()
	return sum(es), nil
}

func (d *Driver) ByVoter(ctx context.Context, voter model.Identity) ([]model.Vote, error) {
	v, ok := d.voters.Load(voter.Key())
	if !ok {
		return []model.Vote{}, nil
	}
	vi := v.(*voterIndex)
	vi.mu.RLock()
	es := append([]*entry(nil), vi.entries...)
	vi.mu.RUnlock()

	votes := make([]model.Vote, 0, len(es))
	for _, e := range es {
		e.mu.Lock()
		votes = append(votes, e.vote)
		e.mu.Unlock()
	}
	sort.SliceStable(votes, func(i, j int) bool {
		return votes[i].Count > votes[j].Count
	})
	return votes, nil
}

// Events returns effective count changes in the context applied at or after since.
func (d *Driver) Events(ctx context.Context, roomCtx model.RoomContext, since time.Time) ([]model.VoteEvent, error) {
	order, entries := d.snapshot(roomCtx)
	events := make([]model.VoteEvent, 0)
	for _, id := range order {
		for _, e := range entries[id] {
			e.mu.Lock()
			for _, ev := range e.events {
				if !ev.At.Before(since) {
					events = append(events, ev)
				}
			}
			e.mu.Unlock()
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].At.Before(events[j].At)
	})
	return events, nil
}
