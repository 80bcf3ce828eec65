package infra_memory_vote

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/humanbelnik/dinevote/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func TestUpsertCountsAndFloors(t *testing.T) {
	ctx := context.Background()
	d := New()
	room := model.InRoom(uuid.New())
	alice := model.GuestIdentity("alice")

	for range 3 {
		_, err := d.Upsert(ctx, alice, 1, room, 1, at)
		require.NoError(t, err)
	}
	vote, err := d.Upsert(ctx, alice, 1, room, -1, at)
	require.NoError(t, err)
	assert.Equal(t, 2, vote.Count)

	fresh, err := d.Upsert(ctx, alice, 2, room, -1, at)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.Count)

	for range 5 {
		vote, err = d.Upsert(ctx, alice, 1, room, -1, at)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, vote.Count)
}

func TestGlobalAndRoomContextsAreDistinct(t *testing.T) {
	ctx := context.Background()
	d := New()
	roomID := uuid.New()
	bob := model.UserIdentity(2)

	_, err := d.Upsert(ctx, bob, 7, model.GlobalContext(), 1, at)
	require.NoError(t, err)
	_, err = d.Upsert(ctx, bob, 7, model.InRoom(roomID), 1, at)
	require.NoError(t, err)
	_, err = d.Upsert(ctx, bob, 7, model.InRoom(roomID), 1, at)
	require.NoError(t, err)

	global, err := d.RestaurantTally(ctx, model.GlobalContext(), 7)
	require.NoError(t, err)
	scoped, err := d.RestaurantTally(ctx, model.InRoom(roomID), 7)
	require.NoError(t, err)

	assert.Equal(t, 1, global)
	assert.Equal(t, 2, scoped)

	votes, err := d.ByVoter(ctx, bob)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, 2, votes[0].Count)
}

func TestConcurrentVotersSameRestaurant(t *testing.T) {
	const voters = 200
	ctx := context.Background()
	d := New()
	room := model.InRoom(uuid.New())

	var wg sync.WaitGroup
	for i := range voters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Upsert(ctx, model.UserIdentity(int64(i+1)), 1, room, 1, at)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	tally, err := d.Tally(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, []model.TallyEntry{{RestaurantID: 1, Votes: voters}}, tally)
}

func TestConcurrentCastsOnSameKeySerialize(t *testing.T) {
	const casts = 500
	ctx := context.Background()
	d := New()
	room := model.InRoom(uuid.New())
	alice := model.GuestIdentity("alice")

	var wg sync.WaitGroup
	for range casts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Upsert(ctx, alice, 9, room, 1, at)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	votes, err := d.RestaurantTally(ctx, room, 9)
	require.NoError(t, err)
	assert.Equal(t, casts, votes)

	events, err := d.Events(ctx, room, at)
	require.NoError(t, err)
	assert.Len(t, events, casts)
}

func TestTallyKeepsFirstVoteOrder(t *testing.T) {
	ctx := context.Background()
	d := New()
	room := model.InRoom(uuid.New())

	for _, restaurant := range []int64{3, 1, 2, 1} {
		_, err := d.Upsert(ctx, model.GuestIdentity("carol"), restaurant, room, 1, at)
		require.NoError(t, err)
	}

	tally, err := d.Tally(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, []model.TallyEntry{
		{RestaurantID: 3, Votes: 1},
		{RestaurantID: 1, Votes: 2},
		{RestaurantID: 2, Votes: 1},
	}, tally)

	empty, err := d.Tally(ctx, model.InRoom(uuid.New()))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEventsRecordEffectiveChangesOnly(t *testing.T) {
	ctx := context.Background()
	d := New()
	room := model.InRoom(uuid.New())
	dave := model.GuestIdentity("dave")

	_, _ = d.Upsert(ctx, dave, 1, room, -1, at)
	_, _ = d.Upsert(ctx, dave, 1, room, 1, at.Add(time.Hour))
	_, _ = d.Upsert(ctx, dave, 1, room, -1, at.Add(2*time.Hour))
	_, _ = d.Upsert(ctx, dave, 1, room, -1, at.Add(3*time.Hour))

	events, err := d.Events(ctx, room, at)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Delta)
	assert.Equal(t, -1, events[1].Delta)

	later, err := d.Events(ctx, room, at.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Len(t, later, 1)
}
