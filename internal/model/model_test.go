package model

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityKey(t *testing.T) {
	assert.Equal(t, "user:7", UserIdentity(7).Key())
	assert.Equal(t, "guest:bob", GuestIdentity("  bob ").Key())
	assert.Equal(t, "user:7", Identity{UserID: 7, GuestName: "bob"}.Key())
	assert.True(t, GuestIdentity("   ").IsZero())
	assert.Equal(t, "anonymous", Identity{}.String())
}

func TestRoomContextJSON(t *testing.T) {
	id := uuid.New()

	raw, err := json.Marshal(Vote{Context: GlobalContext()})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"roomId":null`)

	raw, err = json.Marshal(Vote{Context: InRoom(id)})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"roomId":"`+id.String()+`"`)

	var vote Vote
	require.NoError(t, json.Unmarshal(raw, &vote))
	assert.Equal(t, InRoom(id), vote.Context)

	require.NoError(t, json.Unmarshal([]byte(`{"roomId":null}`), &vote))
	assert.True(t, vote.Context.IsGlobal())
}

func TestRoomContextAsMapKey(t *testing.T) {
	id := uuid.New()
	m := map[RoomContext]int{InRoom(id): 1, GlobalContext(): 2}

	assert.Equal(t, 1, m[InRoom(id)])
	assert.Equal(t, 2, m[RoomContext{}])
	assert.NotEqual(t, InRoom(uuid.Nil), GlobalContext())
}
