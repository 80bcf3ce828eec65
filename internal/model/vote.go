package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RoomContext scopes a vote either to a room or to the global context.
// The zero value is the global context.
type RoomContext struct {
	id     uuid.UUID
	scoped bool
}

func GlobalContext() RoomContext {
	return RoomContext{}
}

func InRoom(id uuid.UUID) RoomContext {
	return RoomContext{id: id, scoped: true}
}

func (c RoomContext) RoomID() (uuid.UUID, bool) {
	return c.id, c.scoped
}

func (c RoomContext) IsGlobal() bool {
	return !c.scoped
}

func (c RoomContext) String() string {
	if !c.scoped {
		return "global"
	}
	return c.id.String()
}

func (c RoomContext) MarshalJSON() ([]byte, error) {
	if !c.scoped {
		return []byte("null"), nil
	}
	return json.Marshal(c.id)
}

func (c *RoomContext) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = GlobalContext()
		return nil
	}
	var id uuid.UUID
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	*c = InRoom(id)
	return nil
}

// VoteKey is the uniqueness key of a vote record.
type VoteKey struct {
	Voter        string
	RestaurantID int64
	Context      RoomContext
}

type Vote struct {
	Voter        Identity    `json:"voter"`
	RestaurantID int64       `json:"restaurantId"`
	Context      RoomContext `json:"roomId"`
	Count        int         `json:"voteCount"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func (v Vote) Key() VoteKey {
	return VoteKey{Voter: v.Voter.Key(), RestaurantID: v.RestaurantID, Context: v.Context}
}

// VoteEvent records the effective change a single cast applied to a stored count.
type VoteEvent struct {
	Context      RoomContext
	RestaurantID int64
	Delta        int
	At           time.Time
}

type TallyEntry struct {
	RestaurantID int64 `json:"restaurantId"`
	Votes        int   `json:"votes"`
}

type DailyVotes struct {
	Date       string `json:"date"`
	TotalVotes int    `json:"totalVotes"`
}

type LeaderboardEntry struct {
	Restaurant int64 `json:"restaurant"`
	Votes      int   `json:"votes"`
}
