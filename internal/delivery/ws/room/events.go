package ws_room

import (
	"encoding/json"

	"github.com/humanbelnik/dinevote/internal/model"
)

const (
	EventJoinRoom      = "join-room"
	EventLeaveRoom     = "leave-room"
	EventSendMessage   = "send-message"
	EventVote          = "vote"
	EventAddRestaurant = "add-restaurant"

	EventUserJoined      = "user-joined"
	EventUserLeft        = "user-left"
	EventNewMessage      = "new-message"
	EventVoteUpdated     = "vote-updated"
	EventRestaurantAdded = "restaurant-added"
	EventRoomClosed      = "room-closed"
	EventRoomSnapshot    = "room-snapshot"
	EventError           = "error"
)

// Envelope is the frame shape in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type identityPayload struct {
	UserID    int64  `json:"userId,omitempty"`
	GuestName string `json:"guestName,omitempty"`
}

func (p identityPayload) identity() model.Identity {
	if p.UserID > 0 {
		return model.UserIdentity(p.UserID)
	}
	return model.GuestIdentity(p.GuestName)
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
	identityPayload
}

type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
}

type SendMessagePayload struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
	identityPayload
}

type VotePayload struct {
	RoomID       string `json:"roomId"`
	RestaurantID int64  `json:"restaurantId"`
	Delta        *int   `json:"delta,omitempty"`
	identityPayload
}

type AddRestaurantPayload struct {
	RoomID       string `json:"roomId"`
	RestaurantID int64  `json:"restaurantId"`
	// AddedBy is a user id, as the web client sends it.
	AddedBy *int64 `json:"addedBy,omitempty"`
	identityPayload
}

type UserJoined struct {
	UserID       int64  `json:"userId,omitempty"`
	GuestName    string `json:"guestName,omitempty"`
	ConnectionID string `json:"connectionId"`
	Participants int    `json:"participants"`
}

type UserLeft struct {
	ConnectionID string `json:"connectionId"`
	Participants int    `json:"participants"`
}

type VoteUpdated struct {
	RestaurantID int64              `json:"restaurantId"`
	Votes        int                `json:"votes"`
	TotalVotes   []model.TallyEntry `json:"totalVotes"`
}

type RoomSnapshot struct {
	Room         model.Room         `json:"room"`
	Candidates   []model.Candidate  `json:"candidates"`
	Tally        []model.TallyEntry `json:"tally"`
	Participants int                `json:"participants"`
}

type RoomClosed struct {
	RoomID string `json:"roomId"`
	Code   string `json:"code"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
