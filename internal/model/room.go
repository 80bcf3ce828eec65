package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoomCodeLen     = 8
	RoomNameMaxLen  = 100
	GuestNameMaxLen = 50
)

type Filters struct {
	Cuisine    string   `json:"cuisine,omitempty"`
	PriceRange string   `json:"priceRange,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Radius     *int     `json:"radius,omitempty"`
}

type Room struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Filters   Filters   `json:"filters"`
	Active    bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type Member struct {
	ID       uuid.UUID `json:"id"`
	RoomID   uuid.UUID `json:"roomId"`
	Identity Identity  `json:"identity"`
	IsHost   bool      `json:"isHost"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Candidate is a restaurant attached to a room (RoomRestaurant).
type Candidate struct {
	RoomID       uuid.UUID `json:"roomId"`
	RestaurantID int64     `json:"restaurantId"`
	AddedBy      *Identity `json:"addedBy,omitempty"`
	AddedAt      time.Time `json:"addedAt"`
}

// RoomDetails is the nested view served by the room lookup endpoint.
type RoomDetails struct {
	Room       Room        `json:"room"`
	Members    []Member    `json:"members"`
	Candidates []Candidate `json:"candidates"`
	Messages   []Message   `json:"messages"`
}
