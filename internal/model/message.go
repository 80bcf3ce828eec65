package model

import (
	"time"

	"github.com/google/uuid"
)

const MessageMaxLen = 1000

type Message struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"roomId"`
	Author    Identity  `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
