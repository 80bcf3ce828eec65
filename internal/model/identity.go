package model

import (
	"strconv"
	"strings"
)

// Identity is either a registered user (UserID > 0) or an anonymous guest.
type Identity struct {
	UserID    int64  `json:"userId,omitempty"`
	GuestName string `json:"guestName,omitempty"`
}

func UserIdentity(id int64) Identity {
	return Identity{UserID: id}
}

func GuestIdentity(name string) Identity {
	return Identity{GuestName: strings.TrimSpace(name)}
}

func (i Identity) IsUser() bool {
	return i.UserID > 0
}

func (i Identity) IsZero() bool {
	return i.UserID <= 0 && strings.TrimSpace(i.GuestName) == ""
}

// Key is a stable voter key. Users win over guest names when both are set.
func (i Identity) Key() string {
	if i.IsUser() {
		return "user:" + strconv.FormatInt(i.UserID, 10)
	}
	return "guest:" + strings.TrimSpace(i.GuestName)
}

func (i Identity) String() string {
	if i.IsZero() {
		return "anonymous"
	}
	return i.Key()
}
