package model

import "errors"

var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("no such resource")
	ErrRoomClosed       = errors.New("room is no longer active")
	ErrCodeConflict     = errors.New("code conflict")
	ErrRoomsUnavailable = errors.New("no available rooms")
	ErrInternal         = errors.New("internal error")
)
