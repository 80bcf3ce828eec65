package infra_postgres_common

import (
	"errors"

	"github.com/google/uuid"
	"github.com/humanbelnik/dinevote/internal/model"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// Identity columns are nullable: exactly one of user id or guest name is set.
func IdentityColumns(id model.Identity) (*int64, *string) {
	if id.IsUser() {
		userID := id.UserID
		return &userID, nil
	}
	if id.IsZero() {
		return nil, nil
	}
	name := id.GuestName
	return nil, &name
}

func IdentityFromColumns(userID *int64, guestName *string) model.Identity {
	if userID != nil {
		return model.UserIdentity(*userID)
	}
	if guestName != nil {
		return model.GuestIdentity(*guestName)
	}
	return model.Identity{}
}

func RoomParam(roomCtx model.RoomContext) uuid.NullUUID {
	id, scoped := roomCtx.RoomID()
	return uuid.NullUUID{UUID: id, Valid: scoped}
}

func RoomContextFromColumn(id uuid.NullUUID) model.RoomContext {
	if !id.Valid {
		return model.GlobalContext()
	}
	return model.InRoom(id.UUID)
}
