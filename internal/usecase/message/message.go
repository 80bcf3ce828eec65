package usecase_message

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/humanbelnik/dinevote/internal/model"
	usecase_room "github.com/humanbelnik/dinevote/internal/usecase/room"
)

const DefaultRecentLimit = 50

type MessageRepository interface {
	Append(ctx context.Context, msg model.Message) (model.Message, error)
	// Recent returns up to limit messages of the room, newest first.
	Recent(ctx context.Context, roomID uuid.UUID, limit int) ([]model.Message, error)
}

type RoomGuard interface {
	ActiveRoom(ctx context.Context, id uuid.UUID) (model.Room, error)
}

type Usecase struct {
	repository MessageRepository
	rooms      RoomGuard
	now        func() time.Time
}

func New(repository MessageRepository, rooms RoomGuard) *Usecase {
	return &Usecase{
		repository: repository,
		rooms:      rooms,
		now:        time.Now,
	}
}

func (u *Usecase) Send(ctx context.Context, roomID uuid.UUID, author model.Identity, content string) (model.Message, error) {
	if err := usecase_room.ValidateIdentity(author); err != nil {
		return model.Message{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" || len([]rune(content)) > model.MessageMaxLen {
		return model.Message{}, fmt.Errorf("%w: content must be 1..%d characters", model.ErrValidation, model.MessageMaxLen)
	}
	if _, err := u.rooms.ActiveRoom(ctx, roomID); err != nil {
		return model.Message{}, err
	}

	if author.IsUser() {
		author = model.Identity{UserID: author.UserID}
	} else {
		author = model.GuestIdentity(author.GuestName)
	}

	msg, err := u.repository.Append(ctx, model.Message{
		ID:        uuid.New(),
		RoomID:    roomID,
		Author:    author,
		Content:   content,
		CreatedAt: u.now().UTC(),
	})
	if err != nil {
		return model.Message{}, errors.Join(model.ErrInternal, err)
	}
	return msg, nil
}

func (u *Usecase) Recent(ctx context.Context, roomID uuid.UUID, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	msgs, err := u.repository.Recent(ctx, roomID, limit)
	if err != nil {
		return nil, errors.Join(model.ErrInternal, err)
	}
	return msgs, nil
}
