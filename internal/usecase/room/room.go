package usecase_room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/humanbelnik/dinevote/internal/model"
)

const (
	createRetries       = 5
	recentMessagesLimit = 50

	minRadius = 100
	maxRadius = 50000
)

//go:generate mockery --name=RoomRepository --output=./mocks/room/repository --filename=repository.go
type RoomRepository interface {
	// Create fails with model.ErrCodeConflict when the code is taken.
	Create(ctx context.Context, room model.Room) error
	ByCode(ctx context.Context, code string) (model.Room, error)
	ByID(ctx context.Context, id uuid.UUID) (model.Room, error)
	Close(ctx context.Context, code string) (model.Room, error)
	// WhileActive runs fn while the room is held open: Close waits until fn
	// returns. Fails with ErrNotFound or ErrRoomClosed without calling fn.
	WhileActive(ctx context.Context, roomID uuid.UUID, fn func(context.Context) error) error

	// AddMember checks the room is active and stores the member atomically.
	// A host request is downgraded when the room already has a host.
	AddMember(ctx context.Context, member model.Member) (model.Member, error)
	Members(ctx context.Context, roomID uuid.UUID) ([]model.Member, error)

	// AddCandidate returns the existing link and created=false on re-add.
	AddCandidate(ctx context.Context, candidate model.Candidate) (model.Candidate, bool, error)
	Candidates(ctx context.Context, roomID uuid.UUID) ([]model.Candidate, error)
}

type MessageReader interface {
	Recent(ctx context.Context, roomID uuid.UUID, limit int) ([]model.Message, error)
}

type Usecase struct {
	RoomRepository RoomRepository
	Messages       MessageReader

	codeGenerator func() string
	now           func() time.Time
}

type Option func(*Usecase)

func WithCodeGenerator(gen func() string) Option {
	return func(u *Usecase) {
		u.codeGenerator = gen
	}
}

func WithClock(now func() time.Time) Option {
	return func(u *Usecase) {
		u.now = now
	}
}

func WithMessageReader(r MessageReader) Option {
	return func(u *Usecase) {
		u.Messages = r
	}
}

func New(
	RoomRepository RoomRepository,
	opts ...Option,
) *Usecase {
	u := &Usecase{
		RoomRepository: RoomRepository,
		codeGenerator:  buildRoomCode,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *Usecase) CreateRoom(ctx context.Context, name string, filters model.Filters) (model.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > model.RoomNameMaxLen {
		return model.Room{}, fmt.Errorf("%w: name must be 1..%d characters", model.ErrValidation, model.RoomNameMaxLen)
	}
	if filters.Radius != nil && (*filters.Radius < minRadius || *filters.Radius > maxRadius) {
		return model.Room{}, fmt.Errorf("%w: radius must be %d..%d", model.ErrValidation, minRadius, maxRadius)
	}

	// Codes can conflict, retrying with a fresh one.
	for range createRetries {
		room := model.Room{
			ID:        uuid.New(),
			Code:      normalizeCode(u.codeGenerator()),
			Name:      name,
			Filters:   filters,
			Active:    true,
			CreatedAt: u.now().UTC(),
		}
		err := u.RoomRepository.Create(ctx, room)
		if err == nil {
			return room, nil
		}
		if !errors.Is(err, model.ErrCodeConflict) {
			return model.Room{}, errors.Join(model.ErrInternal, err)
		}
	}
	return model.Room{}, model.ErrRoomsUnavailable
}

func (u *Usecase) RoomByCode(ctx context.Context, code string) (model.Room, error) {
	code = normalizeCode(code)
	if code == "" {
		return model.Room{}, fmt.Errorf("%w: empty room code", model.ErrValidation)
	}
	room, err := u.RoomRepository.ByCode(ctx, code)
	if err != nil {
		return model.Room{}, storeErr(err)
	}
	return room, nil
}

func (u *Usecase) RoomByID(ctx context.Context, id uuid.UUID) (model.Room, error) {
	room, err := u.RoomRepository.ByID(ctx, id)
	if err != nil {
		return model.Room{}, storeErr(err)
	}
	return room, nil
}

// Resolve accepts either a room id or a join code.
func (u *Usecase) Resolve(ctx context.Context, ref string) (model.Room, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return u.RoomByID(ctx, id)
	}
	return u.RoomByCode(ctx, ref)
}

func (u *Usecase) Details(ctx context.Context, code string) (model.RoomDetails, error) {
	room, err := u.RoomByCode(ctx, code)
	if err != nil {
		return model.RoomDetails{}, err
	}

	members, err := u.RoomRepository.Members(ctx, room.ID)
	if err != nil {
		return model.RoomDetails{}, storeErr(err)
	}
	candidates, err := u.RoomRepository.Candidates(ctx, room.ID)
	if err != nil {
		return model.RoomDetails{}, storeErr(err)
	}

	messages := []model.Message{}
	if u.Messages != nil {
		messages, err = u.Messages.Recent(ctx, room.ID, recentMessagesLimit)
		if err != nil {
			return model.RoomDetails{}, storeErr(err)
		}
	}

	return model.RoomDetails{
		Room:       room,
		Members:    members,
		Candidates: candidates,
		Messages:   messages,
	}, nil
}

func (u *Usecase) AddMember(ctx context.Context, roomID uuid.UUID, identity model.Identity, asHost bool) (model.Member, error) {
	if err := ValidateIdentity(identity); err != nil {
		return model.Member{}, err
	}

	member, err := u.RoomRepository.AddMember(ctx, model.Member{
		ID:       uuid.New(),
		RoomID:   roomID,
		Identity: normalizeIdentity(identity),
		IsHost:   asHost,
		JoinedAt: u.now().UTC(),
	})
	if err != nil {
		return model.Member{}, storeErr(err)
	}
	return member, nil
}

// Join adds a member by join code. The first member of a room becomes its host.
func (u *Usecase) Join(ctx context.Context, code string, identity model.Identity) (model.Member, error) {
	room, err := u.RoomByCode(ctx, code)
	if err != nil {
		return model.Member{}, err
	}
	if !room.Active {
		return model.Member{}, model.ErrRoomClosed
	}
	return u.AddMember(ctx, room.ID, identity, true)
}

func (u *Usecase) AddCandidate(ctx context.Context, roomID uuid.UUID, restaurantID int64, addedBy *model.Identity) (model.Candidate, bool, error) {
	if restaurantID <= 0 {
		return model.Candidate{}, false, fmt.Errorf("%w: restaurant id must be positive", model.ErrValidation)
	}
	if addedBy != nil {
		if addedBy.IsZero() {
			addedBy = nil
		} else {
			normalized := normalizeIdentity(*addedBy)
			addedBy = &normalized
		}
	}

	candidate, created, err := u.RoomRepository.AddCandidate(ctx, model.Candidate{
		RoomID:       roomID,
		RestaurantID: restaurantID,
		AddedBy:      addedBy,
		AddedAt:      u.now().UTC(),
	})
	if err != nil {
		return model.Candidate{}, false, storeErr(err)
	}
	return candidate, created, nil
}

func (u *Usecase) Candidates(ctx context.Context, roomID uuid.UUID) ([]model.Candidate, error) {
	candidates, err := u.RoomRepository.Candidates(ctx, roomID)
	if err != nil {
		return nil, storeErr(err)
	}
	return candidates, nil
}

func (u *Usecase) CloseRoom(ctx context.Context, code string) (model.Room, error) {
	code = normalizeCode(code)
	if code == "" {
		return model.Room{}, fmt.Errorf("%w: empty room code", model.ErrValidation)
	}
	room, err := u.RoomRepository.Close(ctx, code)
	if err != nil {
		return model.Room{}, storeErr(err)
	}
	return room, nil
}

// ActiveRoom returns the room if it exists and still accepts mutations.
func (u *Usecase) ActiveRoom(ctx context.Context, id uuid.UUID) (model.Room, error) {
	room, err := u.RoomByID(ctx, id)
	if err != nil {
		return model.Room{}, err
	}
	if !room.Active {
		return model.Room{}, model.ErrRoomClosed
	}
	return room, nil
}

// WhileActive runs fn only if the room is active and keeps it from closing
// until fn returns. Errors of fn are returned unchanged.
func (u *Usecase) WhileActive(ctx context.Context, id uuid.UUID, fn func(context.Context) error) error {
	var fnErr error
	err := u.RoomRepository.WhileActive(ctx, id, func(ctx context.Context) error {
		fnErr = fn(ctx)
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func ValidateIdentity(identity model.Identity) error {
	if identity.IsZero() {
		return fmt.Errorf("%w: userId or guestName required", model.ErrValidation)
	}
	if !identity.IsUser() && len([]rune(strings.TrimSpace(identity.GuestName))) > model.GuestNameMaxLen {
		return fmt.Errorf("%w: guest name must be at most %d characters", model.ErrValidation, model.GuestNameMaxLen)
	}
	return nil
}

func normalizeIdentity(identity model.Identity) model.Identity {
	if identity.IsUser() {
		return model.Identity{UserID: identity.UserID}
	}
	return model.GuestIdentity(identity.GuestName)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func buildRoomCode() string {
	return strings.ToUpper(uuid.NewString()[:model.RoomCodeLen])
}

func storeErr(err error) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return model.ErrNotFound
	case errors.Is(err, model.ErrRoomClosed):
		return model.ErrRoomClosed
	case errors.Is(err, model.ErrValidation):
		return err
	default:
		return errors.Join(model.ErrInternal, err)
	}
}
