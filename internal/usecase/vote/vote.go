package usecase_vote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/humanbelnik/dinevote/internal/model"
	usecase_room "github.com/humanbelnik/dinevote/internal/usecase/room"
)

const DefaultMaxDelta = 1

//go:generate mockery --name=VoteRepository --output=./mocks/vote/repository --filename=repository.go
type VoteRepository interface {
	// Upsert applies delta to the (voter, restaurant, context) record atomically.
	// A fresh record starts at max(0, delta); stored counts never go below zero.
	Upsert(ctx context.Context, voter model.Identity, restaurantID int64, roomCtx model.RoomContext, delta int, at time.Time) (model.Vote, error)
	// Tally returns per-restaurant sums in first-vote order.
	Tally(ctx context.Context, roomCtx model.RoomContext) ([]model.TallyEntry, error)
	RestaurantTally(ctx context.Context, roomCtx model.RoomContext, restaurantID int64) (int, error)
	ByVoter(ctx context.Context, voter model.Identity) ([]model.Vote, error)
}

type RoomGuard interface {
	// WhileActive runs fn only while the room is active and cannot be closed.
	WhileActive(ctx context.Context, id uuid.UUID, fn func(context.Context) error) error
}

type Usecase struct {
	voteRepository VoteRepository
	rooms          RoomGuard

	maxDelta int
	now      func() time.Time
}

type Option func(*Usecase)

func WithMaxDelta(maxDelta int) Option {
	return func(u *Usecase) {
		if maxDelta > 0 {
			u.maxDelta = maxDelta
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(u *Usecase) {
		u.now = now
	}
}

func New(
	r VoteRepository,
	rooms RoomGuard,
	opts ...Option,
) *Usecase {
	u := &Usecase{
		voteRepository: r,
		rooms:          rooms,
		maxDelta:       DefaultMaxDelta,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *Usecase) MaxDelta() int {
	return u.maxDelta
}

func (u *Usecase) CastVote(ctx context.Context, voter model.Identity, restaurantID int64, roomCtx model.RoomContext, delta int) (model.Vote, error) {
	if err := usecase_room.ValidateIdentity(voter); err != nil {
		return model.Vote{}, err
	}
	if restaurantID <= 0 {
		return model.Vote{}, fmt.Errorf("%w: restaurant id must be positive", model.ErrValidation)
	}
	if delta == 0 || delta > u.maxDelta || delta < -u.maxDelta {
		return model.Vote{}, fmt.Errorf("%w: delta must be within [-%d, %d] and non-zero", model.ErrValidation, u.maxDelta, u.maxDelta)
	}

	var vote model.Vote
	upsert := func(ctx context.Context) error {
		var err error
		vote, err = u.voteRepository.Upsert(ctx, normalizeVoter(voter), restaurantID, roomCtx, delta, u.now().UTC())
		if err != nil {
			return storeErr(err)
		}
		return nil
	}

	var err error
	if roomID, scoped := roomCtx.RoomID(); scoped {
		err = u.rooms.WhileActive(ctx, roomID, upsert)
	} else {
		err = upsert(ctx)
	}
	if err != nil {
		return model.Vote{}, err
	}
	return vote, nil
}

func (u *Usecase) RoomTally(ctx context.Context, roomCtx model.RoomContext) ([]model.TallyEntry, error) {
	tally, err := u.voteRepository.Tally(ctx, roomCtx)
	if err != nil {
		return nil, storeErr(err)
	}
	return tally, nil
}

func (u *Usecase) RestaurantTally(ctx context.Context, roomCtx model.RoomContext, restaurantID int64) (int, error) {
	votes, err := u.voteRepository.RestaurantTally(ctx, roomCtx, restaurantID)
	if err != nil {
		return 0, storeErr(err)
	}
	return votes, nil
}

func (u *Usecase) VotesByVoter(ctx context.Context, voter model.Identity) ([]model.Vote, error) {
	if err := usecase_room.ValidateIdentity(voter); err != nil {
		return nil, err
	}
	votes, err := u.voteRepository.ByVoter(ctx, normalizeVoter(voter))
	if err != nil {
		return nil, storeErr(err)
	}
	return votes, nil
}

func normalizeVoter(voter model.Identity) model.Identity {
	if voter.IsUser() {
		return model.Identity{UserID: voter.UserID}
	}
	return model.GuestIdentity(voter.GuestName)
}

func storeErr(err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrNotFound
	}
	return errors.Join(model.ErrInternal, err)
}
