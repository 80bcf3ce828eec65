package infra_postgres_vote

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	infra_postgres_common "github.com/humanbelnik/dinevote/internal/infra/postgres/common"
	"github.com/humanbelnik/dinevote/internal/model"
	"github.com/jmoiron/sqlx"
)

type Driver struct {
	db *sqlx.DB
}

func New(
	db *sqlx.DB,
) *Driver {
	return &Driver{db: db}
}

type voteDTO struct {
	UserID       *int64        `db:"user_id"`
	GuestName    *string       `db:"guest_name"`
	RestaurantID int64         `db:"restaurant_id"`
	RoomID       uuid.NullUUID `db:"room_id"`
	Count        int           `db:"count"`
	PrevCount    int           `db:"prev_count"`
	CreatedAt    time.Time     `db:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at"`
}

func (v voteDTO) toModel() model.Vote {
	return model.Vote{
		Voter:        infra_postgres_common.IdentityFromColumns(v.UserID, v.GuestName),
		RestaurantID: v.RestaurantID,
		Context:      infra_postgres_common.RoomContextFromColumn(v.RoomID),
		Count:        v.Count,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

const voteColumns = `user_id, guest_name, restaurant_id, room_id, count, prev_count, created_at, updated_at`

// Upsert relies on the row lock taken by ON CONFLICT DO UPDATE, so casts on one
// key serialize while different keys proceed in parallel. prev_count keeps the
// count seen by the winning write, which yields the effective delta.
func (d *Driver) Upsert(ctx context.Context, voter model.Identity, restaurantID int64, roomCtx model.RoomContext, delta int, at time.Time) (model.Vote, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Vote{}, err
	}
	defer tx.Rollback()

	userID, guestName := infra_postgres_common.IdentityColumns(voter)
	roomID := infra_postgres_common.RoomParam(roomCtx)

	query := `
		INSERT INTO votes (voter_key, user_id, guest_name, restaurant_id, room_id, count, prev_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, GREATEST(0, $6::int), 0, $7, $7)
		ON CONFLICT (voter_key, restaurant_id, room_id) DO UPDATE
		SET count = GREATEST(0, votes.count + $6::int),
			prev_count = votes.count,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + voteColumns

	var dto voteDTO
	err = tx.GetContext(ctx, &dto, query, voter.Key(), userID, guestName, restaurantID, roomID, delta, at)
	if err != nil {
		return model.Vote{}, err
	}

	if applied := dto.Count - dto.PrevCount; applied != 0 {
		event := `
			INSERT INTO vote_events (room_id, restaurant_id, delta, created_at)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := tx.ExecContext(ctx, event, roomID, restaurantID, applied, at); err != nil {
			return model.Vote{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Vote{}, err
	}
	return dto.toModel(), nil
}

type tallyDTO struct {
	RestaurantID int64 `db:"restaurant_id"`
	Votes        int   `db:"votes"`
}

func (d *Driver) Tally(ctx context.Context, roomCtx model.RoomContext) ([]model.TallyEntry, error) {
	var rows []tallyDTO
	query := `
		SELECT restaurant_id, SUM(count)::int AS votes
		FROM votes
		WHERE room_id IS NOT DISTINCT FROM $1
		GROUP BY restaurant_id
		ORDER BY MIN(id)
	`
	if err := d.db.SelectContext(ctx, &rows, query, infra_postgres_common.RoomParam(roomCtx)); err != nil {
		return nil, err
	}

	tally := make([]model.TallyEntry, 0, len(rows))
	for _, r := range rows {
		tally = append(tally, model.TallyEntry{RestaurantID: r.RestaurantID, Votes: r.Votes})
	}
	return tally, nil
}

func (d *Driver) RestaurantTally(ctx context.Context, roomCtx model.RoomContext, restaurantID int64) (int, error) {
	var votes int
	query := `
		SELECT COALESCE(SUM(count), 0)::int
		FROM votes
		WHERE room_id IS NOT DISTINCT FROM $1 AND restaurant_id = $2
	`
	err := d.db.GetContext(ctx, &votes, query, infra_postgres_common.RoomParam(roomCtx), restaurantID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	return votes, nil
}

func (d *Driver) ByVoter(ctx context.Context, voter model.Identity) ([]model.Vote, error) {
	var rows []voteDTO
	query := `
		SELECT ` + voteColumns + `
		FROM votes
		WHERE voter_key = $1
		ORDER BY count DESC, id
	`
	if err := d.db.SelectContext(ctx, &rows, query, voter.Key()); err != nil {
		return nil, err
	}

	votes := make([]model.Vote, 0, len(rows))
	for _, r := range rows {
		votes = append(votes, r.toModel())
	}
	return votes, nil
}

type eventDTO struct {
	RoomID       uuid.NullUUID `db:"room_id"`
	RestaurantID int64         `db:"restaurant_id"`
	Delta        int           `db:"delta"`
	CreatedAt    time.Time     `db:"created_at"`
}

func (d *Driver) Events(ctx context.Context, roomCtx model.RoomContext, since time.Time) ([]model.VoteEvent, error) {
	var rows []eventDTO
	query := `
		SELECT room_id, restaurant_id, delta, created_at
		FROM vote_events
		WHERE room_id IS NOT DISTINCT FROM $1 AND created_at >= $2
		ORDER BY created_at, id
	`
	if err := d.db.SelectContext(ctx, &rows, query, infra_postgres_common.RoomParam(roomCtx), since); err != nil {
		return nil, err
	}

	events := make([]model.VoteEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, model.VoteEvent{
			Context:      infra_postgres_common.RoomContextFromColumn(r.RoomID),
			RestaurantID: r.RestaurantID,
			Delta:        r.Delta,
			At:           r.CreatedAt,
		})
	}
	return events, nil
}
