package infra_postgres_room

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

type roomDTO struct {
	ID         uuid.UUID `db:"id"`
	Code       string    `db:"code"`
	Name       string    `db:"name"`
	Cuisine    string    `db:"cuisine"`
	PriceRange string    `db:"price_range"`
	Latitude   *float64  `db:"latitude"`
	Longitude  *float64  `db:"longitude"`
	Radius     *int      `db:"radius"`
	Active     bool      `db:"active"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r roomDTO) toModel() model.Room {
	return model.Room{
		ID:   r.ID,
		Code: r.Code,
		Name: r.Name,
		Filters: model.Filters{
			Cuisine:    r.Cuisine,
			PriceRange: r.PriceRange,
			Latitude:   r.Latitude,
			Longitude:  r.Longitude,
			Radius:     r.Radius,
		},
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
	}
}

type memberDTO struct {
	ID        uuid.UUID `db:"id"`
	RoomID    uuid.UUID `db:"room_id"`
	UserID    *int64    `db:"user_id"`
	GuestName *string   `db:"guest_name"`
	IsHost    bool      `db:"is_host"`
	JoinedAt  time.Time `db:"joined_at"`
}

type candidateDTO struct {
	RoomID       uuid.UUID `db:"room_id"`
	RestaurantID int64     `db:"restaurant_id"`
	AddedByUser  *int64    `db:"added_by_user"`
	AddedByGuest *string   `db:"added_by_guest"`
	AddedAt      time.Time `db:"added_at"`
}

func (c candidateDTO) toModel() model.Candidate {
	candidate := model.Candidate{
		RoomID:       c.RoomID,
		RestaurantID: c.RestaurantID,
		AddedAt:      c.AddedAt,
	}
	if by := infra_postgres_common.IdentityFromColumns(c.AddedByUser, c.AddedByGuest); !by.IsZero() {
		candidate.AddedBy = &by
	}
	return candidate
}

const roomColumns = `id, code, name, cuisine, price_range, latitude, longitude, radius, active, created_at`

func (d *Driver) Create(ctx context.Context, room model.Room) error {
	dto := roomDTO{
		ID:         room.ID,
		Code:       room.Code,
		Name:       room.Name,
		Cuisine:    room.Filters.Cuisine,
		PriceRange: room.Filters.PriceRange,
		Latitude:   room.Filters.Latitude,
		Longitude:  room.Filters.Longitude,
		Radius:     room.Filters.Radius,
		Active:     room.Active,
		CreatedAt:  room.CreatedAt,
	}

	query := `
		INSERT INTO rooms (id, code, name, cuisine, price_range, latitude, longitude, radius, active, created_at)
		VALUES (:id, :code, :name, :cuisine, :price_range, :latitude, :longitude, :radius, :active, :created_at)
	`

	_, err := d.db.NamedExecContext(ctx, query, dto)
	if err != nil {
		if infra_postgres_common.IsUniqueViolation(err) {
			return model.ErrCodeConflict
		}
		return err
	}
	return nil
}

func (d *Driver) ByCode(ctx context.Context, code string) (model.Room, error) {
	return d.get(ctx, `SELECT `+roomColumns+` FROM rooms WHERE code = $1`, code)
}

func (d *Driver) ByID(ctx context.Context, id uuid.UUID) (model.Room, error) {
	return d.get(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
}

func (d *Driver) get(ctx context.Context, query string, arg any) (model.Room, error) {
	var dto roomDTO
	if err := d.db.GetContext(ctx, &dto, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Room{}, model.ErrNotFound
		}
		return model.Room{}, err
	}
	return dto.toModel(), nil
}

func (d *Driver) Close(ctx context.Context, code string) (model.Room, error) {
	return d.get(ctx, `
		UPDATE rooms
		SET active = FALSE
		WHERE code = $1
		RETURNING `+roomColumns, code)
}

// lockRoom takes the row lock that serializes member and candidate writes of one room.
func lockRoom(ctx context.Context, tx *sqlx.Tx, roomID uuid.UUID) (bool, error) {
	var active bool
	err := tx.GetContext(ctx, &active, `SELECT active FROM rooms WHERE id = $1 FOR UPDATE`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, model.ErrNotFound
	}
	return active, err
}

// WhileActive holds a share lock on the room row while fn runs, so a
// concurrent Close blocks until fn is done.
func (d *Driver) WhileActive(ctx context.Context, roomID uuid.UUID, fn func(context.Context) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var active bool
	err = tx.GetContext(ctx, &active, `SELECT active FROM rooms WHERE id = $1 FOR SHARE`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	if err != nil {
		return err
	}
	if !active {
		return model.ErrRoomClosed
	}

	if err := fn(ctx); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *Driver) AddMember(ctx context.Context, member model.Member) (model.Member, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Member{}, err
	}
	defer tx.Rollback()

	active, err := lockRoom(ctx, tx, member.RoomID)
	if err != nil {
		return model.Member{}, err
	}
	if !active {
		return model.Member{}, model.ErrRoomClosed
	}

	if member.IsHost {
		var hasHost bool
		query := `SELECT EXISTS (SELECT 1 FROM members WHERE room_id = $1 AND is_host)`
		if err := tx.GetContext(ctx, &hasHost, query, member.RoomID); err != nil {
			return model.Member{}, err
		}
		member.IsHost = !hasHost
	}

	userID, guestName := infra_postgres_common.IdentityColumns(member.Identity)
	dto := memberDTO{
		ID:        member.ID,
		RoomID:    member.RoomID,
		UserID:    userID,
		GuestName: guestName,
		IsHost:    member.IsHost,
		JoinedAt:  member.JoinedAt,
	}
	query := `
		INSERT INTO members (id, room_id, user_id, guest_name, is_host, joined_at)
		VALUES (:id, :room_id, :user_id, :guest_name, :is_host, :joined_at)
	`
	if _, err := tx.NamedExecContext(ctx, query, dto); err != nil {
		return model.Member{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Member{}, err
	}
	return member, nil
}

func (d *Driver) Members(ctx context.Context, roomID uuid.UUID) ([]model.Member, error) {
	var rows []memberDTO
	query := `
		SELECT id, room_id, user_id, guest_name, is_host, joined_at
		FROM members
		WHERE room_id = $1
		ORDER BY joined_at, id
	`
	if err := d.db.SelectContext(ctx, &rows, query, roomID); err != nil {
		return nil, err
	}

	members := make([]model.Member, 0, len(rows))
	for _, r := range rows {
		members = append(members, model.Member{
			ID:       r.ID,
			RoomID:   r.RoomID,
			Identity: infra_postgres_common.IdentityFromColumns(r.UserID, r.GuestName),
			IsHost:   r.IsHost,
			JoinedAt: r.JoinedAt,
		})
	}
	return members, nil
}

func (d *Driver) AddCandidate(ctx context.Context, candidate model.Candidate) (model.Candidate, bool, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Candidate{}, false, err
	}
	defer tx.Rollback()

	active, err := lockRoom(ctx, tx, candidate.RoomID)
	if err != nil {
		return model.Candidate{}, false, err
	}

	var existing candidateDTO
	query := `
		SELECT room_id, restaurant_id, added_by_user, added_by_guest, added_at
		FROM room_restaurants
		WHERE room_id = $1 AND restaurant_id = $2
	`
	err = tx.GetContext(ctx, &existing, query, candidate.RoomID, candidate.RestaurantID)
	if err == nil {
		return existing.toModel(), false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Candidate{}, false, err
	}
	if !active {
		return model.Candidate{}, false, model.ErrRoomClosed
	}

	dto := candidateDTO{
		RoomID:       candidate.RoomID,
		RestaurantID: candidate.RestaurantID,
		AddedAt:      candidate.AddedAt,
	}
	if candidate.AddedBy != nil {
		dto.AddedByUser, dto.AddedByGuest = infra_postgres_common.IdentityColumns(*candidate.AddedBy)
	}
	insert := `
		INSERT INTO room_restaurants (room_id, restaurant_id, added_by_user, added_by_guest, added_at)
		VALUES (:room_id, :restaurant_id, :added_by_user, :added_by_guest, :added_at)
	`
	if _, err := tx.NamedExecContext(ctx, insert, dto); err != nil {
		return model.Candidate{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return model.Candidate{}, false, err
	}
	return candidate, true, nil
}

func (d *Driver) Candidates(ctx context.Context, roomID uuid.UUID) ([]model.Candidate, error) {
	var rows []candidateDTO
	query := `
		SELECT room_id, restaurant_id, added_by_user, added_by_guest, added_at
		FROM room_restaurants
		WHERE room_id = $1
		ORDER BY added_at, restaurant_id
	`
	if err := d.db.SelectContext(ctx, &rows, query, roomID); err != nil {
		return nil, err
	}

	candidates := make([]model.Candidate, 0, len(rows))
	for _, r := range rows {
		candidates = append(candidates, r.toModel())
	}
	return candidates, nil
}
