package infra_postgres_message

import (
	"context"
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

type messageDTO struct {
	ID        uuid.UUID `db:"id"`
	RoomID    uuid.UUID `db:"room_id"`
	UserID    *int64    `db:"user_id"`
	GuestName *string   `db:"guest_name"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

func (d *Driver) Append(ctx context.Context, msg model.Message) (model.Message, error) {
	userID, guestName := infra_postgres_common.IdentityColumns(msg.Author)
	dto := messageDTO{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		UserID:    userID,
		GuestName: guestName,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}

	query := `
		INSERT INTO messages (id, room_id, user_id, guest_name, content, created_at)
		VALUES (:id, :room_id, :user_id, :guest_name, :content, :created_at)
	`
	if _, err := d.db.NamedExecContext(ctx, query, dto); err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

func (d *Driver) Recent(ctx context.Context, roomID uuid.UUID, limit int) ([]model.Message, error) {
	var rows []messageDTO
	query := `
		SELECT id, room_id, user_id, guest_name, content, created_at
		FROM messages
		WHERE room_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	if err := d.db.SelectContext(ctx, &rows, query, roomID, limit); err != nil {
		return nil, err
	}

	msgs := make([]model.Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, model.Message{
			ID:        r.ID,
			RoomID:    r.RoomID,
			Author:    infra_postgres_common.IdentityFromColumns(r.UserID, r.GuestName),
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
		})
	}
	return msgs, nil
}
