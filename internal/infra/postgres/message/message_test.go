package infra_postgres_message

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/humanbelnik/dinevote/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentMapsAuthors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	driver := New(sqlx.NewDb(db, "postgres"))

	roomID := uuid.New()
	at := time.Date(2026, 10, 16, 19, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM messages").WithArgs(roomID, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "user_id", "guest_name", "content", "created_at"}).
			AddRow(uuid.NewString(), roomID.String(), nil, "bob", "sushi?", at.Add(time.Minute)).
			AddRow(uuid.NewString(), roomID.String(), int64(1), nil, "pizza", at))

	msgs, err := driver.Recent(context.Background(), roomID, 50)

	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.GuestIdentity("bob"), msgs[0].Author)
	assert.Equal(t, model.UserIdentity(1), msgs[1].Author)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	driver := New(sqlx.NewDb(db, "postgres"))

	mock.ExpectExec("INSERT INTO messages").WillReturnResult(sqlmock.NewResult(1, 1))

	msg := model.Message{ID: uuid.New(), RoomID: uuid.New(), Author: model.UserIdentity(2), Content: "hi"}
	got, err := driver.Append(context.Background(), msg)

	require.NoError(t, err)
	assert.Equal(t, msg, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
