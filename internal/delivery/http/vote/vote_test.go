package http_vote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	infra_memory_room "github.com/humanbelnik/dinevote/internal/infra/memory/room"
	infra_memory_vote "github.com/humanbelnik/dinevote/internal/infra/memory/vote"
	"github.com/humanbelnik/dinevote/internal/model"
	usecase_room "github.com/humanbelnik/dinevote/internal/usecase/room"
	usecase_tally "github.com/humanbelnik/dinevote/internal/usecase/tally"
	usecase_vote "github.com/humanbelnik/dinevote/internal/usecase/vote"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
)

type published struct {
	roomID       uuid.UUID
	restaurantID int64
}

type recordingPublisher struct {
	calls []published
}

func (p *recordingPublisher) PublishVote(_ context.Context, roomID uuid.UUID, restaurantID int64) error {
	p.calls = append(p.calls, published{roomID: roomID, restaurantID: restaurantID})
	return nil
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type VoteControllerSuite struct {
	suite.Suite

	engine    *gin.Engine
	publisher *recordingPublisher
	room      model.Room
}

func (s *VoteControllerSuite) BeforeEach(t provider.T) {
	gin.SetMode(gin.TestMode)

	rooms := usecase_room.New(infra_memory_room.New(), usecase_room.WithCodeGenerator(func() string { return "FRIDAY01" }))
	store := infra_memory_vote.New()
	votes := usecase_vote.New(store, rooms)
	tally := usecase_tally.New(store)

	room, err := rooms.CreateRoom(context.Background(), "Friday dinner", model.Filters{})
	t.Require().NoError(err)
	s.room = room

	s.publisher = &recordingPublisher{}
	s.engine = gin.New()
	New(votes, rooms, tally, s.publisher, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))).
		RegisterRoutes(s.engine.Group("/api/v1"))
}

func (s *VoteControllerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t provider.T, w *httptest.ResponseRecorder) envelope[T] {
	var out envelope[T]
	t.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (s *VoteControllerSuite) TestCastRoomVote(t provider.T) {
	body := fmt.Sprintf(`{"restaurantId":1,"roomId":%q,"guestName":"alice"}`, s.room.Code)
	w := s.do(http.MethodPost, "/api/v1/votes", body)
	t.Require().Equal(http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[model.Vote](t, w).Data.Count)

	body = fmt.Sprintf(`{"restaurantId":1,"roomId":%q,"userId":2}`, s.room.ID)
	t.Require().Equal(http.StatusOK, s.do(http.MethodPost, "/api/v1/votes", body).Code)

	assert.Equal(t, []published{{s.room.ID, 1}, {s.room.ID, 1}}, s.publisher.calls)

	w = s.do(http.MethodGet, "/api/v1/votes/room/"+s.room.ID.String(), "")
	t.Require().Equal(http.StatusOK, w.Code)
	assert.Equal(t, []model.TallyEntry{{RestaurantID: 1, Votes: 2}}, decode[[]model.TallyEntry](t, w).Data)

	w = s.do(http.MethodGet, "/api/v1/votes/leaderboard?roomId="+s.room.Code, "")
	t.Require().Equal(http.StatusOK, w.Code)
	assert.Equal(t, []model.LeaderboardEntry{{Restaurant: 1, Votes: 2}}, decode[[]model.LeaderboardEntry](t, w).Data)
}

func (s *VoteControllerSuite) TestGlobalVote(t provider.T) {
	w := s.do(http.MethodPost, "/api/v1/votes", `{"restaurantId":5,"increment":-1,"userId":1}`)
	t.Require().Equal(http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[model.Vote](t, w).Data.Count)
	assert.Empty(t, s.publisher.calls)

	s.do(http.MethodPost, "/api/v1/votes", `{"restaurantId":5,"userId":1}`)

	w = s.do(http.MethodGet, "/api/v1/votes/mine?userId=1", "")
	t.Require().Equal(http.StatusOK, w.Code)
	mine := decode[[]json.RawMessage](t, w).Data
	assert.Len(t, mine, 1)
	assert.Contains(t, string(mine[0]), `"roomId":null`)

	w = s.do(http.MethodGet, "/api/v1/votes/leaderboard", "")
	t.Require().Equal(http.StatusOK, w.Code)
	assert.Equal(t, []model.LeaderboardEntry{{Restaurant: 5, Votes: 1}}, decode[[]model.LeaderboardEntry](t, w).Data)
}

func (s *VoteControllerSuite) TestValidation(t provider.T) {
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/votes", `{"userId":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/votes", `{"restaurantId":1,"increment":2,"userId":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/votes", `{"restaurantId":1}`).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/v1/votes", `{"restaurantId":1,"roomId":"NOPE0000","userId":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/votes/leaderboard?limit=0", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/votes/leaderboard?limit=abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/votes/trend?days=31", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/votes/trend?tz=Mars/Olympus", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/votes/mine", "").Code)
}

func (s *VoteControllerSuite) TestTrend(t provider.T) {
	s.do(http.MethodPost, "/api/v1/votes", fmt.Sprintf(`{"restaurantId":1,"roomId":%q,"userId":1}`, s.room.Code))

	w := s.do(http.MethodGet, "/api/v1/votes/trend?days=7&roomId="+s.room.ID.String(), "")
	t.Require().Equal(http.StatusOK, w.Code)
	trend := decode[[]model.DailyVotes](t, w).Data
	t.Require().Len(trend, 7)
	assert.Equal(t, 1, trend[6].TotalVotes)
}

func TestVoteControllerSuite(t *testing.T) {
	suite.RunSuite(t, new(VoteControllerSuite))
}
