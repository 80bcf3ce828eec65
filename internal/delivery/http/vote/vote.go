package http_vote

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	http_common "github.com/humanbelnik/dinevote/internal/delivery/http/common"
	"github.com/humanbelnik/dinevote/internal/model"
	usecase_room "github.com/humanbelnik/dinevote/internal/usecase/room"
	usecase_tally "github.com/humanbelnik/dinevote/internal/usecase/tally"
	usecase_vote "github.com/humanbelnik/dinevote/internal/usecase/vote"
)

const defaultTrendDays = 7

// VotePublisher pushes room tallies to websocket subscribers.
type VotePublisher interface {
	PublishVote(ctx context.Context, roomID uuid.UUID, restaurantID int64) error
}

type Controller struct {
	votes     *usecase_vote.Usecase
	rooms     *usecase_room.Usecase
	tally     *usecase_tally.Usecase
	publisher VotePublisher

	logger *slog.Logger
}

type ControllerOption func(*Controller)

func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func New(
	votes *usecase_vote.Usecase,
	rooms *usecase_room.Usecase,
	tally *usecase_tally.Usecase,
	publisher VotePublisher,
	opts ...ControllerOption,
) *Controller {
	c := &Controller{
		votes:     votes,
		rooms:     rooms,
		tally:     tally,
		publisher: publisher,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	votes := router.Group("/votes")
	{
		votes.POST("", c.cast)
		votes.GET("/mine", c.mine)
		votes.GET("/room/:room_id", c.roomTally)
		votes.GET("/leaderboard", c.leaderboard)
		votes.GET("/trend", c.trend)
	}
}

type CastVoteRequestDTO struct {
	RestaurantID int64   `json:"restaurantId" binding:"required,min=1"`
	RoomID       *string `json:"roomId"`
	Increment    *int    `json:"increment"`
	UserID       int64   `json:"userId" binding:"omitempty,min=1"`
	GuestName    string  `json:"guestName"`
}

func identityOf(userID int64, guestName string) model.Identity {
	if userID > 0 {
		return model.UserIdentity(userID)
	}
	return model.GuestIdentity(guestName)
}

// roomContext maps an optional room reference (id or join code) to a vote context.
func (c *Controller) roomContext(ctx context.Context, ref string) (model.RoomContext, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.GlobalContext(), nil
	}
	if id, err := uuid.Parse(ref); err == nil {
		return model.InRoom(id), nil
	}
	room, err := c.rooms.RoomByCode(ctx, ref)
	if err != nil {
		return model.RoomContext{}, err
	}
	return model.InRoom(room.ID), nil
}

func (c *Controller) cast(ctx *gin.Context) {
	var req CastVoteRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		http_common.BadRequest(ctx, "invalid request body")
		return
	}

	ref := ""
	if req.RoomID != nil {
		ref = *req.RoomID
	}
	roomCtx, err := c.roomContext(ctx, ref)
	if err != nil {
		http_common.Fail(ctx, c.logger, "cast vote", err)
		return
	}

	delta := 1
	if req.Increment != nil {
		delta = *req.Increment
	}

	vote, err := c.votes.CastVote(ctx, identityOf(req.UserID, req.GuestName), req.RestaurantID, roomCtx, delta)
	if err != nil {
		http_common.Fail(ctx, c.logger, "cast vote", err)
		return
	}

	if roomID, scoped := roomCtx.RoomID(); scoped && c.publisher != nil {
		if err := c.publisher.PublishVote(ctx, roomID, req.RestaurantID); err != nil {
			c.logger.Warn("failed to publish vote", slog.String("room_id", roomID.String()), slog.String("error", err.Error()))
		}
	}

	http_common.OK(ctx, http.StatusOK, vote)
}

func (c *Controller) mine(ctx *gin.Context) {
	userID, _ := strconv.ParseInt(ctx.Query("userId"), 10, 64)

	votes, err := c.votes.VotesByVoter(ctx, identityOf(userID, ctx.Query("guestName")))
	if err != nil {
		http_common.Fail(ctx, c.logger, "my votes", err)
		return
	}
	http_common.OK(ctx, http.StatusOK, votes)
}

func (c *Controller) roomTally(ctx *gin.Context) {
	roomCtx, err := c.roomContext(ctx, ctx.Param("room_id"))
	if err != nil {
		http_common.Fail(ctx, c.logger, "room tally", err)
		return
	}

	tally, err := c.votes.RoomTally(ctx, roomCtx)
	if err != nil {
		http_common.Fail(ctx, c.logger, "room tally", err)
		return
	}
	http_common.OK(ctx, http.StatusOK, tally)
}

func queryInt(ctx *gin.Context, key string, def int) (int, error) {
	raw := ctx.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", model.ErrValidation, key)
	}
	return v, nil
}

func (c *Controller) leaderboard(ctx *gin.Context) {
	limit, err := queryInt(ctx, "limit", usecase_tally.DefaultLimit)
	if err == nil && limit == 0 {
		err = fmt.Errorf("%w: limit must be positive", model.ErrValidation)
	}
	if err != nil {
		http_common.Fail(ctx, c.logger, "leaderboard", err)
		return
	}

	roomCtx, err := c.roomContext(ctx, ctx.Query("roomId"))
	if err != nil {
		http_common.Fail(ctx, c.logger, "leaderboard", err)
		return
	}

	board, err := c.tally.Leaderboard(ctx, roomCtx, limit)
	if err != nil {
		http_common.Fail(ctx, c.logger, "leaderboard", err)
		return
	}
	http_common.OK(ctx, http.StatusOK, board)
}

func (c *Controller) trend(ctx *gin.Context) {
	days, err := queryInt(ctx, "days", defaultTrendDays)
	if err != nil {
		http_common.Fail(ctx, c.logger, "trend", err)
		return
	}

	loc := time.UTC
	if tz := ctx.Query("tz"); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			http_common.BadRequest(ctx, "unknown time zone")
			return
		}
	}

	roomCtx, err := c.roomContext(ctx, ctx.Query("roomId"))
	if err != nil {
		http_common.Fail(ctx, c.logger, "trend", err)
		return
	}

	trend, err := c.tally.DailyTrend(ctx, roomCtx, days, loc)
	if err != nil {
		http_common.Fail(ctx, c.logger, "trend", err)
		return
	}
	http_common.OK(ctx, http.StatusOK, trend)
}
