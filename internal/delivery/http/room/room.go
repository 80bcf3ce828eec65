package http_room

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	http_common "github.com/humanbelnik/dinevote/internal/delivery/http/common"
	"github.com/humanbelnik/dinevote/internal/model"
	usecase_room "github.com/humanbelnik/dinevote/internal/usecase/room"
)

type RoomNotifier interface {
	NotifyRoomClosed(room model.Room)
}

type Controller struct {
	usecase  *usecase_room.Usecase
	notifier RoomNotifier
	logger   *slog.Logger
}

type ControllerOption func(*Controller)

func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func New(usecase *usecase_room.Usecase, notifier RoomNotifier, opts ...ControllerOption) *Controller {
	c := &Controller{
		usecase:  usecase,
		notifier: notifier,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	rooms := router.Group("/rooms")
	{
		rooms.POST("", c.create)
		rooms.GET("/:code", c.details)
		rooms.POST("/:code/join", c.join)
		rooms.PATCH("/:code/close", c.close)
	}
}

type CreateRoomRequestDTO struct {
	Name       string   `json:"name" binding:"required"`
	Cuisine    string   `json:"cuisine"`
	PriceRange string   `json:"priceRange"`
	Latitude   *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude  *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
	Radius     *int     `json:"radius"`
}

func (c *Controller) create(ctx *gin.Context) {
	var req CreateRoomRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		http_common.BadRequest(ctx, "invalid request body")
		return
	}

	room, err := c.usecase.CreateRoom(ctx, req.Name, model.Filters{
		Cuisine:    req.Cuisine,
		PriceRange: req.PriceRange,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Radius:     req.Radius,
	})
	if err != nil {
		http_common.Fail(ctx, c.logger, "create room", err)
		return
	}

	c.logger.Info("room created", slog.String("code", room.Code))
	http_common.OK(ctx, http.StatusCreated, room)
}

func (c *Controller) details(ctx *gin.Context) {
	details, err := c.usecase.Details(ctx, ctx.Param("code"))
	if err != nil {
		http_common.Fail(ctx, c.logger, "room details", err)
		return
	}
	http_common.OK(ctx, http.StatusOK, details)
}

type JoinRequestDTO struct {
	UserID    int64  `json:"userId" binding:"omitempty,min=1"`
	GuestName string `json:"guestName" binding:"omitempty,max=50"`
}

func (c *Controller) join(ctx *gin.Context) {
	var req JoinRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		http_common.BadRequest(ctx, "invalid request body")
		return
	}

	identity := model.GuestIdentity(req.GuestName)
	if req.UserID > 0 {
		identity = model.UserIdentity(req.UserID)
	}

	member, err := c.usecase.Join(ctx, ctx.Param("code"), identity)
	if err != nil {
		http_common.Fail(ctx, c.logger, "join room", err)
		return
	}
	http_common.OK(ctx, http.StatusCreated, member)
}

func (c *Controller) close(ctx *gin.Context) {
	room, err := c.usecase.CloseRoom(ctx, ctx.Param("code"))
	if err != nil {
		http_common.Fail(ctx, c.logger, "close room", err)
		return
	}

	if c.notifier != nil {
		c.notifier.NotifyRoomClosed(room)
	}
	c.logger.Info("room closed", slog.String("code", room.Code))
	http_common.OK(ctx, http.StatusOK, room)
}
