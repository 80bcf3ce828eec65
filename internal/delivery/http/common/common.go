package http_common

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/humanbelnik/dinevote/internal/model"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type DataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func OK(ctx *gin.Context, status int, data any) {
	ctx.JSON(status, DataResponse{Success: true, Data: data})
}

func Status(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrRoomClosed):
		return http.StatusConflict
	case errors.Is(err, model.ErrRoomsUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Fail writes the error response for err. Internal details never reach the client.
func Fail(ctx *gin.Context, logger *slog.Logger, op string, err error) {
	status := Status(err)
	message := err.Error()
	switch status {
	case http.StatusNotFound:
		message = "not found"
	case http.StatusConflict:
		message = "room is no longer active"
	case http.StatusServiceUnavailable:
		message = "unavailable"
	case http.StatusInternalServerError:
		message = "internal error"
		logger.Error("request failed", slog.String("op", op), slog.String("error", err.Error()))
	}
	ctx.AbortWithStatusJSON(status, ErrorResponse{Message: message})
}

func BadRequest(ctx *gin.Context, message string) {
	ctx.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Message: message})
}
