package roomhandler

import (
	"errors"
	"net/http"

	"roomrelay/internal/auth"
	"roomrelay/internal/http/httpauth"
	"roomrelay/internal/services/rooms"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	store rooms.IRoomStore
}

func New(store rooms.IRoomStore) *Handler { return &Handler{store: store} }

func (h *Handler) Register(r gin.IRoutes, guard httpauth.Guard) {
	r.POST("/createroom", guard(h.create))
	r.GET("/getrooms", guard(h.list))
}

// @Summary		Create a room
// @Description	Adds a room slug to the durable catalog. createdBy defaults to the caller.
// @Tags			Rooms
// @Security		BearerAuth
// @Param			body	body		CreateRoomBody	true	"Room payload"
// @Success		200		{object}	CreateRoomResponse
// @Failure		400		{object}	httpauth.ErrorResponse
// @Failure		401		{object}	httpauth.ErrorResponse
// @Failure		409		{object}	httpauth.ErrorResponse
// @Router			/createroom [post]
func (h *Handler) create(ginCtx *gin.Context, id auth.Identity) {
	var body CreateRoomBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, httpauth.ErrorResponse{Error: err.Error()})
		return
	}
	creator := body.CreatedBy
	if creator == "" {
		creator = id.UserID
	}

	rec, err := h.store.Create(ginCtx.Request.Context(), body.RoomSlug, creator)
	switch {
	case errors.Is(err, rooms.ErrRoomExists):
		ginCtx.JSON(http.StatusConflict, httpauth.ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, rooms.ErrInvalidSlug):
		ginCtx.JSON(http.StatusBadRequest, httpauth.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		zap.L().Error("rooms.create", zap.String("slug", body.RoomSlug), zap.Error(err))
		ginCtx.JSON(http.StatusInternalServerError, httpauth.ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, CreateRoomResponse{Slug: rec.Slug})
}

// @Summary		List rooms
// @Description	Returns every catalogued room slug, independent of live membership.
// @Tags			Rooms
// @Security		BearerAuth
// @Success		200	{object}	GetRoomsResponse
// @Failure		401	{object}	httpauth.ErrorResponse
// @Failure		500	{object}	httpauth.ErrorResponse
// @Router			/getrooms [get]
func (h *Handler) list(ginCtx *gin.Context, _ auth.Identity) {
	slugs, err := h.store.List(ginCtx.Request.Context())
	if err != nil {
		zap.L().Error("rooms.list", zap.Error(err))
		ginCtx.JSON(http.StatusInternalServerError, httpauth.ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, GetRoomsResponse{Rooms: slugs})
}
