package userhandler

import (
	"errors"
	"net/http"

	"roomrelay/internal/auth"
	"roomrelay/internal/http/httpauth"
	"roomrelay/internal/services/users"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenIssuer mints a session token for an authenticated user.
type TokenIssuer interface {
	Sign(userID string) (string, error)
}

type Handler struct {
	svc    users.IUserService
	tokens TokenIssuer
}

func New(svc users.IUserService, tokens TokenIssuer) *Handler {
	return &Handler{svc: svc, tokens: tokens}
}

func (h *Handler) Register(r gin.IRoutes, guard httpauth.Guard) {
	r.POST("/signup", h.signup)
	r.POST("/signin", h.signin)
	r.GET("/me", guard(h.me))
}

// @Summary		Sign up
// @Tags			Users
// @Param			body	body		CredentialsBody	true	"Credentials"
// @Success		200		{object}	SignupResponse
// @Failure		400		{object}	httpauth.ErrorResponse
// @Failure		409		{object}	httpauth.ErrorResponse
// @Router			/signup [post]
func (h *Handler) signup(ginCtx *gin.Context) {
	var body CredentialsBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, httpauth.ErrorResponse{Error: err.Error()})
		return
	}

	u, err := h.svc.Create(ginCtx.Request.Context(), body.Username, body.Password)
	switch {
	case errors.Is(err, users.ErrUserExists):
		ginCtx.JSON(http.StatusConflict, httpauth.ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, users.ErrInvalidInput):
		ginCtx.JSON(http.StatusBadRequest, httpauth.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		zap.L().Error("users.signup", zap.Error(err))
		ginCtx.JSON(http.StatusInternalServerError, httpauth.ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, SignupResponse{ID: u.ID})
}

// @Summary		Sign in
// @Description	Exchanges credentials for a signed session token.
// @Tags			Users
// @Param			body	body		CredentialsBody	true	"Credentials"
// @Success		200		{object}	SigninResponse
// @Failure		401		{object}	httpauth.ErrorResponse
// @Router			/signin [post]
func (h *Handler) signin(ginCtx *gin.Context) {
	var body CredentialsBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, httpauth.ErrorResponse{Error: err.Error()})
		return
	}

	u, err := h.svc.Verify(ginCtx.Request.Context(), body.Username, body.Password)
	if errors.Is(err, users.ErrInvalidCredentials) {
		ginCtx.JSON(http.StatusUnauthorized, httpauth.ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		zap.L().Error("users.signin", zap.Error(err))
		ginCtx.JSON(http.StatusInternalServerError, httpauth.ErrorResponse{Error: err.Error()})
		return
	}

	tok, err := h.tokens.Sign(u.ID)
	if err != nil {
		zap.L().Error("users.sign_token", zap.Error(err))
		ginCtx.JSON(http.StatusInternalServerError, httpauth.ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, SigninResponse{Token: tok})
}

// @Summary		Current user
// @Tags			Users
// @Security		BearerAuth
// @Success		200	{string}	string
// @Failure		401	{object}	httpauth.ErrorResponse
// @Router			/me [get]
func (h *Handler) me(ginCtx *gin.Context, id auth.Identity) {
	ginCtx.String(http.StatusOK, "Hello User, %s", id.UserID)
}
