package httpauth

import (
	"net/http"

	"roomrelay/internal/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdentityHandler is a gin handler that receives the authenticated caller
// as an argument instead of reading it from the request context.
type IdentityHandler func(c *gin.Context, id auth.Identity)

// Guard adapts protected handlers into plain gin handlers.
type Guard func(h IdentityHandler) gin.HandlerFunc

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse

// RequireIdentity validates the Authorization header before calling h.
func RequireIdentity(a auth.Authenticator) Guard {
	return func(h IdentityHandler) gin.HandlerFunc {
		return func(c *gin.Context) {
			id, err := a.Validate(c.GetHeader("Authorization"))
			if err != nil {
				zap.L().Debug("http.unauthorized", zap.String("path", c.FullPath()), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: auth.ErrUnauthorized.Error()})
				return
			}
			h(c, id)
		}
	}
}
