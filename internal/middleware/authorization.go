package middleware

import (
	"crypto/subtle"
	"net/http"

	"superwinnings_backend/internal/model"
	"superwinnings_backend/internal/service"
	"superwinnings_backend/pkg/auth"
	"superwinnings_backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

// ContextUserKey holds the resolved *model.User for the current session.
const ContextUserKey = "current_user"

// OperatorKeyHeader carries the shared key for operator-only endpoints
// (quiz administration, the reward trigger).
const OperatorKeyHeader = "X-Operator-Key"

type Authorization struct {
	authService service.AuthServiceI
	operatorKey string
}

func NewAuthorization(authService service.AuthServiceI, operatorKey string) *Authorization {
	return &Authorization{
		authService: authService,
		operatorKey: operatorKey,
	}
}

// CurrentUser resolves the session token's subject to a full user record.
// Must run after the JWT middleware.
func (a *Authorization) CurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		sessionData, exists := c.Get(auth.ContextSessionKey)
		if !exists {
			log.Error("session data not found in context")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		session, ok := sessionData.(*auth.SessionData)
		if !ok {
			log.Error("invalid type assertion for session data")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		user, err := a.authService.GetUserByID(c.Request.Context(), session.UserID)
		if err != nil {
			log.Error("failed to resolve session user", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// OperatorOnly gates an endpoint behind the shared operator key. With no
// key configured the endpoint is disabled outright.
func (a *Authorization) OperatorOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		if a.operatorKey == "" {
			log.Error("operator endpoint hit with no operator key configured")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "operator access disabled"})
			return
		}

		provided := c.GetHeader(OperatorKeyHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(a.operatorKey)) != 1 {
			log.Info("rejected operator request", zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid operator key"})
			return
		}

		c.Next()
	}
}

// UserFromContext pulls the user stored by CurrentUser.
func UserFromContext(c *gin.Context) (*model.User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*model.User)
	return user, ok
}
