package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"superwinnings_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const ContextSessionKey = "session_user"

type Config struct {
	Secret   string        `yaml:"secret"`
	Lifetime time.Duration `yaml:"lifetime"`
}

type JWTAuth struct {
	secret   []byte
	lifetime time.Duration
}

// SessionData identifies the verified phone session carried by a token.
type SessionData struct {
	UserID uuid.UUID
	Phone  string
}

type sessionClaims struct {
	Phone string `json:"phone"`
	jwt.RegisteredClaims
}

func NewJWTAuth(cfg Config) *JWTAuth {
	lifetime := cfg.Lifetime
	if lifetime == 0 {
		lifetime = time.Hour
	}
	return &JWTAuth{
		secret:   []byte(cfg.Secret),
		lifetime: lifetime,
	}
}

func (a *JWTAuth) IssueToken(userID uuid.UUID, phone string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Phone: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.lifetime)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *JWTAuth) ParseToken(token string) (*SessionData, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid token subject: %w", err)
	}

	return &SessionData{
		UserID: userID,
		Phone:  claims.Phone,
	}, nil
}

// AuthMiddleware verifies the Bearer token and stores the session identity
// in the gin context for downstream handlers.
func (a *JWTAuth) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Info("missing authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			log.Info("invalid authorization header format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}

		session, err := a.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			log.Info("invalid session token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextSessionKey, session)
		c.Next()
	}
}
