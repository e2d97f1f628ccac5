package api

import (
	"errors"
	"net/http"

	"superwinnings_backend/internal/service"
	"superwinnings_backend/pkg/auth"
	"superwinnings_backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type authRoutes struct {
	as service.AuthServiceI
}

func NewAuthRoutes(handler *gin.RouterGroup, as service.AuthServiceI) {
	r := &authRoutes{as: as}
	h := handler.Group("/auth")
	{
		h.POST("/send-otp", r.SendOTP)
		h.POST("/verify-otp", r.VerifyOTP)
	}
}

// sessionFrom pulls the JWT middleware's session out of the gin context.
func sessionFrom(c *gin.Context) (*auth.SessionData, bool) {
	value, exists := c.Get(auth.ContextSessionKey)
	if !exists {
		return nil, false
	}
	session, ok := value.(*auth.SessionData)
	return session, ok
}

type SendOTPRequest struct {
	Phone string `json:"phone"`
}

func (r *authRoutes) SendOTP(c *gin.Context) {
	log := logger.Logger()

	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err := r.as.RequestOTP(c.Request.Context(), req.Phone)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPhone):
			c.JSON(http.StatusBadRequest, gin.H{"error": "phone must look like +268XXXXXXXX"})
		case errors.Is(err, service.ErrOTPThrottled):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "OTP already sent, wait a minute before retrying"})
		default:
			log.Error("failed to send otp", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send OTP"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OTP sent"})
}

type VerifyOTPRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

type VerifiedUserResponse struct {
	ID                 string `json:"id"`
	Phone              string `json:"phone"`
	IsPhoneVerified    bool   `json:"is_phone_verified"`
	IsAttemptQuiz      bool   `json:"is_attempt_quiz"`
	TotalPoints        int    `json:"total_points"`
	CurrentSzlAssigned int    `json:"current_szl_assigned"`
}

func (r *authRoutes) VerifyOTP(c *gin.Context) {
	log := logger.Logger()

	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, user, err := r.as.VerifyOTP(c.Request.Context(), req.Phone, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrOTPMissing):
			c.JSON(http.StatusNotFound, gin.H{"error": "no OTP pending for this phone"})
		case errors.Is(err, service.ErrOTPExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "OTP expired, request a new one"})
		case errors.Is(err, service.ErrOTPInvalid):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect OTP"})
		default:
			log.Error("failed to verify otp", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify OTP"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": VerifiedUserResponse{
			ID:                 user.ID.String(),
			Phone:              user.Phone,
			IsPhoneVerified:    user.IsPhoneVerified,
			IsAttemptQuiz:      user.IsAttemptQuiz,
			TotalPoints:        user.TotalPoints,
			CurrentSzlAssigned: user.CurrentSzlAssigned,
		},
	})
}
