package api

import (
	"errors"
	"net/http"
	"time"

	"superwinnings_backend/internal/middleware"
	"superwinnings_backend/internal/model"
	"superwinnings_backend/internal/service"
	"superwinnings_backend/pkg/auth"
	"superwinnings_backend/pkg/logger"
	"superwinnings_backend/pkg/momo"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type subscriptionRoutes struct {
	ps service.PaymentServiceI
}

func NewSubscriptionRoutes(handler *gin.RouterGroup, ps service.PaymentServiceI, a *auth.JWTAuth, authz *middleware.Authorization) {
	r := &subscriptionRoutes{ps: ps}
	h := handler.Group("/subscription")

	// Triggered by the nightly job or an operator, not a player session.
	h.POST("/reward-winners", authz.OperatorOnly(), r.RewardWinners)

	secured := h.Group("")
	secured.Use(a.AuthMiddleware(), authz.CurrentUser())
	{
		secured.POST("/create", r.CreateSubscription)
		secured.GET("/status/:reference_id", r.SubscriptionStatus)
		secured.GET("/payments", r.ListPayments)
	}
}

type CreateSubscriptionRequest struct {
	Amount int `json:"amount"`
}

type PaymentRecordResponse struct {
	ReferenceID string    `json:"reference_id"`
	Amount      int       `json:"amount"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	Reason      *string   `json:"reason,omitempty"`
	Kind        string    `json:"kind"`
	CreatedAt   time.Time `json:"created_at"`
}

func paymentRecord(p *model.Payment) PaymentRecordResponse {
	return PaymentRecordResponse{
		ReferenceID: p.ReferenceID.String(),
		Amount:      p.Amount,
		Currency:    p.Currency,
		Status:      p.Status,
		Reason:      p.Reason,
		Kind:        p.Kind,
		CreatedAt:   p.CreatedAt,
	}
}

func (r *subscriptionRoutes) CreateSubscription(c *gin.Context) {
	log := logger.Logger()

	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := r.ps.CreateSubscription(c.Request.Context(), user, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAmountRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		case errors.Is(err, momo.ErrRequestRejected):
			log.Error("payment request rejected", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider rejected the request"})
		default:
			log.Error("failed to create subscription", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create subscription"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reference_id":   result.ReferenceID.String(),
		"payment_status": result.Status,
		"message":        result.Message,
		"record":         paymentRecord(result.Payment),
	})
}

func (r *subscriptionRoutes) SubscriptionStatus(c *gin.Context) {
	log := logger.Logger()

	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	referenceID, err := uuid.Parse(c.Param("reference_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reference_id"})
		return
	}

	result, err := r.ps.SubscriptionStatus(c.Request.Context(), user.ID, referenceID)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		log.Error("failed to get subscription status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get payment status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_status": result.Status,
		"message":        result.Message,
		"record":         paymentRecord(result.Payment),
	})
}

func (r *subscriptionRoutes) ListPayments(c *gin.Context) {
	log := logger.Logger()

	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	payments, err := r.ps.ListPayments(c.Request.Context(), user.ID)
	if err != nil {
		log.Error("failed to list payments", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list payments"})
		return
	}

	out := make([]PaymentRecordResponse, len(payments))
	for i, p := range payments {
		out[i] = paymentRecord(p)
	}

	c.JSON(http.StatusOK, out)
}

type RewardResultResponse struct {
	Phone        string  `json:"phone"`
	RewardAmount int     `json:"reward_amount"`
	Status       string  `json:"status"`
	Reason       *string `json:"reason,omitempty"`
}

func (r *subscriptionRoutes) RewardWinners(c *gin.Context) {
	log := logger.Logger()

	summary, err := r.ps.RewardWinners(c.Request.Context())
	if err != nil {
		log.Error("failed to reward winners", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reward winners"})
		return
	}

	results := make([]RewardResultResponse, len(summary.Results))
	for i, result := range summary.Results {
		results[i] = RewardResultResponse{
			Phone:        result.Phone,
			RewardAmount: result.RewardAmount,
			Status:       result.Status,
			Reason:       result.Reason,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": summary.Message,
		"results": results,
	})
}
