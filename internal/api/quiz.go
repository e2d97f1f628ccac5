package api

import (
	"errors"
	"net/http"

	"superwinnings_backend/internal/service"
	"superwinnings_backend/pkg/auth"
	"superwinnings_backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type quizRoutes struct {
	qs service.QuizServiceI
}

func NewQuizRoutes(handler *gin.RouterGroup, qs service.QuizServiceI, a *auth.JWTAuth) {
	r := &quizRoutes{qs: qs}
	h := handler.Group("/quiz")
	h.Use(a.AuthMiddleware())
	{
		h.GET("/questions", r.GetQuestionSet)
		h.POST("/index", r.UpdateQuestionIndex)
		h.POST("/attempt", r.MarkAttempted)
		h.GET("/leaderboard", r.GetLeaderboard)
		h.POST("/reset", r.ResetDailyAttempt)
	}
}

type QuestionResponse struct {
	ID           string   `json:"id"`
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

type QuestionSetResponse struct {
	QuizID         string             `json:"quiz_id"`
	Questions      []QuestionResponse `json:"questions"`
	StartIndex     int                `json:"start_index"`
	EndIndex       int                `json:"end_index"`
	TotalQuestions int                `json:"total_questions"`
}

func (r *quizRoutes) GetQuestionSet(c *gin.Context) {
	log := logger.Logger()

	session, ok := sessionFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	set, err := r.qs.GetQuestionSet(c.Request.Context(), session.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, service.ErrDailyLimitExceeded):
			c.JSON(http.StatusForbidden, gin.H{"error": "daily limit of 20 question sets reached"})
		case errors.Is(err, service.ErrAttemptLocked):
			c.JSON(http.StatusForbidden, gin.H{"error": "previous set failed, purchase a subscription to continue"})
		case errors.Is(err, service.ErrNoActiveQuiz), errors.Is(err, service.ErrQuizNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "no quizzes available"})
		default:
			log.Error("failed to get question set", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get questions"})
		}
		return
	}

	questions := make([]QuestionResponse, len(set.Questions))
	for i, q := range set.Questions {
		questions[i] = QuestionResponse{
			ID:           q.ID.String(),
			Question:     q.Question,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
		}
	}

	c.JSON(http.StatusOK, QuestionSetResponse{
		QuizID:         set.QuizID.String(),
		Questions:      questions,
		StartIndex:     set.StartIndex,
		EndIndex:       set.EndIndex,
		TotalQuestions: set.TotalQuestions,
	})
}

type UpdateIndexRequest struct {
	QuizID   string `json:"quiz_id"`
	NewIndex int    `json:"new_index"`
}

func (r *quizRoutes) UpdateQuestionIndex(c *gin.Context) {
	log := logger.Logger()

	session, ok := sessionFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req UpdateIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	quizID, err := uuid.Parse(req.QuizID)
	if err != nil || req.NewIndex < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quiz_id or new_index"})
		return
	}

	err = r.qs.UpdateQuestionIndex(c.Request.Context(), session.UserID, quizID, req.NewIndex)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, service.ErrQuizMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": "quiz_id does not match your current quiz"})
		default:
			log.Error("failed to update question index", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update question index"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"current_question_index": req.NewIndex})
}

type MarkAttemptedRequest struct {
	Score     int `json:"score"`
	TimeTaken int `json:"time_taken"`
}

type MarkAttemptedResponse struct {
	Message        string `json:"message"`
	Locked         bool   `json:"locked"`
	BecameEligible bool   `json:"became_eligible"`
	SetsCompleted  int    `json:"sets_completed"`
	DailyPoints    int    `json:"daily_points"`
	DailyTimeTaken int    `json:"daily_time_taken"`
}

func (r *quizRoutes) MarkAttempted(c *gin.Context) {
	log := logger.Logger()

	session, ok := sessionFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req MarkAttemptedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if req.Score < 0 || req.Score > service.PerfectSetScore || req.TimeTaken < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid score or time_taken"})
		return
	}

	outcome, err := r.qs.MarkAttempted(c.Request.Context(), session.UserID, req.Score, req.TimeTaken)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.Error("failed to record attempt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record attempt"})
		return
	}

	message := "Set recorded."
	switch {
	case outcome.Locked:
		message = "You failed this set. Purchase a subscription to continue playing."
	case outcome.BecameEligible:
		message = "Perfect day! You are on today's leaderboard."
	}

	c.JSON(http.StatusOK, MarkAttemptedResponse{
		Message:        message,
		Locked:         outcome.Locked,
		BecameEligible: outcome.BecameEligible,
		SetsCompleted:  outcome.Attempt.SetsCompleted,
		DailyPoints:    outcome.Attempt.DailyPoints,
		DailyTimeTaken: outcome.Attempt.DailyTimeTaken,
	})
}

type LeaderboardEntryResponse struct {
	Phone          string `json:"phone"`
	DailyPoints    int    `json:"daily_points"`
	DailyTimeTaken int    `json:"daily_time_taken"`
}

func (r *quizRoutes) GetLeaderboard(c *gin.Context) {
	log := logger.Logger()

	entries, err := r.qs.Leaderboard(c.Request.Context())
	if err != nil {
		log.Error("failed to get leaderboard", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}

	out := make([]LeaderboardEntryResponse, len(entries))
	for i, entry := range entries {
		out[i] = LeaderboardEntryResponse{
			Phone:          entry.Phone,
			DailyPoints:    entry.DailyPoints,
			DailyTimeTaken: entry.DailyTimeTaken,
		}
	}

	c.JSON(http.StatusOK, out)
}

func (r *quizRoutes) ResetDailyAttempt(c *gin.Context) {
	log := logger.Logger()

	session, ok := sessionFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	err := r.qs.ResetDailyAttempt(c.Request.Context(), session.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.Error("failed to reset daily attempt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset daily attempt"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "daily attempt reset"})
}
