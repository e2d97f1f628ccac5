package api

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"superwinnings_backend/internal/middleware"
	"superwinnings_backend/internal/model"
	"superwinnings_backend/internal/service"
	"superwinnings_backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type adminRoutes struct {
	as service.AdminServiceI
}

func NewAdminRoutes(handler *gin.RouterGroup, as service.AdminServiceI, authz *middleware.Authorization) {
	r := &adminRoutes{as: as}
	h := handler.Group("/admin")
	h.Use(authz.OperatorOnly())
	{
		h.POST("/quizzes", r.CreateQuiz)
		h.GET("/quizzes", r.ListQuizzes)
		h.GET("/quizzes/:quiz_id", r.GetQuiz)
		h.POST("/quizzes/:quiz_id/questions", r.AddQuestions)
		h.POST("/quizzes/:quiz_id/questions/csv", r.ImportQuestionsCSV)
	}
}

type QuestionRequest struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

type CreateQuizRequest struct {
	Title     string            `json:"title"`
	CreatedBy string            `json:"created_by"`
	Questions []QuestionRequest `json:"questions"`
}

func questionsFromRequest(in []QuestionRequest) []model.Question {
	out := make([]model.Question, len(in))
	for i, q := range in {
		out[i] = model.Question{
			Question:     q.Question,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
		}
	}
	return out
}

func (r *adminRoutes) CreateQuiz(c *gin.Context) {
	log := logger.Logger()

	var req CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	quiz, err := r.as.CreateQuiz(c.Request.Context(), req.Title, req.CreatedBy, questionsFromRequest(req.Questions))
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuestion) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error("failed to create quiz", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create quiz"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"quiz_id":        quiz.ID.String(),
		"title":          quiz.Title,
		"question_count": len(quiz.Questions),
	})
}

type QuizSummaryResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Active        bool      `json:"active"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}

func (r *adminRoutes) ListQuizzes(c *gin.Context) {
	log := logger.Logger()

	quizzes, err := r.as.ListQuizzes(c.Request.Context())
	if err != nil {
		log.Error("failed to list quizzes", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list quizzes"})
		return
	}

	out := make([]QuizSummaryResponse, len(quizzes))
	for i, quiz := range quizzes {
		out[i] = QuizSummaryResponse{
			ID:            quiz.ID.String(),
			Title:         quiz.Title,
			Active:        quiz.Active,
			QuestionCount: quiz.QuestionCount,
			CreatedAt:     quiz.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, out)
}

func (r *adminRoutes) GetQuiz(c *gin.Context) {
	log := logger.Logger()

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quiz_id"})
		return
	}

	quiz, err := r.as.GetQuiz(c.Request.Context(), quizID)
	if err != nil {
		if errors.Is(err, service.ErrQuizNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "quiz not found"})
			return
		}
		log.Error("failed to get quiz", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get quiz"})
		return
	}

	questions := make([]QuestionResponse, len(quiz.Questions))
	for i, q := range quiz.Questions {
		questions[i] = QuestionResponse{
			ID:           q.ID.String(),
			Question:     q.Question,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        quiz.ID.String(),
		"title":     quiz.Title,
		"active":    quiz.Active,
		"questions": questions,
	})
}

type AddQuestionsRequest struct {
	Questions []QuestionRequest `json:"questions"`
}

func (r *adminRoutes) AddQuestions(c *gin.Context) {
	log := logger.Logger()

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quiz_id"})
		return
	}

	var req AddQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err = r.as.AddQuestions(c.Request.Context(), quizID, questionsFromRequest(req.Questions))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuizNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "quiz not found"})
		case errors.Is(err, service.ErrInvalidQuestion):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Error("failed to add questions", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add questions"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"added": len(req.Questions)})
}

// ImportQuestionsCSV bulk-loads questions from an uploaded CSV with columns
// question,option1,option2,option3,option4,correct_index. A header row is
// detected by a non-numeric last column and skipped.
func (r *adminRoutes) ImportQuestionsCSV(c *gin.Context) {
	log := logger.Logger()

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quiz_id"})
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "csv file upload required under field 'file'"})
		return
	}
	defer file.Close()

	questions, err := parseQuestionsCSV(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = r.as.AddQuestions(c.Request.Context(), quizID, questions)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuizNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "quiz not found"})
		case errors.Is(err, service.ErrInvalidQuestion):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Error("failed to import questions", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to import questions"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"imported": len(questions)})
}

func parseQuestionsCSV(reader io.Reader) ([]model.Question, error) {
	records, err := csv.NewReader(reader).ReadAll()
	if err != nil {
		return nil, errors.New("malformed csv")
	}

	var questions []model.Question
	for i, record := range records {
		if len(record) < 3 {
			return nil, errors.New("each row needs a question, at least 2 options and a correct index")
		}

		correctIndex, err := strconv.Atoi(record[len(record)-1])
		if err != nil {
			if i == 0 {
				// header row
				continue
			}
			return nil, errors.New("last column must be the correct option index")
		}

		questions = append(questions, model.Question{
			Question:     record[0],
			Options:      record[1 : len(record)-1],
			CorrectIndex: correctIndex,
		})
	}

	if len(questions) == 0 {
		return nil, errors.New("csv contains no questions")
	}

	return questions, nil
}
