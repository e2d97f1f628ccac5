package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"superwinnings_backend/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Quiz struct {
	ID        uuid.UUID `db:"id"`
	Title     string    `db:"title"`
	Active    bool      `db:"active"`
	CreatedBy string    `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
}

type Question struct {
	ID           uuid.UUID `db:"id"`
	QuizID       uuid.UUID `db:"quiz_id"`
	Position     int       `db:"position"`
	Question     string    `db:"question"`
	Options      []byte    `db:"options"`
	CorrectIndex int       `db:"correct_index"`
}

type QuizSummary struct {
	ID            uuid.UUID `db:"id"`
	Title         string    `db:"title"`
	Active        bool      `db:"active"`
	CreatedAt     time.Time `db:"created_at"`
	QuestionCount int       `db:"question_count"`
}

func (q *Question) toModel() (model.Question, error) {
	var options []string
	if err := json.Unmarshal(q.Options, &options); err != nil {
		return model.Question{}, fmt.Errorf("failed to decode question options: %w", err)
	}

	return model.Question{
		ID:           q.ID,
		QuizID:       q.QuizID,
		Position:     q.Position,
		Question:     q.Question,
		Options:      options,
		CorrectIndex: q.CorrectIndex,
	}, nil
}

func (r *Repository) GetQuizByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	return r.getQuiz(ctx, squirrel.Eq{"id": id})
}

// GetFirstActiveQuiz returns the oldest quiz still flagged active. It backs
// automatic quiz assignment for users without a current quiz.
func (r *Repository) GetFirstActiveQuiz(ctx context.Context) (*model.Quiz, error) {
	return r.getQuiz(ctx, squirrel.Eq{"active": true})
}

func (r *Repository) getQuiz(ctx context.Context, where squirrel.Eq) (*model.Quiz, error) {
	query, args, err := squirrel.
		Select("id", "title", "active", "created_by", "created_at").
		From("quizzes").
		Where(where).
		OrderBy("created_at ASC").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var quiz Quiz
	err = r.db.GetContext(ctx, &quiz, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	questions, err := r.getQuestions(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}

	return &model.Quiz{
		ID:        quiz.ID,
		Title:     quiz.Title,
		Active:    quiz.Active,
		CreatedBy: quiz.CreatedBy,
		Questions: questions,
		CreatedAt: quiz.CreatedAt,
	}, nil
}

func (r *Repository) getQuestions(ctx context.Context, quizID uuid.UUID) ([]model.Question, error) {
	query, args, err := squirrel.
		Select("id", "quiz_id", "position", "question", "options", "correct_index").
		From("questions").
		Where(squirrel.Eq{"quiz_id": quizID}).
		OrderBy("position ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []Question
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, err
	}

	questions := make([]model.Question, len(rows))
	for i := range rows {
		questions[i], err = rows[i].toModel()
		if err != nil {
			return nil, err
		}
	}

	return questions, nil
}

func (r *Repository) CreateQuiz(ctx context.Context, quiz *model.Quiz) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Insert("quizzes").
			SetMap(map[string]interface{}{
				"id":         quiz.ID,
				"title":      quiz.Title,
				"active":     quiz.Active,
				"created_by": quiz.CreatedBy,
				"created_at": quiz.CreatedAt,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build quiz insert query: %w", err)
		}

		_, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to insert quiz: %w", err)
		}

		return insertQuestionsWithTx(ctx, tx, quiz.ID, quiz.Questions)
	})
}

// AddQuestions appends questions after the quiz's current last position.
func (r *Repository) AddQuestions(ctx context.Context, quizID uuid.UUID, questions []model.Question) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		var exists bool
		err := tx.GetContext(ctx, &exists,
			"SELECT EXISTS (SELECT 1 FROM quizzes WHERE id = $1)", quizID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}

		var next int
		err = tx.GetContext(ctx, &next,
			"SELECT COALESCE(MAX(position) + 1, 0) FROM questions WHERE quiz_id = $1", quizID)
		if err != nil {
			return err
		}

		for i := range questions {
			questions[i].Position = next + i
		}

		return insertQuestionsWithTx(ctx, tx, quizID, questions)
	})
}

func insertQuestionsWithTx(ctx context.Context, tx *sqlx.Tx, quizID uuid.UUID, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}

	builder := squirrel.
		Insert("questions").
		Columns("id", "quiz_id", "position", "question", "options", "correct_index")

	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("failed to encode question options: %w", err)
		}
		id := q.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		builder = builder.Values(id, quizID, q.Position, q.Question, options, q.CorrectIndex)
	}

	query, args, err := builder.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build questions insert query: %w", err)
	}

	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert questions: %w", err)
	}

	return nil
}

// ListQuizzes returns every quiz with its question count, newest first.
func (r *Repository) ListQuizzes(ctx context.Context) ([]*model.QuizSummary, error) {
	query, args, err := squirrel.
		Select("q.id", "q.title", "q.active", "q.created_at",
			"COUNT(qs.id) AS question_count").
		From("quizzes q").
		LeftJoin("questions qs ON qs.quiz_id = q.id").
		GroupBy("q.id").
		OrderBy("q.created_at DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []QuizSummary
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, err
	}

	quizzes := make([]*model.QuizSummary, len(rows))
	for i, row := range rows {
		quizzes[i] = &model.QuizSummary{
			ID:            row.ID,
			Title:         row.Title,
			Active:        row.Active,
			CreatedAt:     row.CreatedAt,
			QuestionCount: row.QuestionCount,
		}
	}

	return quizzes, nil
}
