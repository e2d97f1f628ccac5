package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"superwinnings_backend/internal/model"
	"superwinnings_backend/internal/repository"

	"github.com/google/uuid"
)

var ErrInvalidQuestion = errors.New("question needs text, at least 2 options and a matching correct index")

type AdminService struct {
	repo AdminRepository
}

func NewAdminService(repo AdminRepository) *AdminService {
	return &AdminService{repo: repo}
}

func (s *AdminService) CreateQuiz(ctx context.Context, title, createdBy string, questions []model.Question) (*model.Quiz, error) {
	if err := validateQuestions(questions); err != nil {
		return nil, err
	}

	for i := range questions {
		questions[i].Position = i
	}

	quiz := &model.Quiz{
		ID:        uuid.New(),
		Title:     title,
		Active:    true,
		CreatedBy: createdBy,
		Questions: questions,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.CreateQuiz(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	return quiz, nil
}

func (s *AdminService) ListQuizzes(ctx context.Context) ([]*model.QuizSummary, error) {
	quizzes, err := s.repo.ListQuizzes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	return quizzes, nil
}

func (s *AdminService) GetQuiz(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	quiz, err := s.repo.GetQuizByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}
	return quiz, nil
}

func (s *AdminService) AddQuestions(ctx context.Context, quizID uuid.UUID, questions []model.Question) error {
	if err := validateQuestions(questions); err != nil {
		return err
	}

	err := s.repo.AddQuestions(ctx, quizID, questions)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to add questions: %w", err)
	}

	return nil
}

func validateQuestions(questions []model.Question) error {
	if len(questions) == 0 {
		return ErrInvalidQuestion
	}
	for _, q := range questions {
		if q.Question == "" || len(q.Options) < 2 ||
			q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return ErrInvalidQuestion
		}
	}
	return nil
}
