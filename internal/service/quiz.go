package service

import (
	"context"
	"errors"
	"fmt"

	"superwinnings_backend/internal/model"
	"superwinnings_backend/internal/repository"
	"superwinnings_backend/pkg/daykey"

	"github.com/google/uuid"
)

const (
	QuestionsPerSet   = 10
	MaxDailySets      = 20
	PerfectSetScore   = 10
	TargetDailyPoints = MaxDailySets * PerfectSetScore
	LeaderboardSize   = 10
)

// SetOutcome reports what one completed set did to the user's day.
type SetOutcome struct {
	Locked         bool
	BecameEligible bool
	Attempt        *model.DailyQuizAttempt
}

type QuizService struct {
	repo QuizRepository
}

func NewQuizService(repo QuizRepository) *QuizService {
	return &QuizService{repo: repo}
}

// GetQuestionSet hands out the next slice of up to 10 questions from the
// user's current quiz, lazily opening today's ledger row and assigning the
// first active quiz when the user has none.
func (s *QuizService) GetQuestionSet(ctx context.Context, userID uuid.UUID) (*model.QuestionSet, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	today := daykey.Today()
	attempt, err := s.repo.GetOrCreateDailyAttempt(ctx, userID, today, user.QuizID, user.CurrentQuestionIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to open daily attempt: %w", err)
	}

	if attempt.SetsCompleted >= MaxDailySets {
		return nil, ErrDailyLimitExceeded
	}

	if user.IsAttemptQuiz {
		return nil, ErrAttemptLocked
	}

	quizID := user.QuizID
	questionIndex := user.CurrentQuestionIndex

	if quizID == nil {
		firstQuiz, err := s.repo.GetFirstActiveQuiz(ctx)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNoActiveQuiz
			}
			return nil, err
		}

		if err := s.repo.AssignQuiz(ctx, userID, firstQuiz.ID); err != nil {
			return nil, fmt.Errorf("failed to assign quiz: %w", err)
		}

		quizID = &firstQuiz.ID
		questionIndex = 0
	}

	quiz, err := s.repo.GetQuizByID(ctx, *quizID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}

	total := len(quiz.Questions)
	start := questionIndex
	if start > total {
		start = total
	}
	end := start + QuestionsPerSet
	if end > total {
		end = total
	}

	return &model.QuestionSet{
		QuizID:         quiz.ID,
		Questions:      quiz.Questions[start:end],
		StartIndex:     start,
		EndIndex:       end,
		TotalQuestions: total,
	}, nil
}

// UpdateQuestionIndex advances the user's cursor inside their current quiz.
// The quiz id must match the current assignment, which catches clients
// racing a failed-set reset.
func (s *QuizService) UpdateQuestionIndex(ctx context.Context, userID, quizID uuid.UUID, newIndex int) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if user.QuizID == nil || *user.QuizID != quizID {
		return ErrQuizMismatch
	}

	if err := s.repo.UpdateQuestionIndex(ctx, userID, newIndex); err != nil {
		return fmt.Errorf("failed to update question index: %w", err)
	}

	return nil
}

// MarkAttempted adjudicates one completed 10-question set. Ledger counters
// always advance; anything short of a perfect score is a hard fail that
// locks the user, and the 20th perfect set of a 200-point day commits the
// day to the leaderboard and the user's lifetime totals.
func (s *QuizService) MarkAttempted(ctx context.Context, userID uuid.UUID, score, timeTaken int) (*SetOutcome, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	today := daykey.Today()

	if score < PerfectSetScore {
		attempt, err := s.repo.FailDailySet(ctx, userID, today, score, timeTaken)
		if err != nil {
			return nil, fmt.Errorf("failed to record failed set: %w", err)
		}
		return &SetOutcome{Locked: true, Attempt: attempt}, nil
	}

	attempt, err := s.repo.CompleteDailySet(ctx, userID, today, score, timeTaken)
	if err != nil {
		return nil, fmt.Errorf("failed to record completed set: %w", err)
	}

	outcome := &SetOutcome{Attempt: attempt}

	if attempt.SetsCompleted >= MaxDailySets && attempt.DailyPoints == TargetDailyPoints {
		committed, err := s.repo.CommitLeaderboardEligibility(ctx, userID, today)
		if err != nil {
			return nil, fmt.Errorf("failed to commit leaderboard eligibility: %w", err)
		}
		outcome.BecameEligible = committed
	}

	return outcome, nil
}

func (s *QuizService) Leaderboard(ctx context.Context) ([]*model.LeaderboardEntry, error) {
	entries, err := s.repo.Leaderboard(ctx, daykey.Today(), LeaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	return entries, nil
}

func (s *QuizService) ResetDailyAttempt(ctx context.Context, userID uuid.UUID) error {
	err := s.repo.ResetDailyAttempt(ctx, userID, daykey.Today())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to reset daily attempt: %w", err)
	}
	return nil
}
