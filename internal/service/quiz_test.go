package service

import (
	"context"
	"testing"

	"superwinnings_backend/internal/model"
	"superwinnings_backend/internal/repository"
	"superwinnings_backend/internal/service/mocks"
	"superwinnings_backend/pkg/daykey"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func makeQuiz(questionCount int) *model.Quiz {
	quiz := &model.Quiz{
		ID:     uuid.New(),
		Title:  "General Knowledge",
		Active: true,
	}
	for i := 0; i < questionCount; i++ {
		quiz.Questions = append(quiz.Questions, model.Question{
			ID:           uuid.New(),
			QuizID:       quiz.ID,
			Position:     i,
			Question:     "q",
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: 1,
		})
	}
	return quiz
}

func TestQuizService_GetQuestionSet(t *testing.T) {
	userID := uuid.New()
	today := daykey.Today()
	quiz := makeQuiz(25)

	tests := []struct {
		name          string
		mockSetup     func(repo *mocks.MockQuizRepository)
		expectedError error
		check         func(*testing.T, *model.QuestionSet)
	}{
		{
			name: "user not found",
			mockSetup: func(repo *mocks.MockQuizRepository) {
				repo.On("GetUserByID", mock.Anything, userID).
					Return(nil, repository.ErrNotFound)
			},
			expectedError: ErrUserNotFound,
		},
		{
			name: "daily limit reached",
			mockSetup: func(repo *mocks.MockQuizRepository) {
				repo.On("GetUserByID", mock.Anything, userID).
					Return(&model.User{ID: userID, QuizID: &quiz.ID}, nil)
				repo.On("GetOrCreateDailyAttempt", mock.Anything, userID, today, &quiz.ID, 0).
					Return(&model.DailyQuizAttempt{UserID: userID, Day: today, SetsCompleted: MaxDailySets}, nil)
			},
			expectedError: ErrDailyLimitExceeded,
		},
		{
			name: "attempt locked after failed set",
			mockSetup: func(repo *mocks.MockQuizRepository) {
				repo.On("GetUserByID", mock.Anything, userID).
					Return(&model.User{ID: userID, IsAttemptQuiz: true}, nil)
				repo.On("GetOrCreateDailyAttempt", mock.Anything, userID, today, (*uuid.UUID)(nil), 0).
					Return(&model.DailyQuizAttempt{UserID: userID, Day: today}, nil)
			},
			expectedError: ErrAttemptLocked,
		},
		{
			name: "no active quiz",
			mockSetup: func(repo *mocks.MockQuizRepository) {
				repo.On("GetUserByID", mock.Anything, userID).
					Return(&model.User{ID: userID}, nil)
				repo.On("GetOrCreateDailyAttempt", mock.Anything, userID, today, (*uuid.UUID)(nil), 0).
					Return(&model.DailyQuizAttempt{UserID: userID, Day: today}, nil)
				repo.On("GetFirstActiveQuiz", mock.Anything).
					Return(nil, repository.ErrNotFound)
			},
			expectedError: ErrNoActiveQuiz,
		},
		{
			name: "assigns first active quiz and returns opening slice",
			mockSetup: func(repo *mocks.MockQuizRepository) {
				repo.On("GetUserByID", mock.Anything, userID).
					Return(&model.User{ID: userID}, nil)
				repo.On("GetOrCreateDailyAttempt", mock.Anything, userID, today, (*uuid.UUID)(nil), 0).
					Return(&model.DailyQuizAttempt{UserID: userID, Day: today}, nil)
				repo.On("GetFirstActiveQuiz", mock.Anything).Return(quiz, nil)
				repo.On("AssignQuiz", mock.Anything, userID, quiz.ID).Return(nil)
				repo.On("GetQuizByID", mock.Anything, quiz.ID).Return(quiz, nil)
			},
			check: func(t *testing.T, set *model.QuestionSet) {
				assert.Equal(t, quiz.ID, set.QuizID)
				assert.Equal(t, 0, set.StartIndex)
				assert.Equal(t, 10, set.EndIndex)
				assert.Equal(t, 25, set.TotalQuestions)
				assert.Len(t, set.Questions, 10)
			},
		},
		{
			name: "short final slice near the end of the quiz",
			mockSetup: func(repo *mocks.MockQuizRepository) {
				repo.On("GetUserByID", mock.Anything, userID).
					Return(&model.User{ID: userID, QuizID: &quiz.ID, CurrentQuestionIndex: 20}, nil)
				repo.On("GetOrCreateDailyAttempt", mock.Anything, userID, today, &quiz.ID, 20).
					Return(&model.DailyQuizAttempt{UserID: userID, Day: today, SetsCompleted: 2}, nil)
				repo.On("GetQuizByID", mock.Anything, quiz.ID).Return(quiz, nil)
			},
			check: func(t *testing.T, set *model.QuestionSet) {
				assert.Equal(t, 20, set.StartIndex)
				assert.Equal(t, 25, set.EndIndex)
				assert.Len(t, set.Questions, 5)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.MockQuizRepository{}
			tt.mockSetup(repo)

			svc := NewQuizService(repo)
			set, err := svc.GetQuestionSet(context.Background(), userID)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}

			require.NoError(t, err)
			tt.check(t, set)
			repo.AssertExpectations(t)
		})
	}
}

func TestQuizService_GetQuestionSet_QuestionsCarryAnswerKey(t *testing.T) {
	// The client grades sets locally, so the correct index ships with every
	// question.
	userID := uuid.New()
	quiz := makeQuiz(10)

	repo := &mocks.MockQuizRepository{}
	repo.On("GetUserByID", mock.Anything, userID).
		Return(&model.User{ID: userID, QuizID: &quiz.ID}, nil)
	repo.On("GetOrCreateDailyAttempt", mock.Anything, userID, daykey.Today(), &quiz.ID, 0).
		Return(&model.DailyQuizAttempt{UserID: userID}, nil)
	repo.On("GetQuizByID", mock.Anything, quiz.ID).Return(quiz, nil)

	set, err := NewQuizService(repo).GetQuestionSet(context.Background(), userID)
	require.NoError(t, err)

	for _, q := range set.Questions {
		assert.Equal(t, 1, q.CorrectIndex)
		assert.GreaterOrEqual(t, len(q.Options), 2)
	}
}

func TestQuizService_UpdateQuestionIndex(t *testing.T) {
	userID := uuid.New()
	quizID := uuid.New()
	otherQuizID := uuid.New()

	tests := []struct {
		name          string
		quizID        uuid.UUID
		mockSetup     func(repo *mocks.MockQuizRepository)
		expectedError error
	}{
		{
			name:   "mismatched quiz id",
			quizID: otherQuizID,
			mockSetup: func(repo *mocks.MockQuizRepository) {
				repo.On("GetUserByID", mock.Anything, userID).
					Return(&model.User{ID: userID, QuizID: &quizID}, nil)
			},
			expectedError: ErrQuizMismatch,
		},
		{
			name:   "no current quiz",
			quizID: quizID,
			mockSetup: func(repo *mocks.MockQuizRepository) {
				repo.On("GetUserByID", mock.Anything, userID).
					Return(&model.User{ID: userID}, nil)
			},
			expectedError: ErrQuizMismatch,
		},
		{
			name:   "matching quiz id",
			quizID: quizID,
			mockSetup: func(repo *mocks.MockQuizRepository) {
				repo.On("GetUserByID", mock.Anything, userID).
					Return(&model.User{ID: userID, QuizID: &quizID}, nil)
				repo.On("UpdateQuestionIndex", mock.Anything, userID, 10).Return(nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.MockQuizRepository{}
			tt.mockSetup(repo)

			err := NewQuizService(repo).UpdateQuestionIndex(context.Background(), userID, tt.quizID, 10)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestQuizService_MarkAttempted(t *testing.T) {
	userID := uuid.New()
	today := daykey.Today()

	tests := []struct {
		name      string
		score     int
		timeTaken int
		mockSetup func(repo *mocks.MockQuizRepository)
		check     func(*testing.T, *SetOutcome, *mocks.MockQuizRepository)
	}{
		{
			name:      "zero score locks the user",
			score:     0,
			timeTaken: 45,
			mockSetup: func(repo *mocks.MockQuizRepository) {
				repo.On("GetUserByID", mock.Anything, userID).Return(&model.User{ID: userID}, nil)
				repo.On("FailDailySet", mock.Anything, userID, today, 0, 45).
					Return(&model.DailyQuizAttempt{UserID: userID, SetsCompleted: 3, DailyPoints: 20}, nil)
			},
			check: func(t *testing.T, outcome *SetOutcome, repo *mocks.MockQuizRepository) {
				assert.True(t, outcome.Locked)
				assert.False(t, outcome.BecameEligible)
			},
		},
		{
			name:      "nine out of ten is still a hard fail",
			score:     9,
			timeTaken: 30,
			mockSetup: func(repo *mocks.MockQuizRepository) {
				repo.On("GetUserByID", mock.Anything, userID).Return(&model.User{ID: userID}, nil)
				repo.On("FailDailySet", mock.Anything, userID, today, 9, 30).
					Return(&model.DailyQuizAttempt{UserID: userID, SetsCompleted: 1, DailyPoints: 9}, nil)
			},
			check: func(t *testing.T, outcome *SetOutcome, repo *mocks.MockQuizRepository) {
				assert.True(t, outcome.Locked)
				repo.AssertNotCalled(t, "CommitLeaderboardEligibility", mock.Anything, mock.Anything, mock.Anything)
			},
		},
		{
			name:      "perfect set before the 20th stays uncommitted",
			score:     10,
			timeTaken: 30,
			mockSetup: func(repo *mocks.MockQuizRepository) {
				repo.On("GetUserByID", mock.Anything, userID).Return(&model.User{ID: userID}, nil)
				repo.On("CompleteDailySet", mock.Anything, userID, today, 10, 30).
					Return(&model.DailyQuizAttempt{UserID: userID, SetsCompleted: 5, DailyPoints: 50}, nil)
			},
			check: func(t *testing.T, outcome *SetOutcome, repo *mocks.MockQuizRepository) {
				assert.False(t, outcome.Locked)
				assert.False(t, outcome.BecameEligible)
				repo.AssertNotCalled(t, "CommitLeaderboardEligibility", mock.Anything, mock.Anything, mock.Anything)
			},
		},
		{
			name:      "20th perfect set of a 200-point day commits eligibility",
			score:     10,
			timeTaken: 30,
			mockSetup: func(repo *mocks.MockQuizRepository) {
				repo.On("GetUserByID", mock.Anything, userID).Return(&model.User{ID: userID}, nil)
				repo.On("CompleteDailySet", mock.Anything, userID, today, 10, 30).
					Return(&model.DailyQuizAttempt{UserID: userID, SetsCompleted: 20, DailyPoints: 200}, nil)
				repo.On("CommitLeaderboardEligibility", mock.Anything, userID, today).
					Return(true, nil)
			},
			check: func(t *testing.T, outcome *SetOutcome, repo *mocks.MockQuizRepository) {
				assert.False(t, outcome.Locked)
				assert.True(t, outcome.BecameEligible)
			},
		},
		{
			name:      "20 sets without 200 points never commits",
			score:     10,
			timeTaken: 30,
			mockSetup: func(repo *mocks.MockQuizRepository) {
				repo.On("GetUserByID", mock.Anything, userID).Return(&model.User{ID: userID}, nil)
				repo.On("CompleteDailySet", mock.Anything, userID, today, 10, 30).
					Return(&model.DailyQuizAttempt{UserID: userID, SetsCompleted: 20, DailyPoints: 190}, nil)
			},
			check: func(t *testing.T, outcome *SetOutcome, repo *mocks.MockQuizRepository) {
				assert.False(t, outcome.BecameEligible)
				repo.AssertNotCalled(t, "CommitLeaderboardEligibility", mock.Anything, mock.Anything, mock.Anything)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.MockQuizRepository{}
			tt.mockSetup(repo)

			outcome, err := NewQuizService(repo).MarkAttempted(context.Background(), userID, tt.score, tt.timeTaken)
			require.NoError(t, err)

			tt.check(t, outcome, repo)
			repo.AssertExpectations(t)
		})
	}
}

func TestQuizService_Leaderboard(t *testing.T) {
	entries := []*model.LeaderboardEntry{
		{UserID: uuid.New(), Phone: "+26876000001", DailyPoints: 200, DailyTimeTaken: 3000},
		{UserID: uuid.New(), Phone: "+26876000002", DailyPoints: 200, DailyTimeTaken: 3600},
	}

	repo := &mocks.MockQuizRepository{}
	repo.On("Leaderboard", mock.Anything, daykey.Today(), LeaderboardSize).
		Return(entries, nil)

	got, err := NewQuizService(repo).Leaderboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entries, got)
	repo.AssertExpectations(t)
}

func TestQuizService_ResetDailyAttempt(t *testing.T) {
	userID := uuid.New()

	t.Run("unknown user", func(t *testing.T) {
		repo := &mocks.MockQuizRepository{}
		repo.On("ResetDailyAttempt", mock.Anything, userID, daykey.Today()).
			Return(repository.ErrNotFound)

		err := NewQuizService(repo).ResetDailyAttempt(context.Background(), userID)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("resets today's ledger", func(t *testing.T) {
		repo := &mocks.MockQuizRepository{}
		repo.On("ResetDailyAttempt", mock.Anything, userID, daykey.Today()).Return(nil)

		err := NewQuizService(repo).ResetDailyAttempt(context.Background(), userID)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})
}
