// Package mocks holds hand-written testify mocks for the service layer's
// repository and provider interfaces.
package mocks

import (
	"context"
	"time"

	"superwinnings_backend/internal/model"
	"superwinnings_backend/pkg/momo"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockQuizRepository struct {
	mock.Mock
}

func (m *MockQuizRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockQuizRepository) GetQuizByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Quiz), args.Error(1)
}

func (m *MockQuizRepository) GetFirstActiveQuiz(ctx context.Context) (*model.Quiz, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Quiz), args.Error(1)
}

func (m *MockQuizRepository) AssignQuiz(ctx context.Context, userID, quizID uuid.UUID) error {
	args := m.Called(ctx, userID, quizID)
	return args.Error(0)
}

func (m *MockQuizRepository) UpdateQuestionIndex(ctx context.Context, userID uuid.UUID, newIndex int) error {
	args := m.Called(ctx, userID, newIndex)
	return args.Error(0)
}

func (m *MockQuizRepository) GetOrCreateDailyAttempt(ctx context.Context, userID uuid.UUID, day time.Time, quizID *uuid.UUID, questionIndex int) (*model.DailyQuizAttempt, error) {
	args := m.Called(ctx, userID, day, quizID, questionIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DailyQuizAttempt), args.Error(1)
}

func (m *MockQuizRepository) CompleteDailySet(ctx context.Context, userID uuid.UUID, day time.Time, score, timeTaken int) (*model.DailyQuizAttempt, error) {
	args := m.Called(ctx, userID, day, score, timeTaken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DailyQuizAttempt), args.Error(1)
}

func (m *MockQuizRepository) FailDailySet(ctx context.Context, userID uuid.UUID, day time.Time, score, timeTaken int) (*model.DailyQuizAttempt, error) {
	args := m.Called(ctx, userID, day, score, timeTaken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DailyQuizAttempt), args.Error(1)
}

func (m *MockQuizRepository) CommitLeaderboardEligibility(ctx context.Context, userID uuid.UUID, day time.Time) (bool, error) {
	args := m.Called(ctx, userID, day)
	return args.Bool(0), args.Error(1)
}

func (m *MockQuizRepository) ResetDailyAttempt(ctx context.Context, userID uuid.UUID, day time.Time) error {
	args := m.Called(ctx, userID, day)
	return args.Error(0)
}

func (m *MockQuizRepository) Leaderboard(ctx context.Context, day time.Time, limit int) ([]*model.LeaderboardEntry, error) {
	args := m.Called(ctx, day, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.LeaderboardEntry), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) CreatePayment(ctx context.Context, payment *model.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetUserPaymentByReference(ctx context.Context, userID, referenceID uuid.UUID) (*model.Payment, error) {
	args := m.Called(ctx, userID, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ListPayments(ctx context.Context, userID uuid.UUID) ([]*model.Payment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) SettlePayment(ctx context.Context, referenceID uuid.UUID, status string, reason *string, raw []byte, unlockOnCredit bool) (*model.Payment, bool, error) {
	args := m.Called(ctx, referenceID, status, reason, raw, unlockOnCredit)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.Payment), args.Bool(1), args.Error(2)
}

func (m *MockPaymentRepository) Leaderboard(ctx context.Context, day time.Time, limit int) ([]*model.LeaderboardEntry, error) {
	args := m.Called(ctx, day, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.LeaderboardEntry), args.Error(1)
}

type MockAuthRepository struct {
	mock.Mock
}

func (m *MockAuthRepository) GetUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthRepository) UpsertUserOTP(ctx context.Context, phone, otpHash string, expiry, sentAt time.Time) (*model.User, error) {
	args := m.Called(ctx, phone, otpHash, expiry, sentAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthRepository) MarkPhoneVerified(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAuthRepository) ClearUserOTP(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAuthRepository) IncrementVerifyAttempts(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockMomoClient struct {
	mock.Mock
}

func (m *MockMomoClient) RequestTransaction(ctx context.Context, referenceID uuid.UUID, amount int, phone, partyMessage, partyNote string) error {
	args := m.Called(ctx, referenceID, amount, phone, partyMessage, partyNote)
	return args.Error(0)
}

func (m *MockMomoClient) TransactionStatus(ctx context.Context, referenceID uuid.UUID) (*momo.TransactionStatus, error) {
	args := m.Called(ctx, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*momo.TransactionStatus), args.Error(1)
}

func (m *MockMomoClient) Currency() string {
	args := m.Called()
	return args.String(0)
}

type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) SendOTP(ctx context.Context, phone, otp string) error {
	args := m.Called(ctx, phone, otp)
	return args.Error(0)
}
