package service

import (
	"context"
	"errors"
	"time"

	"superwinnings_backend/internal/model"
	"superwinnings_backend/pkg/momo"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrQuizNotFound       = errors.New("quiz not found")
	ErrNoActiveQuiz       = errors.New("no active quizzes available")
	ErrDailyLimitExceeded = errors.New("daily limit of question sets reached")
	ErrAttemptLocked      = errors.New("previous set failed, purchase required to continue")
	ErrQuizMismatch       = errors.New("quiz id does not match the user's current quiz")

	ErrInvalidPhone = errors.New("invalid phone format")
	ErrOTPThrottled = errors.New("otp recently sent, wait before requesting another")
	ErrOTPMissing   = errors.New("no otp pending for this phone")
	ErrOTPExpired   = errors.New("otp expired")
	ErrOTPInvalid   = errors.New("otp does not match")

	ErrAmountRequired  = errors.New("amount is required")
	ErrPaymentNotFound = errors.New("payment not found")
)

type Service struct {
	*AuthService
	*QuizService
	*PaymentService
	*AdminService
}

func NewService(auth *AuthService, quiz *QuizService, payment *PaymentService, admin *AdminService) *Service {
	return &Service{
		AuthService:    auth,
		QuizService:    quiz,
		PaymentService: payment,
		AdminService:   admin,
	}
}

type AuthServiceI interface {
	RequestOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, otp string) (string, *model.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type AuthRepository interface {
	GetUserByPhone(ctx context.Context, phone string) (*model.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpsertUserOTP(ctx context.Context, phone, otpHash string, expiry, sentAt time.Time) (*model.User, error)
	MarkPhoneVerified(ctx context.Context, id uuid.UUID) error
	ClearUserOTP(ctx context.Context, id uuid.UUID) error
	IncrementVerifyAttempts(ctx context.Context, id uuid.UUID) error
}

type QuizServiceI interface {
	GetQuestionSet(ctx context.Context, userID uuid.UUID) (*model.QuestionSet, error)
	UpdateQuestionIndex(ctx context.Context, userID, quizID uuid.UUID, newIndex int) error
	MarkAttempted(ctx context.Context, userID uuid.UUID, score, timeTaken int) (*SetOutcome, error)
	Leaderboard(ctx context.Context) ([]*model.LeaderboardEntry, error)
	ResetDailyAttempt(ctx context.Context, userID uuid.UUID) error
}

type QuizRepository interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetQuizByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
	GetFirstActiveQuiz(ctx context.Context) (*model.Quiz, error)
	AssignQuiz(ctx context.Context, userID, quizID uuid.UUID) error
	UpdateQuestionIndex(ctx context.Context, userID uuid.UUID, newIndex int) error
	GetOrCreateDailyAttempt(ctx context.Context, userID uuid.UUID, day time.Time, quizID *uuid.UUID, questionIndex int) (*model.DailyQuizAttempt, error)
	CompleteDailySet(ctx context.Context, userID uuid.UUID, day time.Time, score, timeTaken int) (*model.DailyQuizAttempt, error)
	FailDailySet(ctx context.Context, userID uuid.UUID, day time.Time, score, timeTaken int) (*model.DailyQuizAttempt, error)
	CommitLeaderboardEligibility(ctx context.Context, userID uuid.UUID, day time.Time) (bool, error)
	ResetDailyAttempt(ctx context.Context, userID uuid.UUID, day time.Time) error
	Leaderboard(ctx context.Context, day time.Time, limit int) ([]*model.LeaderboardEntry, error)
}

type PaymentServiceI interface {
	CreateSubscription(ctx context.Context, user *model.User, amount int) (*SubscriptionResult, error)
	SubscriptionStatus(ctx context.Context, userID, referenceID uuid.UUID) (*SubscriptionResult, error)
	ListPayments(ctx context.Context, userID uuid.UUID) ([]*model.Payment, error)
	RewardWinners(ctx context.Context) (*RewardSummary, error)
}

type PaymentRepository interface {
	CreatePayment(ctx context.Context, payment *model.Payment) error
	GetUserPaymentByReference(ctx context.Context, userID, referenceID uuid.UUID) (*model.Payment, error)
	ListPayments(ctx context.Context, userID uuid.UUID) ([]*model.Payment, error)
	SettlePayment(ctx context.Context, referenceID uuid.UUID, status string, reason *string, raw []byte, unlockOnCredit bool) (*model.Payment, bool, error)
	Leaderboard(ctx context.Context, day time.Time, limit int) ([]*model.LeaderboardEntry, error)
}

// MomoClient is the slice of pkg/momo used by the payment service, one
// instance per product.
type MomoClient interface {
	RequestTransaction(ctx context.Context, referenceID uuid.UUID, amount int, phone, partyMessage, partyNote string) error
	TransactionStatus(ctx context.Context, referenceID uuid.UUID) (*momo.TransactionStatus, error)
	Currency() string
}

type AdminServiceI interface {
	CreateQuiz(ctx context.Context, title, createdBy string, questions []model.Question) (*model.Quiz, error)
	ListQuizzes(ctx context.Context) ([]*model.QuizSummary, error)
	GetQuiz(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
	AddQuestions(ctx context.Context, quizID uuid.UUID, questions []model.Question) error
}

type AdminRepository interface {
	CreateQuiz(ctx context.Context, quiz *model.Quiz) error
	ListQuizzes(ctx context.Context) ([]*model.QuizSummary, error)
	GetQuizByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
	AddQuestions(ctx context.Context, quizID uuid.UUID, questions []model.Question) error
}
