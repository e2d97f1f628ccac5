package service

import (
	"context"
	"testing"
	"time"

	"superwinnings_backend/internal/model"
	"superwinnings_backend/internal/repository"
	"superwinnings_backend/internal/service/mocks"
	"superwinnings_backend/pkg/auth"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(repo *mocks.MockAuthRepository, sender *mocks.MockSMSSender) *AuthService {
	return NewAuthService(repo, sender, auth.NewJWTAuth(auth.Config{Secret: "test-secret"}))
}

func hashOTP(t *testing.T, otp string) *string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.MinCost)
	require.NoError(t, err)
	s := string(hash)
	return &s
}

func TestAuthService_RequestOTP(t *testing.T) {
	phone := "+26876123456"

	t.Run("invalid phone", func(t *testing.T) {
		svc := newTestAuthService(&mocks.MockAuthRepository{}, &mocks.MockSMSSender{})

		for _, bad := range []string{"", "26876123456", "+2687612345", "+27761234567", "+268761234567"} {
			assert.ErrorIs(t, svc.RequestOTP(context.Background(), bad), ErrInvalidPhone)
		}
	})

	t.Run("resend throttled inside a minute", func(t *testing.T) {
		sentAt := time.Now().UTC().Add(-20 * time.Second)

		repo := &mocks.MockAuthRepository{}
		repo.On("GetUserByPhone", mock.Anything, phone).
			Return(&model.User{ID: uuid.New(), Phone: phone, LastOTPSent: &sentAt}, nil)

		sender := &mocks.MockSMSSender{}
		svc := newTestAuthService(repo, sender)

		err := svc.RequestOTP(context.Background(), phone)
		assert.ErrorIs(t, err, ErrOTPThrottled)
		sender.AssertNotCalled(t, "SendOTP", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("new phone gets an otp", func(t *testing.T) {
		repo := &mocks.MockAuthRepository{}
		repo.On("GetUserByPhone", mock.Anything, phone).
			Return(nil, repository.ErrNotFound)
		repo.On("UpsertUserOTP", mock.Anything, phone, mock.Anything, mock.Anything, mock.Anything).
			Return(&model.User{ID: uuid.New(), Phone: phone}, nil)

		var sentOTP string
		sender := &mocks.MockSMSSender{}
		sender.On("SendOTP", mock.Anything, phone, mock.MatchedBy(func(otp string) bool {
			sentOTP = otp
			return len(otp) == otpLength
		})).Return(nil)

		svc := newTestAuthService(repo, sender)

		require.NoError(t, svc.RequestOTP(context.Background(), phone))

		// The stored hash must verify against the code that went out.
		storedHash := repo.Calls[1].Arguments.String(2)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(sentOTP)))
		repo.AssertExpectations(t)
		sender.AssertExpectations(t)
	})

	t.Run("resend allowed after the throttle window", func(t *testing.T) {
		sentAt := time.Now().UTC().Add(-2 * time.Minute)

		repo := &mocks.MockAuthRepository{}
		repo.On("GetUserByPhone", mock.Anything, phone).
			Return(&model.User{ID: uuid.New(), Phone: phone, LastOTPSent: &sentAt}, nil)
		repo.On("UpsertUserOTP", mock.Anything, phone, mock.Anything, mock.Anything, mock.Anything).
			Return(&model.User{ID: uuid.New(), Phone: phone}, nil)

		sender := &mocks.MockSMSSender{}
		sender.On("SendOTP", mock.Anything, phone, mock.Anything).Return(nil)

		svc := newTestAuthService(repo, sender)
		assert.NoError(t, svc.RequestOTP(context.Background(), phone))
	})
}

func TestAuthService_VerifyOTP(t *testing.T) {
	phone := "+26876123456"
	userID := uuid.New()
	future := time.Now().UTC().Add(3 * time.Minute)
	past := time.Now().UTC().Add(-time.Minute)

	t.Run("unknown phone", func(t *testing.T) {
		repo := &mocks.MockAuthRepository{}
		repo.On("GetUserByPhone", mock.Anything, phone).
			Return(nil, repository.ErrNotFound)

		svc := newTestAuthService(repo, &mocks.MockSMSSender{})

		_, _, err := svc.VerifyOTP(context.Background(), phone, "123456")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("no otp requested", func(t *testing.T) {
		repo := &mocks.MockAuthRepository{}
		repo.On("GetUserByPhone", mock.Anything, phone).
			Return(&model.User{ID: userID, Phone: phone}, nil)

		svc := newTestAuthService(repo, &mocks.MockSMSSender{})

		_, _, err := svc.VerifyOTP(context.Background(), phone, "123456")
		assert.ErrorIs(t, err, ErrOTPMissing)
	})

	t.Run("expired otp is cleared", func(t *testing.T) {
		repo := &mocks.MockAuthRepository{}
		repo.On("GetUserByPhone", mock.Anything, phone).
			Return(&model.User{ID: userID, Phone: phone, OTPHash: hashOTP(t, "123456"), OTPExpiry: &past}, nil)
		repo.On("ClearUserOTP", mock.Anything, userID).Return(nil)

		svc := newTestAuthService(repo, &mocks.MockSMSSender{})

		_, _, err := svc.VerifyOTP(context.Background(), phone, "123456")
		assert.ErrorIs(t, err, ErrOTPExpired)
		repo.AssertExpectations(t)
	})

	t.Run("wrong code counts an attempt", func(t *testing.T) {
		repo := &mocks.MockAuthRepository{}
		repo.On("GetUserByPhone", mock.Anything, phone).
			Return(&model.User{ID: userID, Phone: phone, OTPHash: hashOTP(t, "123456"), OTPExpiry: &future}, nil)
		repo.On("IncrementVerifyAttempts", mock.Anything, userID).Return(nil)

		svc := newTestAuthService(repo, &mocks.MockSMSSender{})

		_, _, err := svc.VerifyOTP(context.Background(), phone, "654321")
		assert.ErrorIs(t, err, ErrOTPInvalid)
		repo.AssertExpectations(t)
	})

	t.Run("correct code verifies and issues a token", func(t *testing.T) {
		repo := &mocks.MockAuthRepository{}
		repo.On("GetUserByPhone", mock.Anything, phone).
			Return(&model.User{ID: userID, Phone: phone, OTPHash: hashOTP(t, "123456"), OTPExpiry: &future}, nil)
		repo.On("MarkPhoneVerified", mock.Anything, userID).Return(nil)

		jwtAuth := auth.NewJWTAuth(auth.Config{Secret: "test-secret"})
		svc := NewAuthService(repo, &mocks.MockSMSSender{}, jwtAuth)

		token, user, err := svc.VerifyOTP(context.Background(), phone, "123456")
		require.NoError(t, err)

		assert.True(t, user.IsPhoneVerified)
		assert.Nil(t, user.OTPHash)

		session, err := jwtAuth.ParseToken(token)
		require.NoError(t, err)
		assert.Equal(t, userID, session.UserID)
		assert.Equal(t, phone, session.Phone)
	})
}

func TestAuthService_GetUserByID(t *testing.T) {
	userID := uuid.New()

	repo := &mocks.MockAuthRepository{}
	repo.On("GetUserByID", mock.Anything, userID).
		Return(nil, repository.ErrNotFound)

	svc := newTestAuthService(repo, &mocks.MockSMSSender{})

	_, err := svc.GetUserByID(context.Background(), userID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
