package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
	"time"

	"superwinnings_backend/internal/model"
	"superwinnings_backend/internal/repository"
	"superwinnings_backend/pkg/auth"
	"superwinnings_backend/pkg/logger"
	"superwinnings_backend/pkg/sms"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	otpLength         = 6
	otpLifetime       = 5 * time.Minute
	otpResendInterval = time.Minute
)

// Swaziland MSISDN: +268 followed by 8 digits.
var phonePattern = regexp.MustCompile(`^\+268\d{8}$`)

type AuthService struct {
	repo AuthRepository
	sms  sms.Sender
	jwt  *auth.JWTAuth
}

func NewAuthService(repo AuthRepository, smsSender sms.Sender, jwtAuth *auth.JWTAuth) *AuthService {
	return &AuthService{
		repo: repo,
		sms:  smsSender,
		jwt:  jwtAuth,
	}
}

// RequestOTP generates a fresh OTP for the phone, stores only its bcrypt
// hash and sends the plaintext over SMS. Resends are throttled to one per
// minute.
func (s *AuthService) RequestOTP(ctx context.Context, phone string) error {
	if !phonePattern.MatchString(phone) {
		return ErrInvalidPhone
	}

	user, err := s.repo.GetUserByPhone(ctx, phone)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	now := time.Now().UTC()
	if user != nil && user.LastOTPSent != nil && now.Sub(*user.LastOTPSent) < otpResendInterval {
		return ErrOTPThrottled
	}

	otp, err := generateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash otp: %w", err)
	}

	if _, err := s.repo.UpsertUserOTP(ctx, phone, string(hash), now.Add(otpLifetime), now); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}

	if err := s.sms.SendOTP(ctx, phone, otp); err != nil {
		return fmt.Errorf("failed to send otp sms: %w", err)
	}

	logger.Logger().Info("otp sent", zap.String("phone", phone))
	return nil
}

// VerifyOTP checks the submitted code, marks the phone verified and issues
// a session token. A stale OTP is cleared on first sight; a wrong code
// counts against verify_attempts.
func (s *AuthService) VerifyOTP(ctx context.Context, phone, otp string) (string, *model.User, error) {
	user, err := s.repo.GetUserByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrUserNotFound
		}
		return "", nil, err
	}

	if user.OTPHash == nil || user.OTPExpiry == nil {
		return "", nil, ErrOTPMissing
	}

	if user.OTPExpiry.Before(time.Now().UTC()) {
		if err := s.repo.ClearUserOTP(ctx, user.ID); err != nil {
			return "", nil, err
		}
		return "", nil, ErrOTPExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.OTPHash), []byte(otp)); err != nil {
		if incErr := s.repo.IncrementVerifyAttempts(ctx, user.ID); incErr != nil {
			logger.Logger().Error("failed to count verify attempt", zap.Error(incErr))
		}
		return "", nil, ErrOTPInvalid
	}

	if err := s.repo.MarkPhoneVerified(ctx, user.ID); err != nil {
		return "", nil, err
	}

	token, err := s.jwt.IssueToken(user.ID, user.Phone)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	user.IsPhoneVerified = true
	user.OTPHash = nil
	user.OTPExpiry = nil
	user.VerifyAttempts = 0

	return token, user, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func generateOTP() (string, error) {
	buf := make([]byte, otpLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	digits := make([]byte, otpLength)
	for i, b := range buf {
		digits[i] = '0' + b%10
	}

	return string(digits), nil
}
