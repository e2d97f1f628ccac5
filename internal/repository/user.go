package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"superwinnings_backend/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type User struct {
	ID                   uuid.UUID  `db:"id"`
	Phone                string     `db:"phone"`
	OTPHash              *string    `db:"otp_hash"`
	OTPExpiry            *time.Time `db:"otp_expiry"`
	LastOTPSent          *time.Time `db:"last_otp_sent"`
	IsPhoneVerified      bool       `db:"is_phone_verified"`
	VerifyAttempts       int        `db:"verify_attempts"`
	IsAttemptQuiz        bool       `db:"is_attempt_quiz"`
	QuizID               *uuid.UUID `db:"quiz_id"`
	CurrentQuestionIndex int        `db:"current_question_index"`
	TotalPoints          int        `db:"total_points"`
	TotalTimeTaken       int        `db:"total_time_taken"`
	CurrentSzlAssigned   int        `db:"current_szl_assigned"`
	RegistrationDate     time.Time  `db:"registration_date"`
}

var userColumns = []string{
	"id", "phone", "otp_hash", "otp_expiry", "last_otp_sent",
	"is_phone_verified", "verify_attempts", "is_attempt_quiz",
	"quiz_id", "current_question_index", "total_points",
	"total_time_taken", "current_szl_assigned", "registration_date",
}

func (u *User) toModel() *model.User {
	return &model.User{
		ID:                   u.ID,
		Phone:                u.Phone,
		OTPHash:              u.OTPHash,
		OTPExpiry:            u.OTPExpiry,
		LastOTPSent:          u.LastOTPSent,
		IsPhoneVerified:      u.IsPhoneVerified,
		VerifyAttempts:       u.VerifyAttempts,
		IsAttemptQuiz:        u.IsAttemptQuiz,
		QuizID:               u.QuizID,
		CurrentQuestionIndex: u.CurrentQuestionIndex,
		TotalPoints:          u.TotalPoints,
		TotalTimeTaken:       u.TotalTimeTaken,
		CurrentSzlAssigned:   u.CurrentSzlAssigned,
		RegistrationDate:     u.RegistrationDate,
	}
}

func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getUser(ctx, squirrel.Eq{"id": id})
}

func (r *Repository) GetUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	return r.getUser(ctx, squirrel.Eq{"phone": phone})
}

func (r *Repository) getUser(ctx context.Context, where squirrel.Eq) (*model.User, error) {
	query, args, err := squirrel.
		Select(userColumns...).
		From("users").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	err = r.db.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user.toModel(), nil
}

// UpsertUserOTP creates the user on first contact and stamps a fresh OTP
// hash, expiry and send time. A new OTP always un-verifies the phone.
func (r *Repository) UpsertUserOTP(ctx context.Context, phone, otpHash string, expiry, sentAt time.Time) (*model.User, error) {
	query, args, err := squirrel.
		Insert("users").
		SetMap(map[string]interface{}{
			"id":            uuid.New(),
			"phone":         phone,
			"otp_hash":      otpHash,
			"otp_expiry":    expiry,
			"last_otp_sent": sentAt,
		}).
		Suffix(`ON CONFLICT (phone) DO UPDATE SET
			otp_hash = EXCLUDED.otp_hash,
			otp_expiry = EXCLUDED.otp_expiry,
			last_otp_sent = EXCLUDED.last_otp_sent,
			is_phone_verified = FALSE`).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user otp: %w", err)
	}

	return r.GetUserByPhone(ctx, phone)
}

// MarkPhoneVerified clears all OTP state on successful verification.
func (r *Repository) MarkPhoneVerified(ctx context.Context, id uuid.UUID) error {
	return r.updateUser(ctx, id, map[string]interface{}{
		"is_phone_verified": true,
		"otp_hash":          nil,
		"otp_expiry":        nil,
		"verify_attempts":   0,
	})
}

func (r *Repository) ClearUserOTP(ctx context.Context, id uuid.UUID) error {
	return r.updateUser(ctx, id, map[string]interface{}{
		"otp_hash":   nil,
		"otp_expiry": nil,
	})
}

func (r *Repository) IncrementVerifyAttempts(ctx context.Context, id uuid.UUID) error {
	query, args, err := squirrel.
		Update("users").
		Set("verify_attempts", squirrel.Expr("verify_attempts + 1")).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// AssignQuiz points the user at a quiz and rewinds the question index. The
// index is only meaningful relative to quiz_id, so the two always move
// together.
func (r *Repository) AssignQuiz(ctx context.Context, userID, quizID uuid.UUID) error {
	return r.updateUser(ctx, userID, map[string]interface{}{
		"quiz_id":                quizID,
		"current_question_index": 0,
	})
}

func (r *Repository) UpdateQuestionIndex(ctx context.Context, userID uuid.UUID, newIndex int) error {
	return r.updateUser(ctx, userID, map[string]interface{}{
		"current_question_index": newIndex,
	})
}

func (r *Repository) SetAttemptLock(ctx context.Context, userID uuid.UUID, locked bool) error {
	return r.updateUser(ctx, userID, map[string]interface{}{
		"is_attempt_quiz": locked,
	})
}

func (r *Repository) updateUser(ctx context.Context, id uuid.UUID, set map[string]interface{}) error {
	query, args, err := squirrel.
		Update("users").
		SetMap(set).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func creditUserWithTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int, unlock bool) error {
	set := map[string]interface{}{
		"current_szl_assigned": squirrel.Expr("current_szl_assigned + ?", amount),
	}
	if unlock {
		set["is_attempt_quiz"] = false
	}

	query, args, err := squirrel.
		Update("users").
		SetMap(set).
		Where(squirrel.Eq{"id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, query, args...)
	return err
}
