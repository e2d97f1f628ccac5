package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                   uuid.UUID
	Phone                string
	OTPHash              *string
	OTPExpiry            *time.Time
	LastOTPSent          *time.Time
	IsPhoneVerified      bool
	VerifyAttempts       int
	IsAttemptQuiz        bool
	QuizID               *uuid.UUID
	CurrentQuestionIndex int
	TotalPoints          int
	TotalTimeTaken       int
	CurrentSzlAssigned   int
	RegistrationDate     time.Time
}
