package model

import (
	"time"

	"github.com/google/uuid"
)

// DailyQuizAttempt is one ledger row per user per calendar day. Rows are
// created lazily on the first question-set request of the day and never
// deleted; the leaderboard and the reward job read them historically.
type DailyQuizAttempt struct {
	UserID                   uuid.UUID
	Day                      time.Time
	SetsCompleted            int
	DailyPoints              int
	DailyTimeTaken           int
	IsEligibleForLeaderboard bool
	QuizID                   *uuid.UUID
	CurrentQuestionIndex     int
}

// LeaderboardEntry is an aggregated, phone-joined ledger row.
type LeaderboardEntry struct {
	UserID         uuid.UUID
	Phone          string
	DailyPoints    int
	DailyTimeTaken int
}
