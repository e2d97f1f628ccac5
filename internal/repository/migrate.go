package repository

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		phone TEXT NOT NULL UNIQUE,
		otp_hash TEXT,
		otp_expiry TIMESTAMPTZ,
		last_otp_sent TIMESTAMPTZ,
		is_phone_verified BOOLEAN NOT NULL DEFAULT FALSE,
		verify_attempts INTEGER NOT NULL DEFAULT 0,
		is_attempt_quiz BOOLEAN NOT NULL DEFAULT FALSE,
		quiz_id UUID,
		current_question_index INTEGER NOT NULL DEFAULT 0,
		total_points INTEGER NOT NULL DEFAULT 0,
		total_time_taken INTEGER NOT NULL DEFAULT 0,
		current_szl_assigned INTEGER NOT NULL DEFAULT 0,
		registration_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS quizzes (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id UUID PRIMARY KEY,
		quiz_id UUID NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		question TEXT NOT NULL,
		options JSONB NOT NULL,
		correct_index INTEGER NOT NULL,
		UNIQUE (quiz_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS daily_quiz_attempts (
		user_id UUID NOT NULL REFERENCES users(id),
		day DATE NOT NULL,
		sets_completed INTEGER NOT NULL DEFAULT 0,
		daily_points INTEGER NOT NULL DEFAULT 0,
		daily_time_taken INTEGER NOT NULL DEFAULT 0,
		is_eligible_for_leaderboard BOOLEAN NOT NULL DEFAULT FALSE,
		quiz_id UUID,
		current_question_index INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, day)
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		phone TEXT NOT NULL,
		reference_id UUID NOT NULL UNIQUE,
		amount INTEGER NOT NULL,
		currency TEXT NOT NULL DEFAULT 'SZL',
		status TEXT NOT NULL DEFAULT 'PENDING',
		reason TEXT,
		payer_message TEXT,
		payee_note TEXT,
		raw_response JSONB NOT NULL DEFAULT '{}',
		kind TEXT NOT NULL DEFAULT 'collection',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS payments_user_created_idx
		ON payments (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS attempts_day_eligible_idx
		ON daily_quiz_attempts (day) WHERE is_eligible_for_leaderboard`,
}

// Migrate applies the schema. Statements are idempotent so it is safe to run
// on every start.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
