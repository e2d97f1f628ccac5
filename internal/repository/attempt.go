package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"superwinnings_backend/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type DailyQuizAttempt struct {
	UserID                   uuid.UUID  `db:"user_id"`
	Day                      time.Time  `db:"day"`
	SetsCompleted            int        `db:"sets_completed"`
	DailyPoints              int        `db:"daily_points"`
	DailyTimeTaken           int        `db:"daily_time_taken"`
	IsEligibleForLeaderboard bool       `db:"is_eligible_for_leaderboard"`
	QuizID                   *uuid.UUID `db:"quiz_id"`
	CurrentQuestionIndex     int        `db:"current_question_index"`
}

var attemptColumns = []string{
	"user_id", "day", "sets_completed", "daily_points", "daily_time_taken",
	"is_eligible_for_leaderboard", "quiz_id", "current_question_index",
}

func (a *DailyQuizAttempt) toModel() *model.DailyQuizAttempt {
	return &model.DailyQuizAttempt{
		UserID:                   a.UserID,
		Day:                      a.Day,
		SetsCompleted:            a.SetsCompleted,
		DailyPoints:              a.DailyPoints,
		DailyTimeTaken:           a.DailyTimeTaken,
		IsEligibleForLeaderboard: a.IsEligibleForLeaderboard,
		QuizID:                   a.QuizID,
		CurrentQuestionIndex:     a.CurrentQuestionIndex,
	}
}

// GetOrCreateDailyAttempt returns today's ledger row, inserting it on first
// contact. The (user_id, day) primary key is the only guard against
// concurrent creation: the insert is ON CONFLICT DO NOTHING and the row is
// re-read afterwards, so a lost race degrades to a plain read.
func (r *Repository) GetOrCreateDailyAttempt(ctx context.Context, userID uuid.UUID, day time.Time, quizID *uuid.UUID, questionIndex int) (*model.DailyQuizAttempt, error) {
	query, args, err := squirrel.
		Insert("daily_quiz_attempts").
		SetMap(map[string]interface{}{
			"user_id":                userID,
			"day":                    day,
			"quiz_id":                quizID,
			"current_question_index": questionIndex,
		}).
		Suffix("ON CONFLICT (user_id, day) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return r.GetDailyAttempt(ctx, userID, day)
}

func (r *Repository) GetDailyAttempt(ctx context.Context, userID uuid.UUID, day time.Time) (*model.DailyQuizAttempt, error) {
	query, args, err := squirrel.
		Select(attemptColumns...).
		From("daily_quiz_attempts").
		Where(squirrel.Eq{"user_id": userID, "day": day}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var attempt DailyQuizAttempt
	err = r.db.GetContext(ctx, &attempt, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return attempt.toModel(), nil
}

// CompleteDailySet increments the ledger counters for one finished set and
// returns the row as it stands after the increment. The row is created on
// the fly if the dispenser never ran today.
func (r *Repository) CompleteDailySet(ctx context.Context, userID uuid.UUID, day time.Time, score, timeTaken int) (*model.DailyQuizAttempt, error) {
	var attempt DailyQuizAttempt
	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		return incrementAttemptWithTx(ctx, tx, &attempt, userID, day, score, timeTaken)
	})
	if err != nil {
		return nil, err
	}

	return attempt.toModel(), nil
}

// FailDailySet increments the ledger counters and locks the user out in the
// same transaction: is_attempt_quiz is raised, the quiz pointer cleared and
// the question index rewound to 0.
func (r *Repository) FailDailySet(ctx context.Context, userID uuid.UUID, day time.Time, score, timeTaken int) (*model.DailyQuizAttempt, error) {
	var attempt DailyQuizAttempt
	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := incrementAttemptWithTx(ctx, tx, &attempt, userID, day, score, timeTaken); err != nil {
			return err
		}

		query, args, err := squirrel.
			Update("users").
			SetMap(map[string]interface{}{
				"is_attempt_quiz":        true,
				"quiz_id":                nil,
				"current_question_index": 0,
			}).
			Where(squirrel.Eq{"id": userID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, err
	}

	return attempt.toModel(), nil
}

func incrementAttemptWithTx(ctx context.Context, tx *sqlx.Tx, dest *DailyQuizAttempt, userID uuid.UUID, day time.Time, score, timeTaken int) error {
	query, args, err := squirrel.
		Insert("daily_quiz_attempts").
		SetMap(map[string]interface{}{
			"user_id":          userID,
			"day":              day,
			"sets_completed":   1,
			"daily_points":     score,
			"daily_time_taken": timeTaken,
		}).
		Suffix(`ON CONFLICT (user_id, day) DO UPDATE SET
			sets_completed = daily_quiz_attempts.sets_completed + 1,
			daily_points = daily_quiz_attempts.daily_points + EXCLUDED.daily_points,
			daily_time_taken = daily_quiz_attempts.daily_time_taken + EXCLUDED.daily_time_taken
			RETURNING ` + "user_id, day, sets_completed, daily_points, daily_time_taken, is_eligible_for_leaderboard, quiz_id, current_question_index").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	return tx.GetContext(ctx, dest, query, args...)
}

// CommitLeaderboardEligibility flips today's row to eligible and rolls the
// day's points and time into the user's lifetime totals. The flip is a
// compare-and-set on is_eligible_for_leaderboard, so calling it twice
// commits the lifetime totals only once.
func (r *Repository) CommitLeaderboardEligibility(ctx context.Context, userID uuid.UUID, day time.Time) (bool, error) {
	var committed bool
	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		var attempt DailyQuizAttempt
		query, args, err := squirrel.
			Update("daily_quiz_attempts").
			Set("is_eligible_for_leaderboard", true).
			Where(squirrel.Eq{
				"user_id":                     userID,
				"day":                         day,
				"is_eligible_for_leaderboard": false,
			}).
			Suffix("RETURNING " + "user_id, day, sets_completed, daily_points, daily_time_taken, is_eligible_for_leaderboard, quiz_id, current_question_index").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		err = tx.GetContext(ctx, &attempt, query, args...)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Already eligible, nothing to commit.
				return nil
			}
			return err
		}

		updateQuery, updateArgs, err := squirrel.
			Update("users").
			Set("total_points", squirrel.Expr("total_points + ?", attempt.DailyPoints)).
			Set("total_time_taken", squirrel.Expr("total_time_taken + ?", attempt.DailyTimeTaken)).
			Where(squirrel.Eq{"id": userID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, updateQuery, updateArgs...)
		if err != nil {
			return err
		}

		committed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return committed, nil
}

// ResetDailyAttempt zeroes today's counters and clears the user's attempt
// lock in one transaction. The row is upserted so a reset before the first
// question request of the day still works.
func (r *Repository) ResetDailyAttempt(ctx context.Context, userID uuid.UUID, day time.Time) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Insert("daily_quiz_attempts").
			SetMap(map[string]interface{}{
				"user_id": userID,
				"day":     day,
			}).
			Suffix(`ON CONFLICT (user_id, day) DO UPDATE SET
				sets_completed = 0,
				daily_points = 0,
				daily_time_taken = 0,
				is_eligible_for_leaderboard = FALSE`).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}

		updateQuery, updateArgs, err := squirrel.
			Update("users").
			Set("is_attempt_quiz", false).
			Where(squirrel.Eq{"id": userID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, updateQuery, updateArgs...)
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
	})
}

// Leaderboard returns eligible ledger rows for one day window joined with
// the user's phone, ordered by points descending with faster total time
// breaking ties.
func (r *Repository) Leaderboard(ctx context.Context, day time.Time, limit int) ([]*model.LeaderboardEntry, error) {
	query, args, err := squirrel.
		Select("a.user_id", "u.phone", "a.daily_points", "a.daily_time_taken").
		From("daily_quiz_attempts a").
		Join("users u ON u.id = a.user_id").
		Where(squirrel.Eq{"a.day": day, "a.is_eligible_for_leaderboard": true}).
		OrderBy("a.daily_points DESC", "a.daily_time_taken ASC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []struct {
		UserID         uuid.UUID `db:"user_id"`
		Phone          string    `db:"phone"`
		DailyPoints    int       `db:"daily_points"`
		DailyTimeTaken int       `db:"daily_time_taken"`
	}
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, err
	}

	entries := make([]*model.LeaderboardEntry, len(rows))
	for i, row := range rows {
		entries[i] = &model.LeaderboardEntry{
			UserID:         row.UserID,
			Phone:          row.Phone,
			DailyPoints:    row.DailyPoints,
			DailyTimeTaken: row.DailyTimeTaken,
		}
	}

	return entries, nil
}
