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

type Payment struct {
	ID           uuid.UUID `db:"id"`
	UserID       uuid.UUID `db:"user_id"`
	Phone        string    `db:"phone"`
	ReferenceID  uuid.UUID `db:"reference_id"`
	Amount       int       `db:"amount"`
	Currency     string    `db:"currency"`
	Status       string    `db:"status"`
	Reason       *string   `db:"reason"`
	PayerMessage *string   `db:"payer_message"`
	PayeeNote    *string   `db:"payee_note"`
	RawResponse  []byte    `db:"raw_response"`
	Kind         string    `db:"kind"`
	CreatedAt    time.Time `db:"created_at"`
}

var paymentColumns = []string{
	"id", "user_id", "phone", "reference_id", "amount", "currency",
	"status", "reason", "payer_message", "payee_note", "raw_response",
	"kind", "created_at",
}

func (p *Payment) toModel() *model.Payment {
	return &model.Payment{
		ID:           p.ID,
		UserID:       p.UserID,
		Phone:        p.Phone,
		ReferenceID:  p.ReferenceID,
		Amount:       p.Amount,
		Currency:     p.Currency,
		Status:       p.Status,
		Reason:       p.Reason,
		PayerMessage: p.PayerMessage,
		PayeeNote:    p.PayeeNote,
		RawResponse:  p.RawResponse,
		Kind:         p.Kind,
		CreatedAt:    p.CreatedAt,
	}
}

func (r *Repository) CreatePayment(ctx context.Context, payment *model.Payment) error {
	raw := payment.RawResponse
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	query, args, err := squirrel.
		Insert("payments").
		SetMap(map[string]interface{}{
			"id":            payment.ID,
			"user_id":       payment.UserID,
			"phone":         payment.Phone,
			"reference_id":  payment.ReferenceID,
			"amount":        payment.Amount,
			"currency":      payment.Currency,
			"status":        payment.Status,
			"reason":        payment.Reason,
			"payer_message": payment.PayerMessage,
			"payee_note":    payment.PayeeNote,
			"raw_response":  raw,
			"kind":          payment.Kind,
			"created_at":    payment.CreatedAt,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	return nil
}

func (r *Repository) GetUserPaymentByReference(ctx context.Context, userID, referenceID uuid.UUID) (*model.Payment, error) {
	query, args, err := squirrel.
		Select(paymentColumns...).
		From("payments").
		Where(squirrel.Eq{"user_id": userID, "reference_id": referenceID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var payment Payment
	err = r.db.GetContext(ctx, &payment, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return payment.toModel(), nil
}

func (r *Repository) ListPayments(ctx context.Context, userID uuid.UUID) ([]*model.Payment, error) {
	query, args, err := squirrel.
		Select(paymentColumns...).
		From("payments").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []Payment
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, err
	}

	payments := make([]*model.Payment, len(rows))
	for i := range rows {
		payments[i] = rows[i].toModel()
	}

	return payments, nil
}

// SettlePayment records a freshly polled provider status and, when the row
// transitions into SUCCESSFUL, credits the user's balance in the same
// transaction. The status update is a compare-and-set that never touches a
// row already SUCCESSFUL, which makes status polling idempotent: replaying
// a SUCCESSFUL poll credits nothing.
func (r *Repository) SettlePayment(ctx context.Context, referenceID uuid.UUID, status string, reason *string, raw []byte, unlockOnCredit bool) (*model.Payment, bool, error) {
	var (
		payment  Payment
		credited bool
	)

	if len(raw) == 0 {
		raw = []byte("{}")
	}

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Update("payments").
			SetMap(map[string]interface{}{
				"status":       status,
				"reason":       reason,
				"raw_response": raw,
			}).
			Where(squirrel.Eq{"reference_id": referenceID}).
			Where(squirrel.NotEq{"status": model.PaymentSuccessful}).
			Suffix("RETURNING " + "id, user_id, phone, reference_id, amount, currency, status, reason, payer_message, payee_note, raw_response, kind, created_at").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		err = tx.GetContext(ctx, &payment, query, args...)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Row missing or already settled as SUCCESSFUL.
				return getPaymentWithTx(ctx, tx, &payment, referenceID)
			}
			return err
		}

		if status == model.PaymentSuccessful {
			if err := creditUserWithTx(ctx, tx, payment.UserID, payment.Amount, unlockOnCredit); err != nil {
				return err
			}
			credited = true
		}

		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return payment.toModel(), credited, nil
}

func getPaymentWithTx(ctx context.Context, tx *sqlx.Tx, dest *Payment, referenceID uuid.UUID) error {
	query, args, err := squirrel.
		Select(paymentColumns...).
		From("payments").
		Where(squirrel.Eq{"reference_id": referenceID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	err = tx.GetContext(ctx, dest, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	return nil
}
