package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	PaymentPending    = "PENDING"
	PaymentSuccessful = "SUCCESSFUL"
	PaymentFailed     = "FAILED"
)

const (
	PaymentKindCollection   = "collection"
	PaymentKindDisbursement = "disbursement"
)

type Payment struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Phone        string
	ReferenceID  uuid.UUID
	Amount       int
	Currency     string
	Status       string
	Reason       *string
	PayerMessage *string
	PayeeNote    *string
	RawResponse  []byte
	Kind         string
	CreatedAt    time.Time
}
