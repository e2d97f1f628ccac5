package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"superwinnings_backend/internal/model"
	"superwinnings_backend/internal/repository"
	"superwinnings_backend/pkg/daykey"
	"superwinnings_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultSettleDelay       = 3 * time.Second
	defaultFirstPlaceReward  = 500
	defaultSecondPlaceReward = 300

	subscriptionPayerMessage = "Daily Gaming Subscription"
	subscriptionPayeeNote    = "MTN Momo Subscription"
	rewardPayerMessage       = "Daily Quiz Winner Reward"
	rewardPayeeNote          = "Congratulations!"
)

// RewardWinnerCount is how many leaderboard places are paid out nightly.
const RewardWinnerCount = 2

type PaymentConfig struct {
	SettleDelay       time.Duration `yaml:"settleDelay"`
	FirstPlaceReward  int           `yaml:"firstPlaceReward"`
	SecondPlaceReward int           `yaml:"secondPlaceReward"`
}

// SubscriptionResult is the outcome of a charge initiation or status poll.
type SubscriptionResult struct {
	ReferenceID uuid.UUID
	Status      string
	Message     string
	Payment     *model.Payment
}

type RewardResult struct {
	Phone        string
	RewardAmount int
	Status       string
	Reason       *string
}

type RewardSummary struct {
	Message string
	Results []RewardResult
}

type PaymentService struct {
	repo         PaymentRepository
	collection   MomoClient
	disbursement MomoClient

	settleDelay   time.Duration
	rewardAmounts [RewardWinnerCount]int
}

func NewPaymentService(repo PaymentRepository, collection, disbursement MomoClient, cfg PaymentConfig) *PaymentService {
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	if cfg.FirstPlaceReward == 0 {
		cfg.FirstPlaceReward = defaultFirstPlaceReward
	}
	if cfg.SecondPlaceReward == 0 {
		cfg.SecondPlaceReward = defaultSecondPlaceReward
	}

	return &PaymentService{
		repo:          repo,
		collection:    collection,
		disbursement:  disbursement,
		settleDelay:   cfg.SettleDelay,
		rewardAmounts: [RewardWinnerCount]int{cfg.FirstPlaceReward, cfg.SecondPlaceReward},
	}
}

// CreateSubscription submits a request-to-pay charge, waits out the
// provider's settling delay and polls the status once. The payment row is
// written PENDING before the poll; crediting happens only through the
// guarded SUCCESSFUL transition, so a later re-poll can never double-credit.
func (s *PaymentService) CreateSubscription(ctx context.Context, user *model.User, amount int) (*SubscriptionResult, error) {
	if amount <= 0 {
		return nil, ErrAmountRequired
	}

	phone := strings.TrimPrefix(user.Phone, "+")
	referenceID := uuid.New()

	err := s.collection.RequestTransaction(ctx, referenceID, amount, phone, subscriptionPayerMessage, subscriptionPayeeNote)
	if err != nil {
		return nil, fmt.Errorf("failed to initiate payment: %w", err)
	}

	payerMessage := subscriptionPayerMessage
	payeeNote := subscriptionPayeeNote
	err = s.repo.CreatePayment(ctx, &model.Payment{
		ID:           uuid.New(),
		UserID:       user.ID,
		Phone:        phone,
		ReferenceID:  referenceID,
		Amount:       amount,
		Currency:     s.collection.Currency(),
		Status:       model.PaymentPending,
		PayerMessage: &payerMessage,
		PayeeNote:    &payeeNote,
		Kind:         model.PaymentKindCollection,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	// MTN needs time to process before the first status poll is meaningful.
	time.Sleep(s.settleDelay)

	return s.settleCollection(ctx, referenceID)
}

// SubscriptionStatus re-polls the provider for an existing reference and
// applies the same guarded settle logic. Idempotent by construction.
func (s *PaymentService) SubscriptionStatus(ctx context.Context, userID, referenceID uuid.UUID) (*SubscriptionResult, error) {
	_, err := s.repo.GetUserPaymentByReference(ctx, userID, referenceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	return s.settleCollection(ctx, referenceID)
}

func (s *PaymentService) settleCollection(ctx context.Context, referenceID uuid.UUID) (*SubscriptionResult, error) {
	status, err := s.collection.TransactionStatus(ctx, referenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to poll payment status: %w", err)
	}

	payment, credited, err := s.repo.SettlePayment(ctx, referenceID, status.Status, status.Reason, status.Raw, true)
	if err != nil {
		return nil, fmt.Errorf("failed to settle payment: %w", err)
	}

	if credited {
		logger.Logger().Info("payment credited",
			zap.String("reference_id", referenceID.String()),
			zap.Int("amount", payment.Amount))
	}

	return &SubscriptionResult{
		ReferenceID: referenceID,
		Status:      payment.Status,
		Message:     statusMessage(payment),
		Payment:     payment,
	}, nil
}

func statusMessage(payment *model.Payment) string {
	switch payment.Status {
	case model.PaymentFailed:
		if payment.Reason != nil {
			return fmt.Sprintf("Payment failed due to %s.", *payment.Reason)
		}
		return "Payment failed."
	case model.PaymentSuccessful:
		return "Payment successful!"
	default:
		return "Payment is initiated. Please wait for approval."
	}
}

func (s *PaymentService) ListPayments(ctx context.Context, userID uuid.UUID) ([]*model.Payment, error) {
	payments, err := s.repo.ListPayments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

// RewardWinners pays out yesterday's top finishers through the
// disbursement product. Winners are processed independently: one failed
// transfer is recorded in the summary and does not stop the others.
func (s *PaymentService) RewardWinners(ctx context.Context) (*RewardSummary, error) {
	log := logger.Logger()
	yesterday := daykey.Yesterday()

	winners, err := s.repo.Leaderboard(ctx, yesterday, RewardWinnerCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get yesterday's winners: %w", err)
	}

	if len(winners) == 0 {
		log.Info("no eligible daily winners found for yesterday")
		return &RewardSummary{Message: "No eligible daily winners found for yesterday."}, nil
	}

	summary := &RewardSummary{
		Message: fmt.Sprintf("Top %d winners processed.", len(winners)),
		Results: make([]RewardResult, 0, len(winners)),
	}

	for rank, winner := range winners {
		summary.Results = append(summary.Results, s.rewardWinner(ctx, winner, s.rewardAmounts[rank]))
	}

	return summary, nil
}

func (s *PaymentService) rewardWinner(ctx context.Context, winner *model.LeaderboardEntry, amount int) RewardResult {
	log := logger.Logger()
	referenceID := uuid.New()
	phone := strings.TrimPrefix(winner.Phone, "+")

	log.Info("rewarding daily winner",
		zap.String("phone", winner.Phone),
		zap.Int("amount", amount),
		zap.String("reference_id", referenceID.String()))

	payerMessage := rewardPayerMessage
	payeeNote := rewardPayeeNote
	err := s.repo.CreatePayment(ctx, &model.Payment{
		ID:           uuid.New(),
		UserID:       winner.UserID,
		Phone:        phone,
		ReferenceID:  referenceID,
		Amount:       amount,
		Currency:     s.disbursement.Currency(),
		Status:       model.PaymentPending,
		PayerMessage: &payerMessage,
		PayeeNote:    &payeeNote,
		Kind:         model.PaymentKindDisbursement,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		log.Error("failed to record reward payment", zap.Error(err))
		return failedReward(winner.Phone, amount, err)
	}

	err = s.disbursement.RequestTransaction(ctx, referenceID, amount, phone, rewardPayerMessage, rewardPayeeNote)
	if err != nil {
		log.Error("disbursement not accepted", zap.String("phone", winner.Phone), zap.Error(err))
		reason := err.Error()
		if _, _, settleErr := s.repo.SettlePayment(ctx, referenceID, model.PaymentFailed, &reason, nil, false); settleErr != nil {
			log.Error("failed to record rejected disbursement", zap.Error(settleErr))
		}
		return failedReward(winner.Phone, amount, err)
	}

	time.Sleep(s.settleDelay)

	status, err := s.disbursement.TransactionStatus(ctx, referenceID)
	if err != nil {
		log.Error("failed to poll disbursement status", zap.String("phone", winner.Phone), zap.Error(err))
		return failedReward(winner.Phone, amount, err)
	}

	// A reward credit must not clear the attempt lock: only a purchased
	// subscription unlocks quiz progress.
	payment, credited, err := s.repo.SettlePayment(ctx, referenceID, status.Status, status.Reason, status.Raw, false)
	if err != nil {
		log.Error("failed to settle disbursement", zap.String("phone", winner.Phone), zap.Error(err))
		return failedReward(winner.Phone, amount, err)
	}

	if credited {
		log.Info("rewarded daily winner",
			zap.String("phone", winner.Phone),
			zap.Int("amount", amount))
	}

	return RewardResult{
		Phone:        winner.Phone,
		RewardAmount: amount,
		Status:       payment.Status,
		Reason:       payment.Reason,
	}
}

func failedReward(phone string, amount int, err error) RewardResult {
	reason := err.Error()
	return RewardResult{
		Phone:        phone,
		RewardAmount: amount,
		Status:       model.PaymentFailed,
		Reason:       &reason,
	}
}
