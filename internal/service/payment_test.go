package service

import (
	"context"
	"os"
	"testing"
	"time"

	"superwinnings_backend/internal/model"
	"superwinnings_backend/internal/repository"
	"superwinnings_backend/internal/service/mocks"
	"superwinnings_backend/pkg/daykey"
	"superwinnings_backend/pkg/logger"
	"superwinnings_backend/pkg/momo"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize("error"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestPaymentService(repo *mocks.MockPaymentRepository, collection, disbursement *mocks.MockMomoClient) *PaymentService {
	return NewPaymentService(repo, collection, disbursement, PaymentConfig{
		SettleDelay: time.Nanosecond,
	})
}

func testUser() *model.User {
	return &model.User{ID: uuid.New(), Phone: "+26876123456"}
}

func TestPaymentService_CreateSubscription(t *testing.T) {
	user := testUser()

	t.Run("amount required", func(t *testing.T) {
		svc := newTestPaymentService(&mocks.MockPaymentRepository{}, &mocks.MockMomoClient{}, &mocks.MockMomoClient{})

		_, err := svc.CreateSubscription(context.Background(), user, 0)
		assert.ErrorIs(t, err, ErrAmountRequired)
	})

	t.Run("provider rejects the charge", func(t *testing.T) {
		collection := &mocks.MockMomoClient{}
		collection.On("RequestTransaction", mock.Anything, mock.Anything, 50, "26876123456", subscriptionPayerMessage, subscriptionPayeeNote).
			Return(errors.Wrap(momo.ErrRequestRejected, "status 500"))

		repo := &mocks.MockPaymentRepository{}
		svc := newTestPaymentService(repo, collection, &mocks.MockMomoClient{})

		_, err := svc.CreateSubscription(context.Background(), user, 50)
		assert.ErrorIs(t, err, momo.ErrRequestRejected)
		repo.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
	})

	t.Run("successful charge credits through the settle transition", func(t *testing.T) {
		collection := &mocks.MockMomoClient{}
		collection.On("RequestTransaction", mock.Anything, mock.Anything, 50, "26876123456", mock.Anything, mock.Anything).
			Return(nil)
		collection.On("Currency").Return("SZL")
		collection.On("TransactionStatus", mock.Anything, mock.Anything).
			Return(&momo.TransactionStatus{Status: momo.StatusSuccessful, Raw: []byte(`{"status":"SUCCESSFUL"}`)}, nil)

		repo := &mocks.MockPaymentRepository{}
		repo.On("CreatePayment", mock.Anything, mock.MatchedBy(func(p *model.Payment) bool {
			return p.UserID == user.ID &&
				p.Phone == "26876123456" &&
				p.Amount == 50 &&
				p.Status == model.PaymentPending &&
				p.Kind == model.PaymentKindCollection
		})).Return(nil)
		repo.On("SettlePayment", mock.Anything, mock.Anything, model.PaymentSuccessful, (*string)(nil), []byte(`{"status":"SUCCESSFUL"}`), true).
			Return(&model.Payment{UserID: user.ID, Amount: 50, Status: model.PaymentSuccessful}, true, nil)

		svc := newTestPaymentService(repo, collection, &mocks.MockMomoClient{})

		result, err := svc.CreateSubscription(context.Background(), user, 50)
		require.NoError(t, err)

		assert.Equal(t, model.PaymentSuccessful, result.Status)
		assert.Equal(t, "Payment successful!", result.Message)
		repo.AssertExpectations(t)
		collection.AssertExpectations(t)
	})

	t.Run("pending charge reports awaiting approval", func(t *testing.T) {
		collection := &mocks.MockMomoClient{}
		collection.On("RequestTransaction", mock.Anything, mock.Anything, 50, "26876123456", mock.Anything, mock.Anything).
			Return(nil)
		collection.On("Currency").Return("SZL")
		collection.On("TransactionStatus", mock.Anything, mock.Anything).
			Return(&momo.TransactionStatus{Status: momo.StatusPending, Raw: []byte(`{"status":"PENDING"}`)}, nil)

		repo := &mocks.MockPaymentRepository{}
		repo.On("CreatePayment", mock.Anything, mock.Anything).Return(nil)
		repo.On("SettlePayment", mock.Anything, mock.Anything, model.PaymentPending, (*string)(nil), mock.Anything, true).
			Return(&model.Payment{UserID: user.ID, Amount: 50, Status: model.PaymentPending}, false, nil)

		svc := newTestPaymentService(repo, collection, &mocks.MockMomoClient{})

		result, err := svc.CreateSubscription(context.Background(), user, 50)
		require.NoError(t, err)

		assert.Equal(t, model.PaymentPending, result.Status)
		assert.Equal(t, "Payment is initiated. Please wait for approval.", result.Message)
	})
}

func TestPaymentService_SubscriptionStatus(t *testing.T) {
	user := testUser()
	referenceID := uuid.New()

	t.Run("unknown reference", func(t *testing.T) {
		repo := &mocks.MockPaymentRepository{}
		repo.On("GetUserPaymentByReference", mock.Anything, user.ID, referenceID).
			Return(nil, repository.ErrNotFound)

		svc := newTestPaymentService(repo, &mocks.MockMomoClient{}, &mocks.MockMomoClient{})

		_, err := svc.SubscriptionStatus(context.Background(), user.ID, referenceID)
		assert.ErrorIs(t, err, ErrPaymentNotFound)
	})

	t.Run("failed charge carries the provider reason", func(t *testing.T) {
		reason := "PAYER_NOT_FOUND"

		repo := &mocks.MockPaymentRepository{}
		repo.On("GetUserPaymentByReference", mock.Anything, user.ID, referenceID).
			Return(&model.Payment{ReferenceID: referenceID, Status: model.PaymentPending}, nil)
		repo.On("SettlePayment", mock.Anything, referenceID, model.PaymentFailed, &reason, mock.Anything, true).
			Return(&model.Payment{ReferenceID: referenceID, Status: model.PaymentFailed, Reason: &reason}, false, nil)

		collection := &mocks.MockMomoClient{}
		collection.On("TransactionStatus", mock.Anything, referenceID).
			Return(&momo.TransactionStatus{Status: momo.StatusFailed, Reason: &reason, Raw: []byte(`{}`)}, nil)

		svc := newTestPaymentService(repo, collection, &mocks.MockMomoClient{})

		result, err := svc.SubscriptionStatus(context.Background(), user.ID, referenceID)
		require.NoError(t, err)

		assert.Equal(t, model.PaymentFailed, result.Status)
		assert.Equal(t, "Payment failed due to PAYER_NOT_FOUND.", result.Message)
	})

	t.Run("re-polling a successful charge stays settled", func(t *testing.T) {
		// The repository's compare-and-set refuses to touch a row already
		// SUCCESSFUL, so a second poll reports success without crediting.
		repo := &mocks.MockPaymentRepository{}
		repo.On("GetUserPaymentByReference", mock.Anything, user.ID, referenceID).
			Return(&model.Payment{ReferenceID: referenceID, Status: model.PaymentSuccessful}, nil)
		repo.On("SettlePayment", mock.Anything, referenceID, model.PaymentSuccessful, (*string)(nil), mock.Anything, true).
			Return(&model.Payment{ReferenceID: referenceID, Status: model.PaymentSuccessful, Amount: 50}, false, nil)

		collection := &mocks.MockMomoClient{}
		collection.On("TransactionStatus", mock.Anything, referenceID).
			Return(&momo.TransactionStatus{Status: momo.StatusSuccessful, Raw: []byte(`{}`)}, nil)

		svc := newTestPaymentService(repo, collection, &mocks.MockMomoClient{})

		result, err := svc.SubscriptionStatus(context.Background(), user.ID, referenceID)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentSuccessful, result.Status)
	})
}

func TestPaymentService_RewardWinners(t *testing.T) {
	yesterday := daykey.Yesterday()

	t.Run("no eligible winners", func(t *testing.T) {
		repo := &mocks.MockPaymentRepository{}
		repo.On("Leaderboard", mock.Anything, yesterday, RewardWinnerCount).
			Return([]*model.LeaderboardEntry{}, nil)

		disbursement := &mocks.MockMomoClient{}
		svc := newTestPaymentService(repo, &mocks.MockMomoClient{}, disbursement)

		summary, err := svc.RewardWinners(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "No eligible daily winners found for yesterday.", summary.Message)
		assert.Empty(t, summary.Results)
		disbursement.AssertNotCalled(t, "RequestTransaction",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("one failed transfer does not block the other winner", func(t *testing.T) {
		first := &model.LeaderboardEntry{UserID: uuid.New(), Phone: "+26876000001", DailyPoints: 200, DailyTimeTaken: 3000}
		second := &model.LeaderboardEntry{UserID: uuid.New(), Phone: "+26876000002", DailyPoints: 200, DailyTimeTaken: 3600}

		repo := &mocks.MockPaymentRepository{}
		repo.On("Leaderboard", mock.Anything, yesterday, RewardWinnerCount).
			Return([]*model.LeaderboardEntry{first, second}, nil)
		repo.On("CreatePayment", mock.Anything, mock.MatchedBy(func(p *model.Payment) bool {
			return p.Kind == model.PaymentKindDisbursement
		})).Return(nil)
		// Rank 0 rejection is settled FAILED; rank 1 settles SUCCESSFUL.
		repo.On("SettlePayment", mock.Anything, mock.Anything, model.PaymentFailed, mock.Anything, mock.Anything, false).
			Return(&model.Payment{Status: model.PaymentFailed}, false, nil)
		repo.On("SettlePayment", mock.Anything, mock.Anything, model.PaymentSuccessful, mock.Anything, mock.Anything, false).
			Return(&model.Payment{Status: model.PaymentSuccessful, Amount: defaultSecondPlaceReward}, true, nil)

		disbursement := &mocks.MockMomoClient{}
		disbursement.On("Currency").Return("SZL")
		disbursement.On("RequestTransaction", mock.Anything, mock.Anything, defaultFirstPlaceReward, "26876000001", rewardPayerMessage, rewardPayeeNote).
			Return(errors.Wrap(momo.ErrRequestRejected, "status 409"))
		disbursement.On("RequestTransaction", mock.Anything, mock.Anything, defaultSecondPlaceReward, "26876000002", rewardPayerMessage, rewardPayeeNote).
			Return(nil)
		disbursement.On("TransactionStatus", mock.Anything, mock.Anything).
			Return(&momo.TransactionStatus{Status: momo.StatusSuccessful, Raw: []byte(`{}`)}, nil)

		svc := newTestPaymentService(repo, &mocks.MockMomoClient{}, disbursement)

		summary, err := svc.RewardWinners(context.Background())
		require.NoError(t, err)
		require.Len(t, summary.Results, 2)

		assert.Equal(t, first.Phone, summary.Results[0].Phone)
		assert.Equal(t, defaultFirstPlaceReward, summary.Results[0].RewardAmount)
		assert.Equal(t, model.PaymentFailed, summary.Results[0].Status)

		assert.Equal(t, second.Phone, summary.Results[1].Phone)
		assert.Equal(t, defaultSecondPlaceReward, summary.Results[1].RewardAmount)
		assert.Equal(t, model.PaymentSuccessful, summary.Results[1].Status)

		disbursement.AssertExpectations(t)
		repo.AssertExpectations(t)
	})
}
