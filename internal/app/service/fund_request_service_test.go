package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appErrors "github.com/avetisov/investline/internal/app/errors"
	"github.com/avetisov/investline/internal/app/models"
)

type fundRequestServiceFixture struct {
	requestRepo   *MockFundRequestRepository
	userRepo      *MockUserRepository
	walletService *MockWalletService
	configService *MockAdminConfigService
	service       *FundRequestServiceImpl
}

func newFundRequestServiceFixture() *fundRequestServiceFixture {
	f := &fundRequestServiceFixture{
		requestRepo:   new(MockFundRequestRepository),
		userRepo:      new(MockUserRepository),
		walletService: new(MockWalletService),
		configService: new(MockAdminConfigService),
	}
	f.service = NewFundRequestService(f.requestRepo, f.userRepo, f.walletService, f.configService)
	return f
}

func defaultLimits() TransactionLimits {
	return TransactionLimits{
		MinDeposit:    decimal.NewFromInt(10),
		MaxDeposit:    decimal.NewFromInt(100000),
		MinWithdrawal: decimal.NewFromInt(5),
		MaxWithdrawal: decimal.NewFromInt(50000),
		WithdrawalFee: decimal.NewFromInt(2),
	}
}

func TestFundRequestServiceImpl_RequestDeposit(t *testing.T) {
	userUID := uuid.New()

	t.Run("disabled accounts cannot file requests", func(t *testing.T) {
		f := newFundRequestServiceFixture()
		f.userRepo.On("FindByUUID", mock.Anything, &userUID).
			Return(&models.User{UUID: userUID, IsActive: false}, nil)

		_, err := f.service.RequestDeposit(context.Background(), &userUID,
			models.WalletAvailableFund, decimal.NewFromInt(100), "")
		assert.Equal(t, http.StatusForbidden, responseCode(t, err))
		f.requestRepo.AssertNotCalled(t, "GetDB")
	})

	t.Run("amount outside the configured limits is rejected", func(t *testing.T) {
		for _, amount := range []decimal.Decimal{decimal.NewFromInt(9), decimal.NewFromInt(100001)} {
			f := newFundRequestServiceFixture()
			f.userRepo.On("FindByUUID", mock.Anything, &userUID).
				Return(&models.User{UUID: userUID, IsActive: true}, nil)
			f.configService.On("GetTransactionLimits", mock.Anything).Return(defaultLimits())

			_, err := f.service.RequestDeposit(context.Background(), &userUID,
				models.WalletAvailableFund, amount, "")
			assert.Equal(t, http.StatusBadRequest, responseCode(t, err))
			f.requestRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		}
	})

	t.Run("creates a pending row and moves no money", func(t *testing.T) {
		f := newFundRequestServiceFixture()
		f.userRepo.On("FindByUUID", mock.Anything, &userUID).
			Return(&models.User{UUID: userUID, IsActive: true}, nil)
		f.configService.On("GetTransactionLimits", mock.Anything).Return(defaultLimits())
		f.requestRepo.On("GetDB").Return(newTestDB(t))

		var created models.FundRequest
		f.requestRepo.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*models.FundRequest")).
			Run(func(args mock.Arguments) {
				created = *args.Get(2).(*models.FundRequest)
			}).Return(nil)

		request, err := f.service.RequestDeposit(context.Background(), &userUID,
			models.WalletTotalGain, decimal.NewFromInt(250), "top-up")
		require.NoError(t, err)
		assert.Equal(t, models.FundRequestPending, created.Status)
		assert.Equal(t, models.FundRequestDeposit, created.Type)
		assert.Equal(t, models.WalletTotalGain, created.WalletType)
		assert.True(t, created.Fee.IsZero(), "deposits carry no fee")
		assert.NotEmpty(t, request.RequestID)
		f.walletService.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything,
			mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestFundRequestServiceImpl_RequestWithdrawal(t *testing.T) {
	userUID := uuid.New()

	activeUser := func(f *fundRequestServiceFixture) {
		f.userRepo.On("FindByUUID", mock.Anything, &userUID).
			Return(&models.User{UUID: userUID, IsActive: true}, nil)
	}

	t.Run("a destination address is required", func(t *testing.T) {
		f := newFundRequestServiceFixture()
		activeUser(f)

		_, err := f.service.RequestWithdrawal(context.Background(), &userUID, decimal.NewFromInt(100), "", "")
		assert.Equal(t, http.StatusBadRequest, responseCode(t, err))
		f.walletService.AssertNotCalled(t, "Lock", mock.Anything, mock.Anything, mock.Anything,
			mock.Anything, mock.Anything)
	})

	t.Run("below the minimum nothing is locked", func(t *testing.T) {
		f := newFundRequestServiceFixture()
		activeUser(f)
		f.configService.On("GetTransactionLimits", mock.Anything).Return(defaultLimits())

		_, err := f.service.RequestWithdrawal(context.Background(), &userUID, decimal.NewFromInt(4), "addr-1", "")
		assert.Equal(t, http.StatusBadRequest, responseCode(t, err))
		f.walletService.AssertNotCalled(t, "Lock", mock.Anything, mock.Anything, mock.Anything,
			mock.Anything, mock.Anything)
		f.requestRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("locks amount plus fee for the pending window", func(t *testing.T) {
		f := newFundRequestServiceFixture()
		activeUser(f)
		f.configService.On("GetTransactionLimits", mock.Anything).Return(defaultLimits())
		f.requestRepo.On("GetDB").Return(newTestDB(t))

		heldExactly := mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(102)) })
		f.walletService.On("Lock", mock.Anything, mock.Anything, &userUID,
			models.WalletAvailableFund, heldExactly).Return(nil)

		var created models.FundRequest
		f.requestRepo.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*models.FundRequest")).
			Run(func(args mock.Arguments) {
				created = *args.Get(2).(*models.FundRequest)
			}).Return(nil)

		request, err := f.service.RequestWithdrawal(context.Background(), &userUID,
			decimal.NewFromInt(100), "addr-1", "")
		require.NoError(t, err)
		assert.Equal(t, models.FundRequestPending, created.Status)
		assert.Equal(t, models.WalletAvailableFund, created.WalletType, "withdrawals spend available_fund only")
		assert.True(t, created.Fee.Equal(decimal.NewFromInt(2)))
		assert.True(t, request.HeldAmount().Equal(decimal.NewFromInt(102)))
		f.walletService.AssertExpectations(t)
	})

	t.Run("insufficient available balance aborts before the row exists", func(t *testing.T) {
		f := newFundRequestServiceFixture()
		activeUser(f)
		f.configService.On("GetTransactionLimits", mock.Anything).Return(defaultLimits())
		f.requestRepo.On("GetDB").Return(newTestDB(t))
		lockErr := appErrors.NewWithCode(ErrInsufficientBalance, "Insufficient available funds", http.StatusPaymentRequired)
		f.walletService.On("Lock", mock.Anything, mock.Anything, mock.Anything,
			mock.Anything, mock.Anything).Return(lockErr)

		_, err := f.service.RequestWithdrawal(context.Background(), &userUID,
			decimal.NewFromInt(100), "addr-1", "")
		assert.Equal(t, http.StatusPaymentRequired, responseCode(t, err))
		f.requestRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestFundRequestServiceImpl_Cancel(t *testing.T) {
	owner := uuid.New()

	pendingWithdrawal := func() *models.FundRequest {
		return &models.FundRequest{
			ID:         3,
			RequestID:  "TXN-1",
			UserUUID:   owner,
			Type:       models.FundRequestWithdrawal,
			WalletType: models.WalletAvailableFund,
			Amount:     decimal.NewFromInt(100),
			Fee:        decimal.NewFromInt(2),
			Status:     models.FundRequestPending,
		}
	}

	t.Run("another user's request reads as not found", func(t *testing.T) {
		f := newFundRequestServiceFixture()
		f.requestRepo.On("GetByID", mock.Anything, int64(3)).Return(pendingWithdrawal(), nil)

		stranger := uuid.New()
		err := f.service.Cancel(context.Background(), &stranger, 3)
		assert.Equal(t, http.StatusNotFound, responseCode(t, err))
		f.requestRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything,
			mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cancelling a withdrawal releases the hold", func(t *testing.T) {
		f := newFundRequestServiceFixture()
		f.requestRepo.On("GetByID", mock.Anything, int64(3)).Return(pendingWithdrawal(), nil)
		f.requestRepo.On("GetDB").Return(newTestDB(t))
		f.requestRepo.On("UpdateStatus", mock.Anything, mock.Anything, int64(3),
			models.FundRequestPending, models.FundRequestCancelled, "Cancelled by user").Return(nil)
		heldExactly := mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(102)) })
		f.walletService.On("Unlock", mock.Anything, mock.Anything, &owner,
			models.WalletAvailableFund, heldExactly).Return(nil)

		require.NoError(t, f.service.Cancel(context.Background(), &owner, 3))
		f.walletService.AssertExpectations(t)
	})

	t.Run("only pending requests can be cancelled", func(t *testing.T) {
		f := newFundRequestServiceFixture()
		f.requestRepo.On("GetByID", mock.Anything, int64(3)).Return(pendingWithdrawal(), nil)
		f.requestRepo.On("GetDB").Return(newTestDB(t))
		guardErr := appErrors.NewWithCode(assert.AnError, "Request is not pending", http.StatusBadRequest)
		f.requestRepo.On("UpdateStatus", mock.Anything, mock.Anything, int64(3),
			models.FundRequestPending, models.FundRequestCancelled, mock.Anything).Return(guardErr)

		err := f.service.Cancel(context.Background(), &owner, 3)
		assert.Equal(t, http.StatusBadRequest, responseCode(t, err))
		f.walletService.AssertNotCalled(t, "Unlock", mock.Anything, mock.Anything, mock.Anything,
			mock.Anything, mock.Anything)
	})
}

func TestFundRequestServiceImpl_Approve(t *testing.T) {
	owner := uuid.New()

	t.Run("an approved deposit credits the target wallet", func(t *testing.T) {
		f := newFundRequestServiceFixture()
		deposit := &models.FundRequest{
			ID:         7,
			RequestID:  "TXN-7",
			UserUUID:   owner,
			Type:       models.FundRequestDeposit,
			WalletType: models.WalletTotalGain,
			Amount:     decimal.NewFromInt(250),
			Fee:        decimal.Zero,
			Status:     models.FundRequestPending,
		}
		f.requestRepo.On("GetByID", mock.Anything, int64(7)).Return(deposit, nil)
		f.requestRepo.On("GetDB").Return(newTestDB(t))
		f.requestRepo.On("UpdateStatus", mock.Anything, mock.Anything, int64(7),
			models.FundRequestPending, models.FundRequestApproved, "ok").Return(nil)
		amountExactly := mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(250)) })
		f.walletService.On("Credit", mock.Anything, mock.Anything, &owner, models.WalletTotalGain,
			amountExactly, models.TransactionDeposit, "Deposit - TXN-7").Return(&models.Wallet{}, nil)

		request, err := f.service.Approve(context.Background(), 7, "ok")
		require.NoError(t, err)
		assert.Equal(t, models.FundRequestApproved, request.Status)
		f.walletService.AssertExpectations(t)
	})

	t.Run("an approved withdrawal releases the hold and debits amount plus fee", func(t *testing.T) {
		f := newFundRequestServiceFixture()
		withdrawal := &models.FundRequest{
			ID:         8,
			RequestID:  "TXN-8",
			UserUUID:   owner,
			Type:       models.FundRequestWithdrawal,
			WalletType: models.WalletAvailableFund,
			Amount:     decimal.NewFromInt(100),
			Fee:        decimal.NewFromInt(2),
			Status:     models.FundRequestPending,
		}
		f.requestRepo.On("GetByID", mock.Anything, int64(8)).Return(withdrawal, nil)
		f.requestRepo.On("GetDB").Return(newTestDB(t))
		f.requestRepo.On("UpdateStatus", mock.Anything, mock.Anything, int64(8),
			models.FundRequestPending, models.FundRequestApproved, "").Return(nil)
		heldExactly := mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(102)) })
		f.walletService.On("Unlock", mock.Anything, mock.Anything, &owner,
			models.WalletAvailableFund, heldExactly).Return(nil)
		f.walletService.On("Debit", mock.Anything, mock.Anything, &owner, models.WalletAvailableFund,
			heldExactly, models.TransactionWithdrawal, "Withdrawal - TXN-8").Return(&models.Wallet{}, nil)

		request, err := f.service.Approve(context.Background(), 8, "")
		require.NoError(t, err)
		assert.Equal(t, models.FundRequestApproved, request.Status)
		f.walletService.AssertExpectations(t)
	})

	t.Run("a raced decision approves nothing twice", func(t *testing.T) {
		f := newFundRequestServiceFixture()
		deposit := &models.FundRequest{
			ID:       9,
			UserUUID: owner,
			Type:     models.FundRequestDeposit,
			Amount:   decimal.NewFromInt(50),
			Status:   models.FundRequestPending,
		}
		f.requestRepo.On("GetByID", mock.Anything, int64(9)).Return(deposit, nil)
		f.requestRepo.On("GetDB").Return(newTestDB(t))
		guardErr := appErrors.NewWithCode(assert.AnError, "Request is not pending", http.StatusBadRequest)
		f.requestRepo.On("UpdateStatus", mock.Anything, mock.Anything, int64(9),
			models.FundRequestPending, models.FundRequestApproved, mock.Anything).Return(guardErr)

		_, err := f.service.Approve(context.Background(), 9, "")
		assert.Equal(t, http.StatusBadRequest, responseCode(t, err))
		f.walletService.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything,
			mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestFundRequestServiceImpl_Reject(t *testing.T) {
	owner := uuid.New()

	f := newFundRequestServiceFixture()
	withdrawal := &models.FundRequest{
		ID:         4,
		RequestID:  "TXN-4",
		UserUUID:   owner,
		Type:       models.FundRequestWithdrawal,
		WalletType: models.WalletAvailableFund,
		Amount:     decimal.NewFromInt(40),
		Fee:        decimal.NewFromInt(2),
		Status:     models.FundRequestPending,
	}
	f.requestRepo.On("GetByID", mock.Anything, int64(4)).Return(withdrawal, nil)
	f.requestRepo.On("GetDB").Return(newTestDB(t))
	f.requestRepo.On("UpdateStatus", mock.Anything, mock.Anything, int64(4),
		models.FundRequestPending, models.FundRequestRejected, "bad address").Return(nil)
	heldExactly := mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(42)) })
	f.walletService.On("Unlock", mock.Anything, mock.Anything, &owner,
		models.WalletAvailableFund, heldExactly).Return(nil)

	request, err := f.service.Reject(context.Background(), 4, "bad address")
	require.NoError(t, err)
	assert.Equal(t, models.FundRequestRejected, request.Status)
	f.walletService.AssertExpectations(t)
}
