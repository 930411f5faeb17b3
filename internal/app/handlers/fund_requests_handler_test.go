package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avetisov/investline/internal/app/models"
	"github.com/avetisov/investline/internal/app/service"
)

type MockFundRequestService struct {
	mock.Mock
}

func (m *MockFundRequestService) RequestDeposit(ctx context.Context, userUID *uuid.UUID, walletType models.WalletType,
	amount decimal.Decimal, memo string) (*models.FundRequest, error) {
	args := m.Called(ctx, userUID, walletType, amount, memo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FundRequest), args.Error(1)
}

func (m *MockFundRequestService) RequestWithdrawal(ctx context.Context, userUID *uuid.UUID, amount decimal.Decimal,
	address, memo string) (*models.FundRequest, error) {
	args := m.Called(ctx, userUID, amount, address, memo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FundRequest), args.Error(1)
}

func (m *MockFundRequestService) Cancel(ctx context.Context, userUID *uuid.UUID, requestID int64) error {
	args := m.Called(ctx, userUID, requestID)
	return args.Error(0)
}

func (m *MockFundRequestService) ListByUser(ctx context.Context, userUID *uuid.UUID,
	status models.FundRequestStatus) (*[]models.FundRequest, error) {
	args := m.Called(ctx, userUID, status)
	return args.Get(0).(*[]models.FundRequest), args.Error(1)
}

func (m *MockFundRequestService) ListByStatus(ctx context.Context, status models.FundRequestStatus) (*[]models.FundRequest, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(*[]models.FundRequest), args.Error(1)
}

func (m *MockFundRequestService) Approve(ctx context.Context, requestID int64, notes string) (*models.FundRequest, error) {
	args := m.Called(ctx, requestID, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FundRequest), args.Error(1)
}

func (m *MockFundRequestService) Reject(ctx context.Context, requestID int64, reason string) (*models.FundRequest, error) {
	args := m.Called(ctx, requestID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FundRequest), args.Error(1)
}

type MockAdminConfigService struct {
	mock.Mock
}

func (m *MockAdminConfigService) ReferralRates(ctx context.Context) map[int]decimal.Decimal {
	args := m.Called(ctx)
	return args.Get(0).(map[int]decimal.Decimal)
}

func (m *MockAdminConfigService) DailyInvestmentLimit(ctx context.Context) decimal.Decimal {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal)
}

func (m *MockAdminConfigService) SettlementFeePercent(ctx context.Context) decimal.Decimal {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal)
}

func (m *MockAdminConfigService) GetTransactionLimits(ctx context.Context) service.TransactionLimits {
	args := m.Called(ctx)
	return args.Get(0).(service.TransactionLimits)
}

func (m *MockAdminConfigService) Set(ctx context.Context, key, value, description, category, dataType string) error {
	args := m.Called(ctx, key, value, description, category, dataType)
	return args.Error(0)
}

func (m *MockAdminConfigService) GetAll(ctx context.Context) (*[]models.AdminConfig, error) {
	args := m.Called(ctx)
	return args.Get(0).(*[]models.AdminConfig), args.Error(1)
}

func TestFundRequestsHandler_RequestWithdrawal(t *testing.T) {
	userUID := uuid.New()

	t.Run("files the request", func(t *testing.T) {
		fundRequestService := new(MockFundRequestService)
		handler := NewFundRequestsHandler(fundRequestService, new(MockAdminConfigService), 10)

		amountMatch := mock.MatchedBy(func(d decimal.Decimal) bool {
			return d.Equal(decimal.NewFromInt(100))
		})
		fundRequestService.On("RequestWithdrawal", mock.Anything, &userUID, amountMatch, "addr-1", "").
			Return(&models.FundRequest{
				ID:          4,
				RequestID:   "TXN-4",
				UserUUID:    userUID,
				Type:        models.FundRequestWithdrawal,
				WalletType:  models.WalletAvailableFund,
				Amount:      decimal.NewFromInt(100),
				Fee:         decimal.NewFromInt(2),
				Address:     "addr-1",
				Description: "Withdrawal to addr-1",
				Status:      models.FundRequestPending,
				CreatedAt:   time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
			}, nil)

		r := authedRequest(http.MethodPost, "/api/user/withdrawals",
			`{"amount": "100", "address": "addr-1"}`, &userUID)
		w := httptest.NewRecorder()
		handler.RequestWithdrawal(w, r)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{
			"id": 4,
			"request_id": "TXN-4",
			"type": "withdrawal",
			"wallet_type": "available_fund",
			"amount": "100",
			"fee": "2",
			"address": "addr-1",
			"description": "Withdrawal to addr-1",
			"status": "pending",
			"created_at": "2024-06-15T12:00:00Z"
		}`, w.Body.String())
	})

	t.Run("rejects a malformed amount", func(t *testing.T) {
		handler := NewFundRequestsHandler(new(MockFundRequestService), new(MockAdminConfigService), 10)

		r := authedRequest(http.MethodPost, "/api/user/withdrawals",
			`{"amount": "everything", "address": "addr-1"}`, &userUID)
		w := httptest.NewRecorder()
		handler.RequestWithdrawal(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid amount")
	})
}

func TestFundRequestsHandler_RequestDeposit(t *testing.T) {
	userUID := uuid.New()

	t.Run("defaults to available_fund", func(t *testing.T) {
		fundRequestService := new(MockFundRequestService)
		handler := NewFundRequestsHandler(fundRequestService, new(MockAdminConfigService), 10)

		fundRequestService.On("RequestDeposit", mock.Anything, &userUID, models.WalletAvailableFund,
			mock.Anything, "").Return(&models.FundRequest{
			ID:         1,
			RequestID:  "TXN-1",
			UserUUID:   userUID,
			Type:       models.FundRequestDeposit,
			WalletType: models.WalletAvailableFund,
			Amount:     decimal.NewFromInt(250),
			Status:     models.FundRequestPending,
			CreatedAt:  time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
		}, nil)

		r := authedRequest(http.MethodPost, "/api/user/deposits", `{"amount": "250"}`, &userUID)
		w := httptest.NewRecorder()
		handler.RequestDeposit(w, r)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"pending"`)
	})

	t.Run("rejects an unknown wallet type", func(t *testing.T) {
		handler := NewFundRequestsHandler(new(MockFundRequestService), new(MockAdminConfigService), 10)

		r := authedRequest(http.MethodPost, "/api/user/deposits",
			`{"amount": "250", "wallet_type": "petty_cash"}`, &userUID)
		w := httptest.NewRecorder()
		handler.RequestDeposit(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid wallet type")
	})
}

func TestFundRequestsHandler_Limits(t *testing.T) {
	configService := new(MockAdminConfigService)
	handler := NewFundRequestsHandler(new(MockFundRequestService), configService, 10)

	configService.On("GetTransactionLimits", mock.Anything).Return(service.TransactionLimits{
		MinDeposit:    decimal.NewFromInt(10),
		MaxDeposit:    decimal.NewFromInt(100000),
		MinWithdrawal: decimal.NewFromInt(5),
		MaxWithdrawal: decimal.NewFromInt(50000),
		WithdrawalFee: decimal.NewFromInt(2),
	})

	r := authedRequest(http.MethodGet, "/api/user/limits", "", nil)
	w := httptest.NewRecorder()
	handler.Limits(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"min_deposit": "10",
		"max_deposit": "100000",
		"min_withdrawal": "5",
		"max_withdrawal": "50000",
		"withdrawal_fee": "2"
	}`, w.Body.String())
}

func TestFundRequestsHandler_ListRequests(t *testing.T) {
	fundRequestService := new(MockFundRequestService)
	handler := NewFundRequestsHandler(fundRequestService, new(MockAdminConfigService), 10)

	// Without an explicit filter the admin queue shows pending requests.
	fundRequestService.On("ListByStatus", mock.Anything, models.FundRequestPending).
		Return(&[]models.FundRequest{}, nil)

	r := httptest.NewRequest(http.MethodGet, "/api/admin/requests", nil)
	w := httptest.NewRecorder()
	handler.ListRequests(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	fundRequestService.AssertExpectations(t)
}
