package handlers

import (
	"bytes"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appContext "github.com/avetisov/investline/internal/app/context"
	appErrors "github.com/avetisov/investline/internal/app/errors"
	"github.com/avetisov/investline/internal/app/models"
)

func authedRequest(method, target, body string, userUID *uuid.UUID) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	}
	return r.WithContext(appContext.WithUserUID(r.Context(), userUID))
}

func TestInvestmentsHandler_Purchase(t *testing.T) {
	userUID := uuid.New()
	investmentDate := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("opens a position", func(t *testing.T) {
		investmentService := new(MockInvestmentService)
		handler := NewInvestmentsHandler(investmentService, 10)

		amountMatch := mock.MatchedBy(func(d decimal.Decimal) bool {
			return d.Equal(decimal.NewFromInt(500))
		})
		investmentService.On("Purchase", mock.Anything, &userUID, int64(3), amountMatch).
			Return(&models.UserInvestment{
				ID:               7,
				UserUUID:         userUID,
				PackageID:        3,
				AmountInvested:   decimal.NewFromInt(500),
				InvestmentDate:   investmentDate,
				ReturnsStartDate: models.DateOnly(investmentDate).AddDate(0, 0, 1),
				MaturityDate:     models.DateOnly(investmentDate).AddDate(0, 0, 181),
				TotalReturnsPaid: decimal.Zero,
				Status:           models.InvestmentActive,
			}, nil)

		r := authedRequest(http.MethodPost, "/api/user/investments",
			`{"package_id": 3, "amount": "500"}`, &userUID)
		w := httptest.NewRecorder()
		handler.Purchase(w, r)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{
			"id": 7,
			"package_id": 3,
			"amount_invested": "500",
			"investment_date": "2024-06-15T12:00:00Z",
			"returns_start_date": "2024-06-16",
			"maturity_date": "2024-12-13",
			"total_returns_paid": "0",
			"status": "active"
		}`, w.Body.String())
	})

	t.Run("rejects a malformed amount", func(t *testing.T) {
		handler := NewInvestmentsHandler(new(MockInvestmentService), 10)

		r := authedRequest(http.MethodPost, "/api/user/investments",
			`{"package_id": 3, "amount": "lots"}`, &userUID)
		w := httptest.NewRecorder()
		handler.Purchase(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid amount")
	})

	t.Run("propagates insufficient funds", func(t *testing.T) {
		investmentService := new(MockInvestmentService)
		handler := NewInvestmentsHandler(investmentService, 10)

		investmentService.On("Purchase", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, appErrors.NewWithCode(assert.AnError, "Insufficient available funds", http.StatusPaymentRequired))

		r := authedRequest(http.MethodPost, "/api/user/investments",
			`{"package_id": 3, "amount": "500"}`, &userUID)
		w := httptest.NewRecorder()
		handler.Purchase(w, r)

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
	})
}

func TestInvestmentsHandler_MyInvestments(t *testing.T) {
	userUID := uuid.New()
	investmentService := new(MockInvestmentService)
	handler := NewInvestmentsHandler(investmentService, 10)

	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	investments := []models.UserInvestment{{
		ID:               1,
		UserUUID:         userUID,
		PackageID:        2,
		AmountInvested:   decimal.NewFromInt(1000),
		InvestmentDate:   day,
		ReturnsStartDate: day.AddDate(0, 0, 1),
		MaturityDate:     day.AddDate(0, 0, 181),
		TotalReturnsPaid: decimal.RequireFromString("27.5"),
		LastReturnDate:   sql.NullTime{Time: day.AddDate(0, 0, 10), Valid: true},
		Status:           models.InvestmentActive,
	}}
	investmentService.On("ListByUser", mock.Anything, &userUID, models.InvestmentActive).
		Return(&investments, nil)

	r := authedRequest(http.MethodGet, "/api/user/investments?status=active", "", &userUID)
	w := httptest.NewRecorder()
	handler.MyInvestments(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_returns_paid":"27.5"`)
	assert.Contains(t, w.Body.String(), `"last_return_date":"2024-06-11"`)
}

func TestInvestmentsHandler_MyReturns(t *testing.T) {
	userUID := uuid.New()
	investmentService := new(MockInvestmentService)
	handler := NewInvestmentsHandler(investmentService, 10)

	returns := []models.InvestmentReturn{{
		InvestmentID:   1,
		ReturnDate:     time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC),
		ReturnAmount:   decimal.RequireFromString("2.75"),
		DaysSinceStart: 10,
		Status:         models.ReturnPaid,
	}}
	investmentService.On("GetReturns", mock.Anything, &userUID, 0).Return(&returns, nil)

	r := authedRequest(http.MethodGet, "/api/user/returns", "", &userUID)
	w := httptest.NewRecorder()
	handler.MyReturns(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{
		"investment_id": 1,
		"return_date": "2024-06-11",
		"return_amount": "2.75",
		"days_since_start": 10,
		"status": "paid"
	}]`, w.Body.String())
}
