package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	appContext "github.com/avetisov/investline/internal/app/context"
	appErrors "github.com/avetisov/investline/internal/app/errors"
	"github.com/avetisov/investline/internal/app/models"
	"github.com/avetisov/investline/internal/app/service"
)

type (
	FundRequestsHandler struct {
		fundRequestService service.FundRequestService
		configService      service.AdminConfigService
		contextTimeout     time.Duration
	}
	DepositRequestDto struct {
		Amount      string `json:"amount"`
		WalletType  string `json:"wallet_type,omitempty"`
		Description string `json:"description,omitempty"`
	}
	WithdrawalRequestDto struct {
		Amount      string `json:"amount"`
		Address     string `json:"address"`
		Description string `json:"description,omitempty"`
	}
	ReviewDto struct {
		Notes string `json:"notes,omitempty"`
	}
	FundRequestDto struct {
		ID          int64  `json:"id"`
		RequestID   string `json:"request_id"`
		Type        string `json:"type"`
		WalletType  string `json:"wallet_type"`
		Amount      string `json:"amount"`
		Fee         string `json:"fee"`
		Address     string `json:"address,omitempty"`
		Description string `json:"description"`
		Status      string `json:"status"`
		CreatedAt   string `json:"created_at"`
	}
	TransactionLimitsDto struct {
		MinDeposit    string `json:"min_deposit"`
		MaxDeposit    string `json:"max_deposit"`
		MinWithdrawal string `json:"min_withdrawal"`
		MaxWithdrawal string `json:"max_withdrawal"`
		WithdrawalFee string `json:"withdrawal_fee"`
	}
)

func NewFundRequestsHandler(fundRequestService service.FundRequestService,
	configService service.AdminConfigService, contextTimeoutSec int) *FundRequestsHandler {
	return &FundRequestsHandler{
		fundRequestService: fundRequestService,
		configService:      configService,
		contextTimeout:     time.Duration(contextTimeoutSec) * time.Second,
	}
}

// RequestDeposit godoc
// @Summary File a deposit request
// @Description Creates a pending deposit. Funds appear only after an admin
// approves the request.
// @Tags funds
// @Accept json
// @Produce json
// @Param deposit body DepositRequestDto true "Amount and target wallet"
// @Success 201 {object} FundRequestDto
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Router /api/user/deposits [post]
func (fh *FundRequestsHandler) RequestDeposit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), fh.contextTimeout)
	defer cancel()

	depositDto := DepositRequestDto{}
	if err := readBody(r, &depositDto); err != nil {
		PrepareError(w, err)
		return
	}
	amount, err := decimal.NewFromString(depositDto.Amount)
	if err != nil {
		PrepareError(w, appErrors.NewWithCode(err, "Invalid amount", http.StatusBadRequest))
		return
	}
	walletType := models.WalletAvailableFund
	if depositDto.WalletType != "" {
		walletType, err = models.ParseWalletType(depositDto.WalletType)
		if err != nil {
			PrepareError(w, appErrors.NewWithCode(err, "Invalid wallet type", http.StatusBadRequest))
			return
		}
	}

	userUID := appContext.UserUID(ctx)
	request, err := fh.fundRequestService.RequestDeposit(ctx, userUID, walletType, amount, depositDto.Description)
	if err != nil {
		PrepareError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapFundRequest(request))
}

// RequestWithdrawal godoc
// @Summary File a withdrawal request
// @Description Reserves amount+fee from available_fund until an admin
// approves or rejects the request.
// @Tags funds
// @Accept json
// @Produce json
// @Param withdrawal body WithdrawalRequestDto true "Amount and destination"
// @Success 201 {object} FundRequestDto
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Failure 402 {object} ErrorResponse "Insufficient available funds"
// @Router /api/user/withdrawals [post]
func (fh *FundRequestsHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), fh.contextTimeout)
	defer cancel()

	withdrawalDto := WithdrawalRequestDto{}
	if err := readBody(r, &withdrawalDto); err != nil {
		PrepareError(w, err)
		return
	}
	amount, err := decimal.NewFromString(withdrawalDto.Amount)
	if err != nil {
		PrepareError(w, appErrors.NewWithCode(err, "Invalid amount", http.StatusBadRequest))
		return
	}

	userUID := appContext.UserUID(ctx)
	request, err := fh.fundRequestService.RequestWithdrawal(ctx, userUID, amount,
		withdrawalDto.Address, withdrawalDto.Description)
	if err != nil {
		PrepareError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapFundRequest(request))
}

func (fh *FundRequestsHandler) MyRequests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), fh.contextTimeout)
	defer cancel()

	status, err := parseStatusFilter(r)
	if err != nil {
		PrepareError(w, err)
		return
	}

	userUID := appContext.UserUID(ctx)
	requests, err := fh.fundRequestService.ListByUser(ctx, userUID, status)
	if err != nil {
		PrepareError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapFundRequests(requests))
}

func (fh *FundRequestsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), fh.contextTimeout)
	defer cancel()

	requestID, err := strconv.ParseInt(chi.URLParam(r, "requestID"), 10, 64)
	if err != nil {
		PrepareError(w, appErrors.NewWithCode(err, "Invalid request id", http.StatusBadRequest))
		return
	}

	userUID := appContext.UserUID(ctx)
	if err := fh.fundRequestService.Cancel(ctx, userUID, requestID); err != nil {
		PrepareError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (fh *FundRequestsHandler) Limits(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), fh.contextTimeout)
	defer cancel()

	limits := fh.configService.GetTransactionLimits(ctx)
	writeJSON(w, http.StatusOK, TransactionLimitsDto{
		MinDeposit:    limits.MinDeposit.String(),
		MaxDeposit:    limits.MaxDeposit.String(),
		MinWithdrawal: limits.MinWithdrawal.String(),
		MaxWithdrawal: limits.MaxWithdrawal.String(),
		WithdrawalFee: limits.WithdrawalFee.String(),
	})
}

// ListRequests is the admin review queue, pending first by default.
func (fh *FundRequestsHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), fh.contextTimeout)
	defer cancel()

	status := models.FundRequestPending
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := models.ParseFundRequestStatus(raw)
		if err != nil {
			PrepareError(w, appErrors.NewWithCode(err, "Invalid status", http.StatusBadRequest))
			return
		}
		status = parsed
	}

	requests, err := fh.fundRequestService.ListByStatus(ctx, status)
	if err != nil {
		PrepareError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapFundRequests(requests))
}

func (fh *FundRequestsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), fh.contextTimeout)
	defer cancel()

	requestID, err := strconv.ParseInt(chi.URLParam(r, "requestID"), 10, 64)
	if err != nil {
		PrepareError(w, appErrors.NewWithCode(err, "Invalid request id", http.StatusBadRequest))
		return
	}
	reviewDto := ReviewDto{}
	if err := readBody(r, &reviewDto); err != nil {
		PrepareError(w, err)
		return
	}

	request, err := fh.fundRequestService.Approve(ctx, requestID, reviewDto.Notes)
	if err != nil {
		PrepareError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapFundRequest(request))
}

func (fh *FundRequestsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), fh.contextTimeout)
	defer cancel()

	requestID, err := strconv.ParseInt(chi.URLParam(r, "requestID"), 10, 64)
	if err != nil {
		PrepareError(w, appErrors.NewWithCode(err, "Invalid request id", http.StatusBadRequest))
		return
	}
	reviewDto := ReviewDto{}
	if err := readBody(r, &reviewDto); err != nil {
		PrepareError(w, err)
		return
	}

	request, err := fh.fundRequestService.Reject(ctx, requestID, reviewDto.Notes)
	if err != nil {
		PrepareError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapFundRequest(request))
}

func parseStatusFilter(r *http.Request) (models.FundRequestStatus, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return "", nil
	}
	status, err := models.ParseFundRequestStatus(raw)
	if err != nil {
		return "", appErrors.NewWithCode(err, "Invalid status", http.StatusBadRequest)
	}
	return status, nil
}

func mapFundRequests(requests *[]models.FundRequest) []FundRequestDto {
	response := make([]FundRequestDto, 0, len(*requests))
	for i := range *requests {
		response = append(response, mapFundRequest(&(*requests)[i]))
	}
	return response
}

func mapFundRequest(request *models.FundRequest) FundRequestDto {
	return FundRequestDto{
		ID:          request.ID,
		RequestID:   request.RequestID,
		Type:        request.Type.String(),
		WalletType:  request.WalletType.String(),
		Amount:      request.Amount.String(),
		Fee:         request.Fee.String(),
		Address:     request.Address,
		Description: request.Description,
		Status:      request.Status.String(),
		CreatedAt:   request.CreatedAt.Format(time.RFC3339),
	}
}
