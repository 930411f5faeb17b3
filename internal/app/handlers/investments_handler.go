package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	appContext "github.com/avetisov/investline/internal/app/context"
	appErrors "github.com/avetisov/investline/internal/app/errors"
	"github.com/avetisov/investline/internal/app/models"
	"github.com/avetisov/investline/internal/app/service"
)

type (
	InvestmentsHandler struct {
		investmentService service.InvestmentService
		contextTimeout    time.Duration
	}
	PurchaseDto struct {
		PackageID int64  `json:"package_id"`
		Amount    string `json:"amount"`
	}
	InvestmentDto struct {
		ID               int64  `json:"id"`
		PackageID        int64  `json:"package_id"`
		AmountInvested   string `json:"amount_invested"`
		InvestmentDate   string `json:"investment_date"`
		ReturnsStartDate string `json:"returns_start_date"`
		MaturityDate     string `json:"maturity_date"`
		TotalReturnsPaid string `json:"total_returns_paid"`
		LastReturnDate   string `json:"last_return_date,omitempty"`
		Status           string `json:"status"`
	}
	ReturnDto struct {
		InvestmentID   int64  `json:"investment_id"`
		ReturnDate     string `json:"return_date"`
		ReturnAmount   string `json:"return_amount"`
		DaysSinceStart int    `json:"days_since_start"`
		Status         string `json:"status"`
	}
)

func NewInvestmentsHandler(investmentService service.InvestmentService, contextTimeoutSec int) *InvestmentsHandler {
	return &InvestmentsHandler{
		investmentService: investmentService,
		contextTimeout:    time.Duration(contextTimeoutSec) * time.Second,
	}
}

// Purchase godoc
// @Summary Purchase an investment package
// @Description Debits available_fund and opens a position. Returns start the
// next calendar day.
// @Tags investments
// @Accept json
// @Produce json
// @Param purchase body PurchaseDto true "Package and amount"
// @Success 201 {object} InvestmentDto
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Failure 402 {object} ErrorResponse "Insufficient available funds"
// @Router /api/user/investments [post]
func (ih *InvestmentsHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ih.contextTimeout)
	defer cancel()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		PrepareError(w, appErrors.NewWithCode(err, errMsgEnableReadBody, http.StatusBadRequest))
		return
	}
	purchaseDto := PurchaseDto{}
	if err := json.Unmarshal(body, &purchaseDto); err != nil {
		PrepareError(w, appErrors.NewWithCode(err, "Unable to parse body", http.StatusBadRequest))
		return
	}
	amount, err := decimal.NewFromString(purchaseDto.Amount)
	if err != nil {
		PrepareError(w, appErrors.NewWithCode(err, "Invalid amount", http.StatusBadRequest))
		return
	}

	userUID := appContext.UserUID(ctx)
	investment, err := ih.investmentService.Purchase(ctx, userUID, purchaseDto.PackageID, amount)
	if err != nil {
		PrepareError(w, err)
		return
	}

	if err := appContext.GetContextError(ctx); err != nil {
		PrepareError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapInvestment(investment))
}

func (ih *InvestmentsHandler) MyInvestments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ih.contextTimeout)
	defer cancel()

	status := models.InvestmentStatus(r.URL.Query().Get("status"))
	userUID := appContext.UserUID(ctx)
	investments, err := ih.investmentService.ListByUser(ctx, userUID, status)
	if err != nil {
		PrepareError(w, err)
		return
	}

	response := make([]InvestmentDto, 0, len(*investments))
	for i := range *investments {
		response = append(response, mapInvestment(&(*investments)[i]))
	}
	writeJSON(w, http.StatusOK, response)
}

func (ih *InvestmentsHandler) MyReturns(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ih.contextTimeout)
	defer cancel()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	userUID := appContext.UserUID(ctx)
	returns, err := ih.investmentService.GetReturns(ctx, userUID, limit)
	if err != nil {
		PrepareError(w, err)
		return
	}

	response := make([]ReturnDto, 0, len(*returns))
	for _, ret := range *returns {
		response = append(response, ReturnDto{
			InvestmentID:   ret.InvestmentID,
			ReturnDate:     ret.ReturnDate.Format("2006-01-02"),
			ReturnAmount:   ret.ReturnAmount.String(),
			DaysSinceStart: ret.DaysSinceStart,
			Status:         string(ret.Status),
		})
	}
	writeJSON(w, http.StatusOK, response)
}

func mapInvestment(inv *models.UserInvestment) InvestmentDto {
	dto := InvestmentDto{
		ID:               inv.ID,
		PackageID:        inv.PackageID,
		AmountInvested:   inv.AmountInvested.String(),
		InvestmentDate:   inv.InvestmentDate.Format(time.RFC3339),
		ReturnsStartDate: inv.ReturnsStartDate.Format("2006-01-02"),
		MaturityDate:     inv.MaturityDate.Format("2006-01-02"),
		TotalReturnsPaid: inv.TotalReturnsPaid.String(),
		Status:           inv.Status.String(),
	}
	if inv.LastReturnDate.Valid {
		dto.LastReturnDate = inv.LastReturnDate.Time.Format("2006-01-02")
	}
	return dto
}
