package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	appContext "github.com/avetisov/investline/internal/app/context"
	"github.com/avetisov/investline/internal/app/service"
)

type (
	WalletHandler struct {
		walletService  service.WalletService
		contextTimeout time.Duration
	}
	WalletBalanceDto struct {
		WalletType       string `json:"wallet_type"`
		Balance          string `json:"balance"`
		LockedBalance    string `json:"locked_balance"`
		AvailableBalance string `json:"available_balance"`
	}
	TransactionDto struct {
		TransactionID string `json:"transaction_id"`
		Type          string `json:"type"`
		WalletType    string `json:"wallet_type"`
		Amount        string `json:"amount"`
		Description   string `json:"description"`
		CreatedAt     string `json:"created_at"`
	}
	IncomeDto struct {
		Type        string `json:"type"`
		Amount      string `json:"amount"`
		Level       int    `json:"level,omitempty"`
		Description string `json:"description"`
		CreatedAt   string `json:"created_at"`
	}
)

func NewWalletHandler(walletService service.WalletService, contextTimeoutSec int) *WalletHandler {
	return &WalletHandler{
		walletService:  walletService,
		contextTimeout: time.Duration(contextTimeoutSec) * time.Second,
	}
}

// GetBalances godoc
// @Summary Wallet balances
// @Description Returns every wallet of the authenticated user, zero-valued for
// wallets not created yet.
// @Tags wallet
// @Produce json
// @Success 200 {array} WalletBalanceDto
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /api/user/wallets [get]
func (wh *WalletHandler) GetBalances(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), wh.contextTimeout)
	defer cancel()

	userUID := appContext.UserUID(ctx)
	balances, err := wh.walletService.GetBalances(ctx, userUID)
	if err != nil {
		PrepareError(w, err)
		return
	}

	response := make([]WalletBalanceDto, 0, len(balances))
	for _, b := range balances {
		response = append(response, WalletBalanceDto{
			WalletType:       b.WalletType.String(),
			Balance:          b.Balance.String(),
			LockedBalance:    b.LockedBalance.String(),
			AvailableBalance: b.AvailableBalance.String(),
		})
	}
	writeJSON(w, http.StatusOK, response)
}

func (wh *WalletHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), wh.contextTimeout)
	defer cancel()

	userUID := appContext.UserUID(ctx)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	transactions, err := wh.walletService.GetTransactions(ctx, userUID, limit)
	if err != nil {
		PrepareError(w, err)
		return
	}

	response := make([]TransactionDto, 0, len(*transactions))
	for _, t := range *transactions {
		response = append(response, TransactionDto{
			TransactionID: t.TransactionID,
			Type:          t.Type.String(),
			WalletType:    t.WalletType.String(),
			Amount:        t.Amount.String(),
			Description:   t.Description,
			CreatedAt:     t.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, response)
}

func (wh *WalletHandler) GetIncomes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), wh.contextTimeout)
	defer cancel()

	userUID := appContext.UserUID(ctx)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	incomes, err := wh.walletService.GetIncomes(ctx, userUID, limit)
	if err != nil {
		PrepareError(w, err)
		return
	}

	response := make([]IncomeDto, 0, len(*incomes))
	for _, in := range *incomes {
		response = append(response, IncomeDto{
			Type:        in.Type.String(),
			Amount:      in.Amount.String(),
			Level:       in.Level,
			Description: in.Description,
			CreatedAt:   in.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, response)
}
