package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appErrors "github.com/avetisov/investline/internal/app/errors"
	"github.com/avetisov/investline/internal/app/models"
	"github.com/avetisov/investline/internal/app/service"
)

type (
	AdminHandler struct {
		packageService    service.PackageService
		investmentService service.InvestmentService
		accrualService    service.AccrualService
		configService     service.AdminConfigService
		walletService     service.WalletService
		contextTimeout    time.Duration
	}
	PackageUpsertDto struct {
		Name                  string `json:"name"`
		Description           string `json:"description"`
		MinAmount             string `json:"min_amount"`
		MaxAmount             string `json:"max_amount,omitempty"`
		TotalCapacity         string `json:"total_capacity,omitempty"`
		TotalReturnPercentage string `json:"total_return_percentage"`
		DurationDays          int    `json:"duration_days"`
		EndDate               string `json:"end_date,omitempty"`
		Status                string `json:"status,omitempty"`
		IsFeatured            bool   `json:"is_featured"`
		SortOrder             int    `json:"sort_order"`
	}
	SettleDto struct {
		Disposition string `json:"disposition"`
		FeePercent  string `json:"fee_percent,omitempty"`
	}
	SettlementResultDto struct {
		InvestmentID int64  `json:"investment_id"`
		Principal    string `json:"principal"`
		Fee          string `json:"fee"`
		NetAmount    string `json:"net_amount"`
		Disposition  string `json:"disposition"`
	}
	DistributeDto struct {
		Amount string `json:"amount"`
	}
	AccrualResultDto struct {
		Day       string `json:"day"`
		Processed int    `json:"processed"`
		Skipped   int    `json:"skipped"`
		Failed    int    `json:"failed"`
		TotalPaid string `json:"total_paid"`
		Matured   int64  `json:"matured"`
	}
	AnalyticsDto struct {
		TotalActiveInvested string `json:"total_active_invested"`
		ActivePositions     int    `json:"active_positions"`
		TodayDistributions  int    `json:"today_distributions"`
		TodayDistributed    string `json:"today_distributed"`
		PackageCount        int    `json:"package_count"`
	}
	ConfigUpsertDto struct {
		Key         string `json:"key"`
		Value       string `json:"value"`
		Description string `json:"description"`
		Category    string `json:"category"`
		DataType    string `json:"data_type"`
	}
	ConfigDto struct {
		Key         string `json:"key"`
		Value       string `json:"value"`
		Description string `json:"description"`
		Category    string `json:"category"`
		DataType    string `json:"data_type"`
	}
	TransferDto struct {
		UserUUID   string `json:"user_uuid"`
		FromWallet string `json:"from_wallet"`
		ToWallet   string `json:"to_wallet"`
		Amount     string `json:"amount"`
		Memo       string `json:"memo"`
	}
)

func NewAdminHandler(packageService service.PackageService, investmentService service.InvestmentService,
	accrualService service.AccrualService, configService service.AdminConfigService,
	walletService service.WalletService, contextTimeoutSec int) *AdminHandler {
	return &AdminHandler{
		packageService:    packageService,
		investmentService: investmentService,
		accrualService:    accrualService,
		configService:     configService,
		walletService:     walletService,
		contextTimeout:    time.Duration(contextTimeoutSec) * time.Second,
	}
}

func (ah *AdminHandler) CreatePackage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ah.contextTimeout)
	defer cancel()

	pkg, err := ah.parsePackage(r)
	if err != nil {
		PrepareError(w, err)
		return
	}
	if err := ah.packageService.Create(ctx, pkg); err != nil {
		PrepareError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapPackage(pkg))
}

func (ah *AdminHandler) UpdatePackage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ah.contextTimeout)
	defer cancel()

	packageID, err := strconv.ParseInt(chi.URLParam(r, "packageID"), 10, 64)
	if err != nil {
		PrepareError(w, appErrors.NewWithCode(err, "Invalid package id", http.StatusBadRequest))
		return
	}
	pkg, err := ah.parsePackage(r)
	if err != nil {
		PrepareError(w, err)
		return
	}
	pkg.ID = packageID
	if err := ah.packageService.Update(ctx, pkg); err != nil {
		PrepareError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapPackage(pkg))
}

func (ah *AdminHandler) DeletePackage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ah.contextTimeout)
	defer cancel()

	packageID, err := strconv.ParseInt(chi.URLParam(r, "packageID"), 10, 64)
	if err != nil {
		PrepareError(w, appErrors.NewWithCode(err, "Invalid package id", http.StatusBadRequest))
		return
	}
	if err := ah.packageService.Delete(ctx, packageID); err != nil {
		PrepareError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ah *AdminHandler) GetAllPackages(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ah.contextTimeout)
	defer cancel()

	packages, err := ah.packageService.GetAll(ctx)
	if err != nil {
		PrepareError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapPackages(packages))
}

// Settle closes a matured position on the user's behalf.
func (ah *AdminHandler) Settle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ah.contextTimeout)
	defer cancel()

	investmentID, err := strconv.ParseInt(chi.URLParam(r, "investmentID"), 10, 64)
	if err != nil {
		PrepareError(w, appErrors.NewWithCode(err, "Invalid investment id", http.StatusBadRequest))
		return
	}

	settleDto := SettleDto{}
	if err := readBody(r, &settleDto); err != nil {
		PrepareError(w, err)
		return
	}
	disposition, err := models.ParseSettlementDisposition(settleDto.Disposition)
	if err != nil {
		PrepareError(w, appErrors.NewWithCode(err, "Invalid disposition", http.StatusBadRequest))
		return
	}

	// Absent fee_percent defers to the configured settlement fee.
	var feePercent *decimal.Decimal
	if settleDto.FeePercent != "" {
		parsed, err := decimal.NewFromString(settleDto.FeePercent)
		if err != nil {
			PrepareError(w, appErrors.NewWithCode(err, "Invalid fee_percent", http.StatusBadRequest))
			return
		}
		feePercent = &parsed
	}

	result, err := ah.investmentService.Settle(ctx, nil, investmentID, disposition, feePercent)
	if err != nil {
		PrepareError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SettlementResultDto{
		InvestmentID: result.InvestmentID,
		Principal:    result.Principal.String(),
		Fee:          result.Fee.String(),
		NetAmount:    result.NetAmount.String(),
		Disposition:  string(result.Disposition),
	})
}

func (ah *AdminHandler) ForceMature(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ah.contextTimeout)
	defer cancel()

	investmentID, err := strconv.ParseInt(chi.URLParam(r, "investmentID"), 10, 64)
	if err != nil {
		PrepareError(w, appErrors.NewWithCode(err, "Invalid investment id", http.StatusBadRequest))
		return
	}
	if err := ah.investmentService.ForceMature(ctx, investmentID); err != nil {
		PrepareError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (ah *AdminHandler) ManualDistribute(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ah.contextTimeout)
	defer cancel()

	investmentID, err := strconv.ParseInt(chi.URLParam(r, "investmentID"), 10, 64)
	if err != nil {
		PrepareError(w, appErrors.NewWithCode(err, "Invalid investment id", http.StatusBadRequest))
		return
	}
	distributeDto := DistributeDto{}
	if err := readBody(r, &distributeDto); err != nil {
		PrepareError(w, err)
		return
	}
	amount, err := decimal.NewFromString(distributeDto.Amount)
	if err != nil {
		PrepareError(w, appErrors.NewWithCode(err, "Invalid amount", http.StatusBadRequest))
		return
	}

	ret, err := ah.accrualService.ManualDistribute(ctx, investmentID, amount)
	if err != nil {
		PrepareError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReturnDto{
		InvestmentID:   ret.InvestmentID,
		ReturnDate:     ret.ReturnDate.Format("2006-01-02"),
		ReturnAmount:   ret.ReturnAmount.String(),
		DaysSinceStart: ret.DaysSinceStart,
		Status:         string(ret.Status),
	})
}

// RunAccrual triggers the daily accrual on demand. Safe to call repeatedly:
// positions already paid today are skipped.
func (ah *AdminHandler) RunAccrual(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ah.contextTimeout)
	defer cancel()

	result, err := ah.accrualService.RunDailyAccrual(ctx, time.Now())
	if err != nil {
		PrepareError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AccrualResultDto{
		Day:       result.Day.Format("2006-01-02"),
		Processed: result.Processed,
		Skipped:   result.Skipped,
		Failed:    result.Failed,
		TotalPaid: result.TotalPaid.String(),
		Matured:   result.MaturedSwept,
	})
}

func (ah *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ah.contextTimeout)
	defer cancel()

	analytics, err := ah.investmentService.Analytics(ctx)
	if err != nil {
		PrepareError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AnalyticsDto{
		TotalActiveInvested: analytics.TotalActiveInvested.String(),
		ActivePositions:     analytics.ActivePositions,
		TodayDistributions:  analytics.TodayDistributions,
		TodayDistributed:    analytics.TodayDistributed.String(),
		PackageCount:        analytics.PackageCount,
	})
}

func (ah *AdminHandler) GetConfigs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ah.contextTimeout)
	defer cancel()

	configs, err := ah.configService.GetAll(ctx)
	if err != nil {
		PrepareError(w, err)
		return
	}
	response := make([]ConfigDto, 0, len(*configs))
	for _, cfg := range *configs {
		response = append(response, ConfigDto{
			Key:         cfg.Key,
			Value:       cfg.Value,
			Description: cfg.Description,
			Category:    cfg.Category,
			DataType:    cfg.DataType,
		})
	}
	writeJSON(w, http.StatusOK, response)
}

func (ah *AdminHandler) SetConfig(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ah.contextTimeout)
	defer cancel()

	configDto := ConfigUpsertDto{}
	if err := readBody(r, &configDto); err != nil {
		PrepareError(w, err)
		return
	}
	if configDto.Key == "" || configDto.Value == "" {
		PrepareError(w, appErrors.NewWithCode(errors.New("missing field"), "Key and value are required", http.StatusBadRequest))
		return
	}

	if err := ah.configService.Set(ctx, configDto.Key, configDto.Value,
		configDto.Description, configDto.Category, configDto.DataType); err != nil {
		PrepareError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (ah *AdminHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ah.contextTimeout)
	defer cancel()

	transferDto := TransferDto{}
	if err := readBody(r, &transferDto); err != nil {
		PrepareError(w, err)
		return
	}
	userUID, err := uuid.Parse(transferDto.UserUUID)
	if err != nil {
		PrepareError(w, appErrors.NewWithCode(err, "Invalid user uuid", http.StatusBadRequest))
		return
	}
	src, err := models.ParseWalletType(transferDto.FromWallet)
	if err != nil {
		PrepareError(w, appErrors.NewWithCode(err, "Invalid source wallet", http.StatusBadRequest))
		return
	}
	dst, err := models.ParseWalletType(transferDto.ToWallet)
	if err != nil {
		PrepareError(w, appErrors.NewWithCode(err, "Invalid destination wallet", http.StatusBadRequest))
		return
	}
	amount, err := decimal.NewFromString(transferDto.Amount)
	if err != nil {
		PrepareError(w, appErrors.NewWithCode(err, "Invalid amount", http.StatusBadRequest))
		return
	}

	if err := ah.walletService.AdminTransfer(ctx, &userUID, src, dst, amount, transferDto.Memo); err != nil {
		PrepareError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (ah *AdminHandler) parsePackage(r *http.Request) (*models.InvestmentPackage, error) {
	upsertDto := PackageUpsertDto{}
	if err := readBody(r, &upsertDto); err != nil {
		return nil, err
	}

	pkg := models.InvestmentPackage{
		Name:         upsertDto.Name,
		Description:  upsertDto.Description,
		DurationDays: upsertDto.DurationDays,
		Status:       models.PackageStatus(upsertDto.Status),
		IsFeatured:   upsertDto.IsFeatured,
		SortOrder:    upsertDto.SortOrder,
	}

	var err error
	if pkg.MinAmount, err = decimal.NewFromString(upsertDto.MinAmount); err != nil {
		return nil, appErrors.NewWithCode(err, "Invalid min_amount", http.StatusBadRequest)
	}
	if pkg.TotalReturnPercentage, err = decimal.NewFromString(upsertDto.TotalReturnPercentage); err != nil {
		return nil, appErrors.NewWithCode(err, "Invalid total_return_percentage", http.StatusBadRequest)
	}
	if upsertDto.MaxAmount != "" {
		maxAmount, err := decimal.NewFromString(upsertDto.MaxAmount)
		if err != nil {
			return nil, appErrors.NewWithCode(err, "Invalid max_amount", http.StatusBadRequest)
		}
		pkg.MaxAmount = decimal.NullDecimal{Decimal: maxAmount, Valid: true}
	}
	if upsertDto.TotalCapacity != "" {
		capacity, err := decimal.NewFromString(upsertDto.TotalCapacity)
		if err != nil {
			return nil, appErrors.NewWithCode(err, "Invalid total_capacity", http.StatusBadRequest)
		}
		pkg.TotalCapacity = decimal.NullDecimal{Decimal: capacity, Valid: true}
	}
	if upsertDto.EndDate != "" {
		endDate, err := time.Parse("2006-01-02", upsertDto.EndDate)
		if err != nil {
			return nil, appErrors.NewWithCode(err, "Invalid end_date", http.StatusBadRequest)
		}
		pkg.EndDate.Time = endDate
		pkg.EndDate.Valid = true
	}
	return &pkg, nil
}

func readBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return appErrors.NewWithCode(err, errMsgEnableReadBody, http.StatusBadRequest)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return appErrors.NewWithCode(err, "Unable to parse body", http.StatusBadRequest)
	}
	return nil
}
