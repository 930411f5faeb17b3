package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appErrors "github.com/avetisov/investline/internal/app/errors"
	"github.com/avetisov/investline/internal/app/logger"
	"github.com/avetisov/investline/internal/app/models"
	"github.com/avetisov/investline/internal/app/repository"
)

type (
	// InvestmentAnalytics is the admin platform-wide rollup.
	InvestmentAnalytics struct {
		TotalActiveInvested decimal.Decimal
		ActivePositions     int
		TodayDistributions  int
		TodayDistributed    decimal.Decimal
		PackageCount        int
	}

	SettlementResult struct {
		InvestmentID int64
		Principal    decimal.Decimal
		Fee          decimal.Decimal
		NetAmount    decimal.Decimal
		Disposition  models.SettlementDisposition
	}

	InvestmentService interface {
		// Purchase debits available_fund and opens the position in one
		// transaction. Commission distribution runs after the commit and its
		// failure never unwinds the purchase.
		Purchase(ctx context.Context, userUID *uuid.UUID, packageID int64, amount decimal.Decimal) (*models.UserInvestment, error)
		// Settle closes a MATURED position, optionally moving the principal
		// minus the settlement fee to available_fund. A nil feePercent falls
		// back to the configured default.
		Settle(ctx context.Context, userUID *uuid.UUID, investmentID int64, disposition models.SettlementDisposition,
			feePercent *decimal.Decimal) (*SettlementResult, error)
		ForceMature(ctx context.Context, investmentID int64) error
		ListByUser(ctx context.Context, userUID *uuid.UUID, status models.InvestmentStatus) (*[]models.UserInvestment, error)
		GetReturns(ctx context.Context, userUID *uuid.UUID, limit int) (*[]models.InvestmentReturn, error)
		Summary(ctx context.Context, userUID *uuid.UUID) (*repository.UserInvestmentSummary, error)
		TotalInvestment(ctx context.Context, userUID *uuid.UUID) (decimal.Decimal, error)
		Analytics(ctx context.Context) (*InvestmentAnalytics, error)
	}

	InvestmentServiceImpl struct {
		investmentRepo    repository.InvestmentRepository
		packageRepo       repository.PackageRepository
		returnRepo        repository.ReturnRepository
		userRepo          repository.UserRepository
		packageService    PackageService
		walletService     WalletService
		commissionService CommissionService
		configService     AdminConfigService
	}
)

func NewInvestmentService(investmentRepo repository.InvestmentRepository, packageRepo repository.PackageRepository,
	returnRepo repository.ReturnRepository, userRepo repository.UserRepository, packageService PackageService,
	walletService WalletService, commissionService CommissionService, configService AdminConfigService) *InvestmentServiceImpl {
	return &InvestmentServiceImpl{
		investmentRepo:    investmentRepo,
		packageRepo:       packageRepo,
		returnRepo:        returnRepo,
		userRepo:          userRepo,
		packageService:    packageService,
		walletService:     walletService,
		commissionService: commissionService,
		configService:     configService,
	}
}

func (is *InvestmentServiceImpl) Purchase(ctx context.Context, userUID *uuid.UUID, packageID int64, amount decimal.Decimal) (*models.UserInvestment, error) {
	user, err := is.userRepo.FindByUUID(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, appErrors.NewWithCode(errors.New("user is not active"),
			"Account is disabled", http.StatusForbidden)
	}

	pkg, err := is.packageRepo.GetByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if err := is.packageService.ValidatePurchaseAmount(ctx, pkg, amount); err != nil {
		return nil, err
	}

	now := time.Now()
	today := models.DateOnly(now)
	investedToday, err := is.investmentRepo.SumInvestedOn(ctx, userUID, today)
	if err != nil {
		return nil, appErrors.New(err, "sum invested today")
	}
	dailyLimit := is.configService.DailyInvestmentLimit(ctx)
	if investedToday.Add(amount).GreaterThan(dailyLimit) {
		msg := fmt.Sprintf("Daily investment limit of %s exceeded", dailyLimit.String())
		return nil, appErrors.NewWithCode(errors.New("daily limit exceeded"), msg, http.StatusBadRequest)
	}

	tx, err := is.investmentRepo.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.New(err, "begin transaction")
	}
	defer tx.Rollback()

	memo := fmt.Sprintf("Investment in %s", pkg.Name)
	if _, err := is.walletService.Debit(ctx, tx, userUID, models.WalletAvailableFund, amount,
		models.TransactionInvestmentPurchase, memo); err != nil {
		return nil, err
	}

	// Returns start tomorrow; the maturity day itself never accrues.
	returnsStart := today.AddDate(0, 0, 1)
	investment := models.UserInvestment{
		UserUUID:         *userUID,
		PackageID:        pkg.ID,
		AmountInvested:   amount,
		InvestmentDate:   now,
		ReturnsStartDate: returnsStart,
		MaturityDate:     returnsStart.AddDate(0, 0, pkg.DurationDays),
		TotalReturnsPaid: decimal.Zero,
		Status:           models.InvestmentActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := is.investmentRepo.Create(ctx, tx, &investment); err != nil {
		return nil, appErrors.New(err, "create investment")
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.New(err, "commit transaction")
	}

	is.commissionService.DistributeBestEffort(ctx, userUID, amount)

	logger.Log.Info("investment purchased",
		zap.String("user_uuid", userUID.String()),
		zap.Int64("investment_id", investment.ID),
		zap.String("amount", amount.String()))
	return &investment, nil
}

func (is *InvestmentServiceImpl) Settle(ctx context.Context, userUID *uuid.UUID, investmentID int64,
	disposition models.SettlementDisposition, feePercent *decimal.Decimal) (*SettlementResult, error) {
	if feePercent != nil && (feePercent.IsNegative() || feePercent.GreaterThan(decimalHundred)) {
		return nil, appErrors.NewWithCode(errors.New("fee percent out of range"),
			"Fee percent must be between 0 and 100", http.StatusBadRequest)
	}

	investment, err := is.investmentRepo.GetByID(ctx, investmentID)
	if err != nil {
		return nil, err
	}
	if userUID != nil && investment.UserUUID != *userUID {
		return nil, appErrors.NewWithCode(errors.New("investment owner mismatch"),
			"Investment not found", http.StatusNotFound)
	}
	if !investment.Status.CanTransitionTo(models.InvestmentCancelled) {
		return nil, appErrors.NewWithCode(errors.New("investment not matured"),
			"Only matured investments can be settled", http.StatusBadRequest)
	}

	var appliedFee decimal.Decimal
	if feePercent != nil {
		appliedFee = *feePercent
	} else {
		appliedFee = is.configService.SettlementFeePercent(ctx)
	}
	fee := investment.AmountInvested.Mul(appliedFee).Div(decimalHundred)
	net := investment.AmountInvested.Sub(fee)
	if net.IsNegative() {
		net = decimal.Zero
	}

	tx, err := is.investmentRepo.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.New(err, "begin transaction")
	}
	defer tx.Rollback()

	if err := is.investmentRepo.UpdateStatus(ctx, tx, investment.ID, models.InvestmentMatured, models.InvestmentCancelled); err != nil {
		return nil, err
	}

	if disposition == models.SettleToAvailableFund && net.IsPositive() {
		memo := fmt.Sprintf("Settlement of investment #%d", investment.ID)
		if _, err := is.walletService.Credit(ctx, tx, &investment.UserUUID, models.WalletAvailableFund, net,
			models.TransactionSettlement, memo); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.New(err, "commit transaction")
	}

	logger.Log.Info("investment settled",
		zap.Int64("investment_id", investment.ID),
		zap.String("disposition", string(disposition)),
		zap.String("net_amount", net.String()))
	return &SettlementResult{
		InvestmentID: investment.ID,
		Principal:    investment.AmountInvested,
		Fee:          fee,
		NetAmount:    net,
		Disposition:  disposition,
	}, nil
}

func (is *InvestmentServiceImpl) ForceMature(ctx context.Context, investmentID int64) error {
	tx, err := is.investmentRepo.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.New(err, "begin transaction")
	}
	defer tx.Rollback()

	if err := is.investmentRepo.UpdateStatus(ctx, tx, investmentID, models.InvestmentActive, models.InvestmentMatured); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return appErrors.New(err, "commit transaction")
	}
	logger.Log.Info("investment force-matured", zap.Int64("investment_id", investmentID))
	return nil
}

func (is *InvestmentServiceImpl) ListByUser(ctx context.Context, userUID *uuid.UUID, status models.InvestmentStatus) (*[]models.UserInvestment, error) {
	return is.investmentRepo.GetByUser(ctx, userUID, status)
}

func (is *InvestmentServiceImpl) GetReturns(ctx context.Context, userUID *uuid.UUID, limit int) (*[]models.InvestmentReturn, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return is.returnRepo.GetByUser(ctx, userUID, limit)
}

func (is *InvestmentServiceImpl) Summary(ctx context.Context, userUID *uuid.UUID) (*repository.UserInvestmentSummary, error) {
	return is.investmentRepo.GetUserSummary(ctx, userUID)
}

func (is *InvestmentServiceImpl) TotalInvestment(ctx context.Context, userUID *uuid.UUID) (decimal.Decimal, error) {
	return is.investmentRepo.SumInvestedByUser(ctx, userUID)
}

func (is *InvestmentServiceImpl) Analytics(ctx context.Context) (*InvestmentAnalytics, error) {
	packages, err := is.packageRepo.GetAll(ctx)
	if err != nil {
		return nil, appErrors.New(err, "read packages")
	}

	analytics := InvestmentAnalytics{
		TotalActiveInvested: decimal.Zero,
		TodayDistributed:    decimal.Zero,
		PackageCount:        len(*packages),
	}
	for _, pkg := range *packages {
		invested, err := is.packageRepo.SumActiveInvested(ctx, pkg.ID)
		if err != nil {
			return nil, appErrors.New(err, "sum active invested")
		}
		positions, err := is.packageRepo.CountActivePositions(ctx, pkg.ID)
		if err != nil {
			return nil, appErrors.New(err, "count active positions")
		}
		analytics.TotalActiveInvested = analytics.TotalActiveInvested.Add(invested)
		analytics.ActivePositions += positions
	}

	stat, err := is.returnRepo.GetDayStat(ctx, time.Now())
	if err != nil {
		return nil, appErrors.New(err, "read day stat")
	}
	analytics.TodayDistributions = stat.Distributions
	analytics.TodayDistributed = stat.Amount
	return &analytics, nil
}
