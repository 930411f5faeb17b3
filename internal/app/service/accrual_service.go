package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appErrors "github.com/avetisov/investline/internal/app/errors"
	"github.com/avetisov/investline/internal/app/logger"
	"github.com/avetisov/investline/internal/app/models"
	"github.com/avetisov/investline/internal/app/repository"
)

// Daily amounts are rounded to 8 decimal places before clamping so that a
// whole term sums exactly to the promised total on the final accrual day.
const returnScale = 8

type (
	AccrualResult struct {
		Day          time.Time
		Processed    int
		Skipped      int
		Failed       int
		TotalPaid    decimal.Decimal
		MaturedSwept int64
	}

	// AccrualService pays each eligible position its daily return exactly once
	// per calendar day and sweeps past-maturity positions to MATURED.
	AccrualService interface {
		RunDailyAccrual(ctx context.Context, day time.Time) (*AccrualResult, error)
		// ManualDistribute pays an ad-hoc amount to one position, clamped to
		// its unpaid remainder. Counts as the position's return for the day.
		ManualDistribute(ctx context.Context, investmentID int64, amount decimal.Decimal) (*models.InvestmentReturn, error)
	}

	AccrualServiceImpl struct {
		investmentRepo repository.InvestmentRepository
		returnRepo     repository.ReturnRepository
		walletService  WalletService
		incomeRepo     repository.IncomeRepository
	}
)

func NewAccrualService(investmentRepo repository.InvestmentRepository, returnRepo repository.ReturnRepository,
	walletService WalletService, incomeRepo repository.IncomeRepository) *AccrualServiceImpl {
	return &AccrualServiceImpl{
		investmentRepo: investmentRepo,
		returnRepo:     returnRepo,
		walletService:  walletService,
		incomeRepo:     incomeRepo,
	}
}

func (as *AccrualServiceImpl) RunDailyAccrual(ctx context.Context, day time.Time) (*AccrualResult, error) {
	day = models.DateOnly(day)
	eligible, err := as.investmentRepo.GetEligible(ctx, day)
	if err != nil {
		return nil, appErrors.New(err, "read eligible investments")
	}

	result := AccrualResult{Day: day, TotalPaid: decimal.Zero}
	for i := range *eligible {
		position := &(*eligible)[i]
		amount := dailyReturnAmount(position)
		if !amount.IsPositive() {
			result.Skipped++
			continue
		}

		// Each position gets its own transaction so one failure cannot drag
		// down the rest of the batch.
		if err := as.processReturn(ctx, position, amount, day); err != nil {
			if errors.Is(err, repository.ErrDuplicateReturn) {
				result.Skipped++
				continue
			}
			result.Failed++
			logger.Log.Error("daily return failed",
				zap.Int64("investment_id", position.ID),
				zap.Error(err))
			continue
		}
		result.Processed++
		result.TotalPaid = result.TotalPaid.Add(amount)
	}

	matured, err := as.investmentRepo.MatureDue(ctx, day)
	if err != nil {
		return &result, appErrors.New(err, "mature due investments")
	}
	result.MaturedSwept = matured

	logger.Log.Info("daily accrual finished",
		zap.Time("day", day),
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.String("total_paid", result.TotalPaid.String()),
		zap.Int64("matured", matured))
	return &result, nil
}

func (as *AccrualServiceImpl) ManualDistribute(ctx context.Context, investmentID int64, amount decimal.Decimal) (*models.InvestmentReturn, error) {
	if !amount.IsPositive() {
		return nil, appErrors.NewWithCode(ErrNonPositiveAmount, "Amount must be greater than 0", http.StatusBadRequest)
	}

	position, err := as.investmentRepo.GetWithTerms(ctx, investmentID)
	if err != nil {
		return nil, err
	}
	if position.Status != models.InvestmentActive {
		return nil, appErrors.NewWithCode(errors.New("investment not active"),
			"Only active investments can receive returns", http.StatusBadRequest)
	}

	remaining := position.ReturnsRemaining()
	if amount.GreaterThan(remaining) {
		amount = remaining
	}
	if !amount.IsPositive() {
		return nil, appErrors.NewWithCode(errors.New("nothing remaining"),
			"Investment has already been paid in full", http.StatusBadRequest)
	}

	day := models.DateOnly(time.Now())
	if err := as.processReturn(ctx, position, amount, day); err != nil {
		if errors.Is(err, repository.ErrDuplicateReturn) {
			return nil, appErrors.NewWithCode(err, "Return already distributed today", http.StatusConflict)
		}
		return nil, err
	}

	returns, err := as.returnRepo.GetByInvestment(ctx, investmentID)
	if err != nil || len(*returns) == 0 {
		return nil, appErrors.New(err, "read created return")
	}
	return &(*returns)[0], nil
}

func (as *AccrualServiceImpl) processReturn(ctx context.Context, position *models.EligibleInvestment,
	amount decimal.Decimal, day time.Time) error {
	tx, err := as.investmentRepo.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.New(err, "begin transaction")
	}
	defer tx.Rollback()

	now := time.Now()
	daysSinceStart := int(day.Sub(models.DateOnly(position.ReturnsStartDate)).Hours()/24) + 1

	// The unique (investment, date) constraint fires here on a replay, before
	// any wallet money moves.
	investmentReturn := models.InvestmentReturn{
		InvestmentID:   position.ID,
		ReturnDate:     day,
		ReturnAmount:   amount,
		DaysSinceStart: daysSinceStart,
		Status:         models.ReturnPaid,
		ProcessedAt:    now,
		CreatedAt:      now,
	}
	if err := as.returnRepo.Create(ctx, tx, &investmentReturn); err != nil {
		return err
	}

	memo := "Daily return from " + position.PackageName
	if _, err := as.walletService.Credit(ctx, tx, &position.UserUUID, models.WalletTotalGain, amount,
		models.TransactionCredit, memo); err != nil {
		return err
	}

	income := models.Income{
		UserUUID:    position.UserUUID,
		Type:        models.IncomeSelfInvestment,
		Amount:      amount,
		Description: memo,
		CreatedAt:   now,
	}
	if err := as.incomeRepo.Create(ctx, tx, &income); err != nil {
		return appErrors.New(err, "create income entry")
	}

	if err := as.investmentRepo.ApplyReturn(ctx, tx, position.ID, amount, day); err != nil {
		return err
	}
	return tx.Commit()
}

// dailyReturnAmount is the per-day slice of the promised total, clamped to the
// unpaid remainder and floored at zero.
func dailyReturnAmount(position *models.EligibleInvestment) decimal.Decimal {
	if position.DurationDays <= 0 {
		return decimal.Zero
	}
	daily := position.AmountInvested.
		Mul(position.TotalReturnPercentage).
		Div(decimalHundred).
		Div(decimal.NewFromInt(int64(position.DurationDays))).
		Round(returnScale)
	remaining := position.ReturnsRemaining()
	if daily.GreaterThan(remaining) {
		daily = remaining
	}
	if daily.IsNegative() {
		return decimal.Zero
	}
	return daily
}
