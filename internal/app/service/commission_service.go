package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/avetisov/investline/internal/app/logger"
	"github.com/avetisov/investline/internal/app/models"
	"github.com/avetisov/investline/internal/app/repository"
)

type (
	CommissionPayout struct {
		ReferrerUUID uuid.UUID
		Level        int
		Amount       decimal.Decimal
		WalletType   models.WalletType
	}

	// CommissionService walks the purchasing user's upline and pays each
	// ancestor its depth-based share of the invested amount. Commission is
	// paid on investment purchases only, never on deposits.
	CommissionService interface {
		Distribute(ctx context.Context, userUID *uuid.UUID, amount decimal.Decimal) ([]CommissionPayout, error)
		// DistributeBestEffort logs failures instead of propagating them: a
		// committed purchase must never be reverted because commission
		// bookkeeping failed.
		DistributeBestEffort(ctx context.Context, userUID *uuid.UUID, amount decimal.Decimal)
	}

	CommissionServiceImpl struct {
		referralRepo  repository.ReferralRepository
		userRepo      repository.UserRepository
		incomeRepo    repository.IncomeRepository
		walletService WalletService
		configService AdminConfigService
	}
)

var decimalHundred = decimal.NewFromInt(100)

func NewCommissionService(referralRepo repository.ReferralRepository, userRepo repository.UserRepository,
	incomeRepo repository.IncomeRepository, walletService WalletService, configService AdminConfigService) *CommissionServiceImpl {
	return &CommissionServiceImpl{
		referralRepo:  referralRepo,
		userRepo:      userRepo,
		incomeRepo:    incomeRepo,
		walletService: walletService,
		configService: configService,
	}
}

func (cs *CommissionServiceImpl) Distribute(ctx context.Context, userUID *uuid.UUID, amount decimal.Decimal) ([]CommissionPayout, error) {
	upline, err := cs.referralRepo.GetUpline(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("get upline: %w", err)
	}
	if len(*upline) == 0 {
		return nil, nil
	}

	rates := cs.configService.ReferralRates(ctx)

	tx, err := cs.referralRepo.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	payouts := make([]CommissionPayout, 0, len(*upline))
	now := time.Now()
	for _, edge := range *upline {
		rate, ok := rates[edge.Level]
		if !ok {
			continue
		}
		commission := amount.Mul(rate).Div(decimalHundred)
		if !commission.IsPositive() {
			continue
		}

		referrer, err := cs.userRepo.FindByUUID(ctx, &edge.ReferrerUUID)
		if err != nil {
			return nil, fmt.Errorf("find referrer: %w", err)
		}
		if !referrer.IsActive {
			continue
		}

		walletType := models.CommissionWalletType(edge.Level)
		memo := fmt.Sprintf("Level %d commission from investment", edge.Level)
		if _, err := cs.walletService.Credit(ctx, tx, &edge.ReferrerUUID, walletType, commission, models.TransactionCommission, memo); err != nil {
			return nil, fmt.Errorf("credit commission: %w", err)
		}
		if err := cs.referralRepo.AddCommission(ctx, tx, edge.ID, commission, now); err != nil {
			return nil, fmt.Errorf("accumulate edge commission: %w", err)
		}

		income := models.Income{
			UserUUID:     edge.ReferrerUUID,
			Type:         models.ReferralIncomeType(edge.Level),
			Amount:       commission,
			FromUserUUID: uuid.NullUUID{UUID: *userUID, Valid: true},
			Level:        edge.Level,
			Description:  memo,
			CreatedAt:    now,
		}
		if err := cs.incomeRepo.Create(ctx, tx, &income); err != nil {
			return nil, fmt.Errorf("create income entry: %w", err)
		}

		payouts = append(payouts, CommissionPayout{
			ReferrerUUID: edge.ReferrerUUID,
			Level:        edge.Level,
			Amount:       commission,
			WalletType:   walletType,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return payouts, nil
}

func (cs *CommissionServiceImpl) DistributeBestEffort(ctx context.Context, userUID *uuid.UUID, amount decimal.Decimal) {
	payouts, err := cs.Distribute(ctx, userUID, amount)
	if err != nil {
		logger.Log.Error("commission distribution failed, purchase kept",
			zap.String("user_uuid", userUID.String()),
			zap.String("amount", amount.String()),
			zap.Error(err))
		return
	}
	logger.Log.Debug("commissions distributed",
		zap.String("user_uuid", userUID.String()),
		zap.Int("payouts", len(payouts)))
}
