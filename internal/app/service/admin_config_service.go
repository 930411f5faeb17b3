package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appErrors "github.com/avetisov/investline/internal/app/errors"
	"github.com/avetisov/investline/internal/app/logger"
	"github.com/avetisov/investline/internal/app/models"
	"github.com/avetisov/investline/internal/app/repository"
)

const (
	ConfigKeyReferralRates        = "referral_rates"
	ConfigKeyDailyInvestmentLimit = "daily_investment_limit"
	ConfigKeySettlementFeePercent = "settlement_fee_percent"
	ConfigKeyMinWithdrawal        = "min_withdrawal"
	ConfigKeyMaxWithdrawal        = "max_withdrawal"
	ConfigKeyMinDeposit           = "min_deposit"
	ConfigKeyMaxDeposit           = "max_deposit"
	ConfigKeyWithdrawalFee        = "withdrawal_fee"
)

type (
	TransactionLimits struct {
		MinDeposit    decimal.Decimal
		MaxDeposit    decimal.Decimal
		MinWithdrawal decimal.Decimal
		MaxWithdrawal decimal.Decimal
		WithdrawalFee decimal.Decimal
	}

	// AdminConfigService reads tunable business values from the key/value
	// store through a short TTL cache, falling back to compiled-in defaults
	// when a key is absent. Writes invalidate the cached entry.
	AdminConfigService interface {
		ReferralRates(ctx context.Context) map[int]decimal.Decimal
		DailyInvestmentLimit(ctx context.Context) decimal.Decimal
		SettlementFeePercent(ctx context.Context) decimal.Decimal
		GetTransactionLimits(ctx context.Context) TransactionLimits
		Set(ctx context.Context, key, value, description, category, dataType string) error
		GetAll(ctx context.Context) (*[]models.AdminConfig, error)
	}

	AdminConfigServiceImpl struct {
		configRepo repository.ConfigRepository
		cache      *cache.Cache
	}
)

func NewAdminConfigService(configRepo repository.ConfigRepository, ttl time.Duration) *AdminConfigServiceImpl {
	return &AdminConfigServiceImpl{
		configRepo: configRepo,
		cache:      cache.New(ttl, 2*ttl),
	}
}

func (cs *AdminConfigServiceImpl) ReferralRates(ctx context.Context) map[int]decimal.Decimal {
	raw, ok := cs.getValue(ctx, ConfigKeyReferralRates)
	if !ok {
		return models.DefaultCommissionRates()
	}

	parsed := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		logger.Log.Warn("malformed referral_rates config, using defaults", zap.Error(err))
		return models.DefaultCommissionRates()
	}

	rates := make(map[int]decimal.Decimal, len(parsed))
	for levelStr, rateStr := range parsed {
		level, err := strconv.Atoi(levelStr)
		if err != nil || level < 1 || level > models.MaxReferralLevels {
			continue
		}
		rate, err := decimal.NewFromString(rateStr)
		if err != nil {
			continue
		}
		rates[level] = rate
	}
	if len(rates) == 0 {
		return models.DefaultCommissionRates()
	}
	return rates
}

func (cs *AdminConfigServiceImpl) DailyInvestmentLimit(ctx context.Context) decimal.Decimal {
	return cs.decimalValue(ctx, ConfigKeyDailyInvestmentLimit, decimal.NewFromInt(50000))
}

func (cs *AdminConfigServiceImpl) SettlementFeePercent(ctx context.Context) decimal.Decimal {
	return cs.decimalValue(ctx, ConfigKeySettlementFeePercent, decimal.Zero)
}

func (cs *AdminConfigServiceImpl) GetTransactionLimits(ctx context.Context) TransactionLimits {
	return TransactionLimits{
		MinDeposit:    cs.decimalValue(ctx, ConfigKeyMinDeposit, decimal.NewFromInt(10)),
		MaxDeposit:    cs.decimalValue(ctx, ConfigKeyMaxDeposit, decimal.NewFromInt(100000)),
		MinWithdrawal: cs.decimalValue(ctx, ConfigKeyMinWithdrawal, decimal.NewFromInt(5)),
		MaxWithdrawal: cs.decimalValue(ctx, ConfigKeyMaxWithdrawal, decimal.NewFromInt(50000)),
		WithdrawalFee: cs.decimalValue(ctx, ConfigKeyWithdrawalFee, decimal.NewFromInt(2)),
	}
}

func (cs *AdminConfigServiceImpl) Set(ctx context.Context, key, value, description, category, dataType string) error {
	cfg := models.AdminConfig{
		Key:         key,
		Value:       value,
		Description: description,
		Category:    category,
		DataType:    dataType,
	}
	if err := cs.configRepo.Upsert(ctx, &cfg); err != nil {
		return appErrors.New(err, "set config")
	}
	cs.cache.Delete(key)
	return nil
}

func (cs *AdminConfigServiceImpl) GetAll(ctx context.Context) (*[]models.AdminConfig, error) {
	return cs.configRepo.GetAll(ctx)
}

func (cs *AdminConfigServiceImpl) decimalValue(ctx context.Context, key string, fallback decimal.Decimal) decimal.Decimal {
	raw, ok := cs.getValue(ctx, key)
	if !ok {
		return fallback
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		logger.Log.Warn("malformed decimal config, using default", zap.String("key", key), zap.Error(err))
		return fallback
	}
	return value
}

func (cs *AdminConfigServiceImpl) getValue(ctx context.Context, key string) (string, bool) {
	if cached, found := cs.cache.Get(key); found {
		return cached.(string), true
	}
	cfg, err := cs.configRepo.Get(ctx, key)
	if err != nil {
		if err != repository.ErrConfigNotFound {
			logger.Log.Error("failed to read config", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	cs.cache.Set(key, cfg.Value, cache.DefaultExpiration)
	return cfg.Value, true
}
