package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/avetisov/investline/internal/app/models"
	"github.com/avetisov/investline/internal/app/repository"
)

// newTestDB hands mocked GetDB() implementations a real transaction source.
// The transactions carry no statements of their own; the repositories under
// them are mocks.
func newTestDB(t *testing.T) *sqlx.DB {
	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("could not create in-memory db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) CreateWallet(ctx context.Context, tx *sqlx.Tx, wallet *models.Wallet) error {
	args := m.Called(ctx, tx, wallet)
	return args.Error(0)
}

func (m *MockWalletRepository) GetWallet(ctx context.Context, userUID *uuid.UUID, walletType models.WalletType) (*models.Wallet, error) {
	args := m.Called(ctx, userUID, walletType)
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetWalletForUpdate(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID, walletType models.WalletType) (*models.Wallet, error) {
	args := m.Called(ctx, tx, userUID, walletType)
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetWalletsByUser(ctx context.Context, userUID *uuid.UUID) (*[]models.Wallet, error) {
	args := m.Called(ctx, userUID)
	return args.Get(0).(*[]models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) UpdateBalances(ctx context.Context, tx *sqlx.Tx, wallet *models.Wallet) error {
	args := m.Called(ctx, tx, wallet)
	return args.Error(0)
}

func (m *MockWalletRepository) GetDB() *sqlx.DB {
	args := m.Called()
	return args.Get(0).(*sqlx.DB)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *sqlx.Tx, transaction *models.Transaction) error {
	args := m.Called(ctx, tx, transaction)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByUser(ctx context.Context, userUID *uuid.UUID, limit int) (*[]models.Transaction, error) {
	args := m.Called(ctx, userUID, limit)
	return args.Get(0).(*[]models.Transaction), args.Error(1)
}

type MockIncomeRepository struct {
	mock.Mock
}

func (m *MockIncomeRepository) Create(ctx context.Context, tx *sqlx.Tx, income *models.Income) error {
	args := m.Called(ctx, tx, income)
	return args.Error(0)
}

func (m *MockIncomeRepository) GetByUser(ctx context.Context, userUID *uuid.UUID, limit int) (*[]models.Income, error) {
	args := m.Called(ctx, userUID, limit)
	return args.Get(0).(*[]models.Income), args.Error(1)
}

type MockReferralRepository struct {
	mock.Mock
}

func (m *MockReferralRepository) Create(ctx context.Context, tx *sqlx.Tx, referral *models.Referral) error {
	args := m.Called(ctx, tx, referral)
	return args.Error(0)
}

func (m *MockReferralRepository) GetUpline(ctx context.Context, referredUID *uuid.UUID) (*[]models.Referral, error) {
	args := m.Called(ctx, referredUID)
	return args.Get(0).(*[]models.Referral), args.Error(1)
}

func (m *MockReferralRepository) GetDownline(ctx context.Context, referrerUID *uuid.UUID) (*[]models.Referral, error) {
	args := m.Called(ctx, referrerUID)
	return args.Get(0).(*[]models.Referral), args.Error(1)
}

func (m *MockReferralRepository) AddCommission(ctx context.Context, tx *sqlx.Tx, referralID int64, amount decimal.Decimal, when time.Time) error {
	args := m.Called(ctx, tx, referralID, amount, when)
	return args.Error(0)
}

func (m *MockReferralRepository) GetLevelStats(ctx context.Context, referrerUID *uuid.UUID) ([]repository.LevelStat, error) {
	args := m.Called(ctx, referrerUID)
	return args.Get(0).([]repository.LevelStat), args.Error(1)
}

func (m *MockReferralRepository) GetDB() *sqlx.DB {
	args := m.Called()
	return args.Get(0).(*sqlx.DB)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, tx *sqlx.Tx, user *models.User) error {
	args := m.Called(ctx, tx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	args := m.Called(ctx, login)
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByUUID(ctx context.Context, userUID *uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetDB() *sqlx.DB {
	args := m.Called()
	return args.Get(0).(*sqlx.DB)
}

type MockPackageRepository struct {
	mock.Mock
}

func (m *MockPackageRepository) Create(ctx context.Context, pkg *models.InvestmentPackage) error {
	args := m.Called(ctx, pkg)
	return args.Error(0)
}

func (m *MockPackageRepository) Update(ctx context.Context, pkg *models.InvestmentPackage) error {
	args := m.Called(ctx, pkg)
	return args.Error(0)
}

func (m *MockPackageRepository) Delete(ctx context.Context, packageID int64) error {
	args := m.Called(ctx, packageID)
	return args.Error(0)
}

func (m *MockPackageRepository) GetByID(ctx context.Context, packageID int64) (*models.InvestmentPackage, error) {
	args := m.Called(ctx, packageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InvestmentPackage), args.Error(1)
}

func (m *MockPackageRepository) GetAvailable(ctx context.Context, today time.Time) (*[]models.InvestmentPackage, error) {
	args := m.Called(ctx, today)
	return args.Get(0).(*[]models.InvestmentPackage), args.Error(1)
}

func (m *MockPackageRepository) GetAll(ctx context.Context) (*[]models.InvestmentPackage, error) {
	args := m.Called(ctx)
	return args.Get(0).(*[]models.InvestmentPackage), args.Error(1)
}

func (m *MockPackageRepository) SumActiveInvested(ctx context.Context, packageID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, packageID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPackageRepository) CountActivePositions(ctx context.Context, packageID int64) (int, error) {
	args := m.Called(ctx, packageID)
	return args.Int(0), args.Error(1)
}

type MockInvestmentRepository struct {
	mock.Mock
}

func (m *MockInvestmentRepository) Create(ctx context.Context, tx *sqlx.Tx, investment *models.UserInvestment) error {
	args := m.Called(ctx, tx, investment)
	return args.Error(0)
}

func (m *MockInvestmentRepository) GetByID(ctx context.Context, investmentID int64) (*models.UserInvestment, error) {
	args := m.Called(ctx, investmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserInvestment), args.Error(1)
}

func (m *MockInvestmentRepository) GetWithTerms(ctx context.Context, investmentID int64) (*models.EligibleInvestment, error) {
	args := m.Called(ctx, investmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EligibleInvestment), args.Error(1)
}

func (m *MockInvestmentRepository) GetByUser(ctx context.Context, userUID *uuid.UUID, status models.InvestmentStatus) (*[]models.UserInvestment, error) {
	args := m.Called(ctx, userUID, status)
	return args.Get(0).(*[]models.UserInvestment), args.Error(1)
}

func (m *MockInvestmentRepository) GetEligible(ctx context.Context, day time.Time) (*[]models.EligibleInvestment, error) {
	args := m.Called(ctx, day)
	return args.Get(0).(*[]models.EligibleInvestment), args.Error(1)
}

func (m *MockInvestmentRepository) ApplyReturn(ctx context.Context, tx *sqlx.Tx, investmentID int64, amount decimal.Decimal, day time.Time) error {
	args := m.Called(ctx, tx, investmentID, amount, day)
	return args.Error(0)
}

func (m *MockInvestmentRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, investmentID int64, from, to models.InvestmentStatus) error {
	args := m.Called(ctx, tx, investmentID, from, to)
	return args.Error(0)
}

func (m *MockInvestmentRepository) MatureDue(ctx context.Context, day time.Time) (int64, error) {
	args := m.Called(ctx, day)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvestmentRepository) SumInvestedOn(ctx context.Context, userUID *uuid.UUID, day time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, userUID, day)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockInvestmentRepository) SumInvestedByUser(ctx context.Context, userUID *uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, userUID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockInvestmentRepository) GetUserSummary(ctx context.Context, userUID *uuid.UUID) (*repository.UserInvestmentSummary, error) {
	args := m.Called(ctx, userUID)
	return args.Get(0).(*repository.UserInvestmentSummary), args.Error(1)
}

func (m *MockInvestmentRepository) GetDB() *sqlx.DB {
	args := m.Called()
	return args.Get(0).(*sqlx.DB)
}

type MockReturnRepository struct {
	mock.Mock
}

func (m *MockReturnRepository) Create(ctx context.Context, tx *sqlx.Tx, investmentReturn *models.InvestmentReturn) error {
	args := m.Called(ctx, tx, investmentReturn)
	return args.Error(0)
}

func (m *MockReturnRepository) GetByInvestment(ctx context.Context, investmentID int64) (*[]models.InvestmentReturn, error) {
	args := m.Called(ctx, investmentID)
	return args.Get(0).(*[]models.InvestmentReturn), args.Error(1)
}

func (m *MockReturnRepository) GetByUser(ctx context.Context, userUID *uuid.UUID, limit int) (*[]models.InvestmentReturn, error) {
	args := m.Called(ctx, userUID, limit)
	return args.Get(0).(*[]models.InvestmentReturn), args.Error(1)
}

func (m *MockReturnRepository) GetDayStat(ctx context.Context, day time.Time) (*repository.ReturnDayStat, error) {
	args := m.Called(ctx, day)
	return args.Get(0).(*repository.ReturnDayStat), args.Error(1)
}

type MockConfigRepository struct {
	mock.Mock
}

func (m *MockConfigRepository) Get(ctx context.Context, key string) (*models.AdminConfig, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AdminConfig), args.Error(1)
}

func (m *MockConfigRepository) Upsert(ctx context.Context, cfg *models.AdminConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *MockConfigRepository) GetAll(ctx context.Context) (*[]models.AdminConfig, error) {
	args := m.Called(ctx)
	return args.Get(0).(*[]models.AdminConfig), args.Error(1)
}

type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) InitWallets(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID) error {
	args := m.Called(ctx, tx, userUID)
	return args.Error(0)
}

func (m *MockWalletService) GetBalances(ctx context.Context, userUID *uuid.UUID) ([]WalletBalance, error) {
	args := m.Called(ctx, userUID)
	return args.Get(0).([]WalletBalance), args.Error(1)
}

func (m *MockWalletService) Credit(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID, walletType models.WalletType,
	amount decimal.Decimal, txnType models.TransactionType, memo string) (*models.Wallet, error) {
	args := m.Called(ctx, tx, userUID, walletType, amount, txnType, memo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletService) Debit(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID, walletType models.WalletType,
	amount decimal.Decimal, txnType models.TransactionType, memo string) (*models.Wallet, error) {
	args := m.Called(ctx, tx, userUID, walletType, amount, txnType, memo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletService) Lock(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID, walletType models.WalletType, amount decimal.Decimal) error {
	args := m.Called(ctx, tx, userUID, walletType, amount)
	return args.Error(0)
}

func (m *MockWalletService) Unlock(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID, walletType models.WalletType, amount decimal.Decimal) error {
	args := m.Called(ctx, tx, userUID, walletType, amount)
	return args.Error(0)
}

func (m *MockWalletService) Transfer(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID, src, dst models.WalletType,
	amount decimal.Decimal, memo string) error {
	args := m.Called(ctx, tx, userUID, src, dst, amount, memo)
	return args.Error(0)
}

func (m *MockWalletService) AdminTransfer(ctx context.Context, userUID *uuid.UUID, src, dst models.WalletType,
	amount decimal.Decimal, memo string) error {
	args := m.Called(ctx, userUID, src, dst, amount, memo)
	return args.Error(0)
}

func (m *MockWalletService) GetTransactions(ctx context.Context, userUID *uuid.UUID, limit int) (*[]models.Transaction, error) {
	args := m.Called(ctx, userUID, limit)
	return args.Get(0).(*[]models.Transaction), args.Error(1)
}

func (m *MockWalletService) GetIncomes(ctx context.Context, userUID *uuid.UUID, limit int) (*[]models.Income, error) {
	args := m.Called(ctx, userUID, limit)
	return args.Get(0).(*[]models.Income), args.Error(1)
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

func (m *MockAdminConfigService) GetTransactionLimits(ctx context.Context) TransactionLimits {
	args := m.Called(ctx)
	return args.Get(0).(TransactionLimits)
}

func (m *MockAdminConfigService) Set(ctx context.Context, key, value, description, category, dataType string) error {
	args := m.Called(ctx, key, value, description, category, dataType)
	return args.Error(0)
}

func (m *MockAdminConfigService) GetAll(ctx context.Context) (*[]models.AdminConfig, error) {
	args := m.Called(ctx)
	return args.Get(0).(*[]models.AdminConfig), args.Error(1)
}

type MockCommissionService struct {
	mock.Mock
}

func (m *MockCommissionService) Distribute(ctx context.Context, userUID *uuid.UUID, amount decimal.Decimal) ([]CommissionPayout, error) {
	args := m.Called(ctx, userUID, amount)
	return args.Get(0).([]CommissionPayout), args.Error(1)
}

func (m *MockCommissionService) DistributeBestEffort(ctx context.Context, userUID *uuid.UUID, amount decimal.Decimal) {
	m.Called(ctx, userUID, amount)
}

type MockPackageService struct {
	mock.Mock
}

func (m *MockPackageService) Create(ctx context.Context, pkg *models.InvestmentPackage) error {
	args := m.Called(ctx, pkg)
	return args.Error(0)
}

func (m *MockPackageService) Update(ctx context.Context, pkg *models.InvestmentPackage) error {
	args := m.Called(ctx, pkg)
	return args.Error(0)
}

func (m *MockPackageService) Delete(ctx context.Context, packageID int64) error {
	args := m.Called(ctx, packageID)
	return args.Error(0)
}

func (m *MockPackageService) GetByID(ctx context.Context, packageID int64) (*models.InvestmentPackage, error) {
	args := m.Called(ctx, packageID)
	return args.Get(0).(*models.InvestmentPackage), args.Error(1)
}

func (m *MockPackageService) GetAvailable(ctx context.Context) (*[]models.InvestmentPackage, error) {
	args := m.Called(ctx)
	return args.Get(0).(*[]models.InvestmentPackage), args.Error(1)
}

func (m *MockPackageService) GetAll(ctx context.Context) (*[]models.InvestmentPackage, error) {
	args := m.Called(ctx)
	return args.Get(0).(*[]models.InvestmentPackage), args.Error(1)
}

func (m *MockPackageService) ValidatePurchaseAmount(ctx context.Context, pkg *models.InvestmentPackage, amount decimal.Decimal) error {
	args := m.Called(ctx, pkg, amount)
	return args.Error(0)
}

type MockFundRequestRepository struct {
	mock.Mock
}

func (m *MockFundRequestRepository) Create(ctx context.Context, tx *sqlx.Tx, request *models.FundRequest) error {
	args := m.Called(ctx, tx, request)
	return args.Error(0)
}

func (m *MockFundRequestRepository) GetByID(ctx context.Context, requestID int64) (*models.FundRequest, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FundRequest), args.Error(1)
}

func (m *MockFundRequestRepository) GetByUser(ctx context.Context, userUID *uuid.UUID, status models.FundRequestStatus, limit int) (*[]models.FundRequest, error) {
	args := m.Called(ctx, userUID, status, limit)
	return args.Get(0).(*[]models.FundRequest), args.Error(1)
}

func (m *MockFundRequestRepository) GetByStatus(ctx context.Context, status models.FundRequestStatus, limit int) (*[]models.FundRequest, error) {
	args := m.Called(ctx, status, limit)
	return args.Get(0).(*[]models.FundRequest), args.Error(1)
}

func (m *MockFundRequestRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, requestID int64, from, to models.FundRequestStatus, notes string) error {
	args := m.Called(ctx, tx, requestID, from, to, notes)
	return args.Error(0)
}

func (m *MockFundRequestRepository) GetDB() *sqlx.DB {
	args := m.Called()
	return args.Get(0).(*sqlx.DB)
}
