package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	appErrors "github.com/avetisov/investline/internal/app/errors"
	"github.com/avetisov/investline/internal/app/models"
	"github.com/avetisov/investline/internal/app/repository"
)

// Ledger invariant violations. These always abort the enclosing transaction.
var (
	ErrNonPositiveAmount   = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient available balance")
	ErrInsufficientLocked  = errors.New("insufficient locked balance")
)

type (
	WalletBalance struct {
		WalletType       models.WalletType
		Balance          decimal.Decimal
		LockedBalance    decimal.Decimal
		AvailableBalance decimal.Decimal
	}

	// WalletService is the ledger: per-user named balances mutated only
	// through credit/debit/lock/unlock/transfer, each writing an audit row.
	// Every mutating call expects an open transaction and row-locks the
	// wallet before touching it.
	WalletService interface {
		InitWallets(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID) error
		GetBalances(ctx context.Context, userUID *uuid.UUID) ([]WalletBalance, error)
		Credit(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID, walletType models.WalletType,
			amount decimal.Decimal, txnType models.TransactionType, memo string) (*models.Wallet, error)
		Debit(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID, walletType models.WalletType,
			amount decimal.Decimal, txnType models.TransactionType, memo string) (*models.Wallet, error)
		Lock(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID, walletType models.WalletType, amount decimal.Decimal) error
		Unlock(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID, walletType models.WalletType, amount decimal.Decimal) error
		// Transfer is admin-initiated only. User-to-user transfers are
		// deliberately not exposed anywhere in the API surface.
		Transfer(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID, src, dst models.WalletType,
			amount decimal.Decimal, memo string) error
		// AdminTransfer wraps Transfer in its own transaction for the admin
		// console, which has no enclosing unit of work.
		AdminTransfer(ctx context.Context, userUID *uuid.UUID, src, dst models.WalletType,
			amount decimal.Decimal, memo string) error
		GetTransactions(ctx context.Context, userUID *uuid.UUID, limit int) (*[]models.Transaction, error)
		GetIncomes(ctx context.Context, userUID *uuid.UUID, limit int) (*[]models.Income, error)
	}

	WalletServiceImpl struct {
		walletRepo repository.WalletRepository
		txnRepo    repository.TransactionRepository
		incomeRepo repository.IncomeRepository
	}
)

func NewWalletService(walletRepo repository.WalletRepository, txnRepo repository.TransactionRepository,
	incomeRepo repository.IncomeRepository) *WalletServiceImpl {
	return &WalletServiceImpl{walletRepo: walletRepo, txnRepo: txnRepo, incomeRepo: incomeRepo}
}

func (ws *WalletServiceImpl) InitWallets(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID) error {
	now := time.Now()
	for _, walletType := range models.KnownWalletTypes() {
		wallet := models.Wallet{
			UserUUID:   *userUID,
			WalletType: walletType,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := ws.walletRepo.CreateWallet(ctx, tx, &wallet); err != nil {
			return appErrors.New(err, "create wallet")
		}
	}
	return nil
}

func (ws *WalletServiceImpl) GetBalances(ctx context.Context, userUID *uuid.UUID) ([]WalletBalance, error) {
	wallets, err := ws.walletRepo.GetWalletsByUser(ctx, userUID)
	if err != nil {
		return nil, appErrors.New(err, "get wallets")
	}

	byType := make(map[models.WalletType]*models.Wallet, len(*wallets))
	for i := range *wallets {
		w := &(*wallets)[i]
		byType[w.WalletType] = w
	}

	// Every known type is reported, zero-valued when the wallet does not
	// exist yet (wallets are created lazily).
	balances := make([]WalletBalance, 0, len(models.KnownWalletTypes()))
	for _, walletType := range models.KnownWalletTypes() {
		balance := WalletBalance{WalletType: walletType}
		if w, ok := byType[walletType]; ok {
			balance.Balance = w.Balance
			balance.LockedBalance = w.LockedBalance
			balance.AvailableBalance = w.AvailableBalance()
		}
		balances = append(balances, balance)
	}
	return balances, nil
}

func (ws *WalletServiceImpl) Credit(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID, walletType models.WalletType,
	amount decimal.Decimal, txnType models.TransactionType, memo string) (*models.Wallet, error) {
	if !amount.IsPositive() {
		return nil, appErrors.NewWithCode(ErrNonPositiveAmount, "Amount must be greater than 0", http.StatusBadRequest)
	}

	wallet, err := ws.walletRepo.GetWalletForUpdate(ctx, tx, userUID, walletType)
	if err != nil {
		return nil, err
	}
	wallet.Balance = wallet.Balance.Add(amount)
	if err := ws.walletRepo.UpdateBalances(ctx, tx, wallet); err != nil {
		return nil, err
	}

	// Income wallets feed the derived total_income aggregate so that the
	// running total never needs a live query.
	if walletType.IsIncome() {
		totalIncome, err := ws.walletRepo.GetWalletForUpdate(ctx, tx, userUID, models.WalletTotalIncome)
		if err != nil {
			return nil, err
		}
		totalIncome.Balance = totalIncome.Balance.Add(amount)
		if err := ws.walletRepo.UpdateBalances(ctx, tx, totalIncome); err != nil {
			return nil, err
		}
	}

	if err := ws.writeAudit(ctx, tx, userUID, walletType, amount, txnType, memo); err != nil {
		return nil, err
	}
	return wallet, nil
}

func (ws *WalletServiceImpl) Debit(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID, walletType models.WalletType,
	amount decimal.Decimal, txnType models.TransactionType, memo string) (*models.Wallet, error) {
	if !amount.IsPositive() {
		return nil, appErrors.NewWithCode(ErrNonPositiveAmount, "Amount must be greater than 0", http.StatusBadRequest)
	}

	wallet, err := ws.walletRepo.GetWalletForUpdate(ctx, tx, userUID, walletType)
	if err != nil {
		return nil, err
	}
	if wallet.AvailableBalance().LessThan(amount) {
		return nil, appErrors.NewWithCode(ErrInsufficientBalance, "Insufficient available funds", http.StatusPaymentRequired)
	}
	wallet.Balance = wallet.Balance.Sub(amount)
	if err := ws.walletRepo.UpdateBalances(ctx, tx, wallet); err != nil {
		return nil, err
	}

	if err := ws.writeAudit(ctx, tx, userUID, walletType, amount, txnType, memo); err != nil {
		return nil, err
	}
	return wallet, nil
}

func (ws *WalletServiceImpl) Lock(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID, walletType models.WalletType, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return appErrors.NewWithCode(ErrNonPositiveAmount, "Amount must be greater than 0", http.StatusBadRequest)
	}

	wallet, err := ws.walletRepo.GetWalletForUpdate(ctx, tx, userUID, walletType)
	if err != nil {
		return err
	}
	if wallet.AvailableBalance().LessThan(amount) {
		return appErrors.NewWithCode(ErrInsufficientBalance, "Insufficient available funds", http.StatusPaymentRequired)
	}
	wallet.LockedBalance = wallet.LockedBalance.Add(amount)
	if err := ws.walletRepo.UpdateBalances(ctx, tx, wallet); err != nil {
		return err
	}
	return ws.writeAudit(ctx, tx, userUID, walletType, amount, models.TransactionLock, "Balance locked")
}

func (ws *WalletServiceImpl) Unlock(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID, walletType models.WalletType, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return appErrors.NewWithCode(ErrNonPositiveAmount, "Amount must be greater than 0", http.StatusBadRequest)
	}

	wallet, err := ws.walletRepo.GetWalletForUpdate(ctx, tx, userUID, walletType)
	if err != nil {
		return err
	}
	if wallet.LockedBalance.LessThan(amount) {
		return appErrors.NewWithCode(ErrInsufficientLocked, "Insufficient locked balance", http.StatusBadRequest)
	}
	wallet.LockedBalance = wallet.LockedBalance.Sub(amount)
	if err := ws.walletRepo.UpdateBalances(ctx, tx, wallet); err != nil {
		return err
	}
	return ws.writeAudit(ctx, tx, userUID, walletType, amount, models.TransactionUnlock, "Balance unlocked")
}

func (ws *WalletServiceImpl) Transfer(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID, src, dst models.WalletType,
	amount decimal.Decimal, memo string) error {
	if _, err := ws.Debit(ctx, tx, userUID, src, amount, models.TransactionTransfer, "Transfer to "+dst.String()+": "+memo); err != nil {
		return err
	}
	if _, err := ws.Credit(ctx, tx, userUID, dst, amount, models.TransactionTransfer, "Transfer from "+src.String()+": "+memo); err != nil {
		return err
	}
	return nil
}

func (ws *WalletServiceImpl) AdminTransfer(ctx context.Context, userUID *uuid.UUID, src, dst models.WalletType,
	amount decimal.Decimal, memo string) error {
	tx, err := ws.walletRepo.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.New(err, "begin transaction")
	}
	defer tx.Rollback()

	if err := ws.Transfer(ctx, tx, userUID, src, dst, amount, memo); err != nil {
		return err
	}
	return tx.Commit()
}

func (ws *WalletServiceImpl) GetTransactions(ctx context.Context, userUID *uuid.UUID, limit int) (*[]models.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return ws.txnRepo.GetByUser(ctx, userUID, limit)
}

func (ws *WalletServiceImpl) GetIncomes(ctx context.Context, userUID *uuid.UUID, limit int) (*[]models.Income, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return ws.incomeRepo.GetByUser(ctx, userUID, limit)
}

func (ws *WalletServiceImpl) writeAudit(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID,
	walletType models.WalletType, amount decimal.Decimal, txnType models.TransactionType, memo string) error {
	transaction := models.Transaction{
		TransactionID: models.NewTransactionID(),
		UserUUID:      *userUID,
		Type:          txnType,
		WalletType:    walletType,
		Amount:        amount,
		Description:   memo,
		CreatedAt:     time.Now(),
	}
	return ws.txnRepo.Create(ctx, tx, &transaction)
}
