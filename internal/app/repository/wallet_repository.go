package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/avetisov/investline/internal/app/models"
)

type WalletRepository interface {
	CreateWallet(ctx context.Context, tx *sqlx.Tx, wallet *models.Wallet) error
	GetWallet(ctx context.Context, userUID *uuid.UUID, walletType models.WalletType) (*models.Wallet, error)
	// GetWalletForUpdate row-locks the wallet inside tx, creating it lazily
	// when absent. Every balance mutation goes through this lock.
	GetWalletForUpdate(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID, walletType models.WalletType) (*models.Wallet, error)
	GetWalletsByUser(ctx context.Context, userUID *uuid.UUID) (*[]models.Wallet, error)
	UpdateBalances(ctx context.Context, tx *sqlx.Tx, wallet *models.Wallet) error
	GetDB() *sqlx.DB
}

type WalletRepositoryImpl struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) *WalletRepositoryImpl {
	return &WalletRepositoryImpl{db: db}
}

func (wr *WalletRepositoryImpl) CreateWallet(ctx context.Context, tx *sqlx.Tx, wallet *models.Wallet) error {
	query := `INSERT INTO wallets (user_uuid, wallet_type, balance, locked_balance, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6) returning id;`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	err = stmt.QueryRowContext(ctx, wallet.UserUUID, wallet.WalletType, wallet.Balance,
		wallet.LockedBalance, wallet.CreatedAt, wallet.UpdatedAt).Scan(&wallet.ID)
	if err != nil {
		return fmt.Errorf("exec statement: %w", err)
	}
	return nil
}

func (wr *WalletRepositoryImpl) GetWallet(ctx context.Context, userUID *uuid.UUID, walletType models.WalletType) (*models.Wallet, error) {
	query := `SELECT * FROM wallets WHERE user_uuid = $1 AND wallet_type = $2;`
	wallet := models.Wallet{}
	err := wr.db.GetContext(ctx, &wallet, query, userUID, walletType)
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return &wallet, nil
}

func (wr *WalletRepositoryImpl) GetWalletForUpdate(ctx context.Context, tx *sqlx.Tx, userUID *uuid.UUID, walletType models.WalletType) (*models.Wallet, error) {
	query := `SELECT * FROM wallets WHERE user_uuid = $1 AND wallet_type = $2 FOR UPDATE;`
	wallet := models.Wallet{}
	err := tx.GetContext(ctx, &wallet, query, userUID, walletType)
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}

	now := time.Now()
	wallet = models.Wallet{
		UserUUID:   *userUID,
		WalletType: walletType,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := wr.CreateWallet(ctx, tx, &wallet); err != nil {
		return nil, fmt.Errorf("create wallet lazily: %w", err)
	}
	return &wallet, nil
}

func (wr *WalletRepositoryImpl) GetWalletsByUser(ctx context.Context, userUID *uuid.UUID) (*[]models.Wallet, error) {
	query := `SELECT * FROM wallets WHERE user_uuid = $1 order by wallet_type;`
	wallets := make([]models.Wallet, 0)
	err := wr.db.SelectContext(ctx, &wallets, query, userUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &wallets, nil
		}
		return nil, fmt.Errorf("read user wallets: %w", err)
	}
	return &wallets, nil
}

func (wr *WalletRepositoryImpl) UpdateBalances(ctx context.Context, tx *sqlx.Tx, wallet *models.Wallet) error {
	query := `UPDATE wallets SET balance = $1, locked_balance = $2, updated_at = $3 WHERE id = $4;`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, wallet.Balance, wallet.LockedBalance, time.Now(), wallet.ID)
	if err != nil {
		return fmt.Errorf("execute statement: %w", err)
	}
	return nil
}

func (wr *WalletRepositoryImpl) GetDB() *sqlx.DB {
	return wr.db
}
