package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/avetisov/investline/internal/app/models"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, transaction *models.Transaction) error
	GetByUser(ctx context.Context, userUID *uuid.UUID, limit int) (*[]models.Transaction, error)
}

type TransactionRepositoryImpl struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) *TransactionRepositoryImpl {
	return &TransactionRepositoryImpl{db: db}
}

func (tr *TransactionRepositoryImpl) Create(ctx context.Context, tx *sqlx.Tx, transaction *models.Transaction) error {
	query := `INSERT INTO transactions (transaction_id, user_uuid, transaction_type, wallet_type, amount, description, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7) returning id;`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	err = stmt.QueryRowContext(ctx, transaction.TransactionID, transaction.UserUUID, transaction.Type.String(),
		transaction.WalletType, transaction.Amount, transaction.Description, transaction.CreatedAt).Scan(&transaction.ID)
	if err != nil {
		return fmt.Errorf("exec statement: %w", err)
	}
	return nil
}

func (tr *TransactionRepositoryImpl) GetByUser(ctx context.Context, userUID *uuid.UUID, limit int) (*[]models.Transaction, error) {
	query := `SELECT * FROM transactions WHERE user_uuid = $1 order by created_at desc limit $2;`
	transactions := make([]models.Transaction, 0)
	err := tr.db.SelectContext(ctx, &transactions, query, userUID, limit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &transactions, nil
		}
		return nil, fmt.Errorf("read user transactions: %w", err)
	}
	return &transactions, nil
}
