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

type IncomeRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, income *models.Income) error
	GetByUser(ctx context.Context, userUID *uuid.UUID, limit int) (*[]models.Income, error)
}

type IncomeRepositoryImpl struct {
	db *sqlx.DB
}

func NewIncomeRepository(db *sqlx.DB) *IncomeRepositoryImpl {
	return &IncomeRepositoryImpl{db: db}
}

func (ir *IncomeRepositoryImpl) Create(ctx context.Context, tx *sqlx.Tx, income *models.Income) error {
	query := `INSERT INTO incomes (user_uuid, income_type, amount, from_user_uuid, level, description, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7) returning id;`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	err = stmt.QueryRowContext(ctx, income.UserUUID, income.Type.String(), income.Amount,
		income.FromUserUUID, income.Level, income.Description, income.CreatedAt).Scan(&income.ID)
	if err != nil {
		return fmt.Errorf("exec statement: %w", err)
	}
	return nil
}

func (ir *IncomeRepositoryImpl) GetByUser(ctx context.Context, userUID *uuid.UUID, limit int) (*[]models.Income, error) {
	query := `SELECT * FROM incomes WHERE user_uuid = $1 order by created_at desc limit $2;`
	incomes := make([]models.Income, 0)
	err := ir.db.SelectContext(ctx, &incomes, query, userUID, limit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &incomes, nil
		}
		return nil, fmt.Errorf("read user incomes: %w", err)
	}
	return &incomes, nil
}
