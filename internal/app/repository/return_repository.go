package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/avetisov/investline/internal/app/models"
)

// ErrDuplicateReturn signals that a return row for (investment, date) already
// exists. The unique constraint is the accrual engine's last line of defense
// against double payment.
var ErrDuplicateReturn = errors.New("return already recorded for this date")

type (
	// ReturnDayStat aggregates return rows for one calendar day.
	ReturnDayStat struct {
		Distributions int             `db:"distributions"`
		Amount        decimal.Decimal `db:"amount"`
	}

	ReturnRepository interface {
		Create(ctx context.Context, tx *sqlx.Tx, investmentReturn *models.InvestmentReturn) error
		GetByInvestment(ctx context.Context, investmentID int64) (*[]models.InvestmentReturn, error)
		GetByUser(ctx context.Context, userUID *uuid.UUID, limit int) (*[]models.InvestmentReturn, error)
		GetDayStat(ctx context.Context, day time.Time) (*ReturnDayStat, error)
	}
)

type ReturnRepositoryImpl struct {
	db *sqlx.DB
}

func NewReturnRepository(db *sqlx.DB) *ReturnRepositoryImpl {
	return &ReturnRepositoryImpl{db: db}
}

func (rr *ReturnRepositoryImpl) Create(ctx context.Context, tx *sqlx.Tx, investmentReturn *models.InvestmentReturn) error {
	query := `INSERT INTO investment_returns
			  (investment_id, return_date, return_amount, days_since_start, status, processed_at, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7) returning id;`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	err = stmt.QueryRowContext(ctx, investmentReturn.InvestmentID, models.DateOnly(investmentReturn.ReturnDate),
		investmentReturn.ReturnAmount, investmentReturn.DaysSinceStart, string(investmentReturn.Status),
		investmentReturn.ProcessedAt, investmentReturn.CreatedAt).Scan(&investmentReturn.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateReturn
		}
		return fmt.Errorf("exec statement: %w", err)
	}
	return nil
}

func (rr *ReturnRepositoryImpl) GetByInvestment(ctx context.Context, investmentID int64) (*[]models.InvestmentReturn, error) {
	query := `SELECT * FROM investment_returns WHERE investment_id = $1 order by return_date desc;`
	returns := make([]models.InvestmentReturn, 0)
	err := rr.db.SelectContext(ctx, &returns, query, investmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &returns, nil
		}
		return nil, fmt.Errorf("read investment returns: %w", err)
	}
	return &returns, nil
}

func (rr *ReturnRepositoryImpl) GetByUser(ctx context.Context, userUID *uuid.UUID, limit int) (*[]models.InvestmentReturn, error) {
	query := `SELECT r.* FROM investment_returns r
			  JOIN user_investments i ON i.id = r.investment_id
			  WHERE i.user_uuid = $1
			  order by r.return_date desc limit $2;`
	returns := make([]models.InvestmentReturn, 0)
	err := rr.db.SelectContext(ctx, &returns, query, userUID, limit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &returns, nil
		}
		return nil, fmt.Errorf("read user returns: %w", err)
	}
	return &returns, nil
}

func (rr *ReturnRepositoryImpl) GetDayStat(ctx context.Context, day time.Time) (*ReturnDayStat, error) {
	query := `SELECT count(*) AS distributions, coalesce(sum(return_amount), 0) AS amount
			  FROM investment_returns WHERE return_date = $1;`
	stat := ReturnDayStat{}
	err := rr.db.GetContext(ctx, &stat, query, models.DateOnly(day))
	if err != nil {
		return nil, fmt.Errorf("read day stat: %w", err)
	}
	return &stat, nil
}
