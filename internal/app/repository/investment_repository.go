package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	appErrors "github.com/avetisov/investline/internal/app/errors"
	"github.com/avetisov/investline/internal/app/models"
)

type (
	// UserInvestmentSummary aggregates a user's positions for reporting.
	UserInvestmentSummary struct {
		TotalInvestments   int             `db:"total_investments"`
		TotalInvested      decimal.Decimal `db:"total_invested"`
		TotalReturnsEarned decimal.Decimal `db:"total_returns_earned"`
		ActiveInvestments  int             `db:"active_investments"`
		MaturedInvestments int             `db:"matured_investments"`
	}

	InvestmentRepository interface {
		Create(ctx context.Context, tx *sqlx.Tx, investment *models.UserInvestment) error
		GetByID(ctx context.Context, investmentID int64) (*models.UserInvestment, error)
		// GetWithTerms joins the position with its package terms.
		GetWithTerms(ctx context.Context, investmentID int64) (*models.EligibleInvestment, error)
		GetByUser(ctx context.Context, userUID *uuid.UUID, status models.InvestmentStatus) (*[]models.UserInvestment, error)
		// GetEligible returns ACTIVE positions due a return on day, joined
		// with package terms, honoring the last_return_date idempotence token.
		GetEligible(ctx context.Context, day time.Time) (*[]models.EligibleInvestment, error)
		ApplyReturn(ctx context.Context, tx *sqlx.Tx, investmentID int64, amount decimal.Decimal, day time.Time) error
		// UpdateStatus transitions only when the stored status still equals
		// from; a zero row count means the guard failed.
		UpdateStatus(ctx context.Context, tx *sqlx.Tx, investmentID int64, from, to models.InvestmentStatus) error
		// MatureDue flips ACTIVE positions past their maturity date to
		// MATURED and reports how many changed. No money moves here.
		MatureDue(ctx context.Context, day time.Time) (int64, error)
		SumInvestedOn(ctx context.Context, userUID *uuid.UUID, day time.Time) (decimal.Decimal, error)
		// SumInvestedByUser is the derived total_investment: ACTIVE plus
		// MATURED principal. It is never stored.
		SumInvestedByUser(ctx context.Context, userUID *uuid.UUID) (decimal.Decimal, error)
		GetUserSummary(ctx context.Context, userUID *uuid.UUID) (*UserInvestmentSummary, error)
		GetDB() *sqlx.DB
	}
)

type InvestmentRepositoryImpl struct {
	db *sqlx.DB
}

func NewInvestmentRepository(db *sqlx.DB) *InvestmentRepositoryImpl {
	return &InvestmentRepositoryImpl{db: db}
}

func (ir *InvestmentRepositoryImpl) Create(ctx context.Context, tx *sqlx.Tx, investment *models.UserInvestment) error {
	query := `INSERT INTO user_investments
			  (user_uuid, package_id, amount_invested, investment_date, returns_start_date, maturity_date,
			   total_returns_paid, status, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) returning id;`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	err = stmt.QueryRowContext(ctx, investment.UserUUID, investment.PackageID, investment.AmountInvested,
		investment.InvestmentDate, investment.ReturnsStartDate, investment.MaturityDate,
		investment.TotalReturnsPaid, investment.Status.String(), investment.CreatedAt, investment.UpdatedAt).Scan(&investment.ID)
	if err != nil {
		return fmt.Errorf("exec statement: %w", err)
	}
	return nil
}

func (ir *InvestmentRepositoryImpl) GetByID(ctx context.Context, investmentID int64) (*models.UserInvestment, error) {
	query := `SELECT * FROM user_investments WHERE id = $1;`
	investment := models.UserInvestment{}
	err := ir.db.GetContext(ctx, &investment, query, investmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewWithCode(err, "Investment not found", http.StatusNotFound)
		}
		return nil, fmt.Errorf("get investment: %w", err)
	}
	return &investment, nil
}

func (ir *InvestmentRepositoryImpl) GetWithTerms(ctx context.Context, investmentID int64) (*models.EligibleInvestment, error) {
	query := `SELECT i.*, p.name AS package_name, p.total_return_percentage, p.duration_days
			  FROM user_investments i
			  JOIN investment_packages p ON p.id = i.package_id
			  WHERE i.id = $1;`
	investment := models.EligibleInvestment{}
	err := ir.db.GetContext(ctx, &investment, query, investmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewWithCode(err, "Investment not found", http.StatusNotFound)
		}
		return nil, fmt.Errorf("get investment with terms: %w", err)
	}
	return &investment, nil
}

func (ir *InvestmentRepositoryImpl) GetByUser(ctx context.Context, userUID *uuid.UUID, status models.InvestmentStatus) (*[]models.UserInvestment, error) {
	investments := make([]models.UserInvestment, 0)
	var err error
	if status == "" {
		query := `SELECT * FROM user_investments WHERE user_uuid = $1 order by created_at desc;`
		err = ir.db.SelectContext(ctx, &investments, query, userUID)
	} else {
		query := `SELECT * FROM user_investments WHERE user_uuid = $1 AND status = $2 order by created_at desc;`
		err = ir.db.SelectContext(ctx, &investments, query, userUID, status.String())
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &investments, nil
		}
		return nil, fmt.Errorf("read user investments: %w", err)
	}
	return &investments, nil
}

func (ir *InvestmentRepositoryImpl) GetEligible(ctx context.Context, day time.Time) (*[]models.EligibleInvestment, error) {
	query := `SELECT i.*, p.name AS package_name, p.total_return_percentage, p.duration_days
			  FROM user_investments i
			  JOIN investment_packages p ON p.id = i.package_id
			  WHERE i.status = 'active'
			    AND i.returns_start_date <= $1
			    AND i.maturity_date > $1
			    AND (i.last_return_date IS NULL OR i.last_return_date < $1)
			  order by i.id;`
	investments := make([]models.EligibleInvestment, 0)
	err := ir.db.SelectContext(ctx, &investments, query, models.DateOnly(day))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &investments, nil
		}
		return nil, fmt.Errorf("read eligible investments: %w", err)
	}
	return &investments, nil
}

func (ir *InvestmentRepositoryImpl) ApplyReturn(ctx context.Context, tx *sqlx.Tx, investmentID int64, amount decimal.Decimal, day time.Time) error {
	query := `UPDATE user_investments
			  SET total_returns_paid = total_returns_paid + $1, last_return_date = $2, updated_at = $3
			  WHERE id = $4;`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, amount, models.DateOnly(day), time.Now(), investmentID)
	if err != nil {
		return fmt.Errorf("execute statement: %w", err)
	}
	return nil
}

func (ir *InvestmentRepositoryImpl) UpdateStatus(ctx context.Context, tx *sqlx.Tx, investmentID int64, from, to models.InvestmentStatus) error {
	query := `UPDATE user_investments SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4;`
	res, err := tx.ExecContext(ctx, query, to.String(), time.Now(), investmentID, from.String())
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		msg := fmt.Sprintf("Investment is not %s", from)
		return appErrors.NewWithCode(errors.New("status guard failed"), msg, http.StatusBadRequest)
	}
	return nil
}

func (ir *InvestmentRepositoryImpl) MatureDue(ctx context.Context, day time.Time) (int64, error) {
	query := `UPDATE user_investments SET status = 'matured', updated_at = $1
			  WHERE status = 'active' AND maturity_date <= $2;`
	res, err := ir.db.ExecContext(ctx, query, time.Now(), models.DateOnly(day))
	if err != nil {
		return 0, fmt.Errorf("mature due investments: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

func (ir *InvestmentRepositoryImpl) SumInvestedOn(ctx context.Context, userUID *uuid.UUID, day time.Time) (decimal.Decimal, error) {
	from := models.DateOnly(day)
	to := from.AddDate(0, 0, 1)
	query := `SELECT coalesce(sum(amount_invested), 0) FROM user_investments
			  WHERE user_uuid = $1 AND investment_date >= $2 AND investment_date < $3;`
	var total decimal.Decimal
	err := ir.db.GetContext(ctx, &total, query, userUID, from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum invested today: %w", err)
	}
	return total, nil
}

func (ir *InvestmentRepositoryImpl) SumInvestedByUser(ctx context.Context, userUID *uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT coalesce(sum(amount_invested), 0) FROM user_investments
			  WHERE user_uuid = $1 AND status IN ('active', 'matured');`
	var total decimal.Decimal
	err := ir.db.GetContext(ctx, &total, query, userUID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum invested by user: %w", err)
	}
	return total, nil
}

func (ir *InvestmentRepositoryImpl) GetUserSummary(ctx context.Context, userUID *uuid.UUID) (*UserInvestmentSummary, error) {
	query := `SELECT count(*)                                             AS total_investments,
			         coalesce(sum(amount_invested), 0)                    AS total_invested,
			         coalesce(sum(total_returns_paid), 0)                 AS total_returns_earned,
			         count(CASE WHEN status = 'active' THEN 1 END)        AS active_investments,
			         count(CASE WHEN status = 'matured' THEN 1 END)       AS matured_investments
			  FROM user_investments WHERE user_uuid = $1;`
	summary := UserInvestmentSummary{}
	err := ir.db.GetContext(ctx, &summary, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("read user summary: %w", err)
	}
	return &summary, nil
}

func (ir *InvestmentRepositoryImpl) GetDB() *sqlx.DB {
	return ir.db
}
