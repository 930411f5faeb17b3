package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	appErrors "github.com/avetisov/investline/internal/app/errors"
	"github.com/avetisov/investline/internal/app/models"
)

type PackageRepository interface {
	Create(ctx context.Context, pkg *models.InvestmentPackage) error
	Update(ctx context.Context, pkg *models.InvestmentPackage) error
	Delete(ctx context.Context, packageID int64) error
	GetByID(ctx context.Context, packageID int64) (*models.InvestmentPackage, error)
	GetAvailable(ctx context.Context, today time.Time) (*[]models.InvestmentPackage, error)
	GetAll(ctx context.Context) (*[]models.InvestmentPackage, error)
	// SumActiveInvested is the cumulative ACTIVE principal in the package,
	// used for the optional capacity cap.
	SumActiveInvested(ctx context.Context, packageID int64) (decimal.Decimal, error)
	CountActivePositions(ctx context.Context, packageID int64) (int, error)
}

type PackageRepositoryImpl struct {
	db *sqlx.DB
}

func NewPackageRepository(db *sqlx.DB) *PackageRepositoryImpl {
	return &PackageRepositoryImpl{db: db}
}

func (pr *PackageRepositoryImpl) Create(ctx context.Context, pkg *models.InvestmentPackage) error {
	query := `INSERT INTO investment_packages
			  (name, description, min_amount, max_amount, total_capacity, total_return_percentage,
			   duration_days, end_date, status, is_featured, sort_order, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) returning id;`
	err := pr.db.QueryRowContext(ctx, query, pkg.Name, pkg.Description, pkg.MinAmount, pkg.MaxAmount,
		pkg.TotalCapacity, pkg.TotalReturnPercentage, pkg.DurationDays, pkg.EndDate, pkg.Status.String(),
		pkg.IsFeatured, pkg.SortOrder, pkg.CreatedAt, pkg.UpdatedAt).Scan(&pkg.ID)
	if err != nil {
		return fmt.Errorf("create package: %w", err)
	}
	return nil
}

func (pr *PackageRepositoryImpl) Update(ctx context.Context, pkg *models.InvestmentPackage) error {
	query := `UPDATE investment_packages
			  SET name = $1, description = $2, min_amount = $3, max_amount = $4, total_capacity = $5,
			      total_return_percentage = $6, duration_days = $7, end_date = $8, status = $9,
			      is_featured = $10, sort_order = $11, updated_at = $12
			  WHERE id = $13;`
	res, err := pr.db.ExecContext(ctx, query, pkg.Name, pkg.Description, pkg.MinAmount, pkg.MaxAmount,
		pkg.TotalCapacity, pkg.TotalReturnPercentage, pkg.DurationDays, pkg.EndDate, pkg.Status.String(),
		pkg.IsFeatured, pkg.SortOrder, time.Now(), pkg.ID)
	if err != nil {
		return fmt.Errorf("update package: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return appErrors.NewWithCode(sql.ErrNoRows, "Package not found", http.StatusNotFound)
	}
	return nil
}

func (pr *PackageRepositoryImpl) Delete(ctx context.Context, packageID int64) error {
	query := `DELETE FROM investment_packages WHERE id = $1;`
	res, err := pr.db.ExecContext(ctx, query, packageID)
	if err != nil {
		return fmt.Errorf("delete package: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return appErrors.NewWithCode(sql.ErrNoRows, "Package not found", http.StatusNotFound)
	}
	return nil
}

func (pr *PackageRepositoryImpl) GetByID(ctx context.Context, packageID int64) (*models.InvestmentPackage, error) {
	query := `SELECT * FROM investment_packages WHERE id = $1;`
	pkg := models.InvestmentPackage{}
	err := pr.db.GetContext(ctx, &pkg, query, packageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewWithCode(err, "Investment package not found", http.StatusNotFound)
		}
		return nil, fmt.Errorf("get package: %w", err)
	}
	return &pkg, nil
}

func (pr *PackageRepositoryImpl) GetAvailable(ctx context.Context, today time.Time) (*[]models.InvestmentPackage, error) {
	query := `SELECT * FROM investment_packages
			  WHERE status = 'active' AND (end_date IS NULL OR end_date >= $1)
			  order by sort_order, created_at desc;`
	packages := make([]models.InvestmentPackage, 0)
	err := pr.db.SelectContext(ctx, &packages, query, models.DateOnly(today))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &packages, nil
		}
		return nil, fmt.Errorf("read available packages: %w", err)
	}
	return &packages, nil
}

func (pr *PackageRepositoryImpl) GetAll(ctx context.Context) (*[]models.InvestmentPackage, error) {
	query := `SELECT * FROM investment_packages order by sort_order, created_at desc;`
	packages := make([]models.InvestmentPackage, 0)
	err := pr.db.SelectContext(ctx, &packages, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &packages, nil
		}
		return nil, fmt.Errorf("read packages: %w", err)
	}
	return &packages, nil
}

func (pr *PackageRepositoryImpl) SumActiveInvested(ctx context.Context, packageID int64) (decimal.Decimal, error) {
	query := `SELECT coalesce(sum(amount_invested), 0) FROM user_investments
			  WHERE package_id = $1 AND status = 'active';`
	var total decimal.Decimal
	err := pr.db.GetContext(ctx, &total, query, packageID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum active invested: %w", err)
	}
	return total, nil
}

func (pr *PackageRepositoryImpl) CountActivePositions(ctx context.Context, packageID int64) (int, error) {
	query := `SELECT count(*) FROM user_investments WHERE package_id = $1 AND status = 'active';`
	var count int
	err := pr.db.GetContext(ctx, &count, query, packageID)
	if err != nil {
		return 0, fmt.Errorf("count active positions: %w", err)
	}
	return count, nil
}
