package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	appErrors "github.com/avetisov/investline/internal/app/errors"
	"github.com/avetisov/investline/internal/app/models"
	"github.com/avetisov/investline/internal/app/repository"
)

type (
	PackageService interface {
		Create(ctx context.Context, pkg *models.InvestmentPackage) error
		Update(ctx context.Context, pkg *models.InvestmentPackage) error
		// Delete refuses while any ACTIVE position references the package.
		Delete(ctx context.Context, packageID int64) error
		GetByID(ctx context.Context, packageID int64) (*models.InvestmentPackage, error)
		GetAvailable(ctx context.Context) (*[]models.InvestmentPackage, error)
		GetAll(ctx context.Context) (*[]models.InvestmentPackage, error)
		// ValidatePurchaseAmount checks availability, per-purchase bounds and
		// the optional capacity cap. It does not touch wallets.
		ValidatePurchaseAmount(ctx context.Context, pkg *models.InvestmentPackage, amount decimal.Decimal) error
	}

	PackageServiceImpl struct {
		packageRepo repository.PackageRepository
	}
)

func NewPackageService(packageRepo repository.PackageRepository) *PackageServiceImpl {
	return &PackageServiceImpl{packageRepo: packageRepo}
}

func (ps *PackageServiceImpl) Create(ctx context.Context, pkg *models.InvestmentPackage) error {
	if err := validatePackageTerms(pkg); err != nil {
		return err
	}
	now := time.Now()
	pkg.CreatedAt = now
	pkg.UpdatedAt = now
	if pkg.Status == "" {
		pkg.Status = models.PackageActive
	}
	return ps.packageRepo.Create(ctx, pkg)
}

func (ps *PackageServiceImpl) Update(ctx context.Context, pkg *models.InvestmentPackage) error {
	if err := validatePackageTerms(pkg); err != nil {
		return err
	}
	return ps.packageRepo.Update(ctx, pkg)
}

func (ps *PackageServiceImpl) Delete(ctx context.Context, packageID int64) error {
	active, err := ps.packageRepo.CountActivePositions(ctx, packageID)
	if err != nil {
		return appErrors.New(err, "count active positions")
	}
	if active > 0 {
		msg := fmt.Sprintf("Package has %d active investments and cannot be deleted", active)
		return appErrors.NewWithCode(errors.New("package in use"), msg, http.StatusConflict)
	}
	return ps.packageRepo.Delete(ctx, packageID)
}

func (ps *PackageServiceImpl) GetByID(ctx context.Context, packageID int64) (*models.InvestmentPackage, error) {
	return ps.packageRepo.GetByID(ctx, packageID)
}

func (ps *PackageServiceImpl) GetAvailable(ctx context.Context) (*[]models.InvestmentPackage, error) {
	return ps.packageRepo.GetAvailable(ctx, time.Now())
}

func (ps *PackageServiceImpl) GetAll(ctx context.Context) (*[]models.InvestmentPackage, error) {
	return ps.packageRepo.GetAll(ctx)
}

func (ps *PackageServiceImpl) ValidatePurchaseAmount(ctx context.Context, pkg *models.InvestmentPackage, amount decimal.Decimal) error {
	if !pkg.IsAvailable(time.Now()) {
		return appErrors.NewWithCode(errors.New("package unavailable"),
			"Investment package is not available", http.StatusBadRequest)
	}
	if !amount.IsPositive() {
		return appErrors.NewWithCode(ErrNonPositiveAmount, "Amount must be greater than 0", http.StatusBadRequest)
	}
	if amount.LessThan(pkg.MinAmount) {
		msg := fmt.Sprintf("Minimum investment amount is %s", pkg.MinAmount.String())
		return appErrors.NewWithCode(errors.New("amount below minimum"), msg, http.StatusBadRequest)
	}
	if pkg.MaxAmount.Valid && amount.GreaterThan(pkg.MaxAmount.Decimal) {
		msg := fmt.Sprintf("Maximum investment amount is %s", pkg.MaxAmount.Decimal.String())
		return appErrors.NewWithCode(errors.New("amount above maximum"), msg, http.StatusBadRequest)
	}

	if pkg.TotalCapacity.Valid {
		invested, err := ps.packageRepo.SumActiveInvested(ctx, pkg.ID)
		if err != nil {
			return appErrors.New(err, "sum active invested")
		}
		remaining := pkg.TotalCapacity.Decimal.Sub(invested)
		if amount.GreaterThan(remaining) {
			msg := fmt.Sprintf("Package capacity exceeded, remaining capacity is %s", remaining.String())
			return appErrors.NewWithCode(errors.New("capacity exceeded"), msg, http.StatusConflict)
		}
	}
	return nil
}

func validatePackageTerms(pkg *models.InvestmentPackage) error {
	if pkg.Name == "" {
		return appErrors.NewWithCode(errors.New("empty name"), "Package name is required", http.StatusBadRequest)
	}
	if pkg.DurationDays <= 0 {
		return appErrors.NewWithCode(errors.New("bad duration"),
			"Duration must be at least 1 day", http.StatusBadRequest)
	}
	if pkg.TotalReturnPercentage.IsNegative() {
		return appErrors.NewWithCode(errors.New("bad return percentage"),
			"Return percentage cannot be negative", http.StatusBadRequest)
	}
	if !pkg.MinAmount.IsPositive() {
		return appErrors.NewWithCode(errors.New("bad min amount"),
			"Minimum amount must be greater than 0", http.StatusBadRequest)
	}
	if pkg.MaxAmount.Valid && pkg.MaxAmount.Decimal.LessThan(pkg.MinAmount) {
		return appErrors.NewWithCode(errors.New("bad amount bounds"),
			"Maximum amount cannot be below minimum amount", http.StatusBadRequest)
	}
	return nil
}
