package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/avetisov/investline/internal/app/errors"
	"github.com/avetisov/investline/internal/app/models"
	"github.com/avetisov/investline/internal/app/service"
)

type (
	PackagesHandler struct {
		packageService service.PackageService
		contextTimeout time.Duration
	}
	PackageDto struct {
		ID                    int64  `json:"id"`
		Name                  string `json:"name"`
		Description           string `json:"description"`
		MinAmount             string `json:"min_amount"`
		MaxAmount             string `json:"max_amount,omitempty"`
		TotalCapacity         string `json:"total_capacity,omitempty"`
		TotalReturnPercentage string `json:"total_return_percentage"`
		DailyReturnRate       string `json:"daily_return_rate"`
		DurationDays          int    `json:"duration_days"`
		EndDate               string `json:"end_date,omitempty"`
		Status                string `json:"status"`
		IsFeatured            bool   `json:"is_featured"`
	}
)

func NewPackagesHandler(packageService service.PackageService, contextTimeoutSec int) *PackagesHandler {
	return &PackagesHandler{
		packageService: packageService,
		contextTimeout: time.Duration(contextTimeoutSec) * time.Second,
	}
}

// GetAvailable godoc
// @Summary Available investment packages
// @Description Lists ACTIVE packages still open for purchase today.
// @Tags packages
// @Produce json
// @Success 200 {array} PackageDto
// @Router /api/packages [get]
func (ph *PackagesHandler) GetAvailable(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ph.contextTimeout)
	defer cancel()

	packages, err := ph.packageService.GetAvailable(ctx)
	if err != nil {
		PrepareError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapPackages(packages))
}

func (ph *PackagesHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ph.contextTimeout)
	defer cancel()

	packageID, err := strconv.ParseInt(chi.URLParam(r, "packageID"), 10, 64)
	if err != nil {
		PrepareError(w, appErrors.NewWithCode(err, "Invalid package id", http.StatusBadRequest))
		return
	}

	pkg, err := ph.packageService.GetByID(ctx, packageID)
	if err != nil {
		PrepareError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapPackage(pkg))
}

func mapPackages(packages *[]models.InvestmentPackage) []PackageDto {
	response := make([]PackageDto, 0, len(*packages))
	for i := range *packages {
		response = append(response, mapPackage(&(*packages)[i]))
	}
	return response
}

func mapPackage(pkg *models.InvestmentPackage) PackageDto {
	dto := PackageDto{
		ID:                    pkg.ID,
		Name:                  pkg.Name,
		Description:           pkg.Description,
		MinAmount:             pkg.MinAmount.String(),
		TotalReturnPercentage: pkg.TotalReturnPercentage.String(),
		DailyReturnRate:       pkg.DailyReturnRate().String(),
		DurationDays:          pkg.DurationDays,
		Status:                pkg.Status.String(),
		IsFeatured:            pkg.IsFeatured,
	}
	if pkg.MaxAmount.Valid {
		dto.MaxAmount = pkg.MaxAmount.Decimal.String()
	}
	if pkg.TotalCapacity.Valid {
		dto.TotalCapacity = pkg.TotalCapacity.Decimal.String()
	}
	if pkg.EndDate.Valid {
		dto.EndDate = pkg.EndDate.Time.Format("2006-01-02")
	}
	return dto
}
