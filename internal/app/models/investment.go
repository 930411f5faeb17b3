package models

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PackageStatus string

const (
	PackageActive    PackageStatus = "active"
	PackageCancelled PackageStatus = "cancelled"
)

func (s PackageStatus) String() string {
	return string(s)
}

type InvestmentStatus string

const (
	InvestmentActive  InvestmentStatus = "active"
	InvestmentMatured InvestmentStatus = "matured"
	// InvestmentCancelled doubles as "settled": an admin settlement closes the
	// position with this status, matching the historical schema.
	InvestmentCancelled InvestmentStatus = "cancelled"
)

func (s InvestmentStatus) String() string {
	return string(s)
}

// CanTransitionTo encodes the position state machine: ACTIVE -> MATURED
// (maturity sweep or admin force-mature), MATURED -> CANCELLED (settlement).
func (s InvestmentStatus) CanTransitionTo(next InvestmentStatus) bool {
	switch s {
	case InvestmentActive:
		return next == InvestmentMatured
	case InvestmentMatured:
		return next == InvestmentCancelled
	}
	return false
}

type ReturnStatus string

const (
	ReturnPaid   ReturnStatus = "paid"
	ReturnFailed ReturnStatus = "failed"
)

type SettlementDisposition string

const (
	SettleToAvailableFund SettlementDisposition = "available_fund"
	SettleKeepInvested    SettlementDisposition = "keep_invested"
)

func ParseSettlementDisposition(s string) (SettlementDisposition, error) {
	switch SettlementDisposition(s) {
	case SettleToAvailableFund:
		return SettleToAvailableFund, nil
	case SettleKeepInvested:
		return SettleKeepInvested, nil
	}
	return "", fmt.Errorf("unknown settlement disposition: %q", s)
}

type (
	InvestmentPackage struct {
		ID                    int64               `db:"id"`
		Name                  string              `db:"name"`
		Description           string              `db:"description"`
		MinAmount             decimal.Decimal     `db:"min_amount"`
		MaxAmount             decimal.NullDecimal `db:"max_amount"`
		TotalCapacity         decimal.NullDecimal `db:"total_capacity"`
		TotalReturnPercentage decimal.Decimal     `db:"total_return_percentage"`
		DurationDays          int                 `db:"duration_days"`
		EndDate               sql.NullTime        `db:"end_date"`
		Status                PackageStatus       `db:"status"`
		IsFeatured            bool                `db:"is_featured"`
		SortOrder             int                 `db:"sort_order"`
		CreatedAt             time.Time           `db:"created_at"`
		UpdatedAt             time.Time           `db:"updated_at"`
	}

	// UserInvestment is a single purchase of a package. amount_invested is
	// fixed at purchase time; total_returns_paid only ever grows and
	// last_return_date is the accrual engine's idempotence token.
	UserInvestment struct {
		ID               int64            `db:"id"`
		UserUUID         uuid.UUID        `db:"user_uuid"`
		PackageID        int64            `db:"package_id"`
		AmountInvested   decimal.Decimal  `db:"amount_invested"`
		InvestmentDate   time.Time        `db:"investment_date"`
		ReturnsStartDate time.Time        `db:"returns_start_date"`
		MaturityDate     time.Time        `db:"maturity_date"`
		TotalReturnsPaid decimal.Decimal  `db:"total_returns_paid"`
		LastReturnDate   sql.NullTime     `db:"last_return_date"`
		Status           InvestmentStatus `db:"status"`
		CreatedAt        time.Time        `db:"created_at"`
		UpdatedAt        time.Time        `db:"updated_at"`
	}

	InvestmentReturn struct {
		ID             int64           `db:"id"`
		InvestmentID   int64           `db:"investment_id"`
		ReturnDate     time.Time       `db:"return_date"`
		ReturnAmount   decimal.Decimal `db:"return_amount"`
		DaysSinceStart int             `db:"days_since_start"`
		Status         ReturnStatus    `db:"status"`
		ProcessedAt    time.Time       `db:"processed_at"`
		CreatedAt      time.Time       `db:"created_at"`
	}

	// EligibleInvestment is a position joined with the package terms the
	// accrual engine needs to compute its daily amount.
	EligibleInvestment struct {
		UserInvestment
		PackageName           string          `db:"package_name"`
		TotalReturnPercentage decimal.Decimal `db:"total_return_percentage"`
		DurationDays          int             `db:"duration_days"`
	}
)

var oneHundred = decimal.NewFromInt(100)

// IsAvailable reports whether the package accepts new purchases on the given day.
func (p *InvestmentPackage) IsAvailable(today time.Time) bool {
	if p.Status != PackageActive {
		return false
	}
	if p.EndDate.Valid && DateOnly(p.EndDate.Time).Before(DateOnly(today)) {
		return false
	}
	return true
}

// DailyReturnRate is total_return_percentage spread over the term.
func (p *InvestmentPackage) DailyReturnRate() decimal.Decimal {
	if p.DurationDays <= 0 {
		return decimal.Zero
	}
	return p.TotalReturnPercentage.Div(decimal.NewFromInt(int64(p.DurationDays)))
}

// ExpectedTotalReturn is the contractually promised payout for an investment
// of the given amount: amount * total_return_percentage / 100.
func (p *InvestmentPackage) ExpectedTotalReturn(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(p.TotalReturnPercentage).Div(oneHundred)
}

// ExpectedTotalReturn for this position given the package terms carried on
// the joined row.
func (e *EligibleInvestment) ExpectedTotalReturn() decimal.Decimal {
	return e.AmountInvested.Mul(e.TotalReturnPercentage).Div(oneHundred)
}

// ReturnsRemaining is the unpaid part of the promised total, floored at zero.
func (e *EligibleInvestment) ReturnsRemaining() decimal.Decimal {
	remaining := e.ExpectedTotalReturn().Sub(e.TotalReturnsPaid)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// EligibleForReturn is the accrual predicate for day. The maturity day itself
// does not accrue: the term is the half-open interval
// [returns_start_date, maturity_date).
func (inv *UserInvestment) EligibleForReturn(day time.Time) bool {
	day = DateOnly(day)
	if inv.Status != InvestmentActive {
		return false
	}
	if DateOnly(inv.ReturnsStartDate).After(day) {
		return false
	}
	if !DateOnly(inv.MaturityDate).After(day) {
		return false
	}
	if inv.LastReturnDate.Valid && !DateOnly(inv.LastReturnDate.Time).Before(day) {
		return false
	}
	return true
}
