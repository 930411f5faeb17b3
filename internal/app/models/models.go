package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type (
	User struct {
		UUID         uuid.UUID     `db:"uuid"`
		Login        string        `db:"login"`
		PasswordHash string        `db:"password_hash"`
		ReferralCode string        `db:"referral_code"`
		SponsorUUID  uuid.NullUUID `db:"sponsor_uuid"`
		IsActive     bool          `db:"is_active"`
		IsAdmin      bool          `db:"is_admin"`
		CreatedAt    time.Time     `db:"created_at"`
	}

	Wallet struct {
		ID            int64           `db:"id"`
		UserUUID      uuid.UUID       `db:"user_uuid"`
		WalletType    WalletType      `db:"wallet_type"`
		Balance       decimal.Decimal `db:"balance"`
		LockedBalance decimal.Decimal `db:"locked_balance"`
		CreatedAt     time.Time       `db:"created_at"`
		UpdatedAt     time.Time       `db:"updated_at"`
	}
)

type WalletType string

const (
	WalletAvailableFund WalletType = "available_fund"
	WalletTotalGain     WalletType = "total_gain"
	WalletLevelBonus    WalletType = "level_bonus"
	WalletTotalReferral WalletType = "total_referral"
	WalletTotalIncome   WalletType = "total_income"
)

func (wt WalletType) String() string {
	return string(wt)
}

// IsIncome reports whether credits to this wallet also count towards the
// aggregate total_income wallet.
func (wt WalletType) IsIncome() bool {
	switch wt {
	case WalletTotalGain, WalletLevelBonus, WalletTotalReferral:
		return true
	}
	return false
}

func KnownWalletTypes() []WalletType {
	return []WalletType{
		WalletAvailableFund,
		WalletTotalGain,
		WalletLevelBonus,
		WalletTotalReferral,
		WalletTotalIncome,
	}
}

func ParseWalletType(s string) (WalletType, error) {
	for _, wt := range KnownWalletTypes() {
		if string(wt) == s {
			return wt, nil
		}
	}
	return "", fmt.Errorf("unknown wallet type: %q", s)
}

// AvailableBalance is the spendable part of the wallet: balance minus locked.
func (w *Wallet) AvailableBalance() decimal.Decimal {
	return w.Balance.Sub(w.LockedBalance)
}

// DateOnly truncates t to a calendar day in UTC. All return scheduling math
// operates on these day values.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
