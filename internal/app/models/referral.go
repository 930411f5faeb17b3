package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxReferralLevels bounds the depth of every upline/downline walk. The bound
// is a business rule, not a property of the data.
const MaxReferralLevels = 5

// Referral is one edge of the materialized referral forest: referrer is
// `level` hops above referred. Edges are written once at registration and are
// never deleted; is_active can disable an edge without losing history.
type Referral struct {
	ID                    int64           `db:"id"`
	ReferrerUUID          uuid.UUID       `db:"referrer_uuid"`
	ReferredUUID          uuid.UUID       `db:"referred_uuid"`
	Level                 int             `db:"level"`
	IsActive              bool            `db:"is_active"`
	TotalCommissionEarned decimal.Decimal `db:"total_commission_earned"`
	LastCommissionAt      sql.NullTime    `db:"last_commission_at"`
	CreatedAt             time.Time       `db:"created_at"`
}

// DefaultCommissionRates is the fallback rate table when the admin config
// store has no referral_rates entry: percent of the invested amount per level.
func DefaultCommissionRates() map[int]decimal.Decimal {
	return map[int]decimal.Decimal{
		1: decimal.NewFromInt(10),
		2: decimal.NewFromInt(5),
		3: decimal.NewFromInt(3),
		4: decimal.NewFromInt(2),
		5: decimal.NewFromInt(1),
	}
}

// CommissionWalletType routes a commission payout: direct referrals are paid
// into total_referral, deeper levels into level_bonus.
func CommissionWalletType(level int) WalletType {
	if level == 1 {
		return WalletTotalReferral
	}
	return WalletLevelBonus
}
