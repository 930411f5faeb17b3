package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/avetisov/investline/internal/app/models"
)

type (
	// LevelStat is one row of the per-level downline aggregation.
	LevelStat struct {
		Level           int             `db:"level"`
		TotalMembers    int             `db:"total_members"`
		ActiveMembers   int             `db:"active_members"`
		TotalCommission decimal.Decimal `db:"total_commission"`
		TotalInvestment decimal.Decimal `db:"total_investment"`
	}

	ReferralRepository interface {
		Create(ctx context.Context, tx *sqlx.Tx, referral *models.Referral) error
		// GetUpline returns the active edges pointing at referred, one per
		// level present, ordered by level. This is the commission walk input.
		GetUpline(ctx context.Context, referredUID *uuid.UUID) (*[]models.Referral, error)
		GetDownline(ctx context.Context, referrerUID *uuid.UUID) (*[]models.Referral, error)
		AddCommission(ctx context.Context, tx *sqlx.Tx, referralID int64, amount decimal.Decimal, when time.Time) error
		GetLevelStats(ctx context.Context, referrerUID *uuid.UUID) ([]LevelStat, error)
		GetDB() *sqlx.DB
	}
)

type ReferralRepositoryImpl struct {
	db *sqlx.DB
}

func NewReferralRepository(db *sqlx.DB) *ReferralRepositoryImpl {
	return &ReferralRepositoryImpl{db: db}
}

func (rr *ReferralRepositoryImpl) Create(ctx context.Context, tx *sqlx.Tx, referral *models.Referral) error {
	query := `INSERT INTO referrals (referrer_uuid, referred_uuid, level, is_active, total_commission_earned, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6) returning id;`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	err = stmt.QueryRowContext(ctx, referral.ReferrerUUID, referral.ReferredUUID, referral.Level,
		referral.IsActive, referral.TotalCommissionEarned, referral.CreatedAt).Scan(&referral.ID)
	if err != nil {
		return fmt.Errorf("exec statement: %w", err)
	}
	return nil
}

func (rr *ReferralRepositoryImpl) GetUpline(ctx context.Context, referredUID *uuid.UUID) (*[]models.Referral, error) {
	query := `SELECT * FROM referrals WHERE referred_uuid = $1 AND is_active order by level;`
	referrals := make([]models.Referral, 0)
	err := rr.db.SelectContext(ctx, &referrals, query, referredUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &referrals, nil
		}
		return nil, fmt.Errorf("read upline: %w", err)
	}
	return &referrals, nil
}

func (rr *ReferralRepositoryImpl) GetDownline(ctx context.Context, referrerUID *uuid.UUID) (*[]models.Referral, error) {
	query := `SELECT * FROM referrals WHERE referrer_uuid = $1 AND is_active order by level, created_at;`
	referrals := make([]models.Referral, 0)
	err := rr.db.SelectContext(ctx, &referrals, query, referrerUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &referrals, nil
		}
		return nil, fmt.Errorf("read downline: %w", err)
	}
	return &referrals, nil
}

func (rr *ReferralRepositoryImpl) AddCommission(ctx context.Context, tx *sqlx.Tx, referralID int64, amount decimal.Decimal, when time.Time) error {
	query := `UPDATE referrals
			  SET total_commission_earned = total_commission_earned + $1, last_commission_at = $2
			  WHERE id = $3;`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, amount, when, referralID)
	if err != nil {
		return fmt.Errorf("execute statement: %w", err)
	}
	return nil
}

func (rr *ReferralRepositoryImpl) GetLevelStats(ctx context.Context, referrerUID *uuid.UUID) ([]LevelStat, error) {
	query := `
		SELECT r.level,
		       count(*)                                             AS total_members,
		       count(CASE WHEN u.is_active THEN 1 END)              AS active_members,
		       coalesce(sum(r.total_commission_earned), 0)          AS total_commission,
		       coalesce(sum(inv.total_invested), 0)                 AS total_investment
		FROM referrals r
		JOIN users u ON u.uuid = r.referred_uuid
		LEFT JOIN (SELECT user_uuid, sum(amount_invested) AS total_invested
		           FROM user_investments
		           WHERE status IN ('active', 'matured')
		           GROUP BY user_uuid) inv ON inv.user_uuid = r.referred_uuid
		WHERE r.referrer_uuid = $1
		  AND r.is_active
		  AND r.level <= $2
		GROUP BY r.level
		ORDER BY r.level;`
	stats := make([]LevelStat, 0)
	err := rr.db.SelectContext(ctx, &stats, query, referrerUID, models.MaxReferralLevels)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stats, nil
		}
		return nil, fmt.Errorf("read level stats: %w", err)
	}
	return stats, nil
}

func (rr *ReferralRepositoryImpl) GetDB() *sqlx.DB {
	return rr.db
}
