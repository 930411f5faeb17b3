package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	appErrors "github.com/avetisov/investline/internal/app/errors"
	"github.com/avetisov/investline/internal/app/logger"
	"github.com/avetisov/investline/internal/app/models"
	"github.com/avetisov/investline/internal/app/repository"
	"go.uber.org/zap"
)

type (
	TeamSummary struct {
		TotalTeam           int
		DirectReferrals     int
		ActiveMembers       int
		TotalCommission     decimal.Decimal
		TotalTeamInvestment decimal.Decimal
		LevelBreakdown      []repository.LevelStat
	}

	ReferralService interface {
		// CreateChain materializes one edge per ancestor of the new user, up
		// to MaxReferralLevels. A previously visited sponsor terminates the
		// walk early: a cycle means corrupt data, and registration must not
		// fail because of it.
		CreateChain(ctx context.Context, tx *sqlx.Tx, sponsorUID, newUserUID *uuid.UUID) ([]models.Referral, error)
		GetUpline(ctx context.Context, userUID *uuid.UUID) (*[]models.Referral, error)
		GetTeamSummary(ctx context.Context, userUID *uuid.UUID) (*TeamSummary, error)
		GetLevelStatistics(ctx context.Context, userUID *uuid.UUID) ([]repository.LevelStat, error)
	}

	ReferralServiceImpl struct {
		referralRepo repository.ReferralRepository
		userRepo     repository.UserRepository
	}
)

func NewReferralService(referralRepo repository.ReferralRepository, userRepo repository.UserRepository) *ReferralServiceImpl {
	return &ReferralServiceImpl{
		referralRepo: referralRepo,
		userRepo:     userRepo,
	}
}

func (rs *ReferralServiceImpl) CreateChain(ctx context.Context, tx *sqlx.Tx, sponsorUID, newUserUID *uuid.UUID) ([]models.Referral, error) {
	if sponsorUID == nil {
		return nil, nil
	}

	referrals := make([]models.Referral, 0, models.MaxReferralLevels)
	visited := make(map[uuid.UUID]bool, models.MaxReferralLevels)
	currentSponsor := *sponsorUID
	now := time.Now()

	for level := 1; level <= models.MaxReferralLevels; level++ {
		if visited[currentSponsor] {
			logger.Log.Warn("referral cycle detected, chain terminated",
				zap.String("sponsor_uuid", currentSponsor.String()),
				zap.String("new_user_uuid", newUserUID.String()),
				zap.Int("level", level))
			break
		}
		visited[currentSponsor] = true

		referral := models.Referral{
			ReferrerUUID:          currentSponsor,
			ReferredUUID:          *newUserUID,
			Level:                 level,
			IsActive:              true,
			TotalCommissionEarned: decimal.Zero,
			CreatedAt:             now,
		}
		if err := rs.referralRepo.Create(ctx, tx, &referral); err != nil {
			return nil, appErrors.New(err, "create referral edge")
		}
		referrals = append(referrals, referral)

		sponsor, err := rs.userRepo.FindByUUID(ctx, &currentSponsor)
		if err != nil || !sponsor.SponsorUUID.Valid {
			break
		}
		currentSponsor = sponsor.SponsorUUID.UUID
	}

	return referrals, nil
}

func (rs *ReferralServiceImpl) GetUpline(ctx context.Context, userUID *uuid.UUID) (*[]models.Referral, error) {
	return rs.referralRepo.GetUpline(ctx, userUID)
}

func (rs *ReferralServiceImpl) GetTeamSummary(ctx context.Context, userUID *uuid.UUID) (*TeamSummary, error) {
	stats, err := rs.referralRepo.GetLevelStats(ctx, userUID)
	if err != nil {
		return nil, appErrors.New(err, "get level statistics")
	}

	summary := TeamSummary{
		TotalCommission:     decimal.Zero,
		TotalTeamInvestment: decimal.Zero,
		LevelBreakdown:      stats,
	}
	for _, stat := range stats {
		summary.TotalTeam += stat.TotalMembers
		summary.ActiveMembers += stat.ActiveMembers
		summary.TotalCommission = summary.TotalCommission.Add(stat.TotalCommission)
		summary.TotalTeamInvestment = summary.TotalTeamInvestment.Add(stat.TotalInvestment)
		if stat.Level == 1 {
			summary.DirectReferrals = stat.TotalMembers
		}
	}
	return &summary, nil
}

func (rs *ReferralServiceImpl) GetLevelStatistics(ctx context.Context, userUID *uuid.UUID) ([]repository.LevelStat, error) {
	return rs.referralRepo.GetLevelStats(ctx, userUID)
}
