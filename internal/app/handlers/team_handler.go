package handlers

import (
	"context"
	"net/http"
	"time"

	appContext "github.com/avetisov/investline/internal/app/context"
	"github.com/avetisov/investline/internal/app/service"
)

type (
	TeamHandler struct {
		referralService service.ReferralService
		contextTimeout  time.Duration
	}
	LevelStatDto struct {
		Level           int    `json:"level"`
		TotalMembers    int    `json:"total_members"`
		ActiveMembers   int    `json:"active_members"`
		TotalCommission string `json:"total_commission"`
		TotalInvestment string `json:"total_investment"`
	}
	TeamSummaryDto struct {
		TotalTeam           int            `json:"total_team"`
		DirectReferrals     int            `json:"direct_referrals"`
		ActiveMembers       int            `json:"active_members"`
		TotalCommission     string         `json:"total_commission"`
		TotalTeamInvestment string         `json:"total_team_investment"`
		Levels              []LevelStatDto `json:"levels"`
	}
)

func NewTeamHandler(referralService service.ReferralService, contextTimeoutSec int) *TeamHandler {
	return &TeamHandler{
		referralService: referralService,
		contextTimeout:  time.Duration(contextTimeoutSec) * time.Second,
	}
}

// Summary godoc
// @Summary Referral team summary
// @Description Per-level member counts, commission totals and team investment
// for the authenticated user's downline.
// @Tags team
// @Produce json
// @Success 200 {object} TeamSummaryDto
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /api/user/team [get]
func (th *TeamHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), th.contextTimeout)
	defer cancel()

	userUID := appContext.UserUID(ctx)
	summary, err := th.referralService.GetTeamSummary(ctx, userUID)
	if err != nil {
		PrepareError(w, err)
		return
	}

	levels := make([]LevelStatDto, 0, len(summary.LevelBreakdown))
	for _, stat := range summary.LevelBreakdown {
		levels = append(levels, LevelStatDto{
			Level:           stat.Level,
			TotalMembers:    stat.TotalMembers,
			ActiveMembers:   stat.ActiveMembers,
			TotalCommission: stat.TotalCommission.String(),
			TotalInvestment: stat.TotalInvestment.String(),
		})
	}
	writeJSON(w, http.StatusOK, TeamSummaryDto{
		TotalTeam:           summary.TotalTeam,
		DirectReferrals:     summary.DirectReferrals,
		ActiveMembers:       summary.ActiveMembers,
		TotalCommission:     summary.TotalCommission.String(),
		TotalTeamInvestment: summary.TotalTeamInvestment.String(),
		Levels:              levels,
	})
}
