package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	appContext "github.com/avetisov/investline/internal/app/context"
	appErrors "github.com/avetisov/investline/internal/app/errors"
	"github.com/avetisov/investline/internal/app/models"
	"github.com/avetisov/investline/internal/app/service"
)

const errMsgEnableReadBody = "Unable to read body"

type (
	UserHandler struct {
		userService       service.UserService
		tokenService      service.TokenService
		investmentService service.InvestmentService
		contextTimeout    time.Duration
	}
	UserLoginDto struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	UserRegisterDto struct {
		Login       string `json:"login"`
		Password    string `json:"password"`
		SponsorCode string `json:"sponsor_code,omitempty"`
	}
	UserProfileDto struct {
		Login           string `json:"login"`
		ReferralCode    string `json:"referral_code"`
		IsAdmin         bool   `json:"is_admin"`
		TotalInvestment string `json:"total_investment"`
		CreatedAt       string `json:"created_at"`
	}
	UserSummaryDto struct {
		TotalInvestments   int    `json:"total_investments"`
		TotalInvested      string `json:"total_invested"`
		TotalReturnsEarned string `json:"total_returns_earned"`
		ActiveInvestments  int    `json:"active_investments"`
		MaturedInvestments int    `json:"matured_investments"`
	}
)

func NewUserHandler(userService service.UserService, tokenService service.TokenService,
	investmentService service.InvestmentService, contextTimeoutSec int) *UserHandler {
	return &UserHandler{
		userService:       userService,
		tokenService:      tokenService,
		investmentService: investmentService,
		contextTimeout:    time.Duration(contextTimeoutSec) * time.Second,
	}
}

// Register godoc
// @Summary User registration
// @Description Registration is carried out using a login/password pair, with an
// optional sponsor referral code. Each login must be unique. After successful
// registration, automatic user authentication occurs.
// @Tags user
// @Accept json
// @Produce json
// @Param user body UserRegisterDto true "User Registration Information"
// @Success 200 {string} string "Bearer <token>"
// @Failure 400 {object} ErrorResponse "Bad Request"
// @Failure 409 {object} ErrorResponse "Login already taken"
// @Router /api/user/register [post]
func (uh *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), uh.contextTimeout)
	defer cancel()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		err = appErrors.NewWithCode(err, errMsgEnableReadBody, http.StatusBadRequest)
		PrepareError(w, err)
		return
	}
	registerDto := UserRegisterDto{}
	err = json.Unmarshal(body, &registerDto)
	if err != nil {
		err = appErrors.NewWithCode(err, "Unable to parse body", http.StatusBadRequest)
		PrepareError(w, err)
		return
	}

	if registerDto.Login == "" || registerDto.Password == "" {
		err = appErrors.NewWithCode(errors.New("missing credentials"), "Login and password are required", http.StatusBadRequest)
		PrepareError(w, err)
		return
	}

	user, err := uh.userService.Create(ctx, registerDto.Login, registerDto.Password, registerDto.SponsorCode)
	if err != nil {
		PrepareError(w, err)
		return
	}

	token, err := uh.generateToken(user)
	if err != nil {
		PrepareError(w, err)
		return
	}

	err = appContext.GetContextError(ctx)
	if err != nil {
		PrepareError(w, err)
		return
	}
	bearerToken := fmt.Sprintf("Bearer %s", token)
	w.Header().Add("Authorization", bearerToken)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s", bearerToken)
}

// Login godoc
// @Summary User login
// @Description Authenticates a user using a login/password pair and returns a bearer token if successful.
// @Tags user
// @Accept json
// @Produce json
// @Param user body UserLoginDto true "User Login Credentials"
// @Success 200 {string} string "Bearer <token>"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /api/user/login [post]
func (uh *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), uh.contextTimeout)
	defer cancel()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		err = appErrors.NewWithCode(err, errMsgEnableReadBody, http.StatusBadRequest)
		PrepareError(w, err)
		return
	}

	loginDto := UserLoginDto{}
	err = json.Unmarshal(body, &loginDto)
	if err != nil {
		err = appErrors.NewWithCode(err, "Unable to parse body", http.StatusBadRequest)
		PrepareError(w, err)
		return
	}

	if loginDto.Login == "" || loginDto.Password == "" {
		err = appErrors.NewWithCode(errors.New("missing credentials"), "Login and password are required", http.StatusBadRequest)
		PrepareError(w, err)
		return
	}

	user, err := uh.userService.Authenticate(ctx, loginDto.Login, loginDto.Password)
	if err != nil {
		PrepareError(w, err)
		return
	}

	token, err := uh.generateToken(user)
	if err != nil {
		PrepareError(w, err)
		return
	}

	err = appContext.GetContextError(ctx)
	if err != nil {
		PrepareError(w, err)
		return
	}
	bearerToken := fmt.Sprintf("Bearer %s", token)
	w.Header().Add("Authorization", bearerToken)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s", bearerToken)
}

// Profile returns the authenticated user's account card with the derived
// total investment figure.
func (uh *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), uh.contextTimeout)
	defer cancel()

	userUID := appContext.UserUID(ctx)
	user, err := uh.userService.GetByUUID(ctx, userUID)
	if err != nil {
		PrepareError(w, err)
		return
	}
	totalInvestment, err := uh.investmentService.TotalInvestment(ctx, userUID)
	if err != nil {
		PrepareError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UserProfileDto{
		Login:           user.Login,
		ReferralCode:    user.ReferralCode,
		IsAdmin:         user.IsAdmin,
		TotalInvestment: totalInvestment.String(),
		CreatedAt:       user.CreatedAt.Format(time.RFC3339),
	})
}

// Summary returns the investment rollup for the authenticated user.
func (uh *UserHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), uh.contextTimeout)
	defer cancel()

	userUID := appContext.UserUID(ctx)
	summary, err := uh.investmentService.Summary(ctx, userUID)
	if err != nil {
		PrepareError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UserSummaryDto{
		TotalInvestments:   summary.TotalInvestments,
		TotalInvested:      summary.TotalInvested.String(),
		TotalReturnsEarned: summary.TotalReturnsEarned.String(),
		ActiveInvestments:  summary.ActiveInvestments,
		MaturedInvestments: summary.MaturedInvestments,
	})
}

func (uh *UserHandler) generateToken(user *models.User) (string, error) {
	token, err := uh.tokenService.GenerateToken(user.Login)
	if err != nil {
		return "", appErrors.NewWithCode(err, "Unable to generate token", http.StatusInternalServerError)
	}
	return token, nil
}
