package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	appErrors "github.com/avetisov/investline/internal/app/errors"
	"github.com/avetisov/investline/internal/app/models"
	"github.com/avetisov/investline/internal/app/repository"
)

type UserService interface {
	// Create registers a user, provisions the wallet set and, when a sponsor
	// code is given, materializes the referral chain, all in one transaction.
	Create(ctx context.Context, login, password, sponsorCode string) (*models.User, error)
	Authenticate(ctx context.Context, login, password string) (*models.User, error)
	GetByUserLogin(ctx context.Context, login string) (*models.User, error)
	GetByUUID(ctx context.Context, userUID *uuid.UUID) (*models.User, error)
}

type UserServiceImpl struct {
	userRepo        repository.UserRepository
	walletService   WalletService
	referralService ReferralService
}

func NewUserService(userRepo repository.UserRepository, walletService WalletService,
	referralService ReferralService) *UserServiceImpl {
	return &UserServiceImpl{
		userRepo:        userRepo,
		walletService:   walletService,
		referralService: referralService,
	}
}

func (us *UserServiceImpl) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	user, err := us.GetByUserLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return nil, appErrors.NewWithCode(err, "Invalid password", http.StatusUnauthorized)
	}
	if !user.IsActive {
		return nil, appErrors.NewWithCode(errors.New("user disabled"), "Account is disabled", http.StatusForbidden)
	}
	return user, nil
}

func (us *UserServiceImpl) GetByUserLogin(ctx context.Context, login string) (*models.User, error) {
	user, err := us.userRepo.FindByLogin(ctx, login)
	if err != nil {
		appErr := &appErrors.ResponseCodeError{}
		if errors.As(err, appErr) {
			return nil, appErr
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (us *UserServiceImpl) GetByUUID(ctx context.Context, userUID *uuid.UUID) (*models.User, error) {
	return us.userRepo.FindByUUID(ctx, userUID)
}

func (us *UserServiceImpl) Create(ctx context.Context, login, password, sponsorCode string) (*models.User, error) {
	var sponsorUUID uuid.NullUUID
	if sponsorCode != "" {
		sponsor, err := us.userRepo.FindByReferralCode(ctx, sponsorCode)
		if err != nil {
			return nil, appErrors.NewWithCode(err, "Invalid referral code", http.StatusBadRequest)
		}
		sponsorUUID = uuid.NullUUID{UUID: sponsor.UUID, Valid: true}
	}

	passwordHash := generatePasswordHash(password)
	user := &models.User{
		UUID:         uuid.New(),
		Login:        login,
		PasswordHash: passwordHash,
		ReferralCode: generateReferralCode(),
		SponsorUUID:  sponsorUUID,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	tx, err := us.userRepo.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := us.userRepo.Create(ctx, tx, user); err != nil {
		appErr := &appErrors.ResponseCodeError{}
		if errors.As(err, appErr) {
			return nil, appErrors.NewWithCode(err, appErr.Msg(), http.StatusConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := us.walletService.InitWallets(ctx, tx, &user.UUID); err != nil {
		return nil, err
	}

	if sponsorUUID.Valid {
		if _, err := us.referralService.CreateChain(ctx, tx, &sponsorUUID.UUID, &user.UUID); err != nil {
			return nil, err
		}
	}

	return user, tx.Commit()
}

func generatePasswordHash(password string) string {
	hashedBytes, err := bcrypt.GenerateFromPassword(
		[]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Errorf("generate hash error: %w", err))
	}
	return string(hashedBytes)
}

func generateReferralCode() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:8])
}
