package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appErrors "github.com/avetisov/investline/internal/app/errors"
	"github.com/avetisov/investline/internal/app/logger"
	"github.com/avetisov/investline/internal/app/models"
	"github.com/avetisov/investline/internal/app/repository"
)

type (
	// FundRequestService runs the deposit/withdrawal request workflow: users
	// file a request, an admin approves or rejects it, and only approval
	// moves money. A withdrawal holds amount+fee locked in available_fund for
	// the whole pending window so the balance cannot be spent twice.
	FundRequestService interface {
		RequestDeposit(ctx context.Context, userUID *uuid.UUID, walletType models.WalletType,
			amount decimal.Decimal, memo string) (*models.FundRequest, error)
		RequestWithdrawal(ctx context.Context, userUID *uuid.UUID, amount decimal.Decimal,
			address, memo string) (*models.FundRequest, error)
		// Cancel lets the owner withdraw a still-pending request, releasing
		// any held funds.
		Cancel(ctx context.Context, userUID *uuid.UUID, requestID int64) error
		ListByUser(ctx context.Context, userUID *uuid.UUID, status models.FundRequestStatus) (*[]models.FundRequest, error)
		ListByStatus(ctx context.Context, status models.FundRequestStatus) (*[]models.FundRequest, error)
		Approve(ctx context.Context, requestID int64, notes string) (*models.FundRequest, error)
		Reject(ctx context.Context, requestID int64, reason string) (*models.FundRequest, error)
	}

	FundRequestServiceImpl struct {
		requestRepo   repository.FundRequestRepository
		userRepo      repository.UserRepository
		walletService WalletService
		configService AdminConfigService
	}
)

func NewFundRequestService(requestRepo repository.FundRequestRepository, userRepo repository.UserRepository,
	walletService WalletService, configService AdminConfigService) *FundRequestServiceImpl {
	return &FundRequestServiceImpl{
		requestRepo:   requestRepo,
		userRepo:      userRepo,
		walletService: walletService,
		configService: configService,
	}
}

func (fs *FundRequestServiceImpl) RequestDeposit(ctx context.Context, userUID *uuid.UUID,
	walletType models.WalletType, amount decimal.Decimal, memo string) (*models.FundRequest, error) {
	if err := fs.checkUserActive(ctx, userUID); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, appErrors.NewWithCode(ErrNonPositiveAmount, "Amount must be greater than 0", http.StatusBadRequest)
	}

	limits := fs.configService.GetTransactionLimits(ctx)
	if amount.LessThan(limits.MinDeposit) {
		msg := fmt.Sprintf("Minimum deposit amount is %s", limits.MinDeposit.String())
		return nil, appErrors.NewWithCode(errors.New("below minimum deposit"), msg, http.StatusBadRequest)
	}
	if amount.GreaterThan(limits.MaxDeposit) {
		msg := fmt.Sprintf("Maximum deposit amount is %s", limits.MaxDeposit.String())
		return nil, appErrors.NewWithCode(errors.New("above maximum deposit"), msg, http.StatusBadRequest)
	}

	if memo == "" {
		memo = "Deposit to " + walletType.String()
	}
	request := models.FundRequest{
		RequestID:   models.NewTransactionID(),
		UserUUID:    *userUID,
		Type:        models.FundRequestDeposit,
		WalletType:  walletType,
		Amount:      amount,
		Fee:         decimal.Zero,
		Description: memo,
		Status:      models.FundRequestPending,
		CreatedAt:   time.Now(),
	}

	tx, err := fs.requestRepo.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.New(err, "begin transaction")
	}
	defer tx.Rollback()

	if err := fs.requestRepo.Create(ctx, tx, &request); err != nil {
		return nil, appErrors.New(err, "create deposit request")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.New(err, "commit transaction")
	}

	logger.Log.Info("deposit request created",
		zap.String("request_id", request.RequestID),
		zap.String("user_uuid", userUID.String()),
		zap.String("amount", amount.String()))
	return &request, nil
}

func (fs *FundRequestServiceImpl) RequestWithdrawal(ctx context.Context, userUID *uuid.UUID,
	amount decimal.Decimal, address, memo string) (*models.FundRequest, error) {
	if err := fs.checkUserActive(ctx, userUID); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, appErrors.NewWithCode(ErrNonPositiveAmount, "Amount must be greater than 0", http.StatusBadRequest)
	}
	if address == "" {
		return nil, appErrors.NewWithCode(errors.New("missing address"),
			"Destination address is required", http.StatusBadRequest)
	}

	limits := fs.configService.GetTransactionLimits(ctx)
	if amount.LessThan(limits.MinWithdrawal) {
		msg := fmt.Sprintf("Minimum withdrawal amount is %s", limits.MinWithdrawal.String())
		return nil, appErrors.NewWithCode(errors.New("below minimum withdrawal"), msg, http.StatusBadRequest)
	}
	if amount.GreaterThan(limits.MaxWithdrawal) {
		msg := fmt.Sprintf("Maximum withdrawal amount is %s", limits.MaxWithdrawal.String())
		return nil, appErrors.NewWithCode(errors.New("above maximum withdrawal"), msg, http.StatusBadRequest)
	}

	if memo == "" {
		memo = "Withdrawal to " + address
	}
	request := models.FundRequest{
		RequestID:   models.NewTransactionID(),
		UserUUID:    *userUID,
		Type:        models.FundRequestWithdrawal,
		WalletType:  models.WalletAvailableFund,
		Amount:      amount,
		Fee:         limits.WithdrawalFee,
		Address:     address,
		Description: memo,
		Status:      models.FundRequestPending,
		CreatedAt:   time.Now(),
	}

	tx, err := fs.requestRepo.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.New(err, "begin transaction")
	}
	defer tx.Rollback()

	// The lock fails fast when available < amount+fee, so a pending request
	// can never exceed the spendable balance.
	if err := fs.walletService.Lock(ctx, tx, userUID, models.WalletAvailableFund, request.HeldAmount()); err != nil {
		return nil, err
	}
	if err := fs.requestRepo.Create(ctx, tx, &request); err != nil {
		return nil, appErrors.New(err, "create withdrawal request")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.New(err, "commit transaction")
	}

	logger.Log.Info("withdrawal request created",
		zap.String("request_id", request.RequestID),
		zap.String("user_uuid", userUID.String()),
		zap.String("amount", amount.String()),
		zap.String("fee", request.Fee.String()))
	return &request, nil
}

func (fs *FundRequestServiceImpl) Cancel(ctx context.Context, userUID *uuid.UUID, requestID int64) error {
	request, err := fs.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if request.UserUUID != *userUID {
		return appErrors.NewWithCode(errors.New("request owner mismatch"),
			"Request not found", http.StatusNotFound)
	}

	tx, err := fs.requestRepo.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.New(err, "begin transaction")
	}
	defer tx.Rollback()

	if err := fs.requestRepo.UpdateStatus(ctx, tx, request.ID,
		models.FundRequestPending, models.FundRequestCancelled, "Cancelled by user"); err != nil {
		return err
	}
	if request.Type == models.FundRequestWithdrawal {
		if err := fs.walletService.Unlock(ctx, tx, &request.UserUUID, request.WalletType, request.HeldAmount()); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return appErrors.New(err, "commit transaction")
	}

	logger.Log.Info("fund request cancelled",
		zap.String("request_id", request.RequestID),
		zap.String("user_uuid", userUID.String()))
	return nil
}

func (fs *FundRequestServiceImpl) ListByUser(ctx context.Context, userUID *uuid.UUID,
	status models.FundRequestStatus) (*[]models.FundRequest, error) {
	return fs.requestRepo.GetByUser(ctx, userUID, status, 100)
}

func (fs *FundRequestServiceImpl) ListByStatus(ctx context.Context, status models.FundRequestStatus) (*[]models.FundRequest, error) {
	return fs.requestRepo.GetByStatus(ctx, status, 100)
}

func (fs *FundRequestServiceImpl) Approve(ctx context.Context, requestID int64, notes string) (*models.FundRequest, error) {
	request, err := fs.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	tx, err := fs.requestRepo.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.New(err, "begin transaction")
	}
	defer tx.Rollback()

	// The pending guard makes approve/reject/cancel mutually exclusive even
	// when two admins race on the same request.
	if err := fs.requestRepo.UpdateStatus(ctx, tx, request.ID,
		models.FundRequestPending, models.FundRequestApproved, notes); err != nil {
		return nil, err
	}

	switch request.Type {
	case models.FundRequestDeposit:
		memo := fmt.Sprintf("Deposit - %s", request.RequestID)
		if _, err := fs.walletService.Credit(ctx, tx, &request.UserUUID, request.WalletType,
			request.Amount, models.TransactionDeposit, memo); err != nil {
			return nil, err
		}
	case models.FundRequestWithdrawal:
		// Release the hold, then debit the full amount+fee in the same
		// transaction.
		if err := fs.walletService.Unlock(ctx, tx, &request.UserUUID, request.WalletType, request.HeldAmount()); err != nil {
			return nil, err
		}
		memo := fmt.Sprintf("Withdrawal - %s", request.RequestID)
		if _, err := fs.walletService.Debit(ctx, tx, &request.UserUUID, request.WalletType,
			request.HeldAmount(), models.TransactionWithdrawal, memo); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.New(err, "commit transaction")
	}

	request.Status = models.FundRequestApproved
	logger.Log.Info("fund request approved",
		zap.String("request_id", request.RequestID),
		zap.String("type", request.Type.String()),
		zap.String("amount", request.Amount.String()))
	return request, nil
}

func (fs *FundRequestServiceImpl) Reject(ctx context.Context, requestID int64, reason string) (*models.FundRequest, error) {
	request, err := fs.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	tx, err := fs.requestRepo.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.New(err, "begin transaction")
	}
	defer tx.Rollback()

	if err := fs.requestRepo.UpdateStatus(ctx, tx, request.ID,
		models.FundRequestPending, models.FundRequestRejected, reason); err != nil {
		return nil, err
	}
	if request.Type == models.FundRequestWithdrawal {
		if err := fs.walletService.Unlock(ctx, tx, &request.UserUUID, request.WalletType, request.HeldAmount()); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.New(err, "commit transaction")
	}

	request.Status = models.FundRequestRejected
	logger.Log.Info("fund request rejected",
		zap.String("request_id", request.RequestID),
		zap.String("reason", reason))
	return request, nil
}

func (fs *FundRequestServiceImpl) checkUserActive(ctx context.Context, userUID *uuid.UUID) error {
	user, err := fs.userRepo.FindByUUID(ctx, userUID)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return appErrors.NewWithCode(errors.New("user is not active"),
			"Account is disabled", http.StatusForbidden)
	}
	return nil
}
