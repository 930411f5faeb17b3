package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	appErrors "github.com/avetisov/investline/internal/app/errors"
	"github.com/avetisov/investline/internal/app/models"
)

type FundRequestRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, request *models.FundRequest) error
	GetByID(ctx context.Context, requestID int64) (*models.FundRequest, error)
	GetByUser(ctx context.Context, userUID *uuid.UUID, status models.FundRequestStatus, limit int) (*[]models.FundRequest, error)
	GetByStatus(ctx context.Context, status models.FundRequestStatus, limit int) (*[]models.FundRequest, error)
	// UpdateStatus transitions only while the stored status still equals
	// from; a zero row count means another actor got there first.
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, requestID int64, from, to models.FundRequestStatus, notes string) error
	GetDB() *sqlx.DB
}

type FundRequestRepositoryImpl struct {
	db *sqlx.DB
}

func NewFundRequestRepository(db *sqlx.DB) *FundRequestRepositoryImpl {
	return &FundRequestRepositoryImpl{db: db}
}

func (fr *FundRequestRepositoryImpl) Create(ctx context.Context, tx *sqlx.Tx, request *models.FundRequest) error {
	query := `INSERT INTO fund_requests
			  (request_id, user_uuid, request_type, wallet_type, amount, fee, address, description, status, admin_notes, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) returning id;`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	err = stmt.QueryRowContext(ctx, request.RequestID, request.UserUUID, request.Type.String(),
		request.WalletType.String(), request.Amount, request.Fee, request.Address, request.Description,
		request.Status.String(), request.AdminNotes, request.CreatedAt).Scan(&request.ID)
	if err != nil {
		return fmt.Errorf("exec statement: %w", err)
	}
	return nil
}

func (fr *FundRequestRepositoryImpl) GetByID(ctx context.Context, requestID int64) (*models.FundRequest, error) {
	query := `SELECT * FROM fund_requests WHERE id = $1;`
	request := models.FundRequest{}
	err := fr.db.GetContext(ctx, &request, query, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewWithCode(err, "Request not found", http.StatusNotFound)
		}
		return nil, fmt.Errorf("get fund request: %w", err)
	}
	return &request, nil
}

func (fr *FundRequestRepositoryImpl) GetByUser(ctx context.Context, userUID *uuid.UUID,
	status models.FundRequestStatus, limit int) (*[]models.FundRequest, error) {
	requests := make([]models.FundRequest, 0)
	var err error
	if status == "" {
		query := `SELECT * FROM fund_requests WHERE user_uuid = $1 order by created_at desc limit $2;`
		err = fr.db.SelectContext(ctx, &requests, query, userUID, limit)
	} else {
		query := `SELECT * FROM fund_requests WHERE user_uuid = $1 AND status = $2 order by created_at desc limit $3;`
		err = fr.db.SelectContext(ctx, &requests, query, userUID, status.String(), limit)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &requests, nil
		}
		return nil, fmt.Errorf("read user fund requests: %w", err)
	}
	return &requests, nil
}

func (fr *FundRequestRepositoryImpl) GetByStatus(ctx context.Context, status models.FundRequestStatus, limit int) (*[]models.FundRequest, error) {
	query := `SELECT * FROM fund_requests WHERE status = $1 order by created_at limit $2;`
	requests := make([]models.FundRequest, 0)
	err := fr.db.SelectContext(ctx, &requests, query, status.String(), limit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &requests, nil
		}
		return nil, fmt.Errorf("read fund requests: %w", err)
	}
	return &requests, nil
}

func (fr *FundRequestRepositoryImpl) UpdateStatus(ctx context.Context, tx *sqlx.Tx, requestID int64,
	from, to models.FundRequestStatus, notes string) error {
	query := `UPDATE fund_requests SET status = $1, admin_notes = $2, processed_at = $3
			  WHERE id = $4 AND status = $5;`
	res, err := tx.ExecContext(ctx, query, to.String(), notes, time.Now(), requestID, from.String())
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		msg := fmt.Sprintf("Request is not %s", from)
		return appErrors.NewWithCode(errors.New("status guard failed"), msg, http.StatusBadRequest)
	}
	return nil
}

func (fr *FundRequestRepositoryImpl) GetDB() *sqlx.DB {
	return fr.db
}
