package models

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type FundRequestType string

const (
	FundRequestDeposit    FundRequestType = "deposit"
	FundRequestWithdrawal FundRequestType = "withdrawal"
)

func (t FundRequestType) String() string {
	return string(t)
}

type FundRequestStatus string

const (
	FundRequestPending   FundRequestStatus = "pending"
	FundRequestApproved  FundRequestStatus = "approved"
	FundRequestRejected  FundRequestStatus = "rejected"
	FundRequestCancelled FundRequestStatus = "cancelled"
)

func (s FundRequestStatus) String() string {
	return string(s)
}

func ParseFundRequestStatus(s string) (FundRequestStatus, error) {
	switch FundRequestStatus(s) {
	case FundRequestPending, FundRequestApproved, FundRequestRejected, FundRequestCancelled:
		return FundRequestStatus(s), nil
	}
	return "", fmt.Errorf("unknown fund request status: %q", s)
}

// FundRequest is a pending money movement awaiting admin review. Deposits
// move nothing until approved; withdrawals hold amount+fee locked in the
// source wallet from request until approval, rejection or cancellation.
type FundRequest struct {
	ID          int64             `db:"id"`
	RequestID   string            `db:"request_id"`
	UserUUID    uuid.UUID         `db:"user_uuid"`
	Type        FundRequestType   `db:"request_type"`
	WalletType  WalletType        `db:"wallet_type"`
	Amount      decimal.Decimal   `db:"amount"`
	Fee         decimal.Decimal   `db:"fee"`
	Address     string            `db:"address"`
	Description string            `db:"description"`
	Status      FundRequestStatus `db:"status"`
	AdminNotes  string            `db:"admin_notes"`
	ProcessedAt sql.NullTime      `db:"processed_at"`
	CreatedAt   time.Time         `db:"created_at"`
}

// HeldAmount is what a pending withdrawal keeps locked.
func (fr *FundRequest) HeldAmount() decimal.Decimal {
	return fr.Amount.Add(fr.Fee)
}
