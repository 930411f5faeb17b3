package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionCredit             TransactionType = "credit"
	TransactionDebit              TransactionType = "debit"
	TransactionLock               TransactionType = "lock"
	TransactionUnlock             TransactionType = "unlock"
	TransactionTransfer           TransactionType = "transfer"
	TransactionInvestmentPurchase TransactionType = "investment_purchase"
	TransactionCommission         TransactionType = "commission"
	TransactionSettlement         TransactionType = "settlement"
	TransactionDeposit            TransactionType = "deposit"
	TransactionWithdrawal         TransactionType = "withdrawal"
)

func (t TransactionType) String() string {
	return string(t)
}

// Transaction is one row of the append-only audit trail behind every wallet
// mutation.
type Transaction struct {
	ID            int64           `db:"id"`
	TransactionID string          `db:"transaction_id"`
	UserUUID      uuid.UUID       `db:"user_uuid"`
	Type          TransactionType `db:"transaction_type"`
	WalletType    WalletType      `db:"wallet_type"`
	Amount        decimal.Decimal `db:"amount"`
	Description   string          `db:"description"`
	CreatedAt     time.Time       `db:"created_at"`
}

// NewTransactionID builds a human-scannable unique reference,
// e.g. INV20240131094501A1B2C3.
func NewTransactionID() string {
	random := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return "INV" + time.Now().UTC().Format("20060102150405") + random
}

type IncomeType string

const (
	IncomeDirectReferral IncomeType = "Direct Referral"
	IncomeLevelBonus     IncomeType = "Level Bonus"
	IncomeSelfInvestment IncomeType = "Self Investment"
)

func (t IncomeType) String() string {
	return string(t)
}

// ReferralIncomeType maps a commission level to its income category.
func ReferralIncomeType(level int) IncomeType {
	if level == 1 {
		return IncomeDirectReferral
	}
	return IncomeLevelBonus
}

// Income is the earnings ledger: one row per commission payout or daily
// investment return, tagged with the source user and level where relevant.
type Income struct {
	ID           int64           `db:"id"`
	UserUUID     uuid.UUID       `db:"user_uuid"`
	Type         IncomeType      `db:"income_type"`
	Amount       decimal.Decimal `db:"amount"`
	FromUserUUID uuid.NullUUID   `db:"from_user_uuid"`
	Level        int             `db:"level"`
	Description  string          `db:"description"`
	CreatedAt    time.Time       `db:"created_at"`
}

// AdminConfig is one externally tunable value (referral rates, limits, fees).
type AdminConfig struct {
	Key         string    `db:"key"`
	Value       string    `db:"value"`
	Description string    `db:"description"`
	Category    string    `db:"category"`
	DataType    string    `db:"data_type"`
	UpdatedAt   time.Time `db:"updated_at"`
}
