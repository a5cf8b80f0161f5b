package wallet

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of balance-affecting operation
type TransactionType string

const (
	TransactionTypeDeposit         TransactionType = "deposit"
	TransactionTypeWithdrawal      TransactionType = "withdrawal"
	TransactionTypeWithdrawalFee   TransactionType = "withdrawal_fee"
	TransactionTypeContestPrize    TransactionType = "contest_prize"
	TransactionTypeContestCreation TransactionType = "contest_creation"
	TransactionTypeContestBoost    TransactionType = "contest_boost"
	TransactionTypePlatformFee     TransactionType = "platform_fee"
	TransactionTypeTransfer        TransactionType = "transfer"
)

// TransactionStatus represents transaction lifecycle state.
// A transaction is created pending and moves to exactly one terminal status.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// EntryType represents the direction of a ledger entry
type EntryType string

const (
	EntryTypeCredit EntryType = "credit"
	EntryTypeDebit  EntryType = "debit"
)

// LedgerContext classifies what a ledger entry records
type LedgerContext string

const (
	ContextDeposit          LedgerContext = "deposit"
	ContextWithdrawalHold   LedgerContext = "withdrawal_hold"
	ContextWithdrawalRefund LedgerContext = "withdrawal_refund"
	ContextWithdrawalSettle LedgerContext = "withdrawal_settle"
	ContextWithdrawalFee    LedgerContext = "withdrawal_fee"
	ContextPrize            LedgerContext = "prize"
	ContextContestCreation  LedgerContext = "contest_creation"
	ContextContestBoost     LedgerContext = "contest_boost"
	ContextPlatformFee      LedgerContext = "platform_fee"
)

// Wallet holds the current available and pending balances for one user.
// Balance and PendingBalance are never negative; every mutation is paired
// with a ledger entry committed in the same transaction.
type Wallet struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	UserID         uuid.UUID       `db:"user_id" json:"user_id"`
	Balance        decimal.Decimal `db:"balance" json:"balance"`
	PendingBalance decimal.Decimal `db:"pending_balance" json:"pending_balance"`
	TotalDeposited decimal.Decimal `db:"total_deposited" json:"total_deposited"`
	TotalEarned    decimal.Decimal `db:"total_earned" json:"total_earned"`
	Currency       string          `db:"currency" json:"currency"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// JSONRawMessage handles NULL json fields from DB
type JSONRawMessage []byte

func (j *JSONRawMessage) Scan(src any) error {
	if src == nil {
		*j = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
	case string:
		*j = []byte(v)
	default:
		return fmt.Errorf("unsupported type: %T", src)
	}
	return nil
}

func (j JSONRawMessage) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// Transaction is the per-operation record used for idempotency and status
// reporting. Reference is unique per (type, reference).
type Transaction struct {
	ID          uuid.UUID         `db:"id" json:"id"`
	WalletID    uuid.UUID         `db:"wallet_id" json:"wallet_id"`
	UserID      uuid.UUID         `db:"user_id" json:"user_id"`
	Amount      decimal.Decimal   `db:"amount" json:"amount"`
	Type        TransactionType   `db:"type" json:"type"`
	Status      TransactionStatus `db:"status" json:"status"`
	Description string            `db:"description" json:"description,omitempty"`
	Reference   string            `db:"reference" json:"reference"`
	Metadata    JSONRawMessage    `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// LedgerEntry is one immutable record of a balance mutation. BalanceAfter
// snapshots the wallet balance as persisted in the same database transaction.
type LedgerEntry struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	WalletID      uuid.UUID       `db:"wallet_id" json:"wallet_id"`
	UserID        uuid.UUID       `db:"user_id" json:"user_id"`
	EntryType     EntryType       `db:"entry_type" json:"entry_type"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	BalanceAfter  decimal.Decimal `db:"balance_after" json:"balance_after"`
	Reference     string          `db:"reference" json:"reference"`
	TransactionID uuid.UUID       `db:"transaction_id" json:"transaction_id"`
	Context       LedgerContext   `db:"context" json:"context"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
