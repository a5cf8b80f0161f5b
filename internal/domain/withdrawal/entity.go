package withdrawal

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents withdrawal lifecycle state.
//
//	[request] -> processing (hold placed) -> completed (transfer succeeded)
//	                                      \-> failed (transfer failed, hold refunded)
//
// A withdrawal reaches exactly one terminal status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Withdrawal is one payout request. TransactionID links the hold transaction
// placed in stage 1; ExternalReference is the gateway transfer code recorded
// on settlement.
type Withdrawal struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	UserID            uuid.UUID       `db:"user_id" json:"user_id"`
	AccountName       string          `db:"account_name" json:"account_name"`
	AccountNumber     string          `db:"account_number" json:"account_number"`
	BankName          string          `db:"bank_name" json:"bank_name"`
	BankCode          string          `db:"bank_code" json:"bank_code"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	Fee               decimal.Decimal `db:"fee" json:"fee"`
	NetAmount         decimal.Decimal `db:"net_amount" json:"net_amount"`
	Status            Status          `db:"status" json:"status"`
	TransactionID     uuid.UUID       `db:"transaction_id" json:"transaction_id"`
	ExternalReference sql.NullString  `db:"external_reference" json:"external_reference,omitempty"`
	AdminNotes        sql.NullString  `db:"admin_notes" json:"admin_notes,omitempty"`
	RequestedAt       time.Time       `db:"requested_at" json:"requested_at"`
	ProcessedAt       sql.NullTime    `db:"processed_at" json:"processed_at,omitempty"`
	CompletedAt       sql.NullTime    `db:"completed_at" json:"completed_at,omitempty"`
}

// Reference is the idempotency key sent to the gateway for this withdrawal's
// transfer. Deterministic per withdrawal so a retried transfer cannot pay twice.
func (w *Withdrawal) Reference() string {
	return "wd_" + strings.ReplaceAll(w.ID.String(), "-", "")
}

// BankAccount is a saved payout destination.
type BankAccount struct {
	ID            uuid.UUID `db:"id" json:"id"`
	UserID        uuid.UUID `db:"user_id" json:"user_id"`
	AccountName   string    `db:"account_name" json:"account_name"`
	AccountNumber string    `db:"account_number" json:"account_number"`
	BankName      string    `db:"bank_name" json:"bank_name"`
	BankCode      string    `db:"bank_code" json:"bank_code"`
	IsDefault     bool      `db:"is_default" json:"is_default"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
