package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/spotlyte/spotlyte-api/internal/pkg/money"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Delta describes one atomic wallet mutation. Balance and Pending move the
// authoritative balances; Deposited and Earned feed the informational
// accumulators only.
type Delta struct {
	Balance   decimal.Decimal
	Pending   decimal.Decimal
	Deposited decimal.Decimal
	Earned    decimal.Decimal
}

func (r *Repository) BeginTxx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

// Ensure creates a zero-balance wallet for the user if none exists yet.
func (r *Repository) Ensure(ctx context.Context, userID uuid.UUID, currency string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, balance, pending_balance, total_deposited, total_earned, currency)
		VALUES ($1, $2, 0, 0, 0, 0, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.New(), userID, currency)
	return err
}

// GetByUserID returns the wallet owned by the given user.
func (r *Repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := r.db.GetContext(ctx, &w, `
		SELECT id, user_id, balance, pending_balance, total_deposited, total_earned, currency, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// LockByUserID locks the user's wallet row for the duration of tx, creating
// the wallet first when absent. Every balance mutation goes through this lock
// so concurrent settlements against the same wallet serialize.
func (r *Repository) LockByUserID(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, currency string) (*Wallet, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, balance, pending_balance, total_deposited, total_earned, currency)
		VALUES ($1, $2, 0, 0, 0, 0, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.New(), userID, currency); err != nil {
		return nil, err
	}

	var w Wallet
	err := tx.GetContext(ctx, &w, `
		SELECT id, user_id, balance, pending_balance, total_deposited, total_earned, currency, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
		FOR UPDATE
	`, userID)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ApplyDelta mutates a locked wallet. The resulting balance and pending
// balance are rounded to 2 decimal places and must both stay non-negative;
// otherwise ErrInsufficientFunds is returned and nothing is written.
// On success the in-memory wallet is updated to the persisted values.
func (r *Repository) ApplyDelta(ctx context.Context, tx *sqlx.Tx, w *Wallet, d Delta) error {
	nextBalance := money.Round2(w.Balance.Add(d.Balance))
	nextPending := money.Round2(w.PendingBalance.Add(d.Pending))
	if nextBalance.IsNegative() || nextPending.IsNegative() {
		return ErrInsufficientFunds
	}

	nextDeposited := money.Round2(w.TotalDeposited.Add(d.Deposited))
	nextEarned := money.Round2(w.TotalEarned.Add(d.Earned))

	_, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = $1, pending_balance = $2, total_deposited = $3, total_earned = $4, updated_at = now()
		WHERE id = $5
	`, nextBalance, nextPending, nextDeposited, nextEarned, w.ID)
	if err != nil {
		return err
	}

	w.Balance = nextBalance
	w.PendingBalance = nextPending
	w.TotalDeposited = nextDeposited
	w.TotalEarned = nextEarned
	w.UpdatedAt = time.Now()
	return nil
}

// InsertTransaction writes a transaction row. A unique-violation on
// (type, reference) maps to ErrDuplicateReference so callers can treat
// replays idempotently.
func (r *Repository) InsertTransaction(ctx context.Context, tx *sqlx.Tx, t *Transaction) error {
	var metadata interface{}
	if len(t.Metadata) > 0 {
		metadata = []byte(t.Metadata)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions (id, wallet_id, user_id, amount, type, status, description, reference, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID, t.WalletID, t.UserID, t.Amount, string(t.Type), string(t.Status), t.Description, t.Reference, metadata)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}

// InsertTransactionDirect writes a transaction outside any settlement
// transaction, used when a pending record must exist before a gateway call.
func (r *Repository) InsertTransactionDirect(ctx context.Context, t *Transaction) error {
	var metadata interface{}
	if len(t.Metadata) > 0 {
		metadata = []byte(t.Metadata)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallet_transactions (id, wallet_id, user_id, amount, type, status, description, reference, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID, t.WalletID, t.UserID, t.Amount, string(t.Type), string(t.Status), t.Description, t.Reference, metadata)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}

// MarkTransaction moves a pending transaction to a terminal status. Returns
// false when the transaction was not in pending, so a second resolution of
// the same operation is detected instead of applied twice.
func (r *Repository) MarkTransaction(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status TransactionStatus) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE wallet_transactions
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = 'pending'
	`, string(status), id)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// MarkTransactionFailedDirect marks a pending transaction failed outside a
// settlement transaction (gateway init failures, before any funds move).
func (r *Repository) MarkTransactionFailedDirect(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE wallet_transactions
		SET status = 'failed', updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id)
	return err
}

// GetPendingByReference finds a pending transaction for (user, type, reference)
// under the current transaction. Returns nil when none exists.
func (r *Repository) GetPendingByReference(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, txType TransactionType, reference string) (*Transaction, error) {
	var t Transaction
	err := tx.GetContext(ctx, &t, `
		SELECT id, wallet_id, user_id, amount, type, status, description, reference, metadata, created_at, updated_at
		FROM wallet_transactions
		WHERE user_id = $1 AND type = $2 AND reference = $3 AND status = 'pending'
		LIMIT 1
	`, userID, string(txType), reference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByReference finds any transaction for (type, reference) under tx.
func (r *Repository) GetByReference(ctx context.Context, tx *sqlx.Tx, txType TransactionType, reference string) (*Transaction, error) {
	var t Transaction
	err := tx.GetContext(ctx, &t, `
		SELECT id, wallet_id, user_id, amount, type, status, description, reference, metadata, created_at, updated_at
		FROM wallet_transactions
		WHERE type = $1 AND reference = $2
		LIMIT 1
	`, string(txType), reference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// InsertLedgerEntry appends one immutable ledger row. BalanceAfter must be
// the wallet balance persisted in the same database transaction.
func (r *Repository) InsertLedgerEntry(ctx context.Context, tx *sqlx.Tx, e *LedgerEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_ledger (id, wallet_id, user_id, entry_type, amount, balance_after, reference, transaction_id, context)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.WalletID, e.UserID, string(e.EntryType), e.Amount, e.BalanceAfter, e.Reference, e.TransactionID, string(e.Context))
	return err
}

// ListTransactions returns the newest transactions for a user.
func (r *Repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	transactions := []Transaction{}
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT id, wallet_id, user_id, amount, type, status, description, reference, metadata, created_at, updated_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return transactions, err
}

// CountTransactions returns the total transaction count for a user.
func (r *Repository) CountTransactions(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM wallet_transactions WHERE user_id = $1`, userID)
	return count, err
}

// ListLedger returns ledger entries for a wallet in creation order.
func (r *Repository) ListLedger(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]LedgerEntry, error) {
	entries := []LedgerEntry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, wallet_id, user_id, entry_type, amount, balance_after, reference, transaction_id, context, created_at
		FROM wallet_ledger
		WHERE wallet_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	return entries, err
}

// Reconcile replays the full ledger for a wallet and returns the balance and
// pending balance it implies. Hold entries move funds from balance to
// pending; refunds reverse a hold; settle and fee entries release pending
// without touching balance, matching how the settlement engine writes them.
func (r *Repository) Reconcile(ctx context.Context, walletID uuid.UUID) (balance, pending decimal.Decimal, err error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT entry_type, amount, context
		FROM wallet_ledger
		WHERE wallet_id = $1
		ORDER BY created_at ASC, id ASC
	`, walletID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	defer rows.Close()

	balance = decimal.Zero
	pending = decimal.Zero
	for rows.Next() {
		var (
			entryType string
			amount    decimal.Decimal
			context   string
		)
		if err := rows.Scan(&entryType, &amount, &context); err != nil {
			return decimal.Zero, decimal.Zero, err
		}

		switch {
		case EntryType(entryType) == EntryTypeCredit && LedgerContext(context) == ContextWithdrawalRefund:
			balance = balance.Add(amount)
			pending = pending.Sub(amount)
		case EntryType(entryType) == EntryTypeCredit:
			balance = balance.Add(amount)
		case LedgerContext(context) == ContextWithdrawalHold:
			balance = balance.Sub(amount)
			pending = pending.Add(amount)
		case LedgerContext(context) == ContextWithdrawalSettle, LedgerContext(context) == ContextWithdrawalFee:
			pending = pending.Sub(amount)
		default:
			balance = balance.Sub(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return money.Round2(balance), money.Round2(pending), nil
}
