package withdrawal

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const withdrawalColumns = `
	id, user_id, account_name, account_number, bank_name, bank_code,
	amount, fee, net_amount, status, transaction_id, external_reference,
	admin_notes, requested_at, processed_at, completed_at`

// Insert writes a withdrawal row inside the hold transaction.
func (r *Repository) Insert(ctx context.Context, tx *sqlx.Tx, w *Withdrawal) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO withdrawals (id, user_id, account_name, account_number, bank_name, bank_code,
			amount, fee, net_amount, status, transaction_id, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, w.ID, w.UserID, w.AccountName, w.AccountNumber, w.BankName, w.BankCode,
		w.Amount, w.Fee, w.NetAmount, string(w.Status), w.TransactionID, w.RequestedAt)
	return err
}

// GetByID fetches a withdrawal without ownership scoping (sweep worker).
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Withdrawal, error) {
	var w Withdrawal
	err := r.db.GetContext(ctx, &w, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWithdrawalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetByIDForUser fetches a withdrawal only when owned by the given user, so
// lookups never leak another user's withdrawal existence.
func (r *Repository) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*Withdrawal, error) {
	var w Withdrawal
	err := r.db.GetContext(ctx, &w, `
		SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 AND user_id = $2
	`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWithdrawalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListByUser returns the user's withdrawals, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Withdrawal, error) {
	withdrawals := []Withdrawal{}
	err := r.db.SelectContext(ctx, &withdrawals, `
		SELECT `+withdrawalColumns+` FROM withdrawals
		WHERE user_id = $1
		ORDER BY requested_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return withdrawals, err
}

// CountByUser returns the user's total withdrawal count.
func (r *Repository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM withdrawals WHERE user_id = $1`, userID)
	return count, err
}

// MarkCompleted transitions processing -> completed and records the gateway
// reference. Returns false when the withdrawal was not in processing, which
// means the other resolution path already won.
func (r *Repository) MarkCompleted(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, externalReference string) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE withdrawals
		SET status = 'completed', external_reference = $2, processed_at = now(), completed_at = now()
		WHERE id = $1 AND status = 'processing'
	`, id, externalReference)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// MarkFailed transitions processing -> failed with the gateway's error
// message. Same single-winner guard as MarkCompleted; the refund only runs
// when this returns true.
func (r *Repository) MarkFailed(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, notes string) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE withdrawals
		SET status = 'failed', admin_notes = $2, processed_at = now()
		WHERE id = $1 AND status = 'processing'
	`, id, notes)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// ListStuckProcessing returns withdrawals that have sat in processing since
// before the cutoff, oldest first. The recovery sweep resolves them.
func (r *Repository) ListStuckProcessing(ctx context.Context, cutoff time.Time, limit int) ([]Withdrawal, error) {
	withdrawals := []Withdrawal{}
	err := r.db.SelectContext(ctx, &withdrawals, `
		SELECT `+withdrawalColumns+` FROM withdrawals
		WHERE status = 'processing' AND requested_at < $1
		ORDER BY requested_at ASC
		LIMIT $2
	`, cutoff, limit)
	return withdrawals, err
}
