package withdrawal

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type BankAccountRepository struct {
	db *sqlx.DB
}

func NewBankAccountRepository(db *sqlx.DB) *BankAccountRepository {
	return &BankAccountRepository{db: db}
}

// Insert saves a payout destination. Clearing other defaults and inserting
// happen in one transaction when the new account is the default.
func (r *BankAccountRepository) Insert(ctx context.Context, account *BankAccount) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if account.IsDefault {
		if _, err := tx.ExecContext(ctx, `
			UPDATE bank_accounts SET is_default = false WHERE user_id = $1
		`, account.UserID); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bank_accounts (id, user_id, account_name, account_number, bank_name, bank_code, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, account.ID, account.UserID, account.AccountName, account.AccountNumber,
		account.BankName, account.BankCode, account.IsDefault); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByIDForUser fetches a bank account only when owned by the given user.
func (r *BankAccountRepository) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*BankAccount, error) {
	var account BankAccount
	err := r.db.GetContext(ctx, &account, `
		SELECT id, user_id, account_name, account_number, bank_name, bank_code, is_default, created_at
		FROM bank_accounts
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBankAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// ListByUser returns the user's saved bank accounts, default first.
func (r *BankAccountRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]BankAccount, error) {
	accounts := []BankAccount{}
	err := r.db.SelectContext(ctx, &accounts, `
		SELECT id, user_id, account_name, account_number, bank_name, bank_code, is_default, created_at
		FROM bank_accounts
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC
	`, userID)
	return accounts, err
}

// Delete removes a bank account owned by the given user.
func (r *BankAccountRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bank_accounts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrBankAccountNotFound
	}
	return nil
}
