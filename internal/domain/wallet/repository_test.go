package wallet_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/spotlyte/spotlyte-api/internal/domain/wallet"
)

func newMockRepo(t *testing.T) (*wallet.Repository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return wallet.NewRepository(sqlxDB), mock, func() { db.Close() }
}

func TestInsertTransactionDuplicateReference(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO wallet_transactions").
		WillReturnError(&pq.Error{Code: "23505"})

	tx, err := repo.BeginTxx(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	err = repo.InsertTransaction(context.Background(), tx, &wallet.Transaction{
		ID:        uuid.New(),
		WalletID:  uuid.New(),
		UserID:    uuid.New(),
		Amount:    decimal.RequireFromString("100"),
		Type:      wallet.TransactionTypeDeposit,
		Status:    wallet.TransactionStatusCompleted,
		Reference: "dep_replay",
	})
	if !errors.Is(err, wallet.ErrDuplicateReference) {
		t.Fatalf("expected ErrDuplicateReference, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestApplyDeltaRejectsOverdraft(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	// No UPDATE is expected: the overdraft is rejected before any write.
	mock.ExpectBegin()

	tx, err := repo.BeginTxx(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	w := &wallet.Wallet{
		ID:      uuid.New(),
		Balance: decimal.RequireFromString("100"),
	}
	err = repo.ApplyDelta(context.Background(), tx, w, wallet.Delta{
		Balance: decimal.RequireFromString("-250"),
	})
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if !w.Balance.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("in-memory wallet must be untouched, got %s", w.Balance)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestMarkTransactionAlreadyResolved(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallet_transactions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := repo.BeginTxx(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	won, err := repo.MarkTransaction(context.Background(), tx, uuid.New(), wallet.TransactionStatusCompleted)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if won {
		t.Fatal("expected zero-row update to report false")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestReconcileFold(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	walletID := uuid.New()
	rows := sqlmock.NewRows([]string{"entry_type", "amount", "context"}).
		AddRow("credit", "1000", "deposit").
		AddRow("debit", "400", "withdrawal_hold").
		AddRow("debit", "290", "withdrawal_settle").
		AddRow("debit", "110", "withdrawal_fee")
	mock.ExpectQuery("SELECT entry_type, amount, context").
		WithArgs(walletID).
		WillReturnRows(rows)

	balance, pending, err := repo.Reconcile(context.Background(), walletID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("600")) {
		t.Fatalf("expected balance 600, got %s", balance)
	}
	if !pending.IsZero() {
		t.Fatalf("expected pending 0, got %s", pending)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestReconcileFoldRefund(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	walletID := uuid.New()
	rows := sqlmock.NewRows([]string{"entry_type", "amount", "context"}).
		AddRow("credit", "1000", "deposit").
		AddRow("debit", "400", "withdrawal_hold").
		AddRow("credit", "400", "withdrawal_refund").
		AddRow("debit", "300", "contest_creation")
	mock.ExpectQuery("SELECT entry_type, amount, context").
		WithArgs(walletID).
		WillReturnRows(rows)

	balance, pending, err := repo.Reconcile(context.Background(), walletID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("700")) {
		t.Fatalf("expected balance 700, got %s", balance)
	}
	if !pending.IsZero() {
		t.Fatalf("expected pending 0, got %s", pending)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
