package withdrawal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/spotlyte/spotlyte-api/internal/domain/wallet"
	"github.com/spotlyte/spotlyte-api/internal/pkg/money"
)

// TransferRequest crosses the gateway boundary, so the amount is in minor
// currency units. Reference is the idempotency key: the gateway rejects a
// second transfer with the same reference, which caps the damage of a
// timed-out call that actually went through.
type TransferRequest struct {
	AccountName   string
	AccountNumber string
	BankName      string
	BankCode      string
	Currency      string
	AmountMinor   int64
	Reference     string
	Reason        string
}

// TransferResult reports a transfer the gateway accepted.
type TransferResult struct {
	TransferCode string
	Reference    string
}

// Gateway is the slice of the payment gateway the withdrawal flow needs.
type Gateway interface {
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
}

// RequestInput carries a withdrawal request. Exactly one of BankAccountID or
// the inline bank fields must be set.
type RequestInput struct {
	Amount        decimal.Decimal
	BankAccountID *uuid.UUID
	AccountName   string
	AccountNumber string
	BankName      string
	BankCode      string
}

type Service struct {
	repo     *Repository
	banks    *BankAccountRepository
	wallets  *wallet.Repository
	cache    *wallet.BalanceCache
	gateway  Gateway
	currency string
}

func NewService(repo *Repository, banks *BankAccountRepository, wallets *wallet.Repository, cache *wallet.BalanceCache, gateway Gateway, currency string) *Service {
	return &Service{
		repo:     repo,
		banks:    banks,
		wallets:  wallets,
		cache:    cache,
		gateway:  gateway,
		currency: currency,
	}
}

// Request runs the full withdrawal protocol:
//
//	stage 1: atomically hold the funds (balance -> pending) with the hold
//	         transaction, ledger entry and withdrawal row, then commit
//	stage 2: initiate the bank transfer outside any database transaction
//	stage 3: settle the hold on success, refund it on failure
//
// The stage-1 commit lands before the gateway is contacted, so a crash in
// between leaves only a processing withdrawal that the recovery sweep can
// resolve. On transfer failure the returned withdrawal is failed and the
// error wraps ErrTransferFailed.
func (s *Service) Request(ctx context.Context, userID uuid.UUID, input RequestInput) (*Withdrawal, error) {
	if !input.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amount := money.Round2(input.Amount)

	fee, net := money.WithdrawalFee(amount)
	if !net.IsPositive() {
		return nil, ErrAmountTooSmall
	}

	destination, err := s.resolveDestination(ctx, userID, input)
	if err != nil {
		return nil, err
	}

	wd, err := s.placeHold(ctx, userID, amount, fee, net, destination)
	if err != nil {
		return nil, err
	}

	result, err := s.gateway.Transfer(ctx, TransferRequest{
		AccountName:   wd.AccountName,
		AccountNumber: wd.AccountNumber,
		BankName:      wd.BankName,
		BankCode:      wd.BankCode,
		Currency:      s.currency,
		AmountMinor:   money.ToMinorUnits(wd.NetAmount),
		Reference:     wd.Reference(),
		Reason:        "Spotlyte withdrawal",
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("withdrawal_id", wd.ID.String()).
			Str("user_id", userID.String()).
			Msg("bank transfer failed, refunding hold")

		if refundErr := s.refund(ctx, wd, err.Error()); refundErr != nil {
			log.Error().
				Err(refundErr).
				Str("withdrawal_id", wd.ID.String()).
				Msg("refund after transfer failure did not complete, sweep will retry")
			return nil, refundErr
		}

		failed, getErr := s.repo.GetByID(ctx, wd.ID)
		if getErr != nil {
			return nil, getErr
		}
		return failed, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	if err := s.settle(ctx, wd, result.TransferCode); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, wd.ID)
}

// resolveDestination enforces the two request shapes: a saved bank account
// id, or full inline details.
func (s *Service) resolveDestination(ctx context.Context, userID uuid.UUID, input RequestInput) (*BankAccount, error) {
	hasInline := input.AccountNumber != "" || input.AccountName != "" || input.BankCode != "" || input.BankName != ""

	if input.BankAccountID != nil {
		if hasInline {
			return nil, ErrInvalidBankDetails
		}
		return s.banks.GetByIDForUser(ctx, *input.BankAccountID, userID)
	}

	if input.AccountNumber == "" || input.AccountName == "" || input.BankCode == "" {
		return nil, ErrInvalidBankDetails
	}
	return &BankAccount{
		UserID:        userID,
		AccountName:   input.AccountName,
		AccountNumber: input.AccountNumber,
		BankName:      input.BankName,
		BankCode:      input.BankCode,
	}, nil
}

// placeHold is stage 1: one transaction moving amount from balance to
// pending, with the hold transaction row, the hold ledger entry and the
// processing withdrawal. The balance is re-read under the row lock, so two
// concurrent requests cannot both pass the funds check.
func (s *Service) placeHold(ctx context.Context, userID uuid.UUID, amount, fee, net decimal.Decimal, destination *BankAccount) (*Withdrawal, error) {
	tx, err := s.wallets.BeginTxx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := s.wallets.LockByUserID(ctx, tx, userID, s.currency)
	if err != nil {
		return nil, err
	}

	wd := &Withdrawal{
		ID:            uuid.New(),
		UserID:        userID,
		AccountName:   destination.AccountName,
		AccountNumber: destination.AccountNumber,
		BankName:      destination.BankName,
		BankCode:      destination.BankCode,
		Amount:        amount,
		Fee:           fee,
		NetAmount:     net,
		Status:        StatusProcessing,
		RequestedAt:   time.Now(),
	}

	holdTx := &wallet.Transaction{
		ID:          uuid.New(),
		WalletID:    w.ID,
		UserID:      userID,
		Amount:      amount,
		Type:        wallet.TransactionTypeWithdrawal,
		Status:      wallet.TransactionStatusPending,
		Description: fmt.Sprintf("Withdrawal to %s %s", destination.BankName, maskAccountNumber(destination.AccountNumber)),
		Reference:   wd.Reference(),
	}
	if err := s.wallets.InsertTransaction(ctx, tx, holdTx); err != nil {
		return nil, err
	}
	wd.TransactionID = holdTx.ID

	if err := s.wallets.ApplyDelta(ctx, tx, w, wallet.Delta{
		Balance: amount.Neg(),
		Pending: amount,
	}); err != nil {
		return nil, err
	}

	if err := s.wallets.InsertLedgerEntry(ctx, tx, &wallet.LedgerEntry{
		ID:            uuid.New(),
		WalletID:      w.ID,
		UserID:        userID,
		EntryType:     wallet.EntryTypeDebit,
		Amount:        amount,
		BalanceAfter:  w.Balance,
		Reference:     wd.Reference(),
		TransactionID: holdTx.ID,
		Context:       wallet.ContextWithdrawalHold,
	}); err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, tx, wd); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, userID)

	log.Info().
		Str("withdrawal_id", wd.ID.String()).
		Str("user_id", userID.String()).
		Str("amount", amount.String()).
		Str("fee", fee.String()).
		Str("net_amount", net.String()).
		Msg("withdrawal hold placed")
	return wd, nil
}

// refund is stage 3a: reverse the hold. The processing -> failed transition
// is the single-winner guard; when it reports zero rows the withdrawal was
// already resolved and no balance is touched, so a retried refund cannot
// credit twice.
func (s *Service) refund(ctx context.Context, wd *Withdrawal, notes string) error {
	tx, err := s.wallets.BeginTxx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	w, err := s.wallets.LockByUserID(ctx, tx, wd.UserID, s.currency)
	if err != nil {
		return err
	}

	won, err := s.repo.MarkFailed(ctx, tx, wd.ID, notes)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}

	if _, err := s.wallets.MarkTransaction(ctx, tx, wd.TransactionID, wallet.TransactionStatusFailed); err != nil {
		return err
	}

	if err := s.wallets.ApplyDelta(ctx, tx, w, wallet.Delta{
		Balance: wd.Amount,
		Pending: wd.Amount.Neg(),
	}); err != nil {
		return err
	}

	if err := s.wallets.InsertLedgerEntry(ctx, tx, &wallet.LedgerEntry{
		ID:            uuid.New(),
		WalletID:      w.ID,
		UserID:        wd.UserID,
		EntryType:     wallet.EntryTypeCredit,
		Amount:        wd.Amount,
		BalanceAfter:  w.Balance,
		Reference:     wd.Reference(),
		TransactionID: wd.TransactionID,
		Context:       wallet.ContextWithdrawalRefund,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, wd.UserID)

	log.Info().
		Str("withdrawal_id", wd.ID.String()).
		Str("user_id", wd.UserID.String()).
		Str("amount", wd.Amount.String()).
		Msg("withdrawal hold refunded")
	return nil
}

// settle is stage 3b: release the pending reservation without returning
// funds to balance (the amount already left in stage 1), complete the hold
// transaction, record the fee transaction, and append the settle and fee
// ledger entries. Both entries snapshot the unchanged balance.
func (s *Service) settle(ctx context.Context, wd *Withdrawal, transferCode string) error {
	tx, err := s.wallets.BeginTxx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	w, err := s.wallets.LockByUserID(ctx, tx, wd.UserID, s.currency)
	if err != nil {
		return err
	}

	won, err := s.repo.MarkCompleted(ctx, tx, wd.ID, transferCode)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}

	if _, err := s.wallets.MarkTransaction(ctx, tx, wd.TransactionID, wallet.TransactionStatusCompleted); err != nil {
		return err
	}

	if err := s.wallets.ApplyDelta(ctx, tx, w, wallet.Delta{
		Pending: wd.Amount.Neg(),
	}); err != nil {
		return err
	}

	feeTx := &wallet.Transaction{
		ID:          uuid.New(),
		WalletID:    w.ID,
		UserID:      wd.UserID,
		Amount:      wd.Fee,
		Type:        wallet.TransactionTypeWithdrawalFee,
		Status:      wallet.TransactionStatusCompleted,
		Description: "Withdrawal fee",
		Reference:   wd.Reference() + "_fee",
	}
	if err := s.wallets.InsertTransaction(ctx, tx, feeTx); err != nil {
		return err
	}

	if err := s.wallets.InsertLedgerEntry(ctx, tx, &wallet.LedgerEntry{
		ID:            uuid.New(),
		WalletID:      w.ID,
		UserID:        wd.UserID,
		EntryType:     wallet.EntryTypeDebit,
		Amount:        wd.NetAmount,
		BalanceAfter:  w.Balance,
		Reference:     wd.Reference(),
		TransactionID: wd.TransactionID,
		Context:       wallet.ContextWithdrawalSettle,
	}); err != nil {
		return err
	}

	if err := s.wallets.InsertLedgerEntry(ctx, tx, &wallet.LedgerEntry{
		ID:            uuid.New(),
		WalletID:      w.ID,
		UserID:        wd.UserID,
		EntryType:     wallet.EntryTypeDebit,
		Amount:        wd.Fee,
		BalanceAfter:  w.Balance,
		Reference:     feeTx.Reference,
		TransactionID: feeTx.ID,
		Context:       wallet.ContextWithdrawalFee,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, wd.UserID)

	log.Info().
		Str("withdrawal_id", wd.ID.String()).
		Str("user_id", wd.UserID.String()).
		Str("transfer_code", transferCode).
		Msg("withdrawal settled")
	return nil
}

// RefundStuck resolves a withdrawal the recovery sweep found stuck in
// processing. Same guarded refund as the inline failure path.
func (s *Service) RefundStuck(ctx context.Context, wd *Withdrawal) error {
	return s.refund(ctx, wd, "auto-refunded by recovery sweep: gateway outcome unknown")
}

// Get fetches one withdrawal owned by the user.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Withdrawal, error) {
	return s.repo.GetByIDForUser(ctx, id, userID)
}

// List returns a page of the user's withdrawals plus the total.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Withdrawal, int, error) {
	withdrawals, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return withdrawals, total, nil
}

// AddBankAccount saves a payout destination for the user.
func (s *Service) AddBankAccount(ctx context.Context, userID uuid.UUID, account *BankAccount) (*BankAccount, error) {
	account.ID = uuid.New()
	account.UserID = userID
	if err := s.banks.Insert(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// ListBankAccounts returns the user's saved destinations.
func (s *Service) ListBankAccounts(ctx context.Context, userID uuid.UUID) ([]BankAccount, error) {
	return s.banks.ListByUser(ctx, userID)
}

// DeleteBankAccount removes a saved destination owned by the user.
func (s *Service) DeleteBankAccount(ctx context.Context, userID, id uuid.UUID) error {
	return s.banks.Delete(ctx, id, userID)
}

func maskAccountNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return "****" + number[len(number)-4:]
}
