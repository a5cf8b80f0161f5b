package wallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/spotlyte/spotlyte-api/internal/pkg/money"
)

// AccountInfo is the slice of a platform account the wallet core needs.
type AccountInfo struct {
	ID    uuid.UUID
	Email string
}

// UserDirectory resolves wallet owners. Accounts live in the identity
// service; main wires an adapter over its repository.
type UserDirectory interface {
	Lookup(ctx context.Context, id uuid.UUID) (*AccountInfo, error)
}

// GatewayInit is the gateway's answer to a deposit initialization.
type GatewayInit struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// GatewayVerification is the gateway's view of a transaction. AmountMinor is
// in the gateway's minor-unit convention and converted at this boundary only.
type GatewayVerification struct {
	Success     bool
	AmountMinor int64
	Currency    string
}

// Gateway is the slice of the payment gateway the deposit flow needs.
type Gateway interface {
	Initialize(ctx context.Context, email string, amountMinor int64, reference, callbackURL string, metadata map[string]string) (*GatewayInit, error)
	Verify(ctx context.Context, reference string) (*GatewayVerification, error)
}

// DepositIntent is returned from deposit initialization: the caller redirects
// the payer to AuthorizationURL and later verifies Reference.
type DepositIntent struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

type Service struct {
	repo        *Repository
	users       UserDirectory
	gateway     Gateway
	cache       *BalanceCache
	currency    string
	callbackURL string
}

func NewService(repo *Repository, users UserDirectory, gateway Gateway, cache *BalanceCache, currency, callbackURL string) *Service {
	return &Service{
		repo:        repo,
		users:       users,
		gateway:     gateway,
		cache:       cache,
		currency:    currency,
		callbackURL: callbackURL,
	}
}

// GetOrCreate returns the user's wallet, creating a zero-balance one on
// first use. The owner must exist.
func (s *Service) GetOrCreate(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	if cached := s.cache.Get(ctx, userID); cached != nil {
		return cached, nil
	}

	if _, err := s.users.Lookup(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.repo.Ensure(ctx, userID, s.currency); err != nil {
		return nil, err
	}
	w, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, w)
	return w, nil
}

// InitDeposit records a pending deposit transaction and asks the gateway for
// an authorization URL. No funds move until the deposit is verified.
func (s *Service) InitDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*DepositIntent, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amount = money.Round2(amount)

	account, err := s.users.Lookup(ctx, userID)
	if err != nil {
		return nil, err
	}

	w, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	reference := newDepositReference()
	pending := &Transaction{
		ID:          uuid.New(),
		WalletID:    w.ID,
		UserID:      userID,
		Amount:      amount,
		Type:        TransactionTypeDeposit,
		Status:      TransactionStatusPending,
		Description: "Wallet deposit",
		Reference:   reference,
	}
	if err := s.repo.InsertTransactionDirect(ctx, pending); err != nil {
		return nil, err
	}

	init, err := s.gateway.Initialize(ctx, account.Email, money.ToMinorUnits(amount), reference, s.callbackURL, map[string]string{
		"user_id":        userID.String(),
		"transaction_id": pending.ID.String(),
	})
	if err != nil {
		if markErr := s.repo.MarkTransactionFailedDirect(ctx, pending.ID); markErr != nil {
			log.Error().Err(markErr).Str("reference", reference).Msg("failed to mark deposit transaction failed after gateway error")
		}
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("reference", reference).
		Str("amount", amount.String()).
		Msg("deposit initialized")

	return &DepositIntent{
		Reference:        reference,
		AuthorizationURL: init.AuthorizationURL,
		AccessCode:       init.AccessCode,
	}, nil
}

// VerifyDeposit confirms a gateway reference and credits the wallet. When a
// pending transaction matches the reference it is completed; otherwise a
// completed transaction is created to absorb out-of-band gateway callbacks.
// Wallet update, transaction status and ledger entry commit as one unit.
// A reference that was already credited resolves as an idempotent success.
func (s *Service) VerifyDeposit(ctx context.Context, userID uuid.UUID, reference string, expected *decimal.Decimal) (*Wallet, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, ErrInvalidAmount
	}

	verification, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if !verification.Success {
		return nil, ErrVerificationFailed
	}
	if expected != nil && money.ToMinorUnits(*expected) != verification.AmountMinor {
		return nil, ErrAmountMismatch
	}

	amount := money.FromMinorUnits(verification.AmountMinor)

	tx, err := s.repo.BeginTxx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := s.repo.LockByUserID(ctx, tx, userID, s.currency)
	if err != nil {
		return nil, err
	}

	pending, err := s.repo.GetPendingByReference(ctx, tx, userID, TransactionTypeDeposit, reference)
	if err != nil {
		return nil, err
	}

	var creditTx *Transaction
	if pending != nil {
		if money.ToMinorUnits(pending.Amount) != verification.AmountMinor {
			return nil, ErrRecordedAmountMismatch
		}
		if ok, err := s.repo.MarkTransaction(ctx, tx, pending.ID, TransactionStatusCompleted); err != nil {
			return nil, err
		} else if !ok {
			// Resolved by a concurrent verification after we read it.
			return s.repo.GetByUserID(ctx, userID)
		}
		creditTx = pending
	} else {
		creditTx = &Transaction{
			ID:          uuid.New(),
			WalletID:    w.ID,
			UserID:      userID,
			Amount:      amount,
			Type:        TransactionTypeDeposit,
			Status:      TransactionStatusCompleted,
			Description: "Wallet deposit (gateway callback)",
			Reference:   reference,
		}
		if err := s.repo.InsertTransaction(ctx, tx, creditTx); err != nil {
			if err == ErrDuplicateReference {
				// Reference already credited through the expected path.
				return s.repo.GetByUserID(ctx, userID)
			}
			return nil, err
		}
	}

	if err := s.repo.ApplyDelta(ctx, tx, w, Delta{Balance: amount, Deposited: amount}); err != nil {
		return nil, err
	}

	if err := s.repo.InsertLedgerEntry(ctx, tx, &LedgerEntry{
		ID:            uuid.New(),
		WalletID:      w.ID,
		UserID:        userID,
		EntryType:     EntryTypeCredit,
		Amount:        amount,
		BalanceAfter:  w.Balance,
		Reference:     reference,
		TransactionID: creditTx.ID,
		Context:       ContextDeposit,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, userID)

	log.Info().
		Str("user_id", userID.String()).
		Str("reference", reference).
		Str("amount", amount.String()).
		Bool("fallback", pending == nil).
		Msg("deposit credited")

	return w, nil
}

// CreditPrize pays contest prize money into a creator's wallet. Reference is
// the prize identifier; a replay of the same reference credits nothing.
func (s *Service) CreditPrize(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reference, description string) (*Wallet, error) {
	if !amount.IsPositive() || strings.TrimSpace(reference) == "" {
		return nil, ErrInvalidAmount
	}
	amount = money.Round2(amount)

	w, err := s.credit(ctx, userID, amount, TransactionTypeContestPrize, ContextPrize, reference, description)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("reference", reference).
		Str("amount", amount.String()).
		Msg("contest prize credited")
	return w, nil
}

// Charge debits a wallet for a platform operation (contest creation, boost,
// platform fee). Reference-idempotent like every other mutation.
func (s *Service) Charge(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txType TransactionType, reference, description string) (*Wallet, error) {
	if !amount.IsPositive() || strings.TrimSpace(reference) == "" {
		return nil, ErrInvalidAmount
	}
	ledgerCtx, ok := chargeContexts[txType]
	if !ok {
		return nil, fmt.Errorf("transaction type %q is not chargeable", txType)
	}
	amount = money.Round2(amount)

	tx, err := s.repo.BeginTxx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := s.repo.LockByUserID(ctx, tx, userID, s.currency)
	if err != nil {
		return nil, err
	}

	t := &Transaction{
		ID:          uuid.New(),
		WalletID:    w.ID,
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		Status:      TransactionStatusCompleted,
		Description: description,
		Reference:   reference,
	}
	if err := s.repo.InsertTransaction(ctx, tx, t); err != nil {
		if err == ErrDuplicateReference {
			return s.repo.GetByUserID(ctx, userID)
		}
		return nil, err
	}

	if err := s.repo.ApplyDelta(ctx, tx, w, Delta{Balance: amount.Neg()}); err != nil {
		return nil, err
	}

	if err := s.repo.InsertLedgerEntry(ctx, tx, &LedgerEntry{
		ID:            uuid.New(),
		WalletID:      w.ID,
		UserID:        userID,
		EntryType:     EntryTypeDebit,
		Amount:        amount,
		BalanceAfter:  w.Balance,
		Reference:     reference,
		TransactionID: t.ID,
		Context:       ledgerCtx,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, userID)

	log.Info().
		Str("user_id", userID.String()).
		Str("type", string(txType)).
		Str("reference", reference).
		Str("amount", amount.String()).
		Msg("wallet charged")
	return w, nil
}

var chargeContexts = map[TransactionType]LedgerContext{
	TransactionTypeContestCreation: ContextContestCreation,
	TransactionTypeContestBoost:    ContextContestBoost,
	TransactionTypePlatformFee:     ContextPlatformFee,
}

func (s *Service) credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txType TransactionType, ledgerCtx LedgerContext, reference, description string) (*Wallet, error) {
	tx, err := s.repo.BeginTxx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := s.repo.LockByUserID(ctx, tx, userID, s.currency)
	if err != nil {
		return nil, err
	}

	t := &Transaction{
		ID:          uuid.New(),
		WalletID:    w.ID,
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		Status:      TransactionStatusCompleted,
		Description: description,
		Reference:   reference,
	}
	if err := s.repo.InsertTransaction(ctx, tx, t); err != nil {
		if err == ErrDuplicateReference {
			return s.repo.GetByUserID(ctx, userID)
		}
		return nil, err
	}

	delta := Delta{Balance: amount}
	if txType == TransactionTypeContestPrize {
		delta.Earned = amount
	}
	if err := s.repo.ApplyDelta(ctx, tx, w, delta); err != nil {
		return nil, err
	}

	if err := s.repo.InsertLedgerEntry(ctx, tx, &LedgerEntry{
		ID:            uuid.New(),
		WalletID:      w.ID,
		UserID:        userID,
		EntryType:     EntryTypeCredit,
		Amount:        amount,
		BalanceAfter:  w.Balance,
		Reference:     reference,
		TransactionID: t.ID,
		Context:       ledgerCtx,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, userID)
	return w, nil
}

// ListTransactions returns a page of the user's transactions plus the total.
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, int, error) {
	transactions, err := s.repo.ListTransactions(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountTransactions(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

// ListLedger returns a page of the wallet's ledger in creation order.
func (s *Service) ListLedger(ctx context.Context, userID uuid.UUID, limit, offset int) ([]LedgerEntry, error) {
	w, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListLedger(ctx, w.ID, limit, offset)
}

// ReconcileReport compares the stored balances against a full ledger replay.
type ReconcileReport struct {
	WalletID        uuid.UUID       `json:"wallet_id"`
	Balance         decimal.Decimal `json:"balance"`
	PendingBalance  decimal.Decimal `json:"pending_balance"`
	LedgerBalance   decimal.Decimal `json:"ledger_balance"`
	LedgerPending   decimal.Decimal `json:"ledger_pending"`
	Consistent      bool            `json:"consistent"`
}

// Reconcile replays the ledger and reports drift against the stored wallet.
func (s *Service) Reconcile(ctx context.Context, userID uuid.UUID) (*ReconcileReport, error) {
	w, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	balance, pending, err := s.repo.Reconcile(ctx, w.ID)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{
		WalletID:       w.ID,
		Balance:        w.Balance,
		PendingBalance: w.PendingBalance,
		LedgerBalance:  balance,
		LedgerPending:  pending,
		Consistent:     w.Balance.Equal(balance) && w.PendingBalance.Equal(pending),
	}
	if !report.Consistent {
		log.Error().
			Str("wallet_id", w.ID.String()).
			Str("balance", w.Balance.String()).
			Str("ledger_balance", balance.String()).
			Str("pending", w.PendingBalance.String()).
			Str("ledger_pending", pending.String()).
			Msg("wallet drifted from ledger")
	}
	return report, nil
}

func newDepositReference() string {
	return "dep_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}
