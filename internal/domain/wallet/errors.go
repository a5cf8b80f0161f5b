package wallet

import "errors"

var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInsufficientFunds      = errors.New("insufficient wallet balance")
	ErrWalletNotFound         = errors.New("wallet not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrDuplicateReference     = errors.New("duplicate reference")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrVerificationFailed     = errors.New("payment verification failed")
	ErrAmountMismatch         = errors.New("verified amount does not match expected amount")
	ErrRecordedAmountMismatch = errors.New("verified amount does not match recorded transaction amount")
	ErrGateway                = errors.New("payment gateway error")
)
