package withdrawal

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrAmountTooSmall      = errors.New("amount does not cover the withdrawal fee")
	ErrInvalidBankDetails  = errors.New("provide either a saved bank account or inline bank details, not both")
	ErrBankAccountNotFound = errors.New("bank account not found")
	ErrWithdrawalNotFound  = errors.New("withdrawal not found")
	ErrTransferFailed      = errors.New("bank transfer failed")
)
