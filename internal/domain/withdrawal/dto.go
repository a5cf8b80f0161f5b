package withdrawal

// CreateWithdrawalRequest accepts either a saved bank account id or full
// inline bank details. Amounts come over the wire as strings to keep cents
// exact.
type CreateWithdrawalRequest struct {
	Amount        string  `json:"amount" validate:"required"`
	BankAccountID *string `json:"bank_account_id,omitempty" validate:"omitempty,uuid"`
	AccountName   string  `json:"account_name,omitempty" validate:"omitempty,min=2,max=100"`
	AccountNumber string  `json:"account_number,omitempty" validate:"omitempty,account_number"`
	BankName      string  `json:"bank_name,omitempty" validate:"omitempty,min=2,max=100"`
	BankCode      string  `json:"bank_code,omitempty" validate:"omitempty,bank_code"`
}

// CreateBankAccountRequest saves a payout destination.
type CreateBankAccountRequest struct {
	AccountName   string `json:"account_name" validate:"required,min=2,max=100"`
	AccountNumber string `json:"account_number" validate:"required,account_number"`
	BankName      string `json:"bank_name" validate:"required,min=2,max=100"`
	BankCode      string `json:"bank_code" validate:"required,bank_code"`
	IsDefault     bool   `json:"is_default"`
}
