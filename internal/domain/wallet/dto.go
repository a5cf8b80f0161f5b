package wallet

// Amounts travel as strings so client JSON never goes through float64.

type InitDepositRequest struct {
	Amount string `json:"amount" validate:"required"`
}

type VerifyDepositRequest struct {
	Reference      string `json:"reference" validate:"required,min=3,max=100"`
	ExpectedAmount string `json:"expected_amount,omitempty"`
}
