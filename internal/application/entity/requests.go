package entity

// CreatePaymentRequest is the command payload for placing a payment.
// Amounts come in as decimal strings ("12.50") and are validated against the
// custom rules registered in pkg/validator.
type CreatePaymentRequest struct {
	UserID         string `json:"userId" validate:"required,uuid4"`
	UserAccountID  string `json:"userAccountId" validate:"required,uuid4"`
	SourceCurrency string `json:"sourceCurrency" validate:"required,currency"`
	TargetCurrency string `json:"targetCurrency" validate:"required,currency"`
	SourceAmount   string `json:"sourceAmount" validate:"required,amount"`
	ExchangeRate   string `json:"exchangeRate" validate:"omitempty,amount"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,min=1,max=32"`
}
