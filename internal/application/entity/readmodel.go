package entity

import "time"

// PaymentReadModel is the denormalized query-side record, owned exclusively
// by the projector. Overwritten wholesale on create/update, removed on delete.
type PaymentReadModel struct {
	PaymentID         string        `json:"paymentId"`
	UserID            string        `json:"userId"`
	UserAccountID     string        `json:"userAccountId"`
	SourceCurrency    string        `json:"sourceCurrency"`
	TargetCurrency    string        `json:"targetCurrency"`
	SourceAmount      int64         `json:"sourceAmount"`
	TargetAmount      int64         `json:"targetAmount"`
	ExchangeRate      string        `json:"exchangeRate"`
	Status            PaymentStatus `json:"status"`
	StatusDescription string        `json:"statusDescription"`
	CreateDate        time.Time     `json:"createDate"`
	IsRemoved         bool          `json:"isRemoved"`
	IsEmailSent       bool          `json:"isEmailSent"`
	Version           int64         `json:"version"`
	LastModifiedDate  time.Time     `json:"lastModifiedDate"`
}

// StatusDescription is the human readable form of a payment status shown on
// the read side.
func StatusDescription(status PaymentStatus) string {
	switch status {
	case StatusToPay:
		return "Payment created and waiting to be processed"
	case StatusProcessing:
		return "Payment is being processed"
	case StatusCompleted:
		return "Payment completed successfully"
	case StatusFailed:
		return "Payment failed"
	case StatusCancelled:
		return "Payment was cancelled"
	default:
		return "Unknown status"
	}
}
