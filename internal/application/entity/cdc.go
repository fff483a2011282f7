package entity

import (
	"encoding/json"
	"strings"
	"time"
)

type CDCOperation string

const (
	CDCCreate CDCOperation = "create"
	CDCUpdate CDCOperation = "update"
	CDCDelete CDCOperation = "delete"
)

const cdcTopicPrefix = "cdc."

// CDCTopic returns the broker topic for an entity type, e.g. "cdc.payment".
func CDCTopic(entityType string) string {
	return cdcTopicPrefix + strings.ToLower(entityType)
}

// CDCEnvelope is the wire contract between the write side and read-side
// projectors. A retried outbox message produces the envelope again, so
// consumers must tolerate duplicates.
type CDCEnvelope struct {
	EventID    string          `json:"eventId"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Operation  CDCOperation    `json:"operation"`
	Data       json.RawMessage `json:"data,omitempty"`
	OldData    json.RawMessage `json:"oldData,omitempty"`
	Version    int64           `json:"version"`
	Timestamp  time.Time       `json:"timestamp"`
	Source     string          `json:"source"`
}

// PaymentCDCData is the denormalized payment snapshot carried in a CDC
// envelope. Amounts are minor units.
type PaymentCDCData struct {
	PaymentID      string        `json:"paymentId"`
	UserID         string        `json:"userId"`
	UserAccountID  string        `json:"userAccountId"`
	SourceCurrency string        `json:"sourceCurrency"`
	TargetCurrency string        `json:"targetCurrency"`
	SourceAmount   int64         `json:"sourceAmount"`
	TargetAmount   int64         `json:"targetAmount"`
	ExchangeRate   string        `json:"exchangeRate"`
	Status         PaymentStatus `json:"status"`
	CreateDate     time.Time     `json:"createDate"`
	IsRemoved      bool          `json:"isRemoved"`
	IsEmailSent    bool          `json:"isEmailSent"`
	Version        int64         `json:"version"`
	CapturedAt     time.Time     `json:"capturedAt"`
}

// PaymentCDCDataFrom captures the aggregate state for the read side.
func PaymentCDCDataFrom(p *Payment) PaymentCDCData {
	return PaymentCDCData{
		PaymentID:      p.PaymentID.String(),
		UserID:         p.UserID.String(),
		UserAccountID:  p.UserAccountID.String(),
		SourceCurrency: p.SourceCurrency,
		TargetCurrency: p.TargetCurrency,
		SourceAmount:   p.SourceAmount,
		TargetAmount:   p.TargetAmount,
		ExchangeRate:   p.ExchangeRate,
		Status:         p.Status,
		CreateDate:     p.CreateDate,
		IsRemoved:      p.IsRemoved,
		IsEmailSent:    p.IsEmailSent,
		Version:        p.Version(),
		CapturedAt:     time.Now().UTC(),
	}
}
