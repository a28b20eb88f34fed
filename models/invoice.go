package models

import "time"

// PaymentMethod selects how an invoice is settled. Channel-based
// invoices run through the full head pipeline while direct invoices
// are paid with a single on-chain transaction.
type PaymentMethod string

const (
	PaymentMethodChannel PaymentMethod = "CHANNEL"
	PaymentMethodDirect  PaymentMethod = "DIRECT"
)

// Invoice is a monetary penalty owed for a logistics-compliance
// violation. Invoices are created by the rules engine and passed into
// the orchestrator by value. They are immutable once created.
type Invoice struct {
	ID           string        `gorm:"primary_key" json:"id"`
	ShipmentID   string        `json:"shipmentID"`
	ViolationID  string        `json:"violationID"`
	RuleID       string        `json:"ruleID"`
	EvidenceHash string        `json:"evidenceHash"`
	Amount       int64         `json:"amount"`
	Recipient    string        `json:"recipient"`
	Description  string        `json:"description"`
	Method       PaymentMethod `json:"method"`
	CreatedAt    time.Time     `json:"createdAt"`
}
