package models

import "time"

// DecisionLog is the permanent record of a settled invoice. The
// decision hash is a commitment over the canonical serialization of
// the settlement fields and is what the on-chain escrow verifier
// re-derives and compares when funds are released.
type DecisionLog struct {
	ID           string `gorm:"primary_key" json:"id"`
	InvoiceID    string `gorm:"index" json:"invoiceID"`
	DecisionHash string `json:"decisionHash"`
	SignerKey    string `json:"signerKey"`

	// Embedded settlement details.
	ChannelID        string    `json:"channelID"`
	ChannelPaymentID string    `json:"channelPaymentID"`
	AmountSettled    int64     `json:"amountSettled"`
	SettledAt        time.Time `json:"settledAt"`

	// Evidence bundle linking back to the originating violation.
	ShipmentID   string `json:"shipmentID"`
	ViolationID  string `json:"violationID"`
	RuleID       string `json:"ruleID"`
	EvidenceHash string `json:"evidenceHash"`

	// Recipient is the identity authorized to release the escrowed
	// funds. It is committed to in the escrow datum.
	Recipient string `json:"recipient"`

	CreatedAt time.Time `json:"createdAt"`
}
