package models

import "time"

// SettlementState tracks how far an invoice has progressed through
// the settlement pipeline.
type SettlementState string

const (
	SettlementStatePending          SettlementState = "PENDING"
	SettlementStateChannelReady     SettlementState = "CHANNEL_READY"
	SettlementStatePaymentExecuted  SettlementState = "PAYMENT_EXECUTED"
	SettlementStateDecisionRecorded SettlementState = "DECISION_RECORDED"
	SettlementStatePublished        SettlementState = "PUBLISHED"
	SettlementStateCompleted        SettlementState = "COMPLETED"
	SettlementStateFailed           SettlementState = "FAILED"
)

// Settlement records the progress of one invoice through the
// orchestrator. An invoice is considered settled exactly once its
// settlement reaches the completed state.
type Settlement struct {
	InvoiceID     string          `gorm:"primary_key" json:"invoiceID"`
	State         SettlementState `json:"state"`
	FailureReason string          `json:"failureReason,omitempty"`
	DecisionLogID string          `json:"decisionLogID,omitempty"`
	TxReference   string          `json:"txReference,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
