package events

import "time"

// ChannelOpened fires when a payment head reaches the open state.
type ChannelOpened struct {
	ChannelID      string `json:"channelID"`
	ParticipantKey string `json:"participantKey"`
	Balance        int64  `json:"balance"`
}

// ChannelClosed fires when the head's closing transaction is observed.
type ChannelClosed struct {
	ChannelID            string    `json:"channelID"`
	ContestationDeadline time.Time `json:"contestationDeadline"`
}

// ChannelFinalized fires once the head's settlement transaction has
// reached the base ledger.
type ChannelFinalized struct {
	ChannelID string `json:"channelID"`
}

// PaymentConfirmed fires when an off-chain payment is confirmed by
// the channel counterparty.
type PaymentConfirmed struct {
	PaymentID string `json:"paymentID"`
	ChannelID string `json:"channelID"`
	InvoiceID string `json:"invoiceID"`
	Amount    int64  `json:"amount"`
}

// DecisionRecorded fires when the decision log for a settled invoice
// has been built and persisted.
type DecisionRecorded struct {
	DecisionLogID string `json:"decisionLogID"`
	InvoiceID     string `json:"invoiceID"`
	DecisionHash  string `json:"decisionHash"`
}

// SettlementPublished fires when the on-chain settlement transaction
// has been accepted by the ledger.
type SettlementPublished struct {
	InvoiceID     string `json:"invoiceID"`
	DecisionLogID string `json:"decisionLogID"`
	TxReference   string `json:"txReference"`
}

// SettlementFailed fires when any step of the settlement pipeline
// fails. The step name identifies the failing component.
type SettlementFailed struct {
	InvoiceID string `json:"invoiceID"`
	Step      string `json:"step"`
	Reason    string `json:"reason"`
}
