package models

import (
	"time"
)

// ChannelState is the lifecycle state of a payment head.
type ChannelState string

const (
	ChannelStateIdle         ChannelState = "IDLE"
	ChannelStateInitializing ChannelState = "INITIALIZING"
	ChannelStateOpen         ChannelState = "OPEN"
	ChannelStateClosed       ChannelState = "CLOSED"
	ChannelStateFinal        ChannelState = "FINAL"
	ChannelStateFailed       ChannelState = "FAILED"
)

// Terminal returns true if no further transitions are possible
// out of this state.
func (s ChannelState) Terminal() bool {
	return s == ChannelStateFinal || s == ChannelStateFailed
}

// Channel is a two-party payment head. Many off-chain payments may be
// executed inside an open channel before it is closed and finalized
// with a single on-chain settlement transaction.
type Channel struct {
	ID             string       `gorm:"primary_key" json:"id"`
	HeadID         string       `gorm:"index" json:"headID"`
	ParticipantKey string       `gorm:"index" json:"participantKey"`
	LocalParty     string       `json:"localParty"`
	RemoteParty    string       `json:"remoteParty"`
	State          ChannelState `json:"state"`
	Balance        int64        `json:"balance"`

	Payments []ChannelPayment `gorm:"foreignkey:ChannelID" json:"payments,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PaymentStatus is the status of a single off-chain payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// ChannelPayment is a single off-chain transfer executed inside a
// channel. The purpose string embeds the id of the invoice it settles.
type ChannelPayment struct {
	ID        string        `gorm:"primary_key" json:"id"`
	ChannelID string        `gorm:"index" json:"channelID"`
	InvoiceID string        `gorm:"index" json:"invoiceID"`
	Sender    string        `json:"sender"`
	Recipient string        `json:"recipient"`
	Amount    int64         `json:"amount"`
	Purpose   string        `json:"purpose"`
	Status    PaymentStatus `json:"status"`

	CreatedAt   time.Time  `json:"createdAt"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
}
