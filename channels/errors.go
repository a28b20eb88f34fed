package channels

import (
	"fmt"
	"time"

	"github.com/chainhaul/settlementd/models"
)

// OpenTimeoutError is returned when the channel node does not report
// the head open within the configured bound. The channel is left in
// the failed state.
type OpenTimeoutError struct {
	ParticipantKey string
	Timeout        time.Duration
}

func (e *OpenTimeoutError) Error() string {
	return fmt.Sprintf("channel open timed out after %s for participants %s", e.Timeout, e.ParticipantKey)
}

// OpenRejectedError is returned when the channel node rejects the init
// command.
type OpenRejectedError struct {
	ParticipantKey string
	ClientError    string
}

func (e *OpenRejectedError) Error() string {
	return fmt.Sprintf("channel open rejected for participants %s: %s", e.ParticipantKey, e.ClientError)
}

// BusyError is returned when a lifecycle command is issued while
// another one is still in flight for the same channel identity.
// Concurrent lifecycle commands are rejected rather than queued to
// avoid ambiguous command ordering on the wire.
type BusyError struct {
	ChannelID string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("channel %s has a lifecycle command in flight", e.ChannelID)
}

// InvalidStateError is returned when an operation is attempted in a
// state that does not legally permit it. The operation has no side
// effects.
type InvalidStateError struct {
	ChannelID string
	State     models.ChannelState
	Op        string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s channel %s in state %s", e.Op, e.ChannelID, e.State)
}

// InsufficientBalanceError is returned when a payment exceeds the
// channel's available balance. Partial payments are never made.
type InsufficientBalanceError struct {
	ChannelID string
	InvoiceID string
	Balance   int64
	Required  int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("channel %s balance %d insufficient for invoice %s amount %d",
		e.ChannelID, e.Balance, e.InvoiceID, e.Required)
}

// PaymentTimeoutError is returned when no confirmation for an
// off-chain payment arrives within the configured bound. The
// optimistic balance decrement is reverted.
type PaymentTimeoutError struct {
	ChannelID string
	InvoiceID string
	PaymentID string
	Timeout   time.Duration
}

func (e *PaymentTimeoutError) Error() string {
	return fmt.Sprintf("payment %s for invoice %s on channel %s timed out after %s",
		e.PaymentID, e.InvoiceID, e.ChannelID, e.Timeout)
}

// PaymentRejectedError is returned when the counterparty explicitly
// rejects an off-chain payment. This implies a channel dispute and is
// never retried automatically.
type PaymentRejectedError struct {
	ChannelID string
	InvoiceID string
	PaymentID string
	Reason    string
}

func (e *PaymentRejectedError) Error() string {
	return fmt.Sprintf("payment %s for invoice %s on channel %s rejected: %s",
		e.PaymentID, e.InvoiceID, e.ChannelID, e.Reason)
}

// CloseTimeoutError is returned when the close or finalize
// notification does not arrive within the configured bound. If the
// head reached the closed state the channel is left there so the
// caller can retry finalization polling rather than losing the record.
type CloseTimeoutError struct {
	ChannelID string
	Phase     string
	Timeout   time.Duration
}

func (e *CloseTimeoutError) Error() string {
	return fmt.Sprintf("channel %s %s timed out after %s", e.ChannelID, e.Phase, e.Timeout)
}
