package settlement

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/chainhaul/settlementd/models"
	"github.com/google/uuid"
)

// canonicalDecision is the serialization the decision hash commits to.
// Field order is the lexicographic order of the json keys; changing it
// changes every hash.
type canonicalDecision struct {
	Amount           int64  `json:"amount"`
	ChannelPaymentID string `json:"channelPaymentId"`
	InvoiceID        string `json:"invoiceId"`
	ShipmentID       string `json:"shipmentId"`
	Timestamp        int64  `json:"timestamp"`
	ViolationID      string `json:"violationId"`
}

// DecisionHash computes the commitment the escrow verifier checks. The
// timestamp is committed as Unix nanoseconds so the hash is
// reproducible from the stored decision log.
func DecisionHash(amount int64, channelPaymentID, invoiceID, shipmentID string, timestamp time.Time, violationID string) (string, error) {
	ser, err := json.Marshal(canonicalDecision{
		Amount:           amount,
		ChannelPaymentID: channelPaymentID,
		InvoiceID:        invoiceID,
		ShipmentID:       shipmentID,
		Timestamp:        timestamp.UnixNano(),
		ViolationID:      violationID,
	})
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(ser)
	return hex.EncodeToString(digest[:]), nil
}

// BuildDecisionLog assembles the decision log for a settled invoice.
// For channel settlements payment carries the confirmed off-chain
// payment; direct settlements pass nil.
func BuildDecisionLog(invoice models.Invoice, payment *models.ChannelPayment, signerKey string, settledAt time.Time) (*models.DecisionLog, error) {
	var channelID, paymentID string
	if payment != nil {
		channelID = payment.ChannelID
		paymentID = payment.ID
	}
	hash, err := DecisionHash(invoice.Amount, paymentID, invoice.ID, invoice.ShipmentID, settledAt, invoice.ViolationID)
	if err != nil {
		return nil, err
	}
	return &models.DecisionLog{
		ID:               uuid.New().String(),
		InvoiceID:        invoice.ID,
		DecisionHash:     hash,
		SignerKey:        signerKey,
		ChannelID:        channelID,
		ChannelPaymentID: paymentID,
		AmountSettled:    invoice.Amount,
		SettledAt:        settledAt,
		ShipmentID:       invoice.ShipmentID,
		ViolationID:      invoice.ViolationID,
		RuleID:           invoice.RuleID,
		EvidenceHash:     invoice.EvidenceHash,
		Recipient:        invoice.Recipient,
	}, nil
}

// RecomputeHash re-derives the decision hash from a stored log. Used
// to audit that a log has not been altered since it was committed.
func RecomputeHash(log *models.DecisionLog) (string, error) {
	return DecisionHash(log.AmountSettled, log.ChannelPaymentID, log.InvoiceID, log.ShipmentID, log.SettledAt, log.ViolationID)
}
