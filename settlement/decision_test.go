package settlement

import (
	"testing"
	"time"

	"github.com/chainhaul/settlementd/models"
)

func TestDecisionHash_Deterministic(t *testing.T) {
	ts := time.Unix(1700000000, 12345)

	first, err := DecisionHash(25, "p1", "i1", "s1", ts, "v1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := DecisionHash(25, "p1", "i1", "s1", ts, "v1")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("Expected identical inputs to hash identically")
	}
	if len(first) != 64 {
		t.Errorf("Expected a hex sha256 digest, got %q", first)
	}
}

func TestDecisionHash_FieldSensitivity(t *testing.T) {
	ts := time.Unix(1700000000, 12345)

	base, err := DecisionHash(25, "p1", "i1", "s1", ts, "v1")
	if err != nil {
		t.Fatal(err)
	}

	variants := map[string]func() (string, error){
		"amount":           func() (string, error) { return DecisionHash(26, "p1", "i1", "s1", ts, "v1") },
		"channelPaymentId": func() (string, error) { return DecisionHash(25, "p2", "i1", "s1", ts, "v1") },
		"invoiceId":        func() (string, error) { return DecisionHash(25, "p1", "i2", "s1", ts, "v1") },
		"shipmentId":       func() (string, error) { return DecisionHash(25, "p1", "i1", "s2", ts, "v1") },
		"timestamp":        func() (string, error) { return DecisionHash(25, "p1", "i1", "s1", ts.Add(time.Nanosecond), "v1") },
		"violationId":      func() (string, error) { return DecisionHash(25, "p1", "i1", "s1", ts, "v2") },
	}
	for field, variant := range variants {
		hash, err := variant()
		if err != nil {
			t.Fatal(err)
		}
		if hash == base {
			t.Errorf("Expected changing %s to change the hash", field)
		}
	}
}

func TestBuildDecisionLog(t *testing.T) {
	invoice := models.Invoice{
		ID:           "i1",
		ShipmentID:   "s1",
		ViolationID:  "v1",
		RuleID:       "r1",
		EvidenceHash: "ev1",
		Amount:       25,
		Recipient:    "carrier",
	}
	payment := &models.ChannelPayment{
		ID:        "p1",
		ChannelID: "c1",
	}
	ts := time.Unix(1700000000, 12345)

	decisionLog, err := BuildDecisionLog(invoice, payment, "02abcdef", ts)
	if err != nil {
		t.Fatal(err)
	}
	if decisionLog.ID == "" {
		t.Error("Expected a generated id")
	}
	if decisionLog.ChannelID != "c1" || decisionLog.ChannelPaymentID != "p1" {
		t.Error("Expected the payment linkage on the log")
	}
	if decisionLog.RuleID != "r1" || decisionLog.EvidenceHash != "ev1" {
		t.Error("Expected the evidence bundle on the log")
	}

	recomputed, err := RecomputeHash(decisionLog)
	if err != nil {
		t.Fatal(err)
	}
	if recomputed != decisionLog.DecisionHash {
		t.Error("Expected the stored hash to be reproducible from the log")
	}
}

func TestBuildDecisionLog_Direct(t *testing.T) {
	invoice := models.Invoice{
		ID:          "i1",
		ShipmentID:  "s1",
		ViolationID: "v1",
		Amount:      25,
		Recipient:   "carrier",
	}

	decisionLog, err := BuildDecisionLog(invoice, nil, "02abcdef", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if decisionLog.ChannelID != "" || decisionLog.ChannelPaymentID != "" {
		t.Error("Expected no payment linkage for a direct settlement")
	}
}
