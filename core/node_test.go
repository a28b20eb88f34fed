package core

import (
	"context"
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/chainhaul/settlementd/models"
	"github.com/chainhaul/settlementd/repo"
)

func newTestNode(t *testing.T) (*Node, func()) {
	t.Helper()

	dataDir, err := ioutil.TempDir("", "settlementd-node-test")
	if err != nil {
		t.Fatal(err)
	}
	cfg := &repo.Config{
		DataDir:             dataDir,
		EscrowAddress:       "escrow-addr",
		LocalParty:          "orchestrator",
		RemoteParty:         "carrier",
		ContestationPeriod:  60,
		FundingTarget:       1000,
		ChannelOpenTimeout:  time.Second * 2,
		PaymentTimeout:      time.Second * 2,
		ChannelCloseTimeout: time.Second * 2,
		FeePerByte:          1,
		FeeBase:             10,
		MinOutput:           1,
		MaxTxSize:           16384,
		MaxValueSize:        5000,
	}
	node, err := NewDevnetNode(cfg)
	if err != nil {
		t.Fatal(err)
	}
	teardown := func() {
		node.Stop()
		os.RemoveAll(dataDir)
	}
	return node, teardown
}

func TestNode_Settle(t *testing.T) {
	node, teardown := newTestNode(t)
	defer teardown()

	result, err := node.Settle(context.Background(), models.Invoice{
		ID:          "invoice-1",
		ShipmentID:  "shipment-1",
		ViolationID: "violation-1",
		Amount:      25,
		Recipient:   "carrier",
		Method:      models.PaymentMethodChannel,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.TxReference == "" {
		t.Fatal("Expected a transaction reference")
	}
	if result.DecisionLog.DecisionHash == "" {
		t.Fatal("Expected a decision hash")
	}
}

func TestNode_CloseChannel(t *testing.T) {
	node, teardown := newTestNode(t)
	defer teardown()

	result, err := node.Settle(context.Background(), models.Invoice{
		ID:          "invoice-1",
		ShipmentID:  "shipment-1",
		ViolationID: "violation-1",
		Amount:      25,
		Recipient:   "carrier",
		Method:      models.PaymentMethodChannel,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := node.CloseChannel(context.Background(), result.DecisionLog.ChannelID); err != nil {
		t.Fatal(err)
	}
}
