package wallet

import (
	"context"
	"errors"
	"testing"
)

func newTestPublisher(t *testing.T) (*Publisher, *MockLedger) {
	t.Helper()

	keychain, err := NewKeychain(testMnemonic)
	if err != nil {
		t.Fatal(err)
	}
	ledger := NewMockLedger()
	publisher := NewPublisher(keychain, testBuilder(), ledger)
	return publisher, ledger
}

func TestPublisher_PublishFunding(t *testing.T) {
	publisher, ledger := newTestPublisher(t)
	ledger.GenerateToAddress(publisher.Address(), 10000)

	txid, escrow, err := publisher.PublishFunding(context.Background(), "escrow-addr", 2000, "decision-hash", "carrier")
	if err != nil {
		t.Fatal(err)
	}
	if txid == "" {
		t.Fatal("Expected a transaction reference")
	}
	if escrow.TxID != txid || escrow.Amount != 2000 {
		t.Errorf("Expected escrow output of 2000 on %s, got %d on %s", txid, escrow.Amount, escrow.TxID)
	}

	utxos, err := ledger.GetUnspentOutputs(context.Background(), "escrow-addr")
	if err != nil {
		t.Fatal(err)
	}
	if len(utxos) != 1 || utxos[0].Amount != 2000 {
		t.Fatal("Expected the escrow output on the ledger")
	}

	change, err := ledger.GetUnspentOutputs(context.Background(), publisher.Address())
	if err != nil {
		t.Fatal(err)
	}
	if len(change) != 1 {
		t.Fatalf("Expected a single change output, got %d", len(change))
	}
	submitted := ledger.Submitted()
	if len(submitted) != 1 {
		t.Fatalf("Expected 1 submitted transaction, got %d", len(submitted))
	}
	if change[0].Amount+2000+submitted[0].Draft.Fee != 10000 {
		t.Errorf("Expected value conservation, change %d fee %d", change[0].Amount, submitted[0].Draft.Fee)
	}
}

func TestPublisher_PublishRelease(t *testing.T) {
	publisher, ledger := newTestPublisher(t)
	ledger.GenerateToAddress(publisher.Address(), 10000)

	_, escrow, err := publisher.PublishFunding(context.Background(), "escrow-addr", 2000, "decision-hash", "carrier")
	if err != nil {
		t.Fatal(err)
	}

	txid, err := publisher.PublishRelease(context.Background(), *escrow, "carrier", "decision-hash")
	if err != nil {
		t.Fatal(err)
	}
	if txid == "" {
		t.Fatal("Expected a transaction reference")
	}

	utxos, err := ledger.GetUnspentOutputs(context.Background(), "carrier")
	if err != nil {
		t.Fatal(err)
	}
	if len(utxos) != 1 {
		t.Fatalf("Expected 1 output at the recipient, got %d", len(utxos))
	}

	escrowed, err := ledger.GetUnspentOutputs(context.Background(), "escrow-addr")
	if err != nil {
		t.Fatal(err)
	}
	if len(escrowed) != 0 {
		t.Error("Expected the escrow output to be spent")
	}
}

func TestPublisher_ReleaseWrongHash(t *testing.T) {
	publisher, ledger := newTestPublisher(t)
	ledger.GenerateToAddress(publisher.Address(), 10000)

	_, escrow, err := publisher.PublishFunding(context.Background(), "escrow-addr", 2000, "decision-hash", "carrier")
	if err != nil {
		t.Fatal(err)
	}

	_, err = publisher.PublishRelease(context.Background(), *escrow, "carrier", "wrong-hash")
	if _, ok := err.(*SubmissionError); !ok {
		t.Fatalf("Expected SubmissionError for a mismatched decision hash, got %v", err)
	}
}

func TestPublisher_ReleaseWrongRecipient(t *testing.T) {
	publisher, ledger := newTestPublisher(t)
	ledger.GenerateToAddress(publisher.Address(), 10000)

	_, escrow, err := publisher.PublishFunding(context.Background(), "escrow-addr", 2000, "decision-hash", "carrier")
	if err != nil {
		t.Fatal(err)
	}

	_, err = publisher.PublishRelease(context.Background(), *escrow, "someone-else", "decision-hash")
	if _, ok := err.(*SubmissionError); !ok {
		t.Fatalf("Expected SubmissionError for the wrong recipient, got %v", err)
	}
}

func TestPublisher_InsufficientFunds(t *testing.T) {
	publisher, ledger := newTestPublisher(t)
	ledger.GenerateToAddress(publisher.Address(), 100)

	_, _, err := publisher.PublishFunding(context.Background(), "escrow-addr", 2000, "decision-hash", "carrier")
	if _, ok := err.(*InsufficientFundsError); !ok {
		t.Fatalf("Expected InsufficientFundsError, got %v", err)
	}
}

func TestPublisher_ConcurrentPublishes(t *testing.T) {
	publisher, ledger := newTestPublisher(t)
	ledger.GenerateToAddress(publisher.Address(), 10000)

	// Two publishes racing for the wallet's single output. The
	// reservation set must keep them from spending the same outpoint;
	// the loser either fails selection or spends the change of the
	// winner, depending on timing.
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, _, err := publisher.PublishFunding(context.Background(), "escrow-addr", 2000, "decision-hash", "carrier")
			results <- err
		}()
	}

	var successes int
	for i := 0; i < 2; i++ {
		err := <-results
		if err == nil {
			successes++
			continue
		}
		if _, ok := err.(*InsufficientFundsError); !ok {
			t.Fatalf("Expected InsufficientFundsError, got %v", err)
		}
	}
	if successes == 0 {
		t.Fatal("Expected at least one publish to succeed")
	}

	spent := make(map[string]bool)
	for _, tx := range ledger.Submitted() {
		for _, in := range tx.Draft.Inputs {
			if spent[in.Outpoint()] {
				t.Fatalf("Outpoint %s spent by two transactions", in.Outpoint())
			}
			spent[in.Outpoint()] = true
		}
	}
}

func TestPublisher_SubmitFailureReleasesReservation(t *testing.T) {
	publisher, ledger := newTestPublisher(t)
	ledger.GenerateToAddress(publisher.Address(), 10000)

	ledger.FailNextSubmit(errors.New("mempool full"))
	_, _, err := publisher.PublishFunding(context.Background(), "escrow-addr", 2000, "decision-hash", "carrier")
	submission, ok := err.(*SubmissionError)
	if !ok {
		t.Fatalf("Expected SubmissionError, got %v", err)
	}
	if submission.Unwrap() == nil {
		t.Error("Expected the underlying cause to be preserved")
	}

	// The failed publish must not leave its inputs reserved.
	_, _, err = publisher.PublishFunding(context.Background(), "escrow-addr", 2000, "decision-hash", "carrier")
	if err != nil {
		t.Fatalf("Expected a retry to succeed once the reservation is released, got %v", err)
	}
}
