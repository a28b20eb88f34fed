package wallet

import (
	"context"
	"sync"

	"github.com/chainhaul/settlementd/models"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("WALT")

// Publisher selects inputs, assembles settlement transactions and
// submits them to the ledger. Inputs picked for an in-flight publish
// are reserved so concurrent publishes never build over the same
// outputs; reservations are released when the publish returns.
type Publisher struct {
	keychain *Keychain
	builder  *Builder
	ledger   LedgerClient

	mtx      sync.Mutex
	reserved map[string]bool
}

// NewPublisher returns a publisher drawing funds from the keychain's
// address.
func NewPublisher(keychain *Keychain, builder *Builder, ledger LedgerClient) *Publisher {
	return &Publisher{
		keychain: keychain,
		builder:  builder,
		ledger:   ledger,
		reserved: make(map[string]bool),
	}
}

// Address returns the funding address the publisher spends from.
func (p *Publisher) Address() string {
	return p.keychain.Address()
}

// KeyRef returns the signer key reference used in redeemers.
func (p *Publisher) KeyRef() string {
	return p.keychain.KeyRef()
}

// PublishFunding builds, signs and submits a transaction locking
// amount at escrowAddress under a datum committing to decisionHash and
// recipient. It returns the transaction reference and the escrow
// output it created.
func (p *Publisher) PublishFunding(ctx context.Context, escrowAddress string, amount int64, decisionHash, recipient string) (string, *models.UnspentOutput, error) {
	available, err := p.ledger.GetUnspentOutputs(ctx, p.keychain.Address())
	if err != nil {
		return "", nil, err
	}

	selection, err := p.reserve(available, amount)
	if err != nil {
		return "", nil, err
	}
	defer p.release(selection.Inputs)

	datum := &models.DatumCommitment{
		ExpectedDecisionHash: decisionHash,
		Recipient:            recipient,
	}
	draft, err := p.builder.Build(selection.Inputs, escrowAddress, amount, p.keychain.Address(), datum)
	if err != nil {
		return "", nil, err
	}

	txid, err := p.signAndSubmit(ctx, draft)
	if err != nil {
		return "", nil, err
	}
	log.Infof("Published funding transaction %s locking %d at %s", txid, amount, escrowAddress)

	escrow := &models.UnspentOutput{
		TxID:    txid,
		Index:   0,
		Address: escrowAddress,
		Amount:  amount,
	}
	return txid, escrow, nil
}

// PublishRelease builds, signs and submits a transaction spending the
// escrow output to destination with a redeemer carrying decisionHash
// and the publisher's signer key.
func (p *Publisher) PublishRelease(ctx context.Context, escrow models.UnspentOutput, destination, decisionHash string) (string, error) {
	redeemer := models.Redeemer{
		DecisionHash: decisionHash,
		SignerKey:    p.keychain.KeyRef(),
	}
	draft, err := p.builder.BuildSpend(escrow, destination, redeemer)
	if err != nil {
		return "", err
	}

	txid, err := p.signAndSubmit(ctx, draft)
	if err != nil {
		return "", err
	}
	log.Infof("Published release transaction %s spending %s to %s", txid, escrow.Outpoint(), destination)
	return txid, nil
}

// reserve filters out the outputs held by other in-flight publishes,
// selects inputs for the spend and marks them reserved. The whole
// sequence runs under the lock so two publishes cannot pick the same
// output.
func (p *Publisher) reserve(available []models.UnspentOutput, amount int64) (*Selection, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	free := make([]models.UnspentOutput, 0, len(available))
	for _, utxo := range available {
		if !p.reserved[utxo.Outpoint()] {
			free = append(free, utxo)
		}
	}

	estimatedFee := p.builder.EstimateFee(len(free), 2)
	selection, err := Select(free, amount, estimatedFee, p.builder.MinOutput())
	if err != nil {
		return nil, err
	}
	for _, utxo := range selection.Inputs {
		p.reserved[utxo.Outpoint()] = true
	}
	return selection, nil
}

func (p *Publisher) release(inputs []models.UnspentOutput) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	for _, utxo := range inputs {
		delete(p.reserved, utxo.Outpoint())
	}
}

func (p *Publisher) signAndSubmit(ctx context.Context, draft *models.TransactionDraft) (string, error) {
	ser, err := draft.Serialize()
	if err != nil {
		return "", err
	}
	sig, err := p.keychain.Sign(ser)
	if err != nil {
		return "", err
	}
	signed := models.SignedTransaction{
		Draft: *draft,
		Witnesses: []models.Witness{
			{
				PubKey:    p.keychain.KeyRef(),
				Signature: sig,
			},
		},
	}
	raw, err := signed.Serialize()
	if err != nil {
		return "", err
	}
	txid, err := p.ledger.SubmitTransaction(ctx, raw)
	if err != nil {
		return "", &SubmissionError{Err: err}
	}
	return txid, nil
}
