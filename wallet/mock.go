package wallet

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/chainhaul/settlementd/models"
)

// MockLedger is an in-memory ledger used by the tests and the devnet
// command. It maintains a utxo set, applies submitted transactions and
// enforces the escrow predicate on datum-locked outputs.
type MockLedger struct {
	mtx        sync.Mutex
	utxos      map[string]models.UnspentOutput
	datums     map[string]*models.DatumCommitment
	submitted  []models.SignedTransaction
	failSubmit error
}

// NewMockLedger returns an empty mock ledger.
func NewMockLedger() *MockLedger {
	return &MockLedger{
		utxos:  make(map[string]models.UnspentOutput),
		datums: make(map[string]*models.DatumCommitment),
	}
}

// GenerateToAddress credits address with a fresh output of the given
// amount, like a coinbase.
func (m *MockLedger) GenerateToAddress(address string, amount int64) models.UnspentOutput {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	r := make([]byte, 32)
	rand.Read(r)
	utxo := models.UnspentOutput{
		TxID:    hex.EncodeToString(r),
		Index:   0,
		Address: address,
		Amount:  amount,
	}
	m.utxos[utxo.Outpoint()] = utxo
	return utxo
}

// FailNextSubmit makes the next SubmitTransaction call return err.
func (m *MockLedger) FailNextSubmit(err error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.failSubmit = err
}

// Submitted returns the transactions accepted so far.
func (m *MockLedger) Submitted() []models.SignedTransaction {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return append([]models.SignedTransaction{}, m.submitted...)
}

// GetUnspentOutputs returns the outputs at address in a deterministic
// order.
func (m *MockLedger) GetUnspentOutputs(ctx context.Context, address string) ([]models.UnspentOutput, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	var utxos []models.UnspentOutput
	for _, utxo := range m.utxos {
		if utxo.Address == address {
			utxos = append(utxos, utxo)
		}
	}
	sort.Slice(utxos, func(i, j int) bool {
		return utxos[i].Outpoint() < utxos[j].Outpoint()
	})
	return utxos, nil
}

// GetTransactionStatus reports a submitted transaction as confirmed.
func (m *MockLedger) GetTransactionStatus(ctx context.Context, txid string) (*TransactionStatus, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	for _, tx := range m.submitted {
		ser, err := tx.Serialize()
		if err != nil {
			continue
		}
		if txidFor(ser) == txid {
			return &TransactionStatus{TxID: txid, Confirmed: true, Confirmations: 1}, nil
		}
	}
	return nil, errors.New("transaction not found")
}

// SubmitTransaction validates and applies the transaction, returning
// its reference. Spends of datum-locked outputs must satisfy the
// escrow predicate: matching decision hash, payment to the committed
// recipient, and a witness from the committed signer.
func (m *MockLedger) SubmitTransaction(ctx context.Context, raw []byte) (string, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.failSubmit != nil {
		err := m.failSubmit
		m.failSubmit = nil
		return "", err
	}

	var tx models.SignedTransaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return "", err
	}
	if len(tx.Witnesses) == 0 {
		return "", errors.New("transaction has no witnesses")
	}
	for _, in := range tx.Draft.Inputs {
		if _, ok := m.utxos[in.Outpoint()]; !ok {
			return "", fmt.Errorf("input %s not found in utxo set", in.Outpoint())
		}
		if datum := m.datums[in.Outpoint()]; datum != nil {
			if err := m.checkEscrow(&tx, datum); err != nil {
				return "", err
			}
		}
	}

	txid := txidFor(raw)
	for _, in := range tx.Draft.Inputs {
		delete(m.utxos, in.Outpoint())
		delete(m.datums, in.Outpoint())
	}
	for i, out := range tx.Draft.Outputs {
		utxo := models.UnspentOutput{
			TxID:    txid,
			Index:   uint32(i),
			Address: out.Address,
			Amount:  out.Amount,
			Assets:  out.Assets.Copy(),
		}
		m.utxos[utxo.Outpoint()] = utxo
		if out.Datum != nil {
			m.datums[utxo.Outpoint()] = out.Datum
		}
	}
	m.submitted = append(m.submitted, tx)
	return txid, nil
}

func (m *MockLedger) checkEscrow(tx *models.SignedTransaction, datum *models.DatumCommitment) error {
	if tx.Draft.Redeemer == nil {
		return errors.New("escrow spend is missing a redeemer")
	}
	if tx.Draft.Redeemer.DecisionHash != datum.ExpectedDecisionHash {
		return errors.New("redeemer decision hash does not match the datum commitment")
	}
	var paysRecipient bool
	for _, out := range tx.Draft.Outputs {
		if out.Address == datum.Recipient {
			paysRecipient = true
			break
		}
	}
	if !paysRecipient {
		return fmt.Errorf("escrow spend does not pay the committed recipient %s", datum.Recipient)
	}
	var signed bool
	for _, w := range tx.Witnesses {
		if w.PubKey == tx.Draft.Redeemer.SignerKey && len(w.Signature) > 0 {
			signed = true
			break
		}
	}
	if !signed {
		return errors.New("escrow spend is missing the signer witness")
	}
	return nil
}

func txidFor(raw []byte) string {
	digest := sha256.Sum256(raw)
	return hex.EncodeToString(digest[:])
}
