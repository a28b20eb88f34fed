package models

import "encoding/json"

// DatumCommitment is attached to the escrow output when funds are
// locked. The escrow verifier compares it against the redeemer of the
// spending transaction.
type DatumCommitment struct {
	ExpectedDecisionHash string `json:"expectedDecisionHash"`
	Recipient            string `json:"recipient"`
}

// Redeemer is attached to a transaction spending an escrow output.
type Redeemer struct {
	DecisionHash string `json:"decisionHash"`
	SignerKey    string `json:"signerKey"`
}

// TransactionOutput is a single output of a transaction draft.
type TransactionOutput struct {
	Address string           `json:"address"`
	Amount  int64            `json:"amount"`
	Assets  AssetBundle      `json:"assets,omitempty"`
	Datum   *DatumCommitment `json:"datum,omitempty"`
}

// TransactionDraft is an assembled but unsigned ledger transaction.
// Drafts are built, signed into a SignedTransaction and submitted;
// they are discarded after submission or failure and must never be
// reused with stale input references.
type TransactionDraft struct {
	Inputs   []UnspentOutput     `json:"inputs"`
	Outputs  []TransactionOutput `json:"outputs"`
	Fee      int64               `json:"fee"`
	Redeemer *Redeemer           `json:"redeemer,omitempty"`
}

// Serialize returns the canonical byte encoding of the draft. The
// encoding is deterministic for identical drafts which makes the fee
// and size calculations reproducible.
func (d *TransactionDraft) Serialize() ([]byte, error) {
	return json.Marshal(d)
}

// Witness is a signature over the serialized draft by one key.
type Witness struct {
	PubKey    string `json:"pubKey"`
	Signature []byte `json:"signature"`
}

// SignedTransaction is a draft plus its witness set, ready for
// submission to the ledger.
type SignedTransaction struct {
	Draft     TransactionDraft `json:"draft"`
	Witnesses []Witness        `json:"witnesses"`
}

// Serialize returns the byte encoding submitted to the ledger.
func (s *SignedTransaction) Serialize() ([]byte, error) {
	return json.Marshal(s)
}
