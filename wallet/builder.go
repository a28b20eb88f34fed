package wallet

import (
	"encoding/json"

	"github.com/chainhaul/settlementd/models"
)

// Rough per-element sizes used to seed coin selection before the
// exact fee is known. The real fee is recomputed from the serialized
// draft once it is fully assembled.
const (
	approxInputSize  = 180
	approxOutputSize = 130
	approxTxOverhead = 40
)

// BuilderConfig holds the fee model coefficients and the ledger limits
// enforced before signing.
type BuilderConfig struct {
	FeePerByte   int64
	FeeBase      int64
	MinOutput    int64
	MaxTxSize    int
	MaxValueSize int
}

// Builder assembles transaction drafts under a linear fee model.
// The fee for a draft of s bytes is FeePerByte*s + FeeBase.
type Builder struct {
	cfg BuilderConfig
}

// NewBuilder returns a builder using the given fee model and limits.
func NewBuilder(cfg BuilderConfig) *Builder {
	return &Builder{cfg: cfg}
}

// MinOutput returns the smallest value an output may carry.
func (b *Builder) MinOutput() int64 {
	return b.cfg.MinOutput
}

// EstimateFee returns the fee for a transaction of approximately
// numInputs inputs and numOutputs outputs. Used to size the coin
// selection target before the draft exists.
func (b *Builder) EstimateFee(numInputs, numOutputs int) int64 {
	size := approxTxOverhead + numInputs*approxInputSize + numOutputs*approxOutputSize
	return b.feeForSize(size)
}

func (b *Builder) feeForSize(size int) int64 {
	return b.cfg.FeePerByte*int64(size) + b.cfg.FeeBase
}

// Build assembles a draft paying amount to destination, returning any
// leftover input value and carried assets to changeAddr. If datum is
// non-nil it is attached to the destination output. The fee is
// recomputed from the serialized size of the fully assembled draft.
func (b *Builder) Build(inputs []models.UnspentOutput, destination string, amount int64, changeAddr string, datum *models.DatumCommitment) (*models.TransactionDraft, error) {
	var inputTotal int64
	var carried models.AssetBundle
	for _, in := range inputs {
		inputTotal += in.Amount
		carried = carried.Add(in.Assets)
	}
	if inputTotal < amount {
		return nil, &InsufficientFundsError{Available: inputTotal, Required: amount}
	}

	// Seed with the base fee; the size-dependent term is picked up by
	// the refinement pass below.
	fee := b.cfg.FeeBase
	draft, err := b.assemble(inputs, destination, amount, changeAddr, datum, inputTotal, fee, carried)
	if err != nil {
		return nil, err
	}

	// One refinement pass: the fee depends on the serialized size,
	// which depends on the change output the fee determines.
	ser, err := draft.Serialize()
	if err != nil {
		return nil, err
	}
	fee = b.feeForSize(len(ser))
	draft, err = b.assemble(inputs, destination, amount, changeAddr, datum, inputTotal, fee, carried)
	if err != nil {
		return nil, err
	}

	if err := b.checkLimits(draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (b *Builder) assemble(inputs []models.UnspentOutput, destination string, amount int64, changeAddr string, datum *models.DatumCommitment, inputTotal, fee int64, carried models.AssetBundle) (*models.TransactionDraft, error) {
	change := inputTotal - amount - fee
	if change < 0 {
		return nil, &InsufficientFundsError{Available: inputTotal, Required: amount + fee}
	}

	outputs := []models.TransactionOutput{
		{
			Address: destination,
			Amount:  amount,
			Datum:   datum,
		},
	}
	// An asset-carrying change output is emitted even below the dust
	// threshold. Folding it would drop the assets.
	if change >= b.cfg.MinOutput || carried.Total() > 0 {
		outputs = append(outputs, models.TransactionOutput{
			Address: changeAddr,
			Amount:  change,
			Assets:  carried.Copy(),
		})
	} else {
		// Dust folds into the fee.
		fee += change
	}

	return &models.TransactionDraft{
		Inputs:  inputs,
		Outputs: outputs,
		Fee:     fee,
	}, nil
}

// BuildSpend assembles a draft spending a single escrow output in full
// to destination, attaching the redeemer the escrow verifier checks.
func (b *Builder) BuildSpend(input models.UnspentOutput, destination string, redeemer models.Redeemer) (*models.TransactionDraft, error) {
	fee := b.cfg.FeeBase
	draft, err := b.assembleSpend(input, destination, redeemer, fee)
	if err != nil {
		return nil, err
	}

	ser, err := draft.Serialize()
	if err != nil {
		return nil, err
	}
	fee = b.feeForSize(len(ser))
	draft, err = b.assembleSpend(input, destination, redeemer, fee)
	if err != nil {
		return nil, err
	}

	if err := b.checkLimits(draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (b *Builder) assembleSpend(input models.UnspentOutput, destination string, redeemer models.Redeemer, fee int64) (*models.TransactionDraft, error) {
	amount := input.Amount - fee
	if amount < b.cfg.MinOutput {
		return nil, &InsufficientFundsError{Available: input.Amount, Required: fee + b.cfg.MinOutput}
	}
	return &models.TransactionDraft{
		Inputs: []models.UnspentOutput{input},
		Outputs: []models.TransactionOutput{
			{
				Address: destination,
				Amount:  amount,
				Assets:  input.Assets.Copy(),
			},
		},
		Fee:      fee,
		Redeemer: &redeemer,
	}, nil
}

func (b *Builder) checkLimits(draft *models.TransactionDraft) error {
	ser, err := draft.Serialize()
	if err != nil {
		return err
	}
	if len(ser) > b.cfg.MaxTxSize {
		return &ExceedsSizeError{What: "transaction", Size: len(ser), Limit: b.cfg.MaxTxSize}
	}
	for _, out := range draft.Outputs {
		valSer, err := json.Marshal(out)
		if err != nil {
			return err
		}
		if len(valSer) > b.cfg.MaxValueSize {
			return &ExceedsSizeError{What: "output value", Size: len(valSer), Limit: b.cfg.MaxValueSize}
		}
	}
	return nil
}
