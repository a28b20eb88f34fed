package wallet

import (
	"github.com/chainhaul/settlementd/models"
)

// Selection is the result of picking inputs for a spend.
type Selection struct {
	Inputs       []models.UnspentOutput
	Change       int64
	ChangeAssets models.AssetBundle
}

// Select accumulates outputs from available, in the order given, until
// their combined value covers target plus estimatedFee. Change below
// minOutput is folded into the fee rather than producing a dust output.
// Asset bundles riding on the selected inputs are carried to the change
// untouched.
func Select(available []models.UnspentOutput, target, estimatedFee, minOutput int64) (*Selection, error) {
	var (
		selected []models.UnspentOutput
		total    int64
		assets   models.AssetBundle
	)
	required := target + estimatedFee
	for _, utxo := range available {
		selected = append(selected, utxo)
		total += utxo.Amount
		assets = assets.Add(utxo.Assets)
		if total >= required {
			break
		}
	}
	if total < required {
		return nil, &InsufficientFundsError{Available: total, Required: required}
	}
	change := total - required
	if change < minOutput && assets.Total() == 0 {
		change = 0
	}
	return &Selection{
		Inputs:       selected,
		Change:       change,
		ChangeAssets: assets,
	}, nil
}
