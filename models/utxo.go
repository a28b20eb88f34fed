package models

import "fmt"

// AssetBundle maps policy id to asset name to quantity for the
// auxiliary assets riding on an output alongside the base currency.
type AssetBundle map[string]map[string]int64

// Copy returns a deep copy of the bundle.
func (ab AssetBundle) Copy() AssetBundle {
	if ab == nil {
		return nil
	}
	cpy := make(AssetBundle, len(ab))
	for policy, assets := range ab {
		cpy[policy] = make(map[string]int64, len(assets))
		for name, qty := range assets {
			cpy[policy][name] = qty
		}
	}
	return cpy
}

// Add merges the quantities of other into the bundle.
func (ab AssetBundle) Add(other AssetBundle) AssetBundle {
	if len(other) == 0 {
		return ab
	}
	if ab == nil {
		ab = make(AssetBundle)
	}
	for policy, assets := range other {
		if ab[policy] == nil {
			ab[policy] = make(map[string]int64, len(assets))
		}
		for name, qty := range assets {
			ab[policy][name] += qty
		}
	}
	return ab
}

// Total returns the sum of every asset unit in the bundle.
func (ab AssetBundle) Total() int64 {
	var total int64
	for _, assets := range ab {
		for _, qty := range assets {
			total += qty
		}
	}
	return total
}

// UnspentOutput is a spendable ledger output.
type UnspentOutput struct {
	TxID    string      `json:"txid"`
	Index   uint32      `json:"index"`
	Address string      `json:"address"`
	Amount  int64       `json:"amount"`
	Assets  AssetBundle `json:"assets,omitempty"`
}

// Outpoint returns the txid:index key which uniquely identifies
// the output on the ledger.
func (u UnspentOutput) Outpoint() string {
	return fmt.Sprintf("%s:%d", u.TxID, u.Index)
}
