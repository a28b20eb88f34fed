package wallet

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil/hdkeychain"
	"github.com/tyler-smith/go-bip39"
)

// Keychain derives the node's signing key from the repo mnemonic. The
// key identifies the orchestrator in decision logs and signs the
// witnesses on published transactions.
type Keychain struct {
	priv *btcec.PrivateKey
}

// NewKeychain derives the signing key from a bip39 mnemonic.
func NewKeychain(mnemonic string) (*Keychain, error) {
	seed := bip39.NewSeed(mnemonic, "")
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	child, err := master.Child(hdkeychain.HardenedKeyStart)
	if err != nil {
		return nil, err
	}
	priv, err := child.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return &Keychain{priv: priv}, nil
}

// KeyRef returns the hex encoded compressed public key. This is the
// signer key reference carried in redeemers and decision logs.
func (k *Keychain) KeyRef() string {
	return hex.EncodeToString(k.priv.PubKey().SerializeCompressed())
}

// Address returns the ledger address controlled by the key.
func (k *Keychain) Address() string {
	digest := sha256.Sum256(k.priv.PubKey().SerializeCompressed())
	return hex.EncodeToString(digest[:])
}

// Sign signs the sha256 digest of data and returns the DER encoding.
func (k *Keychain) Sign(data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	sig, err := k.priv.Sign(digest[:])
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}
