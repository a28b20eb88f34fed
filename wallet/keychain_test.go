package wallet

import "testing"

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestKeychain_Deterministic(t *testing.T) {
	kc1, err := NewKeychain(testMnemonic)
	if err != nil {
		t.Fatal(err)
	}
	kc2, err := NewKeychain(testMnemonic)
	if err != nil {
		t.Fatal(err)
	}
	if kc1.KeyRef() != kc2.KeyRef() {
		t.Error("Expected the same mnemonic to derive the same key")
	}
	if kc1.Address() != kc2.Address() {
		t.Error("Expected the same mnemonic to derive the same address")
	}
	if kc1.Address() == kc1.KeyRef() {
		t.Error("Expected the address to differ from the key reference")
	}
}

func TestKeychain_Sign(t *testing.T) {
	kc, err := NewKeychain(testMnemonic)
	if err != nil {
		t.Fatal(err)
	}
	sig, err := kc.Sign([]byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if len(sig) == 0 {
		t.Error("Expected a non-empty signature")
	}
}
