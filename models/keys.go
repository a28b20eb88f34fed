package models

// Key holds a named piece of key material, such as the wallet
// mnemonic or the serialized signing key.
type Key struct {
	Name  string `gorm:"primary_key"`
	Value []byte
}
