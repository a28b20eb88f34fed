package repo

import (
	"os"
	"path"
	"testing"
)

func TestNewRepo(t *testing.T) {
	dir := path.Join(os.TempDir(), "settlementd", "newRepoTest")
	r, err := NewRepo(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer r.DestroyRepo()

	if r.DB() == nil {
		t.Error("Failed to initialize the database")
	}
	if r.DataDir() != dir {
		t.Errorf("Expected data dir %s, got %s", dir, r.DataDir())
	}

	if _, err := os.Stat(path.Join(dir, versionFileName)); os.IsNotExist(err) {
		t.Error("Failed to write the version file")
	}

	mnemonic, err := r.Mnemonic()
	if err != nil {
		t.Fatal(err)
	}
	if mnemonic == "" {
		t.Error("Failed to create a mnemonic")
	}
}

func TestNewRepoWithCustomMnemonicSeed(t *testing.T) {
	var (
		dir      = path.Join(os.TempDir(), "settlementd", "customMnemonicTest")
		mnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	)
	r, err := NewRepoWithCustomMnemonicSeed(dir, mnemonic)
	if err != nil {
		t.Fatal(err)
	}
	defer r.DestroyRepo()

	loaded, err := r.Mnemonic()
	if err != nil {
		t.Fatal(err)
	}
	if loaded != mnemonic {
		t.Errorf("Expected mnemonic %s, got %s", mnemonic, loaded)
	}
}

func TestRepoReopenKeepsMnemonic(t *testing.T) {
	dir := path.Join(os.TempDir(), "settlementd", "reopenTest")
	r, err := NewRepo(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	mnemonic, err := r.Mnemonic()
	if err != nil {
		t.Fatal(err)
	}
	r.Close()

	r2, err := NewRepo(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer r2.Close()

	loaded, err := r2.Mnemonic()
	if err != nil {
		t.Fatal(err)
	}
	if loaded != mnemonic {
		t.Error("Mnemonic changed across a reopen")
	}
}

func TestMockRepo(t *testing.T) {
	r, teardown, err := MockRepo()
	if err != nil {
		t.Fatal(err)
	}
	defer teardown()

	if r.DB() == nil {
		t.Error("Failed to initialize the database")
	}
	if _, err := r.Mnemonic(); err != nil {
		t.Errorf("Failed to load the mnemonic: %s", err)
	}
}
