package cmd

import (
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/chainhaul/settlementd/repo"
)

// Init initializes a new settlementd data directory at the provided path.
type Init struct {
	DataDir  string `short:"d" long:"datadir" description:"Directory to store data"`
	Mnemonic string `short:"m" long:"mnemonic" description:"A mnemonic seed to initialize the node with"`
	Force    bool   `short:"f" long:"force" description:"Force overwrite existing repo (dangerous!)"`
}

// Execute initializes the data directory, the database and the wallet
// mnemonic.
func (x *Init) Execute(args []string) error {
	if x.DataDir == "" {
		x.DataDir = repo.DefaultHomeDir
	}

	if _, err := os.Stat(path.Join(x.DataDir, "version")); err == nil && !x.Force {
		return errors.New("node is already initialized")
	}
	if x.Force {
		os.RemoveAll(x.DataDir)
	}

	var (
		r   *repo.Repo
		err error
	)
	if x.Mnemonic != "" {
		r, err = repo.NewRepoWithCustomMnemonicSeed(x.DataDir, x.Mnemonic)
	} else {
		r, err = repo.NewRepo(x.DataDir)
	}
	if err != nil {
		return err
	}
	defer r.Close()

	mnemonic, err := r.Mnemonic()
	if err != nil {
		return err
	}
	fmt.Printf("Initialized data directory at %s\n", x.DataDir)
	fmt.Printf("Wallet mnemonic: %s\n", mnemonic)
	return nil
}
