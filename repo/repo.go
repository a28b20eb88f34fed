package repo

import (
	"errors"
	"io/ioutil"
	"os"
	"path"
	"strconv"

	"github.com/chainhaul/settlementd/database"
	"github.com/chainhaul/settlementd/models"
	"github.com/op/go-logging"
	"github.com/tyler-smith/go-bip39"
)

const (
	// defaultRepoVersion is the current repo version used for migrations.
	defaultRepoVersion = 0

	// versionFileName is the name of the version file.
	versionFileName = "version"
)

var log = logging.MustGetLogger("REPO")

// Repo is a representation of a settlementd data directory.
// In this we store:
// - The settlementd.conf file
// - The settlement database
// - The wallet mnemonic
// - Log files
type Repo struct {
	db      database.Database
	dataDir string
}

// NewRepo returns a new Repo for the given data directory. It will
// be initialized if it is not already.
func NewRepo(dataDir string) (*Repo, error) {
	return newRepo(dataDir, "", false)
}

// NewRepoWithCustomMnemonicSeed behaves the same as NewRepo but allows
// the caller to pass in a custom mnemonic seed. This is useful for
// restoring a node from seed.
func NewRepoWithCustomMnemonicSeed(dataDir, mnemonic string) (*Repo, error) {
	return newRepo(dataDir, mnemonic, false)
}

// DB returns the database implementation.
func (r *Repo) DB() database.Database {
	return r.db
}

// DataDir returns the data directory associated with this repo.
func (r *Repo) DataDir() string {
	return r.dataDir
}

// Mnemonic loads the wallet mnemonic from the database.
func (r *Repo) Mnemonic() (string, error) {
	var key models.Key
	err := r.db.View(func(tx database.Tx) error {
		return tx.Read().Where("name = ?", "mnemonic").First(&key).Error
	})
	if err != nil {
		return "", err
	}
	return string(key.Value), nil
}

// Close will close the repo and associated databases.
func (r *Repo) Close() {
	r.db.Close()
}

// DestroyRepo deletes the entire directory. Do NOT use this unless you
// are positive you want to wipe all data.
func (r *Repo) DestroyRepo() error {
	if err := r.db.Close(); err != nil {
		return err
	}
	return os.RemoveAll(r.dataDir)
}

// writeVersion writes the version number to file.
func (r *Repo) writeVersion(version int) error {
	versionStr := strconv.Itoa(version)
	return ioutil.WriteFile(path.Join(r.dataDir, versionFileName), []byte(versionStr), os.ModePerm)
}

func newRepo(dataDir, mnemonicSeed string, inMemoryDB bool) (*Repo, error) {
	var (
		dbMnemonic *models.Key
		err        error
		isNew      bool
	)
	if _, serr := os.Stat(path.Join(dataDir, versionFileName)); os.IsNotExist(serr) {
		if err := checkWriteable(dataDir); err != nil {
			return nil, err
		}
		if mnemonicSeed == "" {
			mnemonicSeed, err = createMnemonic(bip39.NewEntropy, bip39.NewMnemonic)
			if err != nil {
				return nil, err
			}
		}
		dbMnemonic = &models.Key{
			Name:  "mnemonic",
			Value: []byte(mnemonicSeed),
		}
		isNew = true
	}

	var db database.Database
	if inMemoryDB {
		db, err = database.NewMemoryDB()
		if err != nil {
			return nil, err
		}
	} else {
		db, err = database.NewSqliteDB(dataDir)
		if err != nil {
			return nil, err
		}
	}

	if err := autoMigrateDatabase(db); err != nil {
		return nil, err
	}

	if dbMnemonic != nil {
		err = db.Update(func(tx database.Tx) error {
			return tx.Save(dbMnemonic)
		})
		if err != nil {
			return nil, err
		}
	}

	r := &Repo{
		dataDir: dataDir,
		db:      db,
	}
	if isNew {
		if err := r.writeVersion(defaultRepoVersion); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func checkWriteable(dir string) error {
	_, err := os.Stat(dir)
	if err == nil {
		// Directory exists, make sure we can write to it.
		testfile := path.Join(dir, "test")
		fi, err := os.Create(testfile)
		if err != nil {
			if os.IsPermission(err) {
				return errors.New("unwriteable directory: " + dir)
			}
			return err
		}
		fi.Close()
		return os.Remove(testfile)
	}

	if os.IsNotExist(err) {
		// Directory does not exist, check that we can create it.
		return os.MkdirAll(dir, 0775)
	}

	if os.IsPermission(err) {
		return errors.New("cannot write to " + dir + ", incorrect permissions")
	}

	return err
}

func createMnemonic(newEntropy func(int) ([]byte, error), newMnemonic func([]byte) (string, error)) (string, error) {
	entropy, err := newEntropy(128)
	if err != nil {
		return "", err
	}
	mnemonic, err := newMnemonic(entropy)
	if err != nil {
		return "", err
	}
	return mnemonic, nil
}

func autoMigrateDatabase(db database.Database) error {
	dbModels := []interface{}{
		&models.Key{},
		&models.Invoice{},
		&models.Channel{},
		&models.ChannelPayment{},
		&models.DecisionLog{},
		&models.Settlement{},
	}
	return db.Update(func(tx database.Tx) error {
		for _, m := range dbModels {
			if err := tx.Migrate(m); err != nil {
				return err
			}
		}
		return nil
	})
}
