package repo

import (
	"math/rand"
	"os"
	"path"
	"strconv"

	"github.com/chainhaul/settlementd/database"
)

// MockDB returns an in-memory sqlite db with the schema migrated.
func MockDB() (database.Database, error) {
	db, err := database.NewMemoryDB()
	if err != nil {
		return nil, err
	}
	if err := autoMigrateDatabase(db); err != nil {
		return nil, err
	}
	return db, nil
}

// MockRepo builds a repo in a temp directory with an in-memory db.
// The returned teardown func removes the directory.
func MockRepo() (*Repo, func(), error) {
	n := rand.Intn(1000000)
	dataDir := path.Join(os.TempDir(), "settlementd-test", strconv.Itoa(n))
	r, err := newRepo(dataDir, "", true)
	if err != nil {
		return nil, nil, err
	}
	teardown := func() {
		r.db.Close()
		os.RemoveAll(dataDir)
	}
	return r, teardown, nil
}
