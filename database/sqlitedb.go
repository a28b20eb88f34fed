package database

import (
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite" // Import sqlite dialect
)

const dbName = "settlementd.db"

// ErrReadOnly is returned when a write is attempted on a read-only tx.
var ErrReadOnly = errors.New("tx is read only")

// SqliteDB is an implementation of the Database interface using the
// gorm ORM with sqlite.
type SqliteDB struct {
	db  *gorm.DB
	mtx sync.Mutex
}

// NewSqliteDB instantiates a new db which satisfies the Database
// interface. The database file is created in the data directory.
func NewSqliteDB(dataDir string) (Database, error) {
	db, err := gorm.Open("sqlite3", path.Join(dataDir, dbName))
	if err != nil {
		return nil, err
	}
	return &SqliteDB{db: db, mtx: sync.Mutex{}}, nil
}

// NewMemoryDB instantiates a new db which satisfies the Database
// interface. The sqlite db is held in memory and lives only as long
// as the process.
func NewMemoryDB() (Database, error) {
	db, err := gorm.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}
	return &SqliteDB{db: db, mtx: sync.Mutex{}}, nil
}

// View invokes the passed function in the context of a managed
// read-only transaction. Any errors returned from the user-supplied
// function are returned from this function.
//
// Calling Rollback or Commit on the transaction passed to the
// user-supplied function will result in a panic.
func (s *SqliteDB) View(fn func(tx Tx) error) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	tx := readTx(s.db)
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Update invokes the passed function in the context of a managed
// read-write transaction. Any errors returned from the user-supplied
// function will cause the transaction to be rolled back and are
// returned from this function. Otherwise the transaction is committed
// when the user-supplied function returns a nil error.
//
// Calling Rollback or Commit on the transaction passed to the
// user-supplied function will result in a panic.
func (s *SqliteDB) Update(fn func(tx Tx) error) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	tx := writeTx(s.db)
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close cleanly shuts down the database.
func (s *SqliteDB) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.db.Close()
}

type tx struct {
	dbtx *gorm.DB

	closed      bool
	isForWrites bool
}

func writeTx(db *gorm.DB) Tx {
	return &tx{dbtx: db.Begin(), isForWrites: true}
}

func readTx(db *gorm.DB) Tx {
	return &tx{dbtx: db, isForWrites: false}
}

// Commit commits all changes that have been made to the database.
func (t *tx) Commit() error {
	if t.closed {
		panic("tx already closed")
	}

	defer func() { t.closed = true }()

	if !t.isForWrites {
		return nil
	}
	return t.dbtx.Commit().Error
}

// Rollback undoes all changes that have been made to the database.
func (t *tx) Rollback() error {
	if t.closed {
		panic("tx already closed")
	}

	defer func() { t.closed = true }()

	if !t.isForWrites {
		return nil
	}
	return t.dbtx.Rollback().Error
}

// Save will save the passed in model to the database. If it already
// exists it will be overridden.
func (t *tx) Save(model interface{}) error {
	if !t.isForWrites {
		return ErrReadOnly
	}
	return t.dbtx.Save(model).Error
}

// Read returns the underlying sql database in a read-only mode so that
// queries can be made against it.
func (t *tx) Read() *gorm.DB {
	return t.dbtx
}

// Update will update the given key to the value for the given model.
func (t *tx) Update(key string, value interface{}, where map[string]interface{}, model interface{}) error {
	if !t.isForWrites {
		return ErrReadOnly
	}
	db := t.dbtx.Model(model)
	for k, v := range where {
		db = db.Where(k, v)
	}
	return db.UpdateColumn(key, value).Error
}

// Delete will delete all models of the given type from the database
// where field == key.
func (t *tx) Delete(key string, value interface{}, where map[string]interface{}, model interface{}) error {
	if !t.isForWrites {
		return ErrReadOnly
	}
	db := t.dbtx.Model(model)
	for k, v := range where {
		db = db.Where(k, v)
	}
	return db.Where(fmt.Sprintf("%s = ?", key), value).Delete(model).Error
}

// Migrate will auto-migrate the database from any previous schema for
// this model to the current schema.
func (t *tx) Migrate(model interface{}) error {
	if !t.isForWrites {
		return ErrReadOnly
	}
	return t.dbtx.AutoMigrate(model).Error
}
