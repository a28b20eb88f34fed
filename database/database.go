package database

import (
	"github.com/jinzhu/gorm"
)

// Tx represents a database transaction. It can either be read-only or
// read-write. The transaction provides access to a sql database
// interface with an open transaction to use for reading and writing
// settlement records.
//
// As would be expected with a transaction, no changes will be saved to
// the database until it has been committed. Transactions should not be
// long running operations.
type Tx interface {
	// Commit commits all changes that have been made to the database.
	// Calling this function on a managed transaction will result in
	// a panic.
	Commit() error

	// Rollback undoes all changes that have been made to the database.
	// Calling this function on a managed transaction will result in
	// a panic.
	Rollback() error

	// Read returns the underlying sql database in a read-only mode so
	// that queries can be made against it.
	Read() *gorm.DB

	// Save will save the passed in model to the database. If it already
	// exists it will be overridden.
	Save(model interface{}) error

	// Update will update the given key to the value for the given model.
	// The where map can be used to impose extra conditions on which
	// specific model gets updated. The map key must be of the format
	// "key = ?". This allows for using alternative conditions such as
	// "timestamp <= ?".
	Update(key string, value interface{}, where map[string]interface{}, model interface{}) error

	// Delete will delete all models of the given type from the database
	// where field == key.
	Delete(key string, value interface{}, where map[string]interface{}, model interface{}) error

	// Migrate will auto-migrate the database from any previous schema
	// for this model to the current schema.
	Migrate(model interface{}) error
}

// Database is an interface which exposes a minimal number of methods
// needed to atomically read and write settlement state. Its lifetime
// is tied to the orchestrator instance that owns it.
type Database interface {
	// View invokes the passed function in the context of a managed
	// read-only transaction. Any errors returned from the user-supplied
	// function are returned from this function.
	View(fn func(tx Tx) error) error

	// Update invokes the passed function in the context of a managed
	// read-write transaction. Any errors returned from the
	// user-supplied function will cause the transaction to be rolled
	// back and are returned from this function. Otherwise the
	// transaction is committed when the user-supplied function returns
	// a nil error.
	Update(fn func(tx Tx) error) error

	// Close cleanly shuts down the database. It will block until all
	// database transactions have been finalized.
	Close() error
}
