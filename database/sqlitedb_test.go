package database

import (
	"errors"
	"testing"

	"github.com/jinzhu/gorm"
)

type testRecord struct {
	ID    string `gorm:"primary_key"`
	Value string
}

func newTestDB(t *testing.T) Database {
	db, err := NewMemoryDB()
	if err != nil {
		t.Fatal(err)
	}
	err = db.Update(func(tx Tx) error {
		return tx.Migrate(&testRecord{})
	})
	if err != nil {
		t.Fatal(err)
	}
	return db
}

func TestSqliteDB_Update(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	err := db.Update(func(tx Tx) error {
		return tx.Save(&testRecord{ID: "abc", Value: "one"})
	})
	if err != nil {
		t.Error(err)
	}

	var records []testRecord
	err = db.View(func(tx Tx) error {
		return tx.Read().Find(&records).Error
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("Expected 1 record, got %d", len(records))
	}

	err = db.Update(func(tx Tx) error {
		if err := tx.Save(&testRecord{ID: "def", Value: "two"}); err != nil {
			t.Fatal(err)
		}
		return errors.New("atomic update failure")
	})
	if err == nil {
		t.Error("Update function did not return error")
	}

	records = nil
	err = db.View(func(tx Tx) error {
		return tx.Read().Find(&records).Error
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Error("Db update failed to roll back")
	}
}

func TestSqliteDB_View(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	err := db.Update(func(tx Tx) error {
		return tx.Save(&testRecord{ID: "abc", Value: "one"})
	})
	if err != nil {
		t.Error(err)
	}

	var record testRecord
	err = db.View(func(tx Tx) error {
		return tx.Read().Where("id = ?", "abc").First(&record).Error
	})
	if err != nil {
		t.Error(err)
	}
	if record.Value != "one" {
		t.Errorf("Expected value one, got %s", record.Value)
	}

	err = db.View(func(tx Tx) error {
		return tx.Save(&testRecord{ID: "def", Value: "two"})
	})
	if err != ErrReadOnly {
		t.Errorf("Expected ErrReadOnly, got %v", err)
	}

	err = db.View(func(tx Tx) error {
		return tx.Read().Where("id = ?", "def").First(&record).Error
	})
	if !gorm.IsRecordNotFoundError(err) {
		t.Error("Read-only tx persisted a write")
	}
}

func TestSqliteDB_UpdateColumn(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	err := db.Update(func(tx Tx) error {
		return tx.Save(&testRecord{ID: "abc", Value: "one"})
	})
	if err != nil {
		t.Fatal(err)
	}

	err = db.Update(func(tx Tx) error {
		return tx.Update("value", "updated", map[string]interface{}{"id = ?": "abc"}, &testRecord{})
	})
	if err != nil {
		t.Error(err)
	}

	var record testRecord
	err = db.View(func(tx Tx) error {
		return tx.Read().Where("id = ?", "abc").First(&record).Error
	})
	if err != nil {
		t.Fatal(err)
	}
	if record.Value != "updated" {
		t.Errorf("Expected value updated, got %s", record.Value)
	}
}

func TestSqliteDB_Delete(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	err := db.Update(func(tx Tx) error {
		if err := tx.Save(&testRecord{ID: "abc", Value: "one"}); err != nil {
			return err
		}
		return tx.Save(&testRecord{ID: "def", Value: "two"})
	})
	if err != nil {
		t.Fatal(err)
	}

	err = db.Update(func(tx Tx) error {
		return tx.Delete("id", "abc", nil, &testRecord{})
	})
	if err != nil {
		t.Error(err)
	}

	var records []testRecord
	err = db.View(func(tx Tx) error {
		return tx.Read().Find(&records).Error
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ID != "def" {
		t.Error("Delete removed the wrong records")
	}
}
