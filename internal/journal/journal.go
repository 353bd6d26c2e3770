// ABOUTME: Crash journal for buffered autosave changes, stored in badger.
// ABOUTME: Keeps one pending update per note so it can be replayed after a restart.

package journal

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/harper/inkwell/internal/models"
)

// PendingPrefix is the key prefix for pending updates.
const PendingPrefix = "pending:"

type Journal struct {
	kv *badger.DB
}

// Open opens (or creates) the journal directory.
func Open(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	kv, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{kv: kv}, nil
}

// OpenInMemory returns a journal that does not touch disk, for tests.
func OpenInMemory() (*Journal, error) {
	kv, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{kv: kv}, nil
}

func (j *Journal) Close() error {
	return j.kv.Close()
}

func pendingKey(id uuid.UUID) []byte {
	return []byte(PendingPrefix + id.String())
}

// Put records u as the pending update for its note, replacing any earlier one.
func (j *Journal) Put(u models.NoteUpdate) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal pending update: %w", err)
	}
	return j.kv.Update(func(txn *badger.Txn) error {
		return txn.Set(pendingKey(u.ID), data)
	})
}

// Delete forgets the pending update for id. Missing keys are not an error.
func (j *Journal) Delete(id uuid.UUID) error {
	return j.kv.Update(func(txn *badger.Txn) error {
		return txn.Delete(pendingKey(id))
	})
}

// Pending returns every recorded update.
func (j *Journal) Pending() ([]models.NoteUpdate, error) {
	var updates []models.NoteUpdate
	prefix := []byte(PendingPrefix)
	err := j.kv.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var u models.NoteUpdate
				if err := json.Unmarshal(val, &u); err != nil {
					return err
				}
				updates = append(updates, u)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updates, nil
}
