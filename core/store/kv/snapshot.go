package kv

import (
	"golang.org/x/xerrors"
)

// Store exposes a single bucket of a database as the storage of the ledger.
// Every write is a database transaction on its own.
//
// - implements store.Snapshot
// - implements store.Scanner
type Store struct {
	db     DB
	bucket []byte
}

// NewStore returns the storage reading and writing the bucket.
func NewStore(db DB, bucket []byte) Store {
	return Store{
		db:     db,
		bucket: append([]byte{}, bucket...),
	}
}

// Get implements store.Readable. It returns a copy of the value, or nil if the
// key or the bucket does not exist.
func (s Store) Get(key []byte) ([]byte, error) {
	var value []byte

	err := s.db.View(func(tx ReadableTx) error {
		b := tx.GetBucket(s.bucket)
		if b == nil {
			return nil
		}

		raw := b.Get(key)
		if raw != nil {
			value = append([]byte{}, raw...)
		}

		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to read db: %v", err)
	}

	return value, nil
}

// Set implements store.Writable.
func (s Store) Set(key, value []byte) error {
	return s.update(func(b Bucket) error {
		return b.Set(key, value)
	})
}

// Delete implements store.Writable.
func (s Store) Delete(key []byte) error {
	return s.update(func(b Bucket) error {
		return b.Delete(key)
	})
}

// Scan implements store.Scanner. The keys and values given to the function
// are copies.
func (s Store) Scan(prefix []byte, fn func(key, value []byte) error) error {
	err := s.db.View(func(tx ReadableTx) error {
		b := tx.GetBucket(s.bucket)
		if b == nil {
			return nil
		}

		return b.Scan(prefix, func(k, v []byte) error {
			return fn(append([]byte{}, k...), append([]byte{}, v...))
		})
	})
	if err != nil {
		return xerrors.Errorf("failed to scan db: %v", err)
	}

	return nil
}

func (s Store) update(fn func(Bucket) error) error {
	err := s.db.Update(func(tx WritableTx) error {
		b, err := tx.GetBucketOrCreate(s.bucket)
		if err != nil {
			return err
		}

		return fn(b)
	})
	if err != nil {
		return xerrors.Errorf("failed to write db: %v", err)
	}

	return nil
}
