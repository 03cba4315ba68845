package fake

import (
	"sort"
	"strings"
)

// Snapshot is an in-memory storage whose operations fail with the configured
// errors.
//
// - implements store.Snapshot
// - implements store.Scanner
type Snapshot struct {
	values map[string][]byte

	ErrRead   error
	ErrWrite  error
	ErrDelete error
	ErrScan   error

	// Writes is the number of successful Set and Delete calls.
	Writes int
}

// NewSnapshot returns an empty snapshot that never fails.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		values: make(map[string][]byte),
	}
}

// NewBadSnapshot returns an empty snapshot where every operation fails with
// the fake error.
func NewBadSnapshot() *Snapshot {
	snap := NewSnapshot()
	snap.ErrRead = fakeErr
	snap.ErrWrite = fakeErr
	snap.ErrDelete = fakeErr
	snap.ErrScan = fakeErr

	return snap
}

// Get implements store.Readable.
func (snap *Snapshot) Get(key []byte) ([]byte, error) {
	if snap.ErrRead != nil {
		return nil, snap.ErrRead
	}

	return snap.values[string(key)], nil
}

// Set implements store.Writable.
func (snap *Snapshot) Set(key, value []byte) error {
	if snap.ErrWrite != nil {
		return snap.ErrWrite
	}

	snap.values[string(key)] = value
	snap.Writes++

	return nil
}

// Delete implements store.Writable.
func (snap *Snapshot) Delete(key []byte) error {
	if snap.ErrDelete != nil {
		return snap.ErrDelete
	}

	delete(snap.values, string(key))
	snap.Writes++

	return nil
}

// Scan implements store.Scanner.
func (snap *Snapshot) Scan(prefix []byte, fn func(key, value []byte) error) error {
	if snap.ErrScan != nil {
		return snap.ErrScan
	}

	keys := make([]string, 0, len(snap.values))
	for key := range snap.values {
		if strings.HasPrefix(key, string(prefix)) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	for _, key := range keys {
		err := fn([]byte(key), snap.values[key])
		if err != nil {
			return err
		}
	}

	return nil
}
