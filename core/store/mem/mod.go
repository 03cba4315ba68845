// Package mem implements an in-memory snapshot.
//
// A snapshot can be created on top of a parent snapshot, in which case it acts
// as an overlay: reads fall back to the parent while writes are buffered until
// they are applied. This is how a failed dispatch leaves the ledger untouched.
package mem

import (
	"sort"
	"strings"
	"sync"

	"go.dedis.ch/synergy/core/store"
	"golang.org/x/xerrors"
)

type item struct {
	value   []byte
	deleted bool
}

// Snapshot is an in-memory implementation of a store snapshot.
//
// - implements store.Snapshot
// - implements store.Scanner
type Snapshot struct {
	sync.RWMutex

	parent store.Snapshot
	items  map[string]item
}

// NewSnapshot creates a new empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		items: make(map[string]item),
	}
}

// NewOverlay creates a snapshot that buffers the writes on top of the parent.
func NewOverlay(parent store.Snapshot) *Snapshot {
	return &Snapshot{
		parent: parent,
		items:  make(map[string]item),
	}
}

// Get implements store.Readable. It returns the value of the key, or nil if it
// does not exist.
func (s *Snapshot) Get(key []byte) ([]byte, error) {
	s.RLock()
	it, found := s.items[string(key)]
	s.RUnlock()

	if found {
		if it.deleted {
			return nil, nil
		}

		return it.value, nil
	}

	if s.parent == nil {
		return nil, nil
	}

	value, err := s.parent.Get(key)
	if err != nil {
		return nil, xerrors.Errorf("parent: %v", err)
	}

	return value, nil
}

// Set implements store.Writable.
func (s *Snapshot) Set(key, value []byte) error {
	s.Lock()
	s.items[string(key)] = item{value: append([]byte{}, value...)}
	s.Unlock()

	return nil
}

// Delete implements store.Writable.
func (s *Snapshot) Delete(key []byte) error {
	s.Lock()
	s.items[string(key)] = item{deleted: true}
	s.Unlock()

	return nil
}

// Len returns the number of updates held by the snapshot itself.
func (s *Snapshot) Len() int {
	s.RLock()
	defer s.RUnlock()

	return len(s.items)
}

// Apply writes the buffered updates to the parent in key order, then empties
// the overlay. It is a no-op for a snapshot without parent.
func (s *Snapshot) Apply() error {
	s.Lock()
	defer s.Unlock()

	if s.parent == nil {
		return nil
	}

	keys := make([]string, 0, len(s.items))
	for key := range s.items {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		it := s.items[key]

		var err error
		if it.deleted {
			err = s.parent.Delete([]byte(key))
		} else {
			err = s.parent.Set([]byte(key), it.value)
		}

		if err != nil {
			return xerrors.Errorf("failed to apply key %#x: %v", key, err)
		}
	}

	s.items = make(map[string]item)

	return nil
}

// Discard drops the buffered updates.
func (s *Snapshot) Discard() {
	s.Lock()
	s.items = make(map[string]item)
	s.Unlock()
}

// Scan implements store.Scanner. An overlay merges its updates with the keys of
// the parent when the parent can be scanned too.
func (s *Snapshot) Scan(prefix []byte, fn func(key, value []byte) error) error {
	entries := make(map[string][]byte)

	parent, ok := s.parent.(store.Scanner)
	if ok {
		err := parent.Scan(prefix, func(k, v []byte) error {
			entries[string(k)] = v
			return nil
		})
		if err != nil {
			return xerrors.Errorf("parent: %v", err)
		}
	}

	s.RLock()
	for key, it := range s.items {
		if !strings.HasPrefix(key, string(prefix)) {
			continue
		}

		if it.deleted {
			delete(entries, key)
		} else {
			entries[key] = it.value
		}
	}
	s.RUnlock()

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		err := fn([]byte(key), append([]byte{}, entries[key]...))
		if err != nil {
			return xerrors.Errorf("callback failed: %v", err)
		}
	}

	return nil
}
