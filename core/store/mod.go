// Package store defines the primitives of a simple key/value storage.
//
// It is the storage interface consumed by the contracts: a contract only ever
// sees a snapshot scoped to its own namespace.
//
// Documentation Last Review: 19.10.2026
//
package store

// Readable is the interface for a readable store. A key that does not exist
// returns a nil value without error.
type Readable interface {
	Get(key []byte) ([]byte, error)
}

// Writable is the interface for a writable store.
type Writable interface {
	Set(key []byte, value []byte) error

	Delete(key []byte) error
}

// Snapshot is a state of the store that can be read and write independently. A
// write is applied only to the snapshot reference.
type Snapshot interface {
	Readable
	Writable
}

// Scanner is implemented by the stores that can iterate over their keys.
type Scanner interface {
	// Scan calls the function for every key starting with the prefix, in byte
	// order. It stops at the first error returned by the function.
	Scan(prefix []byte, fn func(key, value []byte) error) error
}
