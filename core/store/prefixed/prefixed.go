// Package prefixed implements the state adapter handed to a contract.
//
// Every key read or written through the adapter is hashed together with the
// namespace of the contract, so that two contracts can never reach each other
// keys, whatever the keys they choose.
package prefixed

import (
	"go.dedis.ch/synergy/core/store"
	"go.dedis.ch/synergy/crypto"
)

var hashFactory = crypto.NewHashFactory(crypto.Sha256)

// Adapter is a snapshot scoped to the namespace of a single contract.
//
// - implements store.Snapshot
type Adapter struct {
	namespace []byte
	snap      store.Snapshot
}

// NewSnapshot returns the view of the snapshot in the namespace.
func NewSnapshot(namespace string, snap store.Snapshot) *Adapter {
	return &Adapter{
		namespace: []byte(namespace),
		snap:      snap,
	}
}

// NewReadable returns a read-only view of the storage in the namespace.
func NewReadable(namespace string, r store.Readable) store.Readable {
	return readable{namespace: []byte(namespace), r: r}
}

// Namespace returns the namespace of the adapter.
func (a *Adapter) Namespace() string {
	return string(a.namespace)
}

// Get implements store.Readable.
func (a *Adapter) Get(key []byte) ([]byte, error) {
	return a.snap.Get(NewPrefixedKey(a.namespace, key))
}

// Set implements store.Writable.
func (a *Adapter) Set(key []byte, value []byte) error {
	return a.snap.Set(NewPrefixedKey(a.namespace, key), value)
}

// Delete implements store.Writable.
func (a *Adapter) Delete(key []byte) error {
	return a.snap.Delete(NewPrefixedKey(a.namespace, key))
}

// NewPrefixedKey returns the key of the storage holding the key of the
// namespace. (ab, c) and (a, bc) give different keys.
func NewPrefixedKey(namespace, key []byte) []byte {
	return crypto.SumFramed(hashFactory, namespace, key)
}

type readable struct {
	namespace []byte
	r         store.Readable
}

func (r readable) Get(key []byte) ([]byte, error) {
	return r.r.Get(NewPrefixedKey(r.namespace, key))
}
