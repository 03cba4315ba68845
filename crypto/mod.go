// Package crypto defines the cryptographic primitives used to address contract
// code and to namespace contract state.
//
// Documentation Last Review: 19.10.2026
//
package crypto

import "hash"

// HashFactory is an interface to produce a hash digest.
type HashFactory interface {
	New() hash.Hash
}
