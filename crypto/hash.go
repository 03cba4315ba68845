package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"

	"golang.org/x/crypto/sha3"
)

// HashAlgorithm identifies a hash function of the ledger.
type HashAlgorithm int

const (
	// Sha256 computes the digests of the contract code and the keys of the
	// contract namespaces.
	Sha256 HashAlgorithm = iota
	// Sha3_224 derives the addresses from the public keys.
	Sha3_224
)

// String implements fmt.Stringer.
func (a HashAlgorithm) String() string {
	switch a {
	case Sha256:
		return "SHA-256"
	case Sha3_224:
		return "SHA3-224"
	default:
		return "UNKNOWN"
	}
}

// - implements crypto.HashFactory
type hashFactory struct {
	algo HashAlgorithm
}

// NewHashFactory returns the factory of the algorithm. It panics when the
// algorithm is unknown.
func NewHashFactory(a HashAlgorithm) HashFactory {
	if a != Sha256 && a != Sha3_224 {
		panic("unknown hash algorithm " + a.String())
	}

	return hashFactory{algo: a}
}

// New implements crypto.HashFactory.
func (f hashFactory) New() hash.Hash {
	if f.algo == Sha3_224 {
		return sha3.New224()
	}

	return sha256.New()
}

// SumFramed hashes the chunks, each one preceded by its length on two bytes,
// so that splitting the same bytes differently gives a different digest.
// Chunks longer than 65535 bytes are not supported.
func SumFramed(f HashFactory, chunks ...[]byte) []byte {
	h := f.New()

	length := make([]byte, 2)

	for _, chunk := range chunks {
		binary.LittleEndian.PutUint16(length, uint16(len(chunk)))

		h.Write(length)
		h.Write(chunk)
	}

	return h.Sum(nil)
}
