// Package access defines the identity of the parties interacting with
// contracts.
//
// An address is opaque: the ledger never interprets its bytes, it only needs
// to compare them. The total order over addresses is what makes the selection
// of a synergetic winner deterministic across nodes.
package access

import (
	"bytes"

	"github.com/mr-tron/base58"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/synergy/crypto"
	"golang.org/x/xerrors"
)

// Address is the immutable identity of the owner of a transaction.
type Address struct {
	raw string
}

// NewAddress creates an address from the raw bytes. The bytes are copied.
func NewAddress(raw []byte) Address {
	return Address{raw: string(raw)}
}

// NewAddressFromKey derives an address from an Ed25519 public key by hashing
// its binary representation.
func NewAddressFromKey(pk kyber.Point) (Address, error) {
	data, err := pk.MarshalBinary()
	if err != nil {
		return Address{}, xerrors.Errorf("failed to marshal public key: %v", err)
	}

	h := crypto.NewHashFactory(crypto.Sha3_224).New()

	_, err = h.Write(data)
	if err != nil {
		return Address{}, xerrors.Errorf("failed to hash public key: %v", err)
	}

	return NewAddress(h.Sum(nil)), nil
}

// ParseAddress returns the address encoded in the base58 text.
func ParseAddress(text string) (Address, error) {
	raw, err := base58.Decode(text)
	if err != nil {
		return Address{}, xerrors.Errorf("malformed address '%s': %v", text, err)
	}

	return NewAddress(raw), nil
}

// Bytes returns a copy of the raw address.
func (a Address) Bytes() []byte {
	return []byte(a.raw)
}

// IsZero returns true when the address is empty.
func (a Address) IsZero() bool {
	return len(a.raw) == 0
}

// Equal returns true when both addresses are the same.
func (a Address) Equal(other Address) bool {
	return a.raw == other.raw
}

// Compare returns an integer comparing two addresses bytewise. The result is
// 0 if a == other, -1 if a < other, and +1 if a > other.
func (a Address) Compare(other Address) int {
	return bytes.Compare([]byte(a.raw), []byte(other.raw))
}

// MarshalText implements encoding.TextMarshaler. It returns the base58 form of
// the address.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	addr, err := ParseAddress(string(text))
	if err != nil {
		return err
	}

	*a = addr

	return nil
}

// String implements fmt.Stringer. It returns the base58 form of the address.
func (a Address) String() string {
	return base58.Encode([]byte(a.raw))
}
