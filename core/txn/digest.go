package txn

import (
	"encoding/hex"

	"go.dedis.ch/synergy/crypto"
	"golang.org/x/xerrors"
)

// DigestSize is the size in bytes of a digest.
const DigestSize = 32

// Digest is the content hash of the code of a contract. Two contracts with the
// same code share the same digest.
type Digest [DigestSize]byte

// DigestOf computes the digest of the code.
func DigestOf(code []byte) Digest {
	h := crypto.NewHashFactory(crypto.Sha256).New()
	h.Write(code)

	var d Digest
	copy(d[:], h.Sum(nil))

	return d
}

// ParseDigest decodes the hexadecimal form of a digest.
func ParseDigest(text string) (Digest, error) {
	var d Digest

	raw, err := hex.DecodeString(text)
	if err != nil {
		return d, xerrors.Errorf("malformed digest: %v", err)
	}

	if len(raw) != DigestSize {
		return d, xerrors.Errorf("digest must be %d bytes but got %d", DigestSize, len(raw))
	}

	copy(d[:], raw)

	return d, nil
}

// Bytes returns a copy of the digest as a slice.
func (d Digest) Bytes() []byte {
	return append([]byte{}, d[:]...)
}

// String implements fmt.Stringer. It returns the hexadecimal form.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}
