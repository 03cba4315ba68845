package crypto

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashFactory_New(t *testing.T) {
	h := NewHashFactory(Sha256).New()
	require.Equal(t, 32, h.Size())

	h = NewHashFactory(Sha3_224).New()
	require.Equal(t, 28, h.Size())

	require.PanicsWithValue(t, "unknown hash algorithm UNKNOWN", func() {
		NewHashFactory(HashAlgorithm(42))
	})
}

func TestHashAlgorithm_String(t *testing.T) {
	require.Equal(t, "SHA-256", Sha256.String())
	require.Equal(t, "SHA3-224", Sha3_224.String())
	require.Equal(t, "UNKNOWN", HashAlgorithm(-1).String())
}

func TestSumFramed(t *testing.T) {
	f := NewHashFactory(Sha256)

	k1 := SumFramed(f, []byte("ab"), []byte("c"))
	k2 := SumFramed(f, []byte("a"), []byte("bc"))

	require.Len(t, k1, 32)
	require.NotEqual(t, k1, k2)
	require.Equal(t, k1, SumFramed(f, []byte("ab"), []byte("c")))

	expected := sha256.Sum256([]byte{2, 0, 'a', 'b', 1, 0, 'c'})
	require.Equal(t, expected[:], k1)

	require.Len(t, SumFramed(NewHashFactory(Sha3_224)), 28)
}
