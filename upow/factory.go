package upow

import (
	"go.dedis.ch/synergy/core/store"
	"go.dedis.ch/synergy/core/txn"
	"go.dedis.ch/synergy/core/vm"
	"golang.org/x/xerrors"
)

// ErrContractNotFound is returned when no code is stored for a digest.
var ErrContractNotFound = xerrors.New("contract not found")

const codePrefix = "synergetic:code:"

// CodeKey returns the storage key of the code identified by the digest.
func CodeKey(digest txn.Digest) []byte {
	return append([]byte(codePrefix), digest.Bytes()...)
}

// Deploy stores the code under its content digest and returns the digest.
// Deploying the same code twice gives the same digest.
func Deploy(snap store.Writable, code []byte) (txn.Digest, error) {
	if len(code) == 0 {
		return txn.Digest{}, xerrors.New("code is empty")
	}

	digest := txn.DigestOf(code)

	err := snap.Set(CodeKey(digest), code)
	if err != nil {
		return txn.Digest{}, xerrors.Errorf("failed to store code: %v", err)
	}

	return digest, nil
}

// Deployment describes a contract code stored on the ledger.
type Deployment struct {
	Digest txn.Digest
	Size   int
}

// ListDeployments returns the contracts deployed in the storage ordered by
// digest.
func ListDeployments(storage store.Scanner) ([]Deployment, error) {
	var list []Deployment

	err := storage.Scan([]byte(codePrefix), func(key, value []byte) error {
		raw := key[len(codePrefix):]
		if len(raw) != txn.DigestSize {
			return xerrors.Errorf("invalid code key %#x", key)
		}

		var digest txn.Digest
		copy(digest[:], raw)

		list = append(list, Deployment{Digest: digest, Size: len(value)})

		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to list deployments: %v", err)
	}

	return list, nil
}

// Factory creates synergetic contracts from the code stored on the ledger.
// It never caches a contract as it carries the state of a round.
type Factory struct {
	storage  store.Readable
	compiler vm.Compiler
}

// NewFactory returns a factory that reads the code from the storage and
// compiles it with the compiler.
func NewFactory(storage store.Readable, compiler vm.Compiler) Factory {
	return Factory{
		storage:  storage,
		compiler: compiler,
	}
}

// Create looks up the code of the digest and compiles it into a new synergetic
// contract. It returns ErrContractNotFound when no code is stored for the
// digest, and an error wrapping vm.ErrCompilation when the code does not
// compile.
func (f Factory) Create(digest txn.Digest) (*SynergeticContract, error) {
	code, err := f.storage.Get(CodeKey(digest))
	if err != nil {
		return nil, xerrors.Errorf("failed to read code of '%v': %v", digest, err)
	}

	if len(code) == 0 {
		return nil, xerrors.Errorf("'%v': %w", digest, ErrContractNotFound)
	}

	prog, err := f.compiler.Compile(code)
	if err != nil {
		if !xerrors.Is(err, vm.ErrCompilation) {
			err = xerrors.Errorf("%v: %w", err, vm.ErrCompilation)
		}

		return nil, xerrors.Errorf("failed to compile '%v': %w", digest, err)
	}

	return NewSynergeticContract(digest, prog)
}
