// Package txn defines the transaction record that triggers a contract
// dispatch.
//
// A transaction targets the contract identified by the digest of its code and
// names the handler to run. It is immutable once created so that every node
// dispatches exactly the same input.
//
// Documentation Last Review: 19.10.2026
//
package txn

import (
	"go.dedis.ch/synergy/core/access"
)

// BlockIndex is the height of the block a transaction is processed under.
type BlockIndex uint64

// Transaction is the input of a contract dispatch.
type Transaction struct {
	contract   Digest
	action     string
	payload    []byte
	from       access.Address
	blockIndex BlockIndex
}

// TransactionOption is the type of options to create a transaction.
type TransactionOption func(*Transaction)

// WithPayload is an option to set the opaque payload of the transaction. The
// payload is copied.
func WithPayload(data []byte) TransactionOption {
	return func(tx *Transaction) {
		tx.payload = append([]byte{}, data...)
	}
}

// WithFrom is an option to set the originating address.
func WithFrom(addr access.Address) TransactionOption {
	return func(tx *Transaction) {
		tx.from = addr
	}
}

// WithBlockIndex is an option to set the block index the transaction is
// processed under.
func WithBlockIndex(index BlockIndex) TransactionOption {
	return func(tx *Transaction) {
		tx.blockIndex = index
	}
}

// NewTransaction creates a new transaction for the contract and the action.
func NewTransaction(contract Digest, action string, opts ...TransactionOption) Transaction {
	tx := Transaction{
		contract: contract,
		action:   action,
	}

	for _, opt := range opts {
		opt(&tx)
	}

	return tx
}

// GetContract returns the digest of the targeted contract.
func (tx Transaction) GetContract() Digest {
	return tx.contract
}

// GetAction returns the name of the handler to dispatch to.
func (tx Transaction) GetAction() string {
	return tx.action
}

// GetPayload returns a copy of the payload.
func (tx Transaction) GetPayload() []byte {
	if tx.payload == nil {
		return nil
	}

	return append([]byte{}, tx.payload...)
}

// GetFrom returns the originating address.
func (tx Transaction) GetFrom() access.Address {
	return tx.from
}

// GetBlockIndex returns the block index.
func (tx Transaction) GetBlockIndex() BlockIndex {
	return tx.blockIndex
}
