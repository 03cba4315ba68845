// Package execution defines the service the block processor uses to apply a
// transaction to the ledger state.
package execution

import (
	"go.dedis.ch/synergy/core/store"
	"go.dedis.ch/synergy/core/txn"
)

// Result is the result of a transaction execution.
type Result struct {
	// Accepted is the success state of the transaction.
	Accepted bool

	// ReturnValue is the value the contract gave back, if any.
	ReturnValue int64

	// Message gives a chance to the execution to explain why a transaction has
	// failed.
	Message string
}

// Service is the execution service that defines the primitives to execute a
// transaction.
type Service interface {
	// Execute must apply the transaction to the snapshot and return the result
	// of it. An error means the transaction could not be processed at all, for
	// instance because the contract does not exist.
	Execute(snap store.Snapshot, tx txn.Transaction) (Result, error)
}
