// Package native implements an execution service to run native contracts.
//
// A native contract is written in Go and packaged with the application. The
// service looks it up by the digest the transaction targets, attaches a state
// scoped to that digest, dispatches the action and releases the state. The
// updates of a transaction are applied only when the handler reports OK.
//
// Documentation Last Review: 19.10.2026
//
package native

import (
	"sync"

	"go.dedis.ch/synergy/core/access"
	"go.dedis.ch/synergy/core/contract"
	"go.dedis.ch/synergy/core/execution"
	"go.dedis.ch/synergy/core/store"
	"go.dedis.ch/synergy/core/store/mem"
	"go.dedis.ch/synergy/core/store/prefixed"
	"go.dedis.ch/synergy/core/txn"
	"golang.org/x/xerrors"
)

// entry serializes the dispatches to a single contract.
type entry struct {
	sync.Mutex

	contract *contract.Contract
}

// Service is an execution service for packaged contracts. Different contracts
// can be executed in parallel, but the dispatches to the same contract are
// serialized.
//
// - implements execution.Service
type Service struct {
	sync.RWMutex

	contracts map[txn.Digest]*entry
}

// NewExecution returns a new native execution.
func NewExecution() *Service {
	return &Service{
		contracts: make(map[txn.Digest]*entry),
	}
}

// Set stores the contract using the digest as the key. A transaction can
// trigger this contract by targeting the same digest. It panics if a contract
// is already registered for the digest.
func (ns *Service) Set(digest txn.Digest, c *contract.Contract) {
	ns.Lock()
	defer ns.Unlock()

	_, found := ns.contracts[digest]
	if found {
		panic(xerrors.Errorf("contract '%v' already registered", digest))
	}

	ns.contracts[digest] = &entry{contract: c}
}

// Initialise dispatches the initialisation of the contract with the owner.
func (ns *Service) Initialise(snap store.Snapshot, digest txn.Digest, owner access.Address) (execution.Result, error) {
	var res contract.Result

	err := ns.run(snap, digest, func(c *contract.Contract) bool {
		res = c.DispatchInitialise(owner)
		return res.Status == contract.StatusOK
	})
	if err != nil {
		return execution.Result{}, xerrors.Errorf("failed to initialise: %v", err)
	}

	return makeResult(res), nil
}

// Execute implements execution.Service. It dispatches the transaction to the
// contract and applies the updates if the handler succeeds.
func (ns *Service) Execute(snap store.Snapshot, tx txn.Transaction) (execution.Result, error) {
	var res contract.Result

	err := ns.run(snap, tx.GetContract(), func(c *contract.Contract) bool {
		res = c.DispatchTransaction(tx.GetAction(), tx, tx.GetBlockIndex())
		return res.Status == contract.StatusOK
	})
	if err != nil {
		return execution.Result{}, xerrors.Errorf("failed to execute: %v", err)
	}

	return makeResult(res), nil
}

// Query dispatches a query to the contract. A query never updates the state.
func (ns *Service) Query(snap store.Snapshot, digest txn.Digest, name string, query contract.Query) (contract.Status, contract.Query, error) {
	status := contract.StatusNotFound
	response := contract.Query{}

	err := ns.run(snap, digest, func(c *contract.Contract) bool {
		status = c.DispatchQuery(name, query, response)
		return false
	})
	if err != nil {
		return status, nil, xerrors.Errorf("failed to query: %v", err)
	}

	return status, response, nil
}

// run looks up the contract and calls the dispatch function while the state
// is attached. The buffered updates are applied only if the function returns
// true.
func (ns *Service) run(snap store.Snapshot, digest txn.Digest, dispatch func(*contract.Contract) bool) (err error) {
	ns.RLock()
	e := ns.contracts[digest]
	ns.RUnlock()

	if e == nil {
		return xerrors.Errorf("unknown contract '%v'", digest)
	}

	e.Lock()
	defer e.Unlock()

	overlay := mem.NewOverlay(prefixed.NewSnapshot(digest.String(), snap))

	guard := e.contract.Attach(overlay)
	defer guard.Release()

	defer func() {
		r := recover()
		if r != nil {
			err = xerrors.Errorf("contract '%s' panicked: %v", e.contract.Name(), r)
		}
	}()

	if !dispatch(e.contract) {
		return nil
	}

	err = overlay.Apply()
	if err != nil {
		return xerrors.Errorf("failed to apply updates: %v", err)
	}

	return nil
}

func makeResult(res contract.Result) execution.Result {
	return execution.Result{
		Accepted:    res.Status == contract.StatusOK,
		ReturnValue: res.ReturnValue,
		Message:     resultMessage(res),
	}
}

func resultMessage(res contract.Result) string {
	if res.Status == contract.StatusOK {
		return res.Message
	}

	if res.Message == "" {
		return res.Status.String()
	}

	return res.Status.String() + ": " + res.Message
}
