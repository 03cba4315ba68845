// Package contract implements the dispatch of transactions and queries to the
// handlers a contract registers.
//
// Registration happens once, while the contract is built, and fails loudly
// with an error on a duplicate name. Dispatch happens for every transaction and
// never fails with an error: the outcome is a status code that every node
// computes identically for the same input.
//
// A handler only reaches the ledger through the state attached to the
// contract for the duration of the invocation.
//
// Documentation Last Review: 19.10.2026
//
package contract

import (
	"sort"

	"github.com/rs/zerolog"
	"go.dedis.ch/synergy"
	"go.dedis.ch/synergy/core/access"
	"go.dedis.ch/synergy/core/store"
	"go.dedis.ch/synergy/core/txn"
	"golang.org/x/xerrors"
)

var (
	// ErrDuplicateHandler is returned when a handler is registered under a
	// name already used in the same category.
	ErrDuplicateHandler = xerrors.New("duplicate handler")

	// ErrStateNotAttached is the panic value when a handler reads the state of
	// a contract that is not attached.
	ErrStateNotAttached = xerrors.New("state not attached")

	// ErrStateAlreadyAttached is the panic value when a state is attached to a
	// contract that already has one.
	ErrStateAlreadyAttached = xerrors.New("state already attached")
)

// InitialiseHandler is called once in the lifetime of a contract with the
// address of its owner.
type InitialiseHandler func(owner access.Address) Result

// TransactionHandler processes a transaction in the context of a block.
type TransactionHandler func(tx txn.Transaction, index txn.BlockIndex) Result

// QueryHandler answers a query by writing into the response.
type QueryHandler func(query Query, response Query) Status

// Contract holds the handlers of a contract and dispatches the requests to
// them. It must not be used by multiple goroutines at the same time.
type Contract struct {
	name   string
	logger zerolog.Logger

	initHandler   InitialiseHandler
	txHandlers    map[string]TransactionHandler
	txCounters    map[string]uint64
	queryHandlers map[string]QueryHandler
	queryCounters map[string]uint64

	state store.Snapshot
	epoch uint64
}

// NewContract creates an empty contract. The name only identifies the contract
// in the logs.
func NewContract(name string) *Contract {
	return &Contract{
		name:          name,
		logger:        synergy.Logger.With().Str("contract", name).Logger(),
		txHandlers:    make(map[string]TransactionHandler),
		txCounters:    make(map[string]uint64),
		queryHandlers: make(map[string]QueryHandler),
		queryCounters: make(map[string]uint64),
	}
}

// Name returns the name of the contract.
func (c *Contract) Name() string {
	return c.name
}

// OnInitialise registers the initialisation handler.
func (c *Contract) OnInitialise(handler InitialiseHandler) error {
	if c.initHandler != nil {
		return xerrors.Errorf("initialise handler: %w", ErrDuplicateHandler)
	}

	c.initHandler = handler

	return nil
}

// OnTransaction registers a transaction handler under the name and resets its
// counter.
func (c *Contract) OnTransaction(name string, handler TransactionHandler) error {
	_, found := c.txHandlers[name]
	if found {
		return xerrors.Errorf("transaction handler '%s': %w", name, ErrDuplicateHandler)
	}

	c.txHandlers[name] = handler
	c.txCounters[name] = 0

	return nil
}

// OnQuery registers a query handler under the name and resets its counter.
func (c *Contract) OnQuery(name string, handler QueryHandler) error {
	_, found := c.queryHandlers[name]
	if found {
		return xerrors.Errorf("query handler '%s': %w", name, ErrDuplicateHandler)
	}

	c.queryHandlers[name] = handler
	c.queryCounters[name] = 0

	return nil
}

// DispatchInitialise calls the initialisation handler if any. A contract
// without one is valid and the result is then OK.
func (c *Contract) DispatchInitialise(owner access.Address) Result {
	if c.initHandler == nil {
		return NewResult(StatusOK)
	}

	res := c.initHandler(owner)

	c.logger.Debug().
		Stringer("owner", owner).
		Stringer("status", res.Status).
		Msg("initialise dispatched")

	return res
}

// DispatchTransaction calls the transaction handler registered under the name.
// The counter of the handler increases for every call, whatever the result is.
// It returns NOT_FOUND when no such handler exists.
func (c *Contract) DispatchTransaction(name string, tx txn.Transaction, index txn.BlockIndex) Result {
	handler, found := c.txHandlers[name]
	if !found {
		c.logger.Debug().Str("handler", name).Msg("transaction handler not found")
		return NewResult(StatusNotFound)
	}

	res := handler(tx, index)
	c.txCounters[name]++

	c.logger.Debug().
		Str("handler", name).
		Uint64("block", uint64(index)).
		Stringer("status", res.Status).
		Msg("transaction dispatched")

	return res
}

// DispatchQuery calls the query handler registered under the name. The
// response must be allocated by the caller and is filled by the handler. It
// returns NOT_FOUND when no such handler exists.
func (c *Contract) DispatchQuery(name string, query Query, response Query) Status {
	handler, found := c.queryHandlers[name]
	if !found {
		return StatusNotFound
	}

	status := handler(query, response)
	c.queryCounters[name]++

	c.logger.Debug().Str("query", name).Stringer("status", status).Msg("query dispatched")

	return status
}

// Attach binds the state to the contract until the returned attachment is
// released. The caller must release it on every exit path, typically with a
// defer right after the call.
func (c *Contract) Attach(state store.Snapshot) *Attachment {
	if c.state != nil {
		panic(xerrors.Errorf("contract '%s': %w", c.name, ErrStateAlreadyAttached))
	}

	c.state = state
	c.epoch++

	return &Attachment{contract: c, epoch: c.epoch}
}

// Detach unbinds the state from the contract. Attachments handed out before
// become stale and their release has no effect.
func (c *Contract) Detach() {
	c.state = nil
	c.epoch++
}

// IsAttached returns true if a state is bound to the contract.
func (c *Contract) IsAttached() bool {
	return c.state != nil
}

// State returns the attached state. It panics when no state is attached as it
// means the orchestrator runs a handler outside of an attachment.
func (c *Contract) State() store.Snapshot {
	if c.state == nil {
		panic(xerrors.Errorf("contract '%s': %w", c.name, ErrStateNotAttached))
	}

	return c.state
}

// TransactionCounter returns the number of times the transaction handler has
// been dispatched.
func (c *Contract) TransactionCounter(name string) uint64 {
	return c.txCounters[name]
}

// QueryCounter returns the number of times the query handler has been
// dispatched.
func (c *Contract) QueryCounter(name string) uint64 {
	return c.queryCounters[name]
}

// TransactionHandlers returns the sorted names of the transaction handlers.
func (c *Contract) TransactionHandlers() []string {
	return sortedKeys(c.txCounters)
}

// QueryHandlers returns the sorted names of the query handlers.
func (c *Contract) QueryHandlers() []string {
	return sortedKeys(c.queryCounters)
}

// Attachment is the guard returned when a state is attached to a contract.
type Attachment struct {
	contract *Contract
	epoch    uint64
	released bool
}

// Release detaches the state from the contract. Calling it more than once has
// no effect, and neither has it once the state was detached or replaced by
// another attachment.
func (a *Attachment) Release() {
	if a.released {
		return
	}

	a.released = true

	if a.contract.epoch == a.epoch {
		a.contract.Detach()
	}
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
