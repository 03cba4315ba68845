// Package token implements a native fungible token contract.
//
// The owner receives the initial supply when the contract is initialised. Any
// holder can then transfer tokens with a JSON payload:
//
//	{"to": "<base58 address>", "amount": 10}
//
// and anyone can query a balance with {"address": "<base58 address>"}.
package token

import (
	"encoding/binary"

	"go.dedis.ch/synergy"
	"go.dedis.ch/synergy/core/access"
	"go.dedis.ch/synergy/core/contract"
	"go.dedis.ch/synergy/core/txn"
	"golang.org/x/xerrors"
)

const (
	// ContractName is the name of the contract.
	ContractName = "go.dedis.ch/synergy.Token"

	// TransferAction is the name of the transaction handler moving tokens.
	TransferAction = "transfer"

	// BalanceQuery is the name of the query handler returning a balance.
	BalanceQuery = "balance"

	balancePrefix = "balance:"
)

// NewContract creates a token contract that mints the supply to its owner.
func NewContract(supply uint64) (*contract.Contract, error) {
	c := contract.NewContract(ContractName)
	t := token{Contract: c, supply: supply}

	err := c.OnInitialise(t.initialise)
	if err != nil {
		return nil, xerrors.Errorf("failed to register: %v", err)
	}

	err = c.OnTransaction(TransferAction, t.transfer)
	if err != nil {
		return nil, xerrors.Errorf("failed to register: %v", err)
	}

	err = c.OnQuery(BalanceQuery, t.balance)
	if err != nil {
		return nil, xerrors.Errorf("failed to register: %v", err)
	}

	return c, nil
}

type token struct {
	*contract.Contract

	supply uint64
}

func (t token) initialise(owner access.Address) contract.Result {
	err := t.setBalance(owner, t.supply)
	if err != nil {
		return contract.Failf(contract.StatusFailed, err.Error())
	}

	synergy.Logger.Info().
		Str("contract", ContractName).
		Stringer("owner", owner).
		Uint64("supply", t.supply).
		Msg("token initialised")

	return contract.NewResult(contract.StatusOK)
}

func (t token) transfer(tx txn.Transaction, _ txn.BlockIndex) contract.Result {
	from := tx.GetFrom()
	if from.IsZero() {
		return contract.Failf(contract.StatusPermissionDenied, "missing originator")
	}

	var doc contract.Document
	if !contract.ParseAsJson(tx, &doc) {
		return contract.Failf(contract.StatusFailed, "malformed payload")
	}

	text, ok := doc.String("to")
	if !ok {
		return contract.Failf(contract.StatusFailed, "'to' not found in payload")
	}

	to, err := access.ParseAddress(text)
	if err != nil {
		return contract.Failf(contract.StatusFailed, err.Error())
	}

	amount, ok := doc.Uint64("amount")
	if !ok {
		return contract.Failf(contract.StatusFailed, "'amount' not found in payload")
	}

	fromBalance, err := t.getBalance(from)
	if err != nil {
		return contract.Failf(contract.StatusFailed, err.Error())
	}

	if fromBalance < amount {
		return contract.Failf(contract.StatusFailed, "insufficient balance")
	}

	if from.Equal(to) {
		return contract.NewResult(contract.StatusOK)
	}

	toBalance, err := t.getBalance(to)
	if err != nil {
		return contract.Failf(contract.StatusFailed, err.Error())
	}

	if toBalance+amount < toBalance {
		return contract.Failf(contract.StatusFailed, "balance overflow")
	}

	err = t.setBalance(from, fromBalance-amount)
	if err != nil {
		return contract.Failf(contract.StatusFailed, err.Error())
	}

	err = t.setBalance(to, toBalance+amount)
	if err != nil {
		return contract.Failf(contract.StatusFailed, err.Error())
	}

	return contract.NewResult(contract.StatusOK)
}

func (t token) balance(query contract.Query, response contract.Query) contract.Status {
	text, ok := query.String("address")
	if !ok {
		return contract.StatusFailed
	}

	addr, err := access.ParseAddress(text)
	if err != nil {
		return contract.StatusFailed
	}

	balance, err := t.getBalance(addr)
	if err != nil {
		return contract.StatusFailed
	}

	response["balance"] = balance

	return contract.StatusOK
}

func (t token) getBalance(addr access.Address) (uint64, error) {
	value, err := t.State().Get(balanceKey(addr))
	if err != nil {
		return 0, xerrors.Errorf("failed to read balance: %v", err)
	}

	if len(value) != 8 {
		return 0, nil
	}

	return binary.LittleEndian.Uint64(value), nil
}

func (t token) setBalance(addr access.Address, balance uint64) error {
	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, balance)

	err := t.State().Set(balanceKey(addr), buffer)
	if err != nil {
		return xerrors.Errorf("failed to write balance: %v", err)
	}

	return nil
}

func balanceKey(addr access.Address) []byte {
	return append([]byte(balancePrefix), addr.Bytes()...)
}
