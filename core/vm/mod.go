// Package vm defines the compiler collaborator that turns the code stored on
// the ledger into a program a synergetic contract can run.
//
// The instruction set of the virtual machine is not defined here: a program
// only has to expose the functions the synergetic protocol relies on.
package vm

import (
	"go.dedis.ch/synergy/core/store"
	"golang.org/x/xerrors"
)

// ErrCompilation is wrapped by every error of a compiler about the code itself.
var ErrCompilation = xerrors.New("compilation error")

// Score is the value the objective function gives to a solution. It is an
// integer so that every node ranks the solutions identically.
type Score int64

// Direction defines which scores are better.
type Direction int

const (
	// Minimize means the lowest score wins.
	Minimize Direction = iota
	// Maximize means the highest score wins.
	Maximize
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	switch d {
	case Minimize:
		return "minimize"
	case Maximize:
		return "maximize"
	default:
		return "unknown"
	}
}

// Better returns true if the score a is strictly better than b.
func (d Direction) Better(a, b Score) bool {
	if d == Maximize {
		return a > b
	}

	return a < b
}

// Program is a compiled synergetic contract.
type Program interface {
	// Direction returns how the scores of the objective compare.
	Direction() Direction

	// Problem builds the problem of the round from the current state.
	Problem(state store.Readable) ([]byte, error)

	// Work turns the payload of a submission into a solution of the problem.
	Work(problem []byte, payload []byte) ([]byte, error)

	// Objective scores a solution of the problem.
	Objective(problem []byte, solution []byte) (Score, error)

	// Commit applies the effects of the winning solution to the state.
	Commit(state store.Snapshot, problem []byte, solution []byte) error
}

// Compiler compiles source code into a program.
type Compiler interface {
	Compile(source []byte) (Program, error)
}
