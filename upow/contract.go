// Package upow implements the rounds of proof-of-useful-work contracts.
//
// A round goes through the stages DEFINED, COLLECTING, RESOLVED and
// COMMITTED. The problem is computed from the state of the contract, the
// participants submit solutions which are scored against that problem only,
// and the best one is applied to the state. The winner only depends on the
// set of submissions and never on the order they arrive in.
//
// Documentation Last Review: 19.10.2026
//
package upow

import (
	"bytes"
	"sync"

	"github.com/rs/zerolog"
	"go.dedis.ch/synergy"
	"go.dedis.ch/synergy/core/access"
	"go.dedis.ch/synergy/core/contract"
	"go.dedis.ch/synergy/core/store/mem"
	"go.dedis.ch/synergy/core/txn"
	"go.dedis.ch/synergy/core/vm"
	"golang.org/x/xerrors"
)

const (
	// ProblemEntry is the entry point defining the problem of the round.
	ProblemEntry = "problem"
	// WorkEntry is the entry point submitting a candidate solution.
	WorkEntry = "work"
	// ObjectiveEntry is the entry point scoring a solution.
	ObjectiveEntry = "objective"
	// ClearEntry is the entry point discarding the round.
	ClearEntry = "clear"

	// BestQuery is the query returning the best candidate so far.
	BestQuery = "best"
)

var (
	// ErrProblem is wrapped by the errors of the problem function. The round
	// cannot proceed when it happens.
	ErrProblem = xerrors.New("problem definition failed")

	// ErrNoProblem is returned when a solution is submitted or scored while no
	// problem is defined.
	ErrNoProblem = xerrors.New("no problem defined")
)

// Stage is the stage of the round of a synergetic contract.
type Stage int

const (
	// StageIdle is the stage before the problem is defined.
	StageIdle Stage = iota

	// StageDefined is the stage after the problem is defined and before the
	// first candidate is accepted.
	StageDefined

	// StageCollecting is the stage where candidates are accepted.
	StageCollecting

	// StageResolved is the stage after the winner is selected. No more
	// candidates are accepted.
	StageResolved

	// StageCommitted is the stage after the winner is applied to the state.
	StageCommitted
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "IDLE"
	case StageDefined:
		return "DEFINED"
	case StageCollecting:
		return "COLLECTING"
	case StageResolved:
		return "RESOLVED"
	case StageCommitted:
		return "COMMITTED"
	default:
		return "UNKNOWN"
	}
}

// Submission is a payload sent by a participant to solve the problem of the
// round. The nonce orders the submissions of a participant.
type Submission struct {
	From    access.Address
	Nonce   uint64
	Payload []byte
}

// Candidate is a scored solution of the round.
type Candidate struct {
	Submitter access.Address
	Sequence  uint64
	Solution  []byte
	Score     vm.Score
}

// Synergetic is the capability of a contract running proof-of-useful-work
// rounds.
type Synergetic interface {
	// DefineProblem computes the problem of the round from the attached state.
	DefineProblem() error

	// Work turns a submission into a scored candidate.
	Work(sub Submission) (Candidate, error)

	// Objective scores a solution against the problem of the round.
	Objective(solution []byte) (vm.Score, error)

	// Clear discards the problem and the candidates of the round.
	Clear()
}

// SynergeticContract is a contract running the rounds of a compiled program.
// The entry points are also registered as transaction handlers of the
// embedded contract so that a block can drive a round.
//
// Work and Objective can be called concurrently. The other functions must be
// called by the single orchestrator of the round.
//
// - implements upow.Synergetic
type SynergeticContract struct {
	*contract.Contract

	mu         sync.Mutex
	digest     txn.Digest
	program    vm.Program
	logger     zerolog.Logger
	stage      Stage
	generation uint64
	problem    []byte
	candidates []Candidate
}

// NewSynergeticContract creates a synergetic contract for the program.
func NewSynergeticContract(digest txn.Digest, prog vm.Program) (*SynergeticContract, error) {
	c := &SynergeticContract{
		Contract: contract.NewContract("synergetic:" + digest.String()),
		digest:   digest,
		program:  prog,
		logger:   synergy.Logger.With().Stringer("synergetic", digest).Logger(),
	}

	err := c.register()
	if err != nil {
		return nil, xerrors.Errorf("failed to register entry points: %v", err)
	}

	return c, nil
}

// Digest returns the digest of the code of the contract.
func (c *SynergeticContract) Digest() txn.Digest {
	return c.digest
}

// Direction returns the direction of the objective of the program.
func (c *SynergeticContract) Direction() vm.Direction {
	return c.program.Direction()
}

// Stage returns the current stage of the round.
func (c *SynergeticContract) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stage
}

// Problem returns the problem of the round, or nil when none is defined.
func (c *SynergeticContract) Problem() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]byte(nil), c.problem...)
}

// Candidates returns the accepted candidates in the order they have been
// accepted.
func (c *SynergeticContract) Candidates() []Candidate {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Candidate{}, c.candidates...)
}

// DefineProblem implements upow.Synergetic. It runs the problem function over
// the attached state. It panics if no state is attached.
func (c *SynergeticContract) DefineProblem() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.problem != nil {
		return xerrors.Errorf("problem already defined in stage %v", c.stage)
	}

	problem, err := c.program.Problem(c.State())
	if err != nil {
		return xerrors.Errorf("%v: %w", err, ErrProblem)
	}

	if problem == nil {
		return xerrors.Errorf("empty problem: %w", ErrProblem)
	}

	c.problem = problem
	c.stage = StageDefined

	c.logger.Debug().Int("size", len(problem)).Msg("problem defined")

	return nil
}

// Work implements upow.Synergetic. The submission is scored against the
// problem of the round only, so that concurrent submissions never observe
// each other. A submission that fails is discarded and does not affect the
// round.
func (c *SynergeticContract) Work(sub Submission) (Candidate, error) {
	c.mu.Lock()
	problem := c.problem
	generation := c.generation
	c.mu.Unlock()

	if problem == nil {
		return Candidate{}, ErrNoProblem
	}

	solution, score, err := c.evaluate(problem, sub.Payload)
	if err != nil {
		return Candidate{}, xerrors.Errorf("submission discarded: %v", err)
	}

	cand := Candidate{
		Submitter: sub.From,
		Sequence:  sub.Nonce,
		Solution:  solution,
		Score:     score,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != generation {
		return Candidate{}, xerrors.Errorf("round changed: %w", ErrNoProblem)
	}

	if c.stage != StageDefined && c.stage != StageCollecting {
		return Candidate{}, xerrors.Errorf("collection closed in stage %v", c.stage)
	}

	c.candidates = append(c.candidates, cand)
	c.stage = StageCollecting

	return cand, nil
}

// Objective implements upow.Synergetic.
func (c *SynergeticContract) Objective(solution []byte) (vm.Score, error) {
	c.mu.Lock()
	problem := c.problem
	c.mu.Unlock()

	if problem == nil {
		return 0, ErrNoProblem
	}

	return c.score(problem, solution)
}

// Resolve closes the collection and returns the best candidate. The best score
// in the direction of the program wins. Equal scores are ordered by the
// address of the submitter, then by the sequence number, then by the bytes of
// the solution so that every node selects the same winner whatever the order
// of arrival is. It returns false when no candidate has been accepted.
func (c *SynergeticContract) Resolve() (Candidate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stage == StageDefined || c.stage == StageCollecting {
		c.stage = StageResolved
	}

	return c.best()
}

// Commit resolves the round and applies the winner to the attached state. The
// state is left untouched when there is no winner or when the program fails.
// A round is committed at most once.
func (c *SynergeticContract) Commit() (Candidate, bool, error) {
	winner, found := c.Resolve()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.problem == nil {
		return Candidate{}, false, ErrNoProblem
	}

	if c.stage == StageCommitted {
		return Candidate{}, false, xerrors.New("round already committed")
	}

	if !found {
		c.stage = StageCommitted
		c.logger.Debug().Msg("round committed without a winner")

		return Candidate{}, false, nil
	}

	overlay := mem.NewOverlay(c.State())

	err := c.program.Commit(overlay, c.problem, winner.Solution)
	if err != nil {
		overlay.Discard()
		return Candidate{}, false, xerrors.Errorf("failed to commit winner: %v", err)
	}

	err = overlay.Apply()
	if err != nil {
		return Candidate{}, false, xerrors.Errorf("failed to apply winner: %v", err)
	}

	c.stage = StageCommitted

	c.logger.Debug().
		Stringer("winner", winner.Submitter).
		Int64("score", int64(winner.Score)).
		Msg("round committed")

	return winner, true, nil
}

// Clear implements upow.Synergetic. The contract can then define the problem
// of the next round. Submissions still being scored are rejected.
func (c *SynergeticContract) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.problem = nil
	c.candidates = nil
	c.generation++
	c.stage = StageIdle
}

func (c *SynergeticContract) best() (Candidate, bool) {
	if len(c.candidates) == 0 {
		return Candidate{}, false
	}

	dir := c.program.Direction()

	best := c.candidates[0]
	for _, cand := range c.candidates[1:] {
		if better(dir, cand, best) {
			best = cand
		}
	}

	return best, true
}

// evaluate runs the work and the objective functions of the program. A panic
// of the program is returned as an error.
func (c *SynergeticContract) evaluate(problem, payload []byte) (solution []byte, score vm.Score, err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = xerrors.Errorf("program panicked: %v", r)
		}
	}()

	solution, err = c.program.Work(problem, payload)
	if err != nil {
		return nil, 0, xerrors.Errorf("work failed: %v", err)
	}

	score, err = c.program.Objective(problem, solution)
	if err != nil {
		return nil, 0, xerrors.Errorf("objective failed: %v", err)
	}

	return solution, score, nil
}

func (c *SynergeticContract) score(problem, solution []byte) (score vm.Score, err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = xerrors.Errorf("program panicked: %v", r)
		}
	}()

	score, err = c.program.Objective(problem, solution)
	if err != nil {
		return 0, xerrors.Errorf("objective failed: %v", err)
	}

	return score, nil
}

// better returns true if the candidate a wins over b.
func better(dir vm.Direction, a, b Candidate) bool {
	if a.Score != b.Score {
		return dir.Better(a.Score, b.Score)
	}

	cmp := a.Submitter.Compare(b.Submitter)
	if cmp != 0 {
		return cmp < 0
	}

	if a.Sequence != b.Sequence {
		return a.Sequence < b.Sequence
	}

	return bytes.Compare(a.Solution, b.Solution) < 0
}
