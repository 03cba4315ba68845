package upow

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/synergy/core/contract"
	"go.dedis.ch/synergy/core/store/mem"
	"go.dedis.ch/synergy/core/txn"
	"go.dedis.ch/synergy/core/vm"
	"go.dedis.ch/synergy/internal/testing/fake"
	"golang.org/x/xerrors"
)

func TestSynergeticContract_EntryPoints(t *testing.T) {
	c := makeContract(t, fakeProgram{})

	var _ Synergetic = c

	require.Equal(t, []string{ClearEntry, ObjectiveEntry, ProblemEntry, WorkEntry},
		c.TransactionHandlers())
	require.Equal(t, []string{BestQuery, ProblemEntry}, c.QueryHandlers())
	require.Equal(t, txn.DigestOf([]byte("code")), c.Digest())
	require.Equal(t, StageIdle, c.Stage())
}

func TestSynergeticContract_Determinism(t *testing.T) {
	subs := []Submission{
		submit("A", 0, "10"),
		submit("B", 0, "7"),
		submit("C", 0, "7"),
	}

	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}, {2, 0, 1}}

	for _, order := range orders {
		c := makeContract(t, fakeProgram{dir: vm.Minimize})

		guard := c.Attach(mem.NewSnapshot())
		require.NoError(t, c.DefineProblem())

		for _, i := range order {
			_, err := c.Work(subs[i])
			require.NoError(t, err)
		}

		winner, found := c.Resolve()
		guard.Release()

		require.True(t, found)
		require.Equal(t, addr("B"), winner.Submitter)
		require.Equal(t, vm.Score(7), winner.Score)
		require.Equal(t, StageResolved, c.Stage())
	}
}

func TestSynergeticContract_Maximize(t *testing.T) {
	c := makeContract(t, fakeProgram{dir: vm.Maximize})

	guard := c.Attach(mem.NewSnapshot())
	defer guard.Release()

	require.NoError(t, c.DefineProblem())

	for _, sub := range []Submission{submit("C", 0, "10"), submit("A", 0, "7"), submit("B", 0, "10")} {
		_, err := c.Work(sub)
		require.NoError(t, err)
	}

	winner, found := c.Resolve()
	require.True(t, found)
	require.Equal(t, addr("B"), winner.Submitter)
	require.Equal(t, vm.Score(10), winner.Score)
}

func TestSynergeticContract_TieBreak(t *testing.T) {
	c := makeContract(t, fakeProgram{})

	guard := c.Attach(mem.NewSnapshot())
	defer guard.Release()

	require.NoError(t, c.DefineProblem())

	// Same submitter and score: the lowest sequence wins.
	for _, sub := range []Submission{submit("A", 3, "5"), submit("A", 1, "5"), submit("A", 2, "5")} {
		_, err := c.Work(sub)
		require.NoError(t, err)
	}

	winner, found := c.Resolve()
	require.True(t, found)
	require.Equal(t, uint64(1), winner.Sequence)

	// Same submitter, sequence and score: the solution bytes decide.
	dir := vm.Minimize
	a := Candidate{Submitter: addr("A"), Solution: []byte("05")}
	b := Candidate{Submitter: addr("A"), Solution: []byte("5")}
	require.True(t, better(dir, a, b))
	require.False(t, better(dir, b, a))
	require.False(t, better(dir, a, a))
}

func TestSynergeticContract_ConcurrentWork(t *testing.T) {
	c := makeContract(t, fakeProgram{})

	guard := c.Attach(mem.NewSnapshot())
	defer guard.Release()

	require.NoError(t, c.DefineProblem())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			_, err := c.Work(submit("peer", uint64(i), "3"))
			require.NoError(t, err)
		}(i)
	}

	wg.Wait()

	require.Len(t, c.Candidates(), 50)
	require.Equal(t, StageCollecting, c.Stage())

	winner, found := c.Resolve()
	require.True(t, found)
	require.Equal(t, uint64(0), winner.Sequence)
}

func TestSynergeticContract_DefineProblem(t *testing.T) {
	c := makeContract(t, fakeProgram{})

	require.PanicsWithError(t, "contract 'synergetic:"+c.Digest().String()+"': state not attached",
		func() { c.DefineProblem() })

	guard := c.Attach(mem.NewSnapshot())
	defer guard.Release()

	require.NoError(t, c.DefineProblem())
	require.Equal(t, StageDefined, c.Stage())
	require.Equal(t, []byte("after:"), c.Problem())

	err := c.DefineProblem()
	require.EqualError(t, err, "problem already defined in stage DEFINED")

	c = makeContract(t, fakeProgram{errProblem: fake.GetError()})
	guard = c.Attach(mem.NewSnapshot())
	defer guard.Release()

	err = c.DefineProblem()
	require.True(t, xerrors.Is(err, ErrProblem))
	require.EqualError(t, err, "fake error: problem definition failed")
	require.Equal(t, StageIdle, c.Stage())
	require.Nil(t, c.Problem())

	_, err = c.Work(submit("A", 0, "1"))
	require.Equal(t, ErrNoProblem, err)
}

func TestSynergeticContract_DiscardedWork(t *testing.T) {
	c := makeContract(t, fakeProgram{})

	_, err := c.Work(submit("A", 0, "1"))
	require.Equal(t, ErrNoProblem, err)

	_, err = c.Objective([]byte("1"))
	require.Equal(t, ErrNoProblem, err)

	guard := c.Attach(mem.NewSnapshot())
	defer guard.Release()

	require.NoError(t, c.DefineProblem())

	_, err = c.Work(submit("A", 0, "abc"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "submission discarded: work failed: ")

	cand, err := c.Work(submit("B", 0, "4"))
	require.NoError(t, err)
	require.Equal(t, vm.Score(4), cand.Score)

	score, err := c.Objective([]byte("12"))
	require.NoError(t, err)
	require.Equal(t, vm.Score(12), score)

	_, err = c.Objective([]byte("x"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "objective failed: ")

	require.Len(t, c.Candidates(), 1)

	c.Resolve()

	_, err = c.Work(submit("C", 0, "1"))
	require.EqualError(t, err, "collection closed in stage RESOLVED")
	require.Len(t, c.Candidates(), 1)
}

func TestSynergeticContract_PanickingWork(t *testing.T) {
	c := makeContract(t, fakeProgram{panicWork: true})

	guard := c.Attach(mem.NewSnapshot())
	defer guard.Release()

	require.NoError(t, c.DefineProblem())

	_, err := c.Work(submit("A", 0, "1"))
	require.EqualError(t, err, "submission discarded: program panicked: oops")

	_, found := c.Resolve()
	require.False(t, found)
}

func TestSynergeticContract_Commit(t *testing.T) {
	c := makeContract(t, fakeProgram{})
	state := mem.NewSnapshot()

	guard := c.Attach(state)
	defer guard.Release()

	_, _, err := c.Commit()
	require.Equal(t, ErrNoProblem, err)

	require.NoError(t, c.DefineProblem())

	// No winner means no state change.
	_, found, err := c.Commit()
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, StageCommitted, c.Stage())
	require.Equal(t, 0, state.Len())

	c.Clear()
	require.Equal(t, StageIdle, c.Stage())
	require.NoError(t, c.DefineProblem())

	_, err = c.Work(submit("A", 0, "9"))
	require.NoError(t, err)
	_, err = c.Work(submit("B", 0, "2"))
	require.NoError(t, err)

	winner, found, err := c.Commit()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, addr("B"), winner.Submitter)

	value, err := state.Get([]byte("winner"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), value)

	c.Clear()
	require.Empty(t, c.Candidates())
	require.NoError(t, c.DefineProblem())
	require.Equal(t, []byte("after:2"), c.Problem())
}

func TestSynergeticContract_CommitOnce(t *testing.T) {
	c := makeContract(t, fakeProgram{})
	state := mem.NewSnapshot()

	guard := c.Attach(state)
	defer guard.Release()

	require.NoError(t, c.DefineProblem())

	_, err := c.Work(submit("A", 0, "3"))
	require.NoError(t, err)

	_, found, err := c.Commit()
	require.NoError(t, err)
	require.True(t, found)

	require.NoError(t, state.Set([]byte("winner"), []byte("x")))

	_, found, err = c.Commit()
	require.EqualError(t, err, "round already committed")
	require.False(t, found)
	require.Equal(t, StageCommitted, c.Stage())

	value, err := state.Get([]byte("winner"))
	require.NoError(t, err)
	require.Equal(t, []byte("x"), value)

	// A round without a winner is committed once as well.
	c.Clear()
	require.NoError(t, c.DefineProblem())

	_, _, err = c.Commit()
	require.NoError(t, err)

	_, _, err = c.Commit()
	require.EqualError(t, err, "round already committed")
}

func TestSynergeticContract_CommitFailure(t *testing.T) {
	c := makeContract(t, fakeProgram{errCommit: fake.GetError()})
	state := mem.NewSnapshot()

	guard := c.Attach(state)
	defer guard.Release()

	require.NoError(t, c.DefineProblem())

	_, err := c.Work(submit("A", 0, "1"))
	require.NoError(t, err)

	_, _, err = c.Commit()
	require.EqualError(t, err, fake.Err("failed to commit winner"))
	require.Equal(t, 0, state.Len())
	require.Equal(t, StageResolved, c.Stage())

	c = makeContract(t, fakeProgram{})
	guard = c.Attach(fake.NewBadSnapshot())
	defer guard.Release()

	_, err = c.Work(submit("A", 0, "1"))
	require.Equal(t, ErrNoProblem, err)

	err = c.DefineProblem()
	require.EqualError(t, err, "fake error: problem definition failed")
}

func TestSynergeticContract_EmptyProblem(t *testing.T) {
	c := makeContract(t, fakeProgram{nilProblem: true})

	guard := c.Attach(mem.NewSnapshot())
	defer guard.Release()

	err := c.DefineProblem()
	require.True(t, xerrors.Is(err, ErrProblem))
	require.EqualError(t, err, "empty problem: problem definition failed")
	require.Equal(t, StageIdle, c.Stage())
	require.Nil(t, c.Problem())

	_, err = c.Work(submit("A", 0, "1"))
	require.Equal(t, ErrNoProblem, err)
}

func TestSynergeticContract_ClearDuringWork(t *testing.T) {
	prog := &blockingProgram{
		fakeProgram: fakeProgram{},
		started:     make(chan struct{}),
		release:     make(chan struct{}),
	}

	c := makeContract(t, prog)

	guard := c.Attach(mem.NewSnapshot())
	defer guard.Release()

	require.NoError(t, c.DefineProblem())

	errs := make(chan error, 1)
	go func() {
		_, err := c.Work(submit("A", 0, "1"))
		errs <- err
	}()

	<-prog.started
	c.Clear()
	close(prog.release)

	err := <-errs
	require.EqualError(t, err, "round changed: no problem defined")
	require.True(t, xerrors.Is(err, ErrNoProblem))
	require.Empty(t, c.Candidates())
}

func TestSynergeticContract_Dispatch(t *testing.T) {
	c := makeContract(t, fakeProgram{})
	state := mem.NewSnapshot()

	dispatch := func(name string, from string, payload string) contract.Result {
		guard := c.Attach(state)
		defer guard.Release()

		tx := txn.NewTransaction(c.Digest(), name,
			txn.WithFrom(addr(from)), txn.WithPayload([]byte(payload)))

		return c.DispatchTransaction(name, tx, 1)
	}

	res := dispatch(WorkEntry, "A", "3")
	require.Equal(t, contract.StatusFailed, res.Status)
	require.Equal(t, ErrNoProblem.Error(), res.Message)

	status := c.DispatchQuery(ProblemEntry, contract.Query{}, contract.Query{})
	require.Equal(t, contract.StatusFailed, status)

	require.Equal(t, contract.StatusOK, dispatch(ProblemEntry, "owner", "").Status)
	require.Equal(t, contract.StatusFailed, dispatch(ProblemEntry, "owner", "").Status)

	res = dispatch(WorkEntry, "B", "8")
	require.Equal(t, contract.StatusOK, res.Status)
	require.Equal(t, int64(8), res.ReturnValue)

	res = dispatch(WorkEntry, "B", "5")
	require.Equal(t, int64(5), res.ReturnValue)

	res = dispatch(WorkEntry, "C", "nope")
	require.Equal(t, contract.StatusFailed, res.Status)

	res = dispatch(ObjectiveEntry, "C", "42")
	require.Equal(t, contract.StatusOK, res.Status)
	require.Equal(t, int64(42), res.ReturnValue)

	candidates := c.Candidates()
	require.Len(t, candidates, 2)
	require.Equal(t, uint64(1), candidates[0].Sequence)
	require.Equal(t, uint64(2), candidates[1].Sequence)

	response := contract.Query{}
	status = c.DispatchQuery(BestQuery, contract.Query{}, response)
	require.Equal(t, contract.StatusOK, status)
	require.Equal(t, int64(5), response["score"])
	require.Equal(t, addr("B").String(), response["submitter"])
	require.Equal(t, uint64(2), response["sequence"])
	require.Equal(t, "5", response["solution"])

	response = contract.Query{}
	status = c.DispatchQuery(ProblemEntry, contract.Query{}, response)
	require.Equal(t, contract.StatusOK, status)
	require.Equal(t, "after:", response["problem"])
	require.Equal(t, "COLLECTING", response["stage"])

	require.Equal(t, contract.StatusOK, dispatch(ClearEntry, "owner", "").Status)
	require.Equal(t, StageIdle, c.Stage())

	status = c.DispatchQuery(BestQuery, contract.Query{}, contract.Query{})
	require.Equal(t, contract.StatusFailed, status)

	require.Equal(t, uint64(4), c.TransactionCounter(WorkEntry))
	require.Equal(t, uint64(2), c.TransactionCounter(ProblemEntry))
	require.Equal(t, uint64(1), c.TransactionCounter(ClearEntry))
	require.False(t, c.IsAttached())
}

func TestStage_String(t *testing.T) {
	require.Equal(t, "IDLE", StageIdle.String())
	require.Equal(t, "DEFINED", StageDefined.String())
	require.Equal(t, "COLLECTING", StageCollecting.String())
	require.Equal(t, "RESOLVED", StageResolved.String())
	require.Equal(t, "COMMITTED", StageCommitted.String())
	require.Equal(t, "UNKNOWN", Stage(42).String())
}

// -----------------------------------------------------------------------------
// Utility functions

// blockingProgram blocks the work function until it is released.
type blockingProgram struct {
	fakeProgram

	started chan struct{}
	release chan struct{}
}

func (p *blockingProgram) Work(problem, payload []byte) ([]byte, error) {
	close(p.started)
	<-p.release

	return p.fakeProgram.Work(problem, payload)
}
