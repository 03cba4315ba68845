package upow

import (
	"context"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/synergy/core/store/mem"
	"go.dedis.ch/synergy/core/store/prefixed"
	"go.dedis.ch/synergy/core/txn"
	"go.dedis.ch/synergy/core/vm/manifest"
	"go.dedis.ch/synergy/internal/testing/fake"
	"golang.org/x/xerrors"
)

const subsetSumCode = `
program: subset-sum
params:
  target: 10
  step: 5
  values: [3, 4, 8, 1]
`

func TestExecutor_Run(t *testing.T) {
	snap := mem.NewSnapshot()

	digest, err := Deploy(snap, []byte(subsetSumCode))
	require.NoError(t, err)

	exec := NewExecutor(NewFactory(snap, manifest.NewCompiler()), WithWorkers(2))

	committed := testutil.ToFloat64(promRounds.WithLabelValues(resultCommitted))
	accepted := testutil.ToFloat64(promSubmissions.WithLabelValues(resultAccepted))
	discarded := testutil.ToFloat64(promSubmissions.WithLabelValues(resultDiscarded))

	subs := []Submission{
		submit("bob", 0, `{"select":[0,1,3]}`),
		submit("dave", 0, `{"select":[9]}`),
		submit("alice", 0, `{"select":[2,3]}`),
		submit("carol", 0, `{"select":[2,1]}`),
		submit("erin", 0, `not json`),
	}

	out, err := exec.Run(context.Background(), snap, digest, subs)
	require.NoError(t, err)
	require.Equal(t, digest, out.Digest)
	require.False(t, out.Round.IsNil())
	require.True(t, out.HasWinner)
	require.Equal(t, addr("alice"), out.Winner.Submitter)
	require.Equal(t, []byte(`[2,3]`), out.Winner.Solution)
	require.Equal(t, 3, out.Accepted)
	require.Equal(t, 2, out.Discarded)

	require.Equal(t, committed+1, testutil.ToFloat64(promRounds.WithLabelValues(resultCommitted)))
	require.Equal(t, accepted+3, testutil.ToFloat64(promSubmissions.WithLabelValues(resultAccepted)))
	require.Equal(t, discarded+2, testutil.ToFloat64(promSubmissions.WithLabelValues(resultDiscarded)))

	state := prefixed.NewSnapshot(digest.String(), snap)

	value, err := state.Get([]byte(manifest.SolutionKey))
	require.NoError(t, err)
	require.Equal(t, []byte(`[2,3]`), value)

	value, err = state.Get([]byte(manifest.RoundsKey))
	require.NoError(t, err)
	require.Equal(t, uint64(1), binary.LittleEndian.Uint64(value))

	// The next round has a new target of 15.
	out, err = exec.Run(context.Background(), snap, digest, []Submission{
		submit("alice", 1, `{"select":[2,3]}`),
		submit("bob", 1, `{"select":[0,1,2]}`),
	})
	require.NoError(t, err)
	require.Equal(t, addr("bob"), out.Winner.Submitter)
	require.Equal(t, int64(0), int64(out.Winner.Score))
}

func TestExecutor_RunOrderIndependent(t *testing.T) {
	subs := []Submission{
		submit("A", 0, "10"),
		submit("B", 0, "7"),
		submit("C", 0, "7"),
	}

	for i := 0; i < 20; i++ {
		for j := 0; j < 2; j++ {
			if j == 1 {
				subs[0], subs[2] = subs[2], subs[0]
			}

			snap := mem.NewSnapshot()

			digest, err := Deploy(snap, []byte("fake"))
			require.NoError(t, err)

			exec := NewExecutor(NewFactory(snap, fakeCompiler{prog: fakeProgram{}}), WithWorkers(3))

			out, err := exec.Run(context.Background(), snap, digest, subs)
			require.NoError(t, err)
			require.Equal(t, addr("B"), out.Winner.Submitter)

			value, err := prefixed.NewSnapshot(digest.String(), snap).Get([]byte("winner"))
			require.NoError(t, err)
			require.Equal(t, []byte("7"), value)
		}
	}
}

func TestExecutor_RunManySubmissions(t *testing.T) {
	snap := mem.NewSnapshot()

	digest, err := Deploy(snap, []byte("fake"))
	require.NoError(t, err)

	subs := make([]Submission, 200)
	for i := range subs {
		subs[i] = submit(fmt.Sprintf("peer%03d", i), uint64(i), fmt.Sprintf("%d", 1000-i%100))
	}

	exec := NewExecutor(NewFactory(snap, fakeCompiler{prog: fakeProgram{}}), WithWorkers(8))

	out, err := exec.Run(context.Background(), snap, digest, subs)
	require.NoError(t, err)
	require.Equal(t, 200, out.Accepted)
	require.Equal(t, addr("peer099"), out.Winner.Submitter)
	require.Equal(t, int64(901), int64(out.Winner.Score))
}

func TestExecutor_RunNoWinner(t *testing.T) {
	snap := mem.NewSnapshot()

	digest, err := Deploy(snap, []byte("fake"))
	require.NoError(t, err)

	empty := testutil.ToFloat64(promRounds.WithLabelValues(resultEmpty))

	exec := NewExecutor(NewFactory(snap, fakeCompiler{prog: fakeProgram{}}))

	out, err := exec.Run(context.Background(), snap, digest, []Submission{submit("A", 0, "x")})
	require.NoError(t, err)
	require.False(t, out.HasWinner)
	require.Equal(t, 0, out.Accepted)
	require.Equal(t, 1, out.Discarded)
	require.Equal(t, 1, snap.Len())

	out, err = exec.Run(context.Background(), snap, digest, nil)
	require.NoError(t, err)
	require.False(t, out.HasWinner)

	require.Equal(t, empty+2, testutil.ToFloat64(promRounds.WithLabelValues(resultEmpty)))
}

func TestExecutor_RunAborted(t *testing.T) {
	snap := mem.NewSnapshot()

	digest, err := Deploy(snap, []byte("fake"))
	require.NoError(t, err)

	aborted := testutil.ToFloat64(promRounds.WithLabelValues(resultAborted))

	exec := NewExecutor(NewFactory(snap, fakeCompiler{prog: fakeProgram{errProblem: fake.GetError()}}))

	_, err = exec.Run(context.Background(), snap, digest, []Submission{submit("A", 0, "1")})
	require.True(t, xerrors.Is(err, ErrProblem))
	require.EqualError(t, err, "round aborted: fake error: problem definition failed")
	require.Equal(t, 1, snap.Len())

	_, err = exec.Run(context.Background(), snap, txn.DigestOf([]byte("unknown")), nil)
	require.True(t, xerrors.Is(err, ErrContractNotFound))

	exec = NewExecutor(NewFactory(snap, fakeCompiler{prog: fakeProgram{errCommit: fake.GetError()}}))

	_, err = exec.Run(context.Background(), snap, digest, []Submission{submit("A", 0, "1")})
	require.EqualError(t, err, fake.Err("failed to commit: failed to commit winner"))
	require.Equal(t, 1, snap.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = exec.Run(ctx, snap, digest, nil)
	require.EqualError(t, err, "round aborted: context canceled")

	require.Equal(t, aborted+4, testutil.ToFloat64(promRounds.WithLabelValues(resultAborted)))
}

func TestExecutor_Watch(t *testing.T) {
	snap := mem.NewSnapshot()

	digest, err := Deploy(snap, []byte("fake"))
	require.NoError(t, err)

	exec := NewExecutor(NewFactory(snap, fakeCompiler{prog: fakeProgram{}}))

	obs := &fakeObserver{}
	exec.Watch(obs)

	out, err := exec.Run(context.Background(), snap, digest, []Submission{submit("A", 0, "1")})
	require.NoError(t, err)
	require.Equal(t, []Outcome{out}, obs.outcomes)

	exec.Unwatch(obs)

	_, err = exec.Run(context.Background(), snap, digest, nil)
	require.NoError(t, err)
	require.Len(t, obs.outcomes, 1)

	// Aborted rounds are not notified.
	exec.Watch(obs)

	_, err = exec.Run(context.Background(), snap, txn.DigestOf([]byte("unknown")), nil)
	require.Error(t, err)
	require.Len(t, obs.outcomes, 1)
}

func TestExecutor_RunLogs(t *testing.T) {
	snap := mem.NewSnapshot()

	digest, err := Deploy(snap, []byte("fake"))
	require.NoError(t, err)

	logger, check := fake.CheckLog("round completed")

	exec := NewExecutor(NewFactory(snap, fakeCompiler{prog: fakeProgram{}}))
	exec.logger = logger

	_, err = exec.Run(context.Background(), snap, digest, nil)
	require.NoError(t, err)

	check(t)
}

func TestExecutor_Options(t *testing.T) {
	exec := NewExecutor(nil)
	require.Equal(t, defaultWorkers, exec.workers)

	exec = NewExecutor(nil, WithWorkers(16))
	require.Equal(t, 16, exec.workers)

	exec = NewExecutor(nil, WithWorkers(0))
	require.Equal(t, defaultWorkers, exec.workers)

	tracer := mocktracer.New()
	exec = NewExecutor(nil, WithTracer(tracer))
	require.Equal(t, tracer, exec.tracer)
}

func TestExecutor_RunTraced(t *testing.T) {
	snap := mem.NewSnapshot()

	digest, err := Deploy(snap, []byte("fake"))
	require.NoError(t, err)

	tracer := mocktracer.New()
	exec := NewExecutor(NewFactory(snap, fakeCompiler{prog: fakeProgram{}}), WithTracer(tracer))

	out, err := exec.Run(context.Background(), snap, digest, []Submission{submit("A", 0, "1")})
	require.NoError(t, err)

	spans := tracer.FinishedSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "upow.round", spans[0].OperationName)
	require.Equal(t, out.Round.String(), spans[0].Tag("round"))
	require.Equal(t, digest.String(), spans[0].Tag("digest"))
	require.Equal(t, addr("A").String(), spans[0].Tag("winner"))
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeObserver struct {
	outcomes []Outcome
}

func (o *fakeObserver) NotifyCallback(out Outcome) {
	o.outcomes = append(o.outcomes, out)
}
