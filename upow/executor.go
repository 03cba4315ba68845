package upow

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.dedis.ch/synergy"
	"go.dedis.ch/synergy/core"
	"go.dedis.ch/synergy/core/store"
	"go.dedis.ch/synergy/core/store/prefixed"
	"go.dedis.ch/synergy/core/txn"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

const defaultWorkers = 4

// labels of the metrics
const (
	resultCommitted = "committed"
	resultEmpty     = "empty"
	resultAborted   = "aborted"

	resultAccepted  = "accepted"
	resultDiscarded = "discarded"
)

// defines prometheus metrics
var (
	promRounds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upow_rounds_total",
		Help: "total number of synergetic rounds per result",
	}, []string{"result"})

	promSubmissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upow_submissions_total",
		Help: "total number of work submissions per result",
	}, []string{"result"})
)

func init() {
	synergy.PromCollectors = append(synergy.PromCollectors, promRounds, promSubmissions)
}

// Creator creates the synergetic contract of a digest.
type Creator interface {
	Create(digest txn.Digest) (*SynergeticContract, error)
}

// Outcome is the summary of a round.
type Outcome struct {
	Round     xid.ID
	Digest    txn.Digest
	Winner    Candidate
	HasWinner bool
	Accepted  int
	Discarded int
}

// ExecutorOption is the type of option to create an executor.
type ExecutorOption func(*Executor)

// WithWorkers sets the maximum number of submissions scored at the same time.
func WithWorkers(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithTracer sets the tracer of the spans of the rounds. The global tracer is
// used by default.
func WithTracer(tracer opentracing.Tracer) ExecutorOption {
	return func(e *Executor) {
		e.tracer = tracer
	}
}

// Executor drives the rounds of synergetic contracts.
type Executor struct {
	creator Creator
	workers int
	tracer  opentracing.Tracer
	watcher *core.Watcher[Outcome]
	logger  zerolog.Logger
}

// NewExecutor returns an executor that creates the contracts with the creator.
func NewExecutor(creator Creator, opts ...ExecutorOption) Executor {
	e := Executor{
		creator: creator,
		workers: defaultWorkers,
		tracer:  opentracing.GlobalTracer(),
		watcher: core.NewWatcher[Outcome](),
		logger:  synergy.Logger.With().Str("component", "upow").Logger(),
	}

	for _, opt := range opts {
		opt(&e)
	}

	return e
}

// Watch adds the observer notified with the outcome of every completed round.
func (e Executor) Watch(obs core.Observer[Outcome]) {
	e.watcher.Add(obs)
}

// Unwatch removes the observer.
func (e Executor) Unwatch(obs core.Observer[Outcome]) {
	e.watcher.Remove(obs)
}

// Run executes a complete round of the contract of the digest with the
// submissions. The state of the contract lives under the namespace of the
// digest in the snapshot. Failed submissions are discarded, but a failure of
// the problem definition aborts the round. The context is only checked before
// the round starts: once started, a round always runs to the end so that
// every node reaches the same state.
func (e Executor) Run(ctx context.Context, snap store.Snapshot, digest txn.Digest,
	subs []Submission) (Outcome, error) {

	span, ctx := opentracing.StartSpanFromContextWithTracer(ctx, e.tracer, "upow.round")
	defer span.Finish()

	out := Outcome{
		Round:  xid.New(),
		Digest: digest,
	}

	span.SetTag("round", out.Round.String())
	span.SetTag("digest", digest.String())

	logger := e.logger.With().Str("round", out.Round.String()).Stringer("digest", digest).Logger()

	err := ctx.Err()
	if err != nil {
		promRounds.WithLabelValues(resultAborted).Inc()
		return out, xerrors.Errorf("round aborted: %v", err)
	}

	c, err := e.creator.Create(digest)
	if err != nil {
		promRounds.WithLabelValues(resultAborted).Inc()
		return out, xerrors.Errorf("failed to create contract: %w", err)
	}

	guard := c.Attach(prefixed.NewSnapshot(digest.String(), snap))
	defer guard.Release()

	defer c.Clear()

	err = c.DefineProblem()
	if err != nil {
		promRounds.WithLabelValues(resultAborted).Inc()
		return out, xerrors.Errorf("round aborted: %w", err)
	}

	accepted := e.collect(c, subs, logger)

	for _, ok := range accepted {
		if ok {
			out.Accepted++
		} else {
			out.Discarded++
		}
	}

	promSubmissions.WithLabelValues(resultAccepted).Add(float64(out.Accepted))
	promSubmissions.WithLabelValues(resultDiscarded).Add(float64(out.Discarded))

	winner, found, err := c.Commit()
	if err != nil {
		promRounds.WithLabelValues(resultAborted).Inc()
		return out, xerrors.Errorf("failed to commit: %v", err)
	}

	out.Winner = winner
	out.HasWinner = found

	if found {
		promRounds.WithLabelValues(resultCommitted).Inc()
		span.SetTag("winner", winner.Submitter.String())
	} else {
		promRounds.WithLabelValues(resultEmpty).Inc()
	}

	logger.Info().
		Int("accepted", out.Accepted).
		Int("discarded", out.Discarded).
		Bool("winner", found).
		Msg("round completed")

	e.watcher.Notify(out)

	return out, nil
}

// collect scores the submissions concurrently and returns which ones have
// been accepted.
func (e Executor) collect(c *SynergeticContract, subs []Submission, logger zerolog.Logger) []bool {
	accepted := make([]bool, len(subs))

	var g errgroup.Group
	g.SetLimit(e.workers)

	for i := range subs {
		i := i

		g.Go(func() error {
			_, err := c.Work(subs[i])
			if err != nil {
				logger.Debug().Err(err).Stringer("from", subs[i].From).Msg("submission discarded")
				return nil
			}

			accepted[i] = true

			return nil
		})
	}

	// Submissions never return an error.
	_ = g.Wait()

	return accepted
}
