package controller

import (
	"context"
	"encoding/hex"
	stdjson "encoding/json"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/kyber/v3/suites"
	"go.dedis.ch/synergy"
	"go.dedis.ch/synergy/cli"
	"go.dedis.ch/synergy/core/access"
	"go.dedis.ch/synergy/core/contract"
	"go.dedis.ch/synergy/core/store/kv"
	"go.dedis.ch/synergy/core/store/mem"
	"go.dedis.ch/synergy/core/store/prefixed"
	"go.dedis.ch/synergy/core/txn"
	"go.dedis.ch/synergy/core/vm/manifest"
	"go.dedis.ch/synergy/internal/tracing"
	"go.dedis.ch/synergy/upow"
	"golang.org/x/xerrors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// submission is the JSON form of a submission in the file given to the round
// command.
type submission struct {
	From    access.Address     `json:"from"`
	Nonce   uint64             `json:"nonce"`
	Payload stdjson.RawMessage `json:"payload"`
}

type winnerReport struct {
	Submitter access.Address `json:"submitter"`
	Sequence  uint64         `json:"sequence"`
	Score     int64          `json:"score"`
	Solution  string         `json:"solution"`
}

type roundReport struct {
	Round     string        `json:"round"`
	Digest    string        `json:"digest"`
	Winner    *winnerReport `json:"winner,omitempty"`
	Accepted  int           `json:"accepted"`
	Discarded int           `json:"discarded"`
}

// deployAction compiles the manifest and stores it under its digest.
type deployAction struct{}

// Execute prints the digest of the deployed contract.
func (deployAction) Execute(ctx cli.Context) error {
	code, err := os.ReadFile(ctx.Flags.String("code"))
	if err != nil {
		return xerrors.Errorf("failed to read code: %v", err)
	}

	_, err = manifest.NewCompiler().Compile(code)
	if err != nil {
		return xerrors.Errorf("invalid contract: %w", err)
	}

	var digest txn.Digest

	err = withStore(ctx.Flags, func(snap kv.Store) error {
		digest, err = upow.Deploy(snap, code)
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to deploy: %v", err)
	}

	synergy.Logger.Info().Stringer("digest", digest).Msg("contract deployed")

	fmt.Fprintln(ctx.Out, digest)

	return nil
}

// roundAction runs a round with the submissions of a file.
type roundAction struct{}

// Execute prints the outcome of the round as JSON.
func (roundAction) Execute(ctx cli.Context) error {
	digest, err := txn.ParseDigest(ctx.Flags.String("digest"))
	if err != nil {
		return xerrors.Errorf("invalid digest: %v", err)
	}

	subs, err := readSubmissions(ctx.Flags.String("submissions"))
	if err != nil {
		return xerrors.Errorf("failed to read submissions: %v", err)
	}

	opts := []upow.ExecutorOption{upow.WithWorkers(ctx.Flags.Int("workers"))}

	if os.Getenv(tracing.EnvAgentHost) != "" {
		tracer, closer, err := tracing.NewTracer("upowctl")
		if err != nil {
			return xerrors.Errorf("failed to create tracer: %v", err)
		}

		defer closer.Close()

		opts = append(opts, upow.WithTracer(tracer))
	}

	var out upow.Outcome

	err = withStore(ctx.Flags, func(snap kv.Store) error {
		factory := upow.NewFactory(snap, manifest.NewCompiler())
		exec := upow.NewExecutor(factory, opts...)

		out, err = exec.Run(context.Background(), snap, digest, subs)
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to run round: %w", err)
	}

	path := ctx.Flags.String("metrics")
	if path != "" {
		err = writeMetrics(path)
		if err != nil {
			return xerrors.Errorf("failed to write metrics: %v", err)
		}
	}

	report := roundReport{
		Round:     out.Round.String(),
		Digest:    out.Digest.String(),
		Accepted:  out.Accepted,
		Discarded: out.Discarded,
	}

	if out.HasWinner {
		report.Winner = &winnerReport{
			Submitter: out.Winner.Submitter,
			Sequence:  out.Winner.Sequence,
			Score:     int64(out.Winner.Score),
			Solution:  string(out.Winner.Solution),
		}
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return xerrors.Errorf("failed to encode report: %v", err)
	}

	fmt.Fprintln(ctx.Out, string(data))

	return nil
}

// problemAction prints the problem of the next round without changing the
// state.
type problemAction struct{}

// Execute defines the problem over a copy of the state and prints it.
func (problemAction) Execute(ctx cli.Context) error {
	digest, err := txn.ParseDigest(ctx.Flags.String("digest"))
	if err != nil {
		return xerrors.Errorf("invalid digest: %v", err)
	}

	response := contract.Query{}

	err = withStore(ctx.Flags, func(snap kv.Store) error {
		c, err := upow.NewFactory(snap, manifest.NewCompiler()).Create(digest)
		if err != nil {
			return err
		}

		overlay := mem.NewOverlay(prefixed.NewSnapshot(digest.String(), snap))
		defer overlay.Discard()

		guard := c.Attach(overlay)
		defer guard.Release()

		err = c.DefineProblem()
		if err != nil {
			return err
		}

		status := c.DispatchQuery(upow.ProblemEntry, contract.Query{}, response)
		if status != contract.StatusOK {
			return xerrors.Errorf("query failed with status %v", status)
		}

		return nil
	})
	if err != nil {
		return xerrors.Errorf("failed to define problem: %w", err)
	}

	fmt.Fprintln(ctx.Out, response["problem"])

	return nil
}

// listAction lists the deployed contracts.
type listAction struct{}

// Execute prints the digest and the size of the code of every contract.
func (listAction) Execute(ctx cli.Context) error {
	var list []upow.Deployment

	err := withStore(ctx.Flags, func(snap kv.Store) error {
		var err error
		list, err = upow.ListDeployments(snap)
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to list: %v", err)
	}

	for _, d := range list {
		fmt.Fprintf(ctx.Out, "%v\t%d bytes\n", d.Digest, d.Size)
	}

	return nil
}

// keygenAction generates a key pair.
type keygenAction struct{}

// Execute prints the private key in hexadecimal and the address of the public
// key.
func (keygenAction) Execute(ctx cli.Context) error {
	suite := suites.MustFind("Ed25519")

	priv := suite.Scalar().Pick(suite.RandomStream())
	pub := suite.Point().Mul(priv, nil)

	addr, err := access.NewAddressFromKey(pub)
	if err != nil {
		return xerrors.Errorf("failed to derive address: %v", err)
	}

	data, err := priv.MarshalBinary()
	if err != nil {
		return xerrors.Errorf("failed to marshal private key: %v", err)
	}

	fmt.Fprintf(ctx.Out, "private: %s\naddress: %s\n", hex.EncodeToString(data), addr)

	return nil
}

// withStore opens the database and calls the function with the snapshot of the
// bucket. The database is closed when the function returns.
func withStore(flags cli.Flags, fn func(kv.Store) error) error {
	db, err := openDB(flags.String("db"))
	if err != nil {
		return xerrors.Errorf("failed to open db: %v", err)
	}

	defer db.Close()

	return fn(kv.NewStore(db, []byte(flags.String("bucket"))))
}

// writeMetrics writes the collectors of the packages in the text format.
func writeMetrics(path string) error {
	registry := prometheus.NewRegistry()

	for _, c := range synergy.PromCollectors {
		err := registry.Register(c)
		if err != nil {
			return xerrors.Errorf("failed to register collector: %v", err)
		}
	}

	return prometheus.WriteToTextfile(path, registry)
}

func readSubmissions(path string) ([]upow.Submission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw []submission

	err = json.Unmarshal(data, &raw)
	if err != nil {
		return nil, xerrors.Errorf("malformed submissions: %v", err)
	}

	subs := make([]upow.Submission, len(raw))
	for i, sub := range raw {
		subs[i] = upow.Submission{
			From:    sub.From,
			Nonce:   sub.Nonce,
			Payload: []byte(sub.Payload),
		}
	}

	return subs, nil
}
