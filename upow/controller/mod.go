// Package controller implements the commands to deploy synergetic contracts
// and run their rounds against a local database.
//
// Documentation Last Review: 19.10.2026
//
package controller

import (
	"go.dedis.ch/synergy/cli"
	"go.dedis.ch/synergy/core/store/kv"
)

const (
	// EnvDB is the environment variable giving the database file when the
	// flag is not set.
	EnvDB = "UPOW_DB"

	// EnvBucket is the environment variable giving the bucket when the flag
	// is not set.
	EnvBucket = "UPOW_BUCKET"

	defaultDB     = "synergy.db"
	defaultBucket = "synergy"
)

// openDB is the function used to open the database. It allows the tests to
// inject failures.
var openDB = kv.New

// Flags returns the global flags of the commands.
func Flags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "db",
			Usage: "path to the database file",
			Env:   EnvDB,
			Value: defaultDB,
			File:  true,
		},
		cli.StringFlag{
			Name:  "bucket",
			Usage: "name of the bucket holding the ledger state",
			Env:   EnvBucket,
			Value: defaultBucket,
		},
	}
}

// SetCommands registers the commands on the builder.
func SetCommands(builder cli.Builder) {
	cmd := builder.SetCommand("deploy")
	cmd.SetDescription("compile and store the manifest of a synergetic contract")
	cmd.SetFlags(cli.StringFlag{
		Name:     "code",
		Usage:    "path to the manifest",
		Required: true,
		File:     true,
	})
	cmd.SetAction(deployAction{}.Execute)

	cmd = builder.SetCommand("round")
	cmd.SetDescription("run a round of a synergetic contract")
	cmd.SetFlags(
		cli.StringFlag{
			Name:     "digest",
			Usage:    "digest of the contract returned by deploy",
			Required: true,
		},
		cli.StringFlag{
			Name:     "submissions",
			Usage:    "path to the JSON file of the submissions",
			Required: true,
			File:     true,
		},
		cli.IntFlag{
			Name:  "workers",
			Usage: "maximum number of submissions scored in parallel",
			Value: 4,
		},
		cli.StringFlag{
			Name:  "metrics",
			Usage: "path to the file where the metrics are written for the textfile collector",
			File:  true,
		},
	)
	cmd.SetAction(roundAction{}.Execute)

	cmd = builder.SetCommand("problem")
	cmd.SetDescription("print the problem of the next round of a synergetic contract")
	cmd.SetFlags(cli.StringFlag{
		Name:     "digest",
		Usage:    "digest of the contract returned by deploy",
		Required: true,
	})
	cmd.SetAction(problemAction{}.Execute)

	cmd = builder.SetCommand("list")
	cmd.SetDescription("list the deployed synergetic contracts")
	cmd.SetAction(listAction{}.Execute)

	cmd = builder.SetCommand("keygen")
	cmd.SetDescription("generate an Ed25519 key pair and print its address")
	cmd.SetAction(keygenAction{}.Execute)
}
