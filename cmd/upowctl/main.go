// Package main implements a tool to deploy synergetic contracts and run their
// rounds against a local database.
//
//	upowctl --db /tmp/ledger.db deploy --code subset-sum.yaml
//	upowctl --db /tmp/ledger.db problem --digest XX
//	upowctl --db /tmp/ledger.db round --digest XX --submissions subs.json
//	UPOW_DB=/tmp/ledger.db upowctl list
//	upowctl keygen
//
package main

import (
	"fmt"
	"io"
	"os"

	"go.dedis.ch/synergy/cli/urfave"
	"go.dedis.ch/synergy/upow/controller"
)

func main() {
	err := run(os.Args, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	builder := urfave.NewBuilder("upowctl", out, controller.Flags()...)

	controller.SetCommands(builder)

	return builder.Build().Run(args)
}
