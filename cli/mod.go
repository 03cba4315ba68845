// Package cli defines the Builder type, which allows one to build a CLI
// application in a modular way. Each package contributes its own commands to
// the builder of the application.
//
//	builder := urfave.NewBuilder("upowctl", os.Stdout, cli.StringFlag{
//		Name: "db",
//		Env:  "UPOW_DB",
//	})
//
//	cmd := builder.SetCommand("deploy")
//	cmd.SetDescription("store a contract")
//	cmd.SetFlags(cli.StringFlag{Name: "code", File: true, Required: true})
//	cmd.SetAction(func(ctx cli.Context) error {
//		fmt.Fprintf(ctx.Out, "deploying %s\n", ctx.Flags.String("code"))
//		return nil
//	})
//
//	builder.Build().Run(os.Args)
package cli

import "io"

// Builder is an application builder interface. One can set properties of an
// application then build it.
type Builder interface {
	// SetCommand creates a new command with the given name and returns its
	// builder. A name can only be used once.
	SetCommand(name string) CommandBuilder

	// Build returns the application.
	Build() Application
}

// Application is the main interface to run the CLI.
type Application interface {
	Run(arguments []string) error
}

// CommandBuilder is a command builder interface. One can set properties of a
// specific command like its name and description and what it should do when
// invoked.
type CommandBuilder interface {
	// SetDescription sets the value of the description for this command.
	SetDescription(value string)

	// SetFlags sets the flags for this command.
	SetFlags(...Flag)

	// SetAction sets the action for this command.
	SetAction(Action)
}

// Context is the context of an action. It gives access to the flags and to the
// output of the application.
type Context struct {
	Flags Flags
	Out   io.Writer
}

// Action is a function that will be executed when a command is invoked.
type Action func(Context) error

// Flag is the definition of a flag of the application or of a command.
type Flag interface {
	// Key returns the name the flag is read with.
	Key() string
}

// Flags provides the primitives to an action to read the flags. Global flags
// are available to every command.
type Flags interface {
	String(name string) string

	Int(name string) int
}
