// Package urfave implements the cli builder on top of the urfave/cli library.
package urfave

import (
	"fmt"
	"io"
	"sort"

	ucli "github.com/urfave/cli/v2"
	"go.dedis.ch/synergy/cli"
)

// Builder builds urfave applications.
//
// - implements cli.Builder
type Builder struct {
	name     string
	out      io.Writer
	flags    []cli.Flag
	commands map[string]*cmdBuilder
}

// NewBuilder returns a builder for the application of the given name. The
// actions, the help and the errors are written to the output. The flags are
// available to every command.
func NewBuilder(name string, out io.Writer, flags ...cli.Flag) cli.Builder {
	return &Builder{
		name:     name,
		out:      out,
		flags:    flags,
		commands: make(map[string]*cmdBuilder),
	}
}

// Build implements cli.Builder. The commands are listed by name.
func (b *Builder) Build() cli.Application {
	app := &ucli.App{
		Name:      b.name,
		Writer:    b.out,
		ErrWriter: b.out,
		Flags:     buildFlags(b.flags),
		Commands:  buildCommands(b.commands, b.out),
	}

	app.Setup()

	return app
}

// SetCommand implements cli.Builder. It panics if the name is already used as
// the commands are all known when the application starts.
func (b *Builder) SetCommand(name string) cli.CommandBuilder {
	_, found := b.commands[name]
	if found {
		panic(fmt.Sprintf("command '%s' already set", name))
	}

	cmd := &cmdBuilder{}
	b.commands[name] = cmd

	return cmd
}

// cmdBuilder collects the properties of a command.
//
// - implements cli.CommandBuilder
type cmdBuilder struct {
	description string
	action      cli.Action
	flags       []ucli.Flag
}

// SetDescription implements cli.CommandBuilder.
func (b *cmdBuilder) SetDescription(value string) {
	b.description = value
}

// SetFlags implements cli.CommandBuilder.
func (b *cmdBuilder) SetFlags(flags ...cli.Flag) {
	b.flags = buildFlags(flags)
}

// SetAction implements cli.CommandBuilder.
func (b *cmdBuilder) SetAction(action cli.Action) {
	b.action = action
}

func buildFlags(flags []cli.Flag) []ucli.Flag {
	res := make([]ucli.Flag, len(flags))

	for i, f := range flags {
		switch e := f.(type) {
		case cli.StringFlag:
			res[i] = &ucli.StringFlag{
				Name:      e.Name,
				Usage:     e.Usage,
				EnvVars:   envVars(e.Env),
				Required:  e.Required,
				Value:     e.Value,
				TakesFile: e.File,
			}
		case cli.IntFlag:
			res[i] = &ucli.IntFlag{
				Name:     e.Name,
				Usage:    e.Usage,
				EnvVars:  envVars(e.Env),
				Required: e.Required,
				Value:    e.Value,
			}
		default:
			panic(fmt.Sprintf("flag type '%T' not supported", f))
		}
	}

	return res
}

func envVars(name string) []string {
	if name == "" {
		return nil
	}

	return []string{name}
}

func buildCommands(cmds map[string]*cmdBuilder, out io.Writer) []*ucli.Command {
	commands := make([]*ucli.Command, 0, len(cmds))

	for name, cmd := range cmds {
		commands = append(commands, &ucli.Command{
			Name:   name,
			Usage:  cmd.description,
			Flags:  cmd.flags,
			Action: makeAction(cmd.action, out),
		})
	}

	sort.Slice(commands, func(i, j int) bool {
		return commands[i].Name < commands[j].Name
	})

	return commands
}

// makeAction returns the urfave action calling the cli action with the flags
// of the invocation. A command without an action gets the default one of
// urfave, which prints the help.
func makeAction(action cli.Action, out io.Writer) ucli.ActionFunc {
	if action == nil {
		return nil
	}

	return func(ctx *ucli.Context) error {
		return action(cli.Context{
			Flags: ctx,
			Out:   out,
		})
	}
}
