// Package commands implements the todo subcommands.
package commands

import (
	"context"
	"flag"
	"io"

	"todo/internal/config"
	"todo/internal/service"
)

// Command is one todo subcommand.
//
// The dispatcher gives every command a fresh FlagSet holding the common
// flags, adds the command's own through RegisterFlags, parses, loads the
// config and opens the configured store when NeedsStore is true. Run gets
// the positional arguments left after parsing and returns the process
// exit code. svc is nil for commands that do not need a store. The
// logger travels in ctx (log.FromContext).
type Command interface {
	Name() string
	Aliases() []string // alternative names, may be nil
	Synopsis() string  // one line for the command list
	Usage() string
	NeedsStore() bool

	RegisterFlags(fs *flag.FlagSet)
	Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int
}

// noFlags is embedded by commands without flags of their own.
type noFlags struct{}

func (noFlags) RegisterFlags(*flag.FlagSet) {}
