package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"todo/internal/collection"
	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/service"
	"todo/internal/transfer"
)

func init() {
	Register(&ImportCmd{})
}

// ImportCmd implements the import command.
type ImportCmd struct {
	mode  string
	stdin io.Reader
}

// SetStdin sets the reader used for "-" (for testing).
func (c *ImportCmd) SetStdin(r io.Reader) {
	c.stdin = r
}

func (c *ImportCmd) Name() string      { return "import" }
func (c *ImportCmd) Aliases() []string { return nil }
func (c *ImportCmd) Synopsis() string  { return "Load tasks from a JSON document" }
func (c *ImportCmd) Usage() string     { return "todo import [--mode replace|recreate] <file|->" }
func (c *ImportCmd) NeedsStore() bool  { return true }

func (c *ImportCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.mode, "mode", "", "")
}

func (c *ImportCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: exactly one file required (use - for stdin)")
		return exitcode.UserError
	}

	mode := transfer.ModeFor(svc)
	switch c.mode {
	case "":
	case "replace":
		if mode != transfer.ModeReplace {
			fmt.Fprintf(errOut, "error: the %s backend cannot replace its tasks; use --mode recreate\n", cfg.Backend)
			return exitcode.UserError
		}
	case "recreate":
		mode = transfer.ModeRecreate
	default:
		fmt.Fprintf(errOut, "error: invalid import mode: %s\n", c.mode)
		return exitcode.UserError
	}

	var r io.Reader
	if args[0] == "-" {
		r = c.stdin
		if r == nil {
			r = os.Stdin
		}
	} else {
		f, err := os.Open(args[0])
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		defer f.Close()
		r = f
	}

	res, err := transfer.Import(ctx, collection.New(svc), r, mode)
	if err != nil {
		var partial *transfer.PartialError
		switch {
		case errors.As(err, &partial):
			fmt.Fprintf(errOut, "error: %v\n", err)
			return ExitCodeFor(partial.Err)
		case errors.Is(err, service.ErrDecode):
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		if code, ok := settle(errOut, err); !ok {
			return code
		}
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "imported %d tasks (%s)\n", res.Applied, res.Mode)
	}
	return exitcode.Success
}
