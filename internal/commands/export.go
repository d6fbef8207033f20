package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/service"
	"todo/internal/transfer"
)

func init() {
	Register(&ExportCmd{})
}

// ExportCmd implements the export command.
type ExportCmd struct {
	outPath string
	now     func() time.Time
}

// SetClock overrides the time used to name export files (for testing).
func (c *ExportCmd) SetClock(now func() time.Time) {
	c.now = now
}

func (c *ExportCmd) Name() string      { return "export" }
func (c *ExportCmd) Aliases() []string { return nil }
func (c *ExportCmd) Synopsis() string  { return "Write all tasks as a JSON document" }
func (c *ExportCmd) Usage() string     { return "todo export [--out <file|->]" }
func (c *ExportCmd) NeedsStore() bool  { return true }

func (c *ExportCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.outPath, "out", "", "")
	fs.StringVar(&c.outPath, "o", "", "")
}

// Run snapshots the collection into an export file in a scratch directory
// and copies it to the destination. Without --out the file is written to
// the current directory under its generated name.
func (c *ExportCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	coll, err := loadCollection(ctx, svc)
	if err != nil {
		return fail(errOut, err)
	}

	now := time.Now
	if c.now != nil {
		now = c.now
	}
	stamp := now()

	tmp, err := os.MkdirTemp("", "todo-export-")
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	defer os.RemoveAll(tmp)

	file, err := transfer.Export(coll.Items(), tmp, stamp)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	defer file.Close()

	if c.outPath == "-" {
		if _, err := file.WriteTo(out); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.BackendError
		}
		return exitcode.Success
	}

	dest := c.outPath
	if dest == "" {
		dest = transfer.ExportName(stamp)
	}
	if err := copyExport(file, dest); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "exported %d tasks to %s\n", len(coll.Items()), dest)
	}
	return exitcode.Success
}

func copyExport(file *transfer.ExportFile, dest string) error {
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := file.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return f.Close()
}
