package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/output"
	"todo/internal/service"
	"todo/internal/transfer"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `todo` (no args) and `todo list`.
type ListCmd struct {
	open   bool
	showID bool
	json   bool
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string     { return "todo list [--open] [--ids] [--json]" }
func (c *ListCmd) NeedsStore() bool  { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.open, "open", false, "")
	fs.BoolVar(&c.showID, "ids", false, "")
	fs.BoolVar(&c.json, "json", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	tasks, err := svc.List(ctx)
	if err != nil {
		return fail(errOut, err)
	}

	if c.json {
		if err := transfer.Encode(out, tasks); err != nil {
			return fail(errOut, err)
		}
		return exitcode.Success
	}

	PrintTasks(out, tasks, c.open, c.showID)
	if len(tasks) == 0 && !cfg.Quiet {
		fmt.Fprintln(out, "no tasks found")
	}
	return exitcode.Success
}

// PrintTasks writes tasks in list format. Numbers are positions in the
// full list, so they stay valid as references when openOnly hides some.
func PrintTasks(w io.Writer, tasks []service.Task, openOnly, showID bool) {
	width := output.IDWidth(tasks)
	for i, task := range tasks {
		if openOnly && task.Completed {
			continue
		}
		if showID {
			output.FormatTaskWithID(w, i+1, width, task)
		} else {
			output.FormatTask(w, i+1, task)
		}
	}
}
