package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/service"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct {
	completed bool
}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete tasks" }
func (c *RmCmd) Usage() string     { return "todo rm <ref...> | todo rm --completed" }
func (c *RmCmd) NeedsStore() bool  { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.completed, "completed", false, "")
}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if c.completed && len(args) > 0 {
		fmt.Fprintln(errOut, "error: cannot use both --completed and task references")
		return exitcode.UserError
	}

	var refs []TaskRef
	if !c.completed {
		var err error
		if refs, err = ParseTaskRefs(args); err != nil {
			return refError(errOut, err)
		}
	}

	coll, err := loadCollection(ctx, svc)
	if err != nil {
		return fail(errOut, err)
	}

	var ids []service.ID
	if c.completed {
		for _, task := range coll.Items() {
			if task.Completed {
				ids = append(ids, task.ID)
			}
		}
	} else {
		tasks, err := resolveRefs(coll.Items(), refs)
		if err != nil {
			return refError(errOut, err)
		}
		for _, task := range tasks {
			ids = append(ids, task.ID)
		}
	}

	if len(ids) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "nothing to delete")
		}
		return exitcode.Success
	}

	n, err := coll.DeleteMany(ctx, ids)
	if err != nil && !applied(err) {
		if n > 0 {
			fmt.Fprintf(errOut, "error: deleted %d of %d tasks: %v\n", n, len(ids), err)
			return ExitCodeFor(err)
		}
		return fail(errOut, err)
	}
	if err != nil {
		fmt.Fprintf(errOut, "warning: %v\n", err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "deleted %d\n", n)
	}
	return exitcode.Success
}
