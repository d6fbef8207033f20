package commands

import (
	"context"
	"fmt"
	"io"

	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/service"
)

func init() {
	Register(&ToggleCmd{})
}

// ToggleCmd implements the toggle command. Each referenced task flips
// between open and completed.
type ToggleCmd struct{ noFlags }

func (c *ToggleCmd) Name() string      { return "toggle" }
func (c *ToggleCmd) Aliases() []string { return []string{"done"} }
func (c *ToggleCmd) Synopsis() string  { return "Mark tasks completed, or open again" }
func (c *ToggleCmd) Usage() string     { return "todo toggle <ref...>" }
func (c *ToggleCmd) NeedsStore() bool  { return true }

func (c *ToggleCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	refs, err := ParseTaskRefs(args)
	if err != nil {
		return refError(errOut, err)
	}

	coll, err := loadCollection(ctx, svc)
	if err != nil {
		return fail(errOut, err)
	}
	tasks, err := resolveRefs(coll.Items(), refs)
	if err != nil {
		return refError(errOut, err)
	}

	for _, task := range tasks {
		updated, err := coll.Toggle(ctx, task.ID)
		if code, ok := settle(errOut, err); !ok {
			return code
		}
		if !cfg.Quiet {
			fmt.Fprintf(out, "%s %s\n", stateWord(updated.Completed), task.ID)
		}
	}
	return exitcode.Success
}

func stateWord(completed bool) string {
	if completed {
		return "completed"
	}
	return "reopened"
}
