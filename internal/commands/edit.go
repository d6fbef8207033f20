package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"todo/internal/config"
	"todo/internal/editsession"
	"todo/internal/exitcode"
	"todo/internal/service"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command.
type EditCmd struct{ noFlags }

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return []string{"rename"} }
func (c *EditCmd) Synopsis() string  { return "Change the text of a task" }
func (c *EditCmd) Usage() string     { return "todo edit <ref> <text...>" }
func (c *EditCmd) NeedsStore() bool  { return true }

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		return refError(errOut, ErrTaskRefRequired)
	}
	ref, err := ParseTaskRef(args[0])
	if err != nil {
		return refError(errOut, err)
	}

	coll, err := loadCollection(ctx, svc)
	if err != nil {
		return fail(errOut, err)
	}
	task, err := resolveRef(coll.Items(), ref)
	if err != nil {
		return refError(errOut, err)
	}

	session := editsession.New(coll)
	session.Begin(task)
	session.SetText(strings.Join(args[1:], " "))

	outcome, err := session.Commit(ctx)
	switch outcome {
	case editsession.Discarded:
		fmt.Fprintln(errOut, "error: text required")
		return exitcode.UserError
	case editsession.Unchanged:
		if !cfg.Quiet {
			fmt.Fprintln(out, "unchanged")
		}
		return exitcode.Success
	case editsession.Failed:
		if code, ok := settle(errOut, err); !ok {
			return code
		}
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
