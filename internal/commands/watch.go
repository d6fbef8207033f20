package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"todo/internal/collection"
	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/notify"
	"todo/internal/output"
	"todo/internal/service"
)

func init() {
	Register(&WatchCmd{})
}

// WatchCmd implements the watch command. It prints the list, then prints
// it again every time the store reports a change, until interrupted.
type WatchCmd struct {
	open     bool
	notifier notify.Notifier
}

// SetNotifier replaces the backend's change source (for testing).
func (c *WatchCmd) SetNotifier(n notify.Notifier) {
	c.notifier = n
}

func (c *WatchCmd) Name() string      { return "watch" }
func (c *WatchCmd) Aliases() []string { return nil }
func (c *WatchCmd) Synopsis() string  { return "Print the list again whenever it changes" }
func (c *WatchCmd) Usage() string     { return "todo watch [--open]" }
func (c *WatchCmd) NeedsStore() bool  { return true }

func (c *WatchCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.open, "open", false, "")
}

func (c *WatchCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	logger := log.FromContext(ctx)

	n := c.notifier
	if n == nil {
		var err error
		if n, err = NotifierFor(cfg, logger); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
	}

	coll, err := loadCollection(ctx, svc)
	if err != nil {
		if closer, ok := n.(io.Closer); ok {
			closer.Close()
		}
		return fail(errOut, err)
	}

	var mu sync.Mutex
	show := func(tasks []service.Task, again bool) {
		mu.Lock()
		defer mu.Unlock()
		if again {
			fmt.Fprintln(out, output.Separator)
		}
		PrintTasks(out, tasks, c.open, false)
		if len(tasks) == 0 && !cfg.Quiet {
			fmt.Fprintln(out, "no tasks found")
		}
	}
	show(coll.Items(), false)
	coll.Subscribe(func(tasks []service.Task) { show(tasks, true) })

	err = n.Run(ctx, func() {
		if err := coll.Reset(ctx, collection.OpLoad); err != nil && ctx.Err() == nil {
			logger.Warn("refresh failed", "err", err)
		}
	})
	if err != nil {
		return fail(errOut, err)
	}
	return exitcode.Success
}

// NotifierFor returns the change source for the configured backend.
func NotifierFor(cfg *config.Config, logger *log.Logger) (notify.Notifier, error) {
	switch cfg.Backend {
	case config.BackendFile:
		n, err := notify.NewFileNotifier(cfg.DataFile)
		if err != nil {
			return nil, err
		}
		return n, nil
	case config.BackendRemote:
		return notify.NewFeedNotifier(cfg.APIURL, logger), nil
	default:
		return nil, fmt.Errorf("watch is not supported for the %s backend", cfg.Backend)
	}
}
