package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"

	"github.com/charmbracelet/log"

	"todo/internal/api"
	"todo/internal/backend/filestore"
	"todo/internal/backend/sqlite"
	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/logging"
	"todo/internal/service"
)

const (
	storeSQLite = "sqlite"
	storeFile   = "file"
)

func init() {
	Register(&ServeCmd{})
}

// ServeCmd implements the serve command: the REST API and change feed
// over a local store.
type ServeCmd struct {
	addr      string
	store     string
	db        string
	logFile   string
	logFormat string
	logLevel  string
	listener  net.Listener
}

// SetListener makes Run serve on ln instead of listening on --addr
// (for testing).
func (c *ServeCmd) SetListener(ln net.Listener) {
	c.listener = ln
}

func (c *ServeCmd) Name() string      { return "serve" }
func (c *ServeCmd) Aliases() []string { return []string{"server"} }
func (c *ServeCmd) Synopsis() string  { return "Serve the task API over HTTP" }
func (c *ServeCmd) Usage() string {
	return "todo serve [--addr <host:port>] [--store sqlite|file] [--db <path>] [--log-file <path>] [--log-format text|json|logfmt] [--log-level debug|info|warn|error]"
}
func (c *ServeCmd) NeedsStore() bool { return false }

func (c *ServeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.addr, "addr", "", "")
	fs.StringVar(&c.store, "store", storeSQLite, "")
	fs.StringVar(&c.db, "db", "", "")
	fs.StringVar(&c.logFile, "log-file", "", "")
	fs.StringVar(&c.logFormat, "log-format", "", "")
	fs.StringVar(&c.logLevel, "log-level", "", "")
}

func (c *ServeCmd) Run(ctx context.Context, cfg *config.Config, _ service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	addr := firstNonEmpty(c.addr, cfg.Server.Addr, config.DefaultServerAddr)
	opts := logging.DefaultOptions()
	opts.Level = logging.ParseLevel(firstNonEmpty(c.logLevel, cfg.Server.LogLevel))
	opts.Formatter = logging.ParseFormatter(firstNonEmpty(c.logFormat, cfg.Server.LogFormat))
	opts.File = firstNonEmpty(c.logFile, cfg.Server.LogFile)
	opts.Output = errOut
	if cfg.Debug {
		opts.Level = log.DebugLevel
	}
	logger, closer := logging.New(opts)
	defer closer.Close()

	var (
		svc        service.Service
		integerIDs bool
	)
	switch c.store {
	case storeSQLite:
		path := firstNonEmpty(c.db, cfg.Server.DB)
		store, err := sqlite.Open(ctx, path)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.BackendError
		}
		defer store.Close()
		svc, integerIDs = store, true
		logger.Info("using sqlite store", "path", store.Path())
	case storeFile:
		store := filestore.New(firstNonEmpty(c.db, cfg.DataFile))
		svc = store
		logger.Info("using file store", "path", store.Path())
	default:
		fmt.Fprintf(errOut, "error: invalid store: %s\n", c.store)
		return exitcode.UserError
	}

	srv := api.New(svc, api.Options{Logger: logger, IntegerIDs: integerIDs})
	defer srv.Close()

	var err error
	if c.listener != nil {
		err = srv.Serve(ctx, c.listener)
	} else {
		err = srv.ListenAndServe(ctx, addr)
	}
	if err != nil {
		logger.Error("server stopped", "err", err)
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
