package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"todo/internal/backend/googletasks"
	"todo/internal/collection"
	"todo/internal/exitcode"
	"todo/internal/service"
)

// ExitCodeFor maps a store or collection error to an exit code.
//   - invalid input or unknown task → UserError
//   - rejected Google credentials → AuthError
//   - anything else (network, I/O, malformed data) → BackendError
func ExitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitcode.Success
	case errors.Is(err, googletasks.ErrAuth):
		return exitcode.AuthError
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrNotFound):
		return exitcode.UserError
	default:
		return exitcode.BackendError
	}
}

// fail prints err and returns its exit code.
func fail(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %v\n", err)
	return ExitCodeFor(err)
}

// loadCollection wraps svc in a collection and fetches the current tasks.
func loadCollection(ctx context.Context, svc service.Service) (*collection.Collection, error) {
	c := collection.New(svc)
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// refError prints a reference parse or lookup error.
// Those are always the caller's mistake.
func refError(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %v\n", err)
	return exitcode.UserError
}

// applied reports whether err is a collection failure that happened after
// the store had already accepted the change.
func applied(err error) bool {
	var oe *collection.OpError
	return errors.As(err, &oe) && oe.Applied
}

// settle handles the error of a collection mutation. A change that was
// applied but could not be re-read is a warning, not a failure.
func settle(errOut io.Writer, err error) (int, bool) {
	if err == nil {
		return exitcode.Success, true
	}
	if applied(err) {
		fmt.Fprintf(errOut, "warning: %v\n", err)
		return exitcode.Success, true
	}
	return fail(errOut, err), false
}
