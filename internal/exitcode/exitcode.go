// Package exitcode defines the process exit codes of the todo CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError covers bad arguments, invalid task text and unknown tasks.
	UserError = 1

	// AuthError covers configuration problems and missing or rejected
	// Google credentials.
	AuthError = 2

	// BackendError covers store, network and I/O failures.
	BackendError = 3
)
