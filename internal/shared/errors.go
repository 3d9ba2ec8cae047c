package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// ErrClient marks caller misuse or a business-rule violation.
	// Never retried automatically, always surfaced to the immediate caller.
	ErrClient = fmt.Errorf("client error")

	// ErrNetwork marks a remote scrobble service failure: unreachable host,
	// malformed response, or a protocol-level error body.
	ErrNetwork = fmt.Errorf("network error")

	// Worker lifecycle errors. Callers may retry after a restart completes.
	ErrUnavailable = fmt.Errorf("service unavailable")
	ErrTimeout     = fmt.Errorf("operation timed out")

	// Database errors. Both are fatal at startup.
	ErrConstraint = fmt.Errorf("constraint violation")
	ErrMigration  = fmt.Errorf("migration failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
