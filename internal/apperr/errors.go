// Package apperr defines the error taxonomy shared by the services. Local
// CRUD errors propagate to the caller; cross-service notification failures
// never do.
package apperr

import "errors"

var (
	// ErrNotFound reports a referenced entity that is absent. Surfaced for
	// direct API calls, treated as a no-op success inside cascade and
	// reconciliation paths.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden reports an actor that is not the resource owner. No state
	// change may have occurred when this is returned.
	ErrForbidden = errors.New("not the resource owner")

	// ErrConflict reports a uniqueness violation such as a duplicate email
	ErrConflict = errors.New("resource already exists")
)
