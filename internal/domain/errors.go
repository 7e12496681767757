package domain

import "errors"

// Error taxonomy shared by the service layer and the HTTP layer. All are
// terminal for the request; the service never retries or reinterprets a
// failed check.
var (
	// ErrNotFound: the entity id has no row.
	ErrNotFound = errors.New("not found")

	// ErrForbidden: the actor is authenticated but the resolved access
	// level is insufficient for the requested operation.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthenticated: no resolvable active actor for the request.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrConflict: a uniqueness violation that is not swallowed by an
	// idempotent-add path, e.g. a duplicate user email.
	ErrConflict = errors.New("conflict")

	// ErrInvalid: the request cannot be satisfied as stated, e.g. an
	// event copy with no destination when the actor owns no calendar.
	ErrInvalid = errors.New("invalid request")
)
