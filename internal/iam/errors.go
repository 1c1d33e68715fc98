package iam

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("resource conflict")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnauthenticated      = errors.New("invalid credentials")
	ErrForbidden            = errors.New("forbidden")
	ErrRegistrationDisabled = errors.New("registration is disabled")
	ErrUnknownRole          = errors.New("unknown role")
)

// ErrSelfDeletion is the specific forbidden case of an account deleting
// itself. It wraps ErrForbidden so generic checks still match.
var ErrSelfDeletion = fmt.Errorf("%w: cannot delete your own account", ErrForbidden)
