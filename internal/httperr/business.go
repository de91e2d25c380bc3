package httperr

import "errors"

// BusinessError is a user-correctable validation failure. It always carries
// a stable snake_case code the frontend can translate.
type BusinessError struct {
	Code string
}

func (e BusinessError) Error() string {
	return e.Code
}

func ErrBusiness(code string) error {
	return BusinessError{Code: code}
}

func IsBusiness(err error, code string) bool {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// StateConflictError marks an operation against an entity that is no longer
// in the expected status, typically a double-submitted approve/reject.
type StateConflictError struct {
	Code string
}

func (e StateConflictError) Error() string {
	return e.Code
}

func ErrStateConflict(code string) error {
	return StateConflictError{Code: code}
}

func IsStateConflict(err error) bool {
	var se StateConflictError
	return errors.As(err, &se)
}

// NotFoundError covers missing entities and ownership misses alike, so a
// caller cannot probe which ids exist.
type NotFoundError struct {
	Entity string
}

func (e NotFoundError) Error() string {
	return e.Entity + "_not_found"
}

func ErrNotFound(entity string) error {
	return NotFoundError{Entity: entity}
}

func IsNotFound(err error) bool {
	var ne NotFoundError
	return errors.As(err, &ne)
}
