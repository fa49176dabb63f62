package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConcurrencyConflict is returned when a snapshot write loses to a
// snapshot computed from a newer ledger version.
var ErrConcurrencyConflict = errors.New("standings snapshot superseded by a newer ledger version")

// ValidationError reports malformed or inconsistent placement input.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid placement input: %s", strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// OrNil returns e when at least one problem was recorded.
func (e *ValidationError) OrNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// NotFoundError is returned when a tournament, player or result set does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// CommitError carries the facts that could not be written to the ledger.
type CommitError struct {
	Facts []PlacementFact
	Err   error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("failed to commit %d placement facts: %v", len(e.Facts), e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
