package resource

import (
	"errors"
	"fmt"
)

// ErrFetchFailure marks a failed retrieval. The kind's own error stays in the chain.
var ErrFetchFailure = errors.New("fetch failed")

// OpError records which module and which operation failed.
type OpError struct {
	Module string
	Op     string
	Err    error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Module, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
