package transform

import (
	"fmt"
	"strings"
)

// UnknownTransformationError is returned when a formula names a function
// that is not in the registry.
type UnknownTransformationError struct {
	Name      string
	Available []string
}

func (e *UnknownTransformationError) Error() string {
	return fmt.Sprintf("unknown transformation: %q. Available transformations: %s",
		e.Name, strings.Join(e.Available, ", "))
}

// InvalidArgumentError is returned when a transformation is called with a
// bad literal, wrong arity, or an out-of-domain option (invalid operator,
// bad bin edges, bad percentile band).
type InvalidArgumentError struct {
	Fn      string
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("transformation %q: %s", e.Fn, e.Message)
}

// RuntimeError is returned when a transformation fails against the actual
// table data, such as a missing column or a log of non-positive values.
type RuntimeError struct {
	Fn  string
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("transformation %q failed: %v", e.Fn, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }
