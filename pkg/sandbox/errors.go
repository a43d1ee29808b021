package sandbox

import "fmt"

// ForbiddenConstructError is returned when script validation finds a call
// or module load from the fixed forbidden sets. Validation failure is
// fatal: no part of the script is executed.
type ForbiddenConstructError struct {
	Construct string // the offending name
	Kind      string // "call" or "module"
	Line      int32
}

func (e *ForbiddenConstructError) Error() string {
	switch e.Kind {
	case "module":
		return fmt.Sprintf("line %d: loading module %q is not allowed in the sandbox", e.Line, e.Construct)
	default:
		return fmt.Sprintf("line %d: call to %q is not allowed in the sandbox", e.Line, e.Construct)
	}
}

// MissingResultVariableError is returned when a script finishes without
// leaving a usable result: the table binding is gone or not table-shaped,
// or a script-kind formula set neither `result` nor exactly one new
// binding.
type MissingResultVariableError struct {
	Message string
}

func (e *MissingResultVariableError) Error() string { return e.Message }
