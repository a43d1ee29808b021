package derive

import (
	"context"
	"strings"

	"go.starlark.net/starlark"

	"github.com/marinad-syro/inferra/pkg/sandbox"
	"github.com/marinad-syro/inferra/pkg/table"
)

// computeScript runs a short script in the sandbox and extracts its result
// column. The script sees the same namespace as execute-code: df, the
// transformation builtins, math, json, and plot.
//
// The result is the `result` binding if the script sets one. Otherwise the
// script must leave exactly one new non-function binding, which becomes the
// column; zero or several is an error, since there is no way to tell which
// binding the variable was meant to be.
func (e *Evaluator) computeScript(ctx context.Context, tbl *table.Table, code string) ([]table.Value, error) {
	globals, _, err := e.exec.ExecBindings(ctx, tbl, code)
	if err != nil {
		return nil, err
	}

	v, err := resultBinding(globals)
	if err != nil {
		return nil, err
	}
	return sandbox.ColumnCells(v, tbl.Len())
}

func resultBinding(globals starlark.StringDict) (starlark.Value, error) {
	if v, ok := globals["result"]; ok {
		return v, nil
	}

	var candidates []string
	for name, v := range globals {
		if name == "df" || strings.HasPrefix(name, "_") {
			continue
		}
		if _, isFn := v.(*starlark.Function); isFn {
			continue
		}
		candidates = append(candidates, name)
	}

	switch len(candidates) {
	case 1:
		return globals[candidates[0]], nil
	case 0:
		return nil, &sandbox.MissingResultVariableError{
			Message: "script produced no result: set a `result` variable",
		}
	default:
		return nil, &sandbox.MissingResultVariableError{
			Message: "script produced several bindings: set a `result` variable to pick one",
		}
	}
}
