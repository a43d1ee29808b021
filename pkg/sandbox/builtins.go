package sandbox

import (
	"fmt"

	starlarkjson "go.starlark.net/lib/json"
	starlarkmath "go.starlark.net/lib/math"
	"go.starlark.net/starlark"

	"github.com/marinad-syro/inferra/pkg/transform"
)

// Predeclared builds the script namespace for one execution: the dataset
// table as `df`, every registered transformation as a builtin pre-bound to
// that table, the math and json modules, and the plot module bound to the
// given collector. Each call builds a fresh dict, so scripts cannot see
// each other's state.
func Predeclared(tv *TableValue, plots *PlotCollector) starlark.StringDict {
	globals := starlark.StringDict{
		"df":   tv,
		"math": starlarkmath.Module,
		"json": starlarkjson.Module,
		"plot": plots.Module(),
	}
	for _, name := range transform.Names() {
		globals[name] = transformBuiltin(name, tv)
	}
	return globals
}

// transformBuiltin wraps a registered transformation as a Starlark builtin.
// The table argument is injected from the binding, so scripts call
// z_score('Score') rather than passing the dataset around.
func transformBuiltin(name string, tv *TableValue) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		goArgs := make([]any, len(args))
		for i, a := range args {
			gv, err := ToGo(a)
			if err != nil {
				return nil, fmt.Errorf("%s: argument %d: %w", b.Name(), i+1, err)
			}
			goArgs[i] = gv
		}
		goKwargs := make(map[string]any, len(kwargs))
		for _, kv := range kwargs {
			key, _ := starlark.AsString(kv[0])
			gv, err := ToGo(kv[1])
			if err != nil {
				return nil, fmt.Errorf("%s: argument %q: %w", b.Name(), key, err)
			}
			goKwargs[key] = gv
		}

		values, err := transform.Dispatch(tv.Table(), b.Name(), goArgs, goKwargs)
		if err != nil {
			return nil, err
		}
		return NewColumn(b.Name(), values), nil
	})
}
