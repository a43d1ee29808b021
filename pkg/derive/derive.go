// Package derive computes derived variables from user formulas. A formula
// is one of three kinds: a row-wise expression (eval), a single
// transformation call (transform), or a short script (script). Batches are
// evaluated variable by variable with partial failure: one bad formula
// never blocks the rest.
package derive

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/marinad-syro/inferra/pkg/formula"
	"github.com/marinad-syro/inferra/pkg/sandbox"
	"github.com/marinad-syro/inferra/pkg/table"
	"github.com/marinad-syro/inferra/pkg/transform"
)

// Kind selects how a formula is interpreted.
type Kind string

const (
	KindEval      Kind = "eval"
	KindTransform Kind = "transform"
	KindScript    Kind = "script"
)

// Spec is one derived-variable request.
type Spec struct {
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	Formula string `json:"formula"`
}

// VariableError reports one failed variable in a batch, carrying the
// formula and kind so callers can show what was attempted.
type VariableError struct {
	Name    string `json:"name"`
	Formula string `json:"formula"`
	Kind    Kind   `json:"kind"`
	Message string `json:"error"`
}

// BatchResult is the outcome of a batch computation. Table holds every
// successfully computed column; Failed lists the rest in request order.
type BatchResult struct {
	Table    *table.Table
	Computed []string
	Failed   []VariableError
}

// Evaluator computes derived variables against in-memory tables.
type Evaluator struct {
	exec   *sandbox.Executor
	logger *slog.Logger
}

// NewEvaluator builds an evaluator. The executor runs script-kind
// formulas; eval and transform kinds never reach it.
func NewEvaluator(exec *sandbox.Executor, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{exec: exec, logger: logger}
}

// reservedNames may not be used as derived-variable names: they are
// bindings every formula namespace provides.
var reservedNames = map[string]bool{
	"df":     true,
	"json":   true,
	"math":   true,
	"plot":   true,
	"result": true,
}

// ValidateName rejects empty, reserved, and transformation-shadowing
// variable names.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("variable name must not be empty")
	}
	if reservedNames[name] {
		return fmt.Errorf("variable name %q is reserved", name)
	}
	if transform.IsRegistered(name) {
		return fmt.Errorf("variable name %q shadows a transformation", name)
	}
	return nil
}

// Compute evaluates a single spec against the table and returns the new
// column without mutating the input.
func (e *Evaluator) Compute(ctx context.Context, tbl *table.Table, spec Spec) ([]table.Value, error) {
	if err := ValidateName(spec.Name); err != nil {
		return nil, err
	}
	switch spec.Kind {
	case KindEval:
		return e.computeEval(tbl, spec.Formula)
	case KindTransform:
		return e.computeTransform(tbl, spec.Formula)
	case KindScript:
		return e.computeScript(ctx, tbl, spec.Formula)
	default:
		return nil, fmt.Errorf("unknown formula kind %q (want eval, transform, or script)", spec.Kind)
	}
}

// ComputeBatch evaluates specs in order against a working copy of the
// table. Each computed column is visible to later formulas in the same
// batch, so variables may build on one another.
func (e *Evaluator) ComputeBatch(ctx context.Context, tbl *table.Table, specs []Spec) *BatchResult {
	out := &BatchResult{Table: tbl.Clone()}
	for _, spec := range specs {
		values, err := e.Compute(ctx, out.Table, spec)
		if err != nil {
			e.logger.Debug("derived variable failed", "name", spec.Name, "kind", spec.Kind, "error", err)
			out.Failed = append(out.Failed, variableError(spec, err))
			continue
		}
		if err := out.Table.SetColumn(spec.Name, values); err != nil {
			out.Failed = append(out.Failed, variableError(spec, err))
			continue
		}
		out.Computed = append(out.Computed, spec.Name)
	}
	return out
}

func variableError(spec Spec, err error) VariableError {
	return VariableError{
		Name:    spec.Name,
		Formula: spec.Formula,
		Kind:    spec.Kind,
		Message: err.Error(),
	}
}

// computeTransform parses one dispatch call and routes it through the
// registry.
func (e *Evaluator) computeTransform(tbl *table.Table, src string) ([]table.Value, error) {
	call, err := formula.ParseAndValidate(formula.Normalize(src))
	if err != nil {
		return nil, err
	}
	return transform.Dispatch(tbl, call.Name, call.Args, call.Kwargs)
}
