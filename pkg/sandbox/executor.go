package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/marinad-syro/inferra/pkg/table"
)

// Config holds executor limits. Zero values fall back to defaults.
type Config struct {
	MaxSteps uint64        // interpreter step budget per script
	Timeout  time.Duration // wall-clock budget per script
	Logger   *slog.Logger
}

const (
	defaultMaxSteps = 10_000_000
	defaultTimeout  = 10 * time.Second
)

// Executor runs untrusted scripts. It is stateless across calls: every
// execution gets a fresh thread, namespace, table copy, and plot collector.
type Executor struct {
	maxSteps uint64
	timeout  time.Duration
	logger   *slog.Logger
}

// NewExecutor builds an executor from config, applying defaults.
func NewExecutor(cfg Config) *Executor {
	e := &Executor{
		maxSteps: cfg.MaxSteps,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
	}
	if e.maxSteps == 0 {
		e.maxSteps = defaultMaxSteps
	}
	if e.timeout <= 0 {
		e.timeout = defaultTimeout
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Result is the outcome of one script execution.
type Result struct {
	Success bool          `json:"success"`
	Table   *table.Table  `json:"-"`
	Console string        `json:"console_output"`
	Images  [][]byte      `json:"images,omitempty"`
	Error   string        `json:"error,omitempty"`
	Trace   string        `json:"trace,omitempty"`
}

// fileOptions enables the top-level forms scripts actually use. Recursion
// stays off: the step budget bounds loops, and recursion adds nothing the
// scripts need.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// Execute validates and runs a script against a copy of the dataset.
//
// A validation or syntax failure returns a non-nil error and means no part
// of the script ran. A runtime failure is reported in the Result with
// Success false, console output intact, and the evaluation backtrace. On
// success the Result carries the final table (the script's `df` binding)
// and any plots rendered to PNG.
func (e *Executor) Execute(ctx context.Context, tbl *table.Table, code string) (*Result, error) {
	run, err := e.run(ctx, tbl, code)
	if err != nil {
		return nil, err
	}

	res := &Result{Console: run.console}
	if run.err != nil {
		res.Error, res.Trace = evalError(run.err)
		e.logger.Debug("script failed", "error", res.Error)
		return res, nil
	}

	final, err := resultTable(run.globals, run.tv)
	if err != nil {
		res.Error = err.Error()
		return res, nil
	}
	res.Success = true
	res.Table = final
	res.Images = run.plots.Render()
	return res, nil
}

// runState is the raw outcome of one interpreter run.
type runState struct {
	globals starlark.StringDict
	console string
	err     error // runtime error, nil on success
	tv      *TableValue
	plots   *PlotCollector
}

// run does the shared validate-and-execute pipeline. The returned error is
// fatal (validation or syntax); runtime errors land in runState.err.
func (e *Executor) run(ctx context.Context, tbl *table.Table, code string) (*runState, error) {
	src, err := NeutralizeImports(code)
	if err != nil {
		return nil, err
	}

	f, err := fileOptions.Parse("script.star", src, 0)
	if err != nil {
		return nil, fmt.Errorf("script has invalid syntax: %w", err)
	}
	if err := Validate(f); err != nil {
		return nil, err
	}

	tv := NewTableValue(tbl.Clone())
	plots := NewPlotCollector()
	predeclared := Predeclared(tv, plots)

	prog, err := starlark.FileProgram(f, predeclared.Has)
	if err != nil {
		return nil, fmt.Errorf("script has invalid syntax: %w", err)
	}

	var console strings.Builder
	thread := &starlark.Thread{
		Name: "sandbox",
		Print: func(_ *starlark.Thread, msg string) {
			console.WriteString(msg)
			console.WriteByte('\n')
		},
	}
	thread.SetMaxExecutionSteps(e.maxSteps)

	timer := time.AfterFunc(e.timeout, func() {
		thread.Cancel("execution time budget exceeded")
	})
	defer timer.Stop()
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel("request cancelled")
	})
	defer stop()

	globals, runErr := prog.Init(thread, predeclared)
	return &runState{
		globals: globals,
		console: console.String(),
		err:     runErr,
		tv:      tv,
		plots:   plots,
	}, nil
}

// ExecBindings runs a snippet and returns the global bindings it created,
// without requiring the dataset binding to survive. Derived-variable
// scripts use this to extract their result binding. Fatal errors follow
// the same contract as Execute; runtime errors are returned directly.
func (e *Executor) ExecBindings(ctx context.Context, tbl *table.Table, code string) (starlark.StringDict, string, error) {
	run, err := e.run(ctx, tbl, code)
	if err != nil {
		return nil, "", err
	}
	if run.err != nil {
		return nil, run.console, run.err
	}
	return run.globals, run.console, nil
}

// resultTable extracts the final table from a finished script. The script
// may rebind df; if the binding is gone or no longer table-shaped, the
// execution has no usable result.
func resultTable(globals starlark.StringDict, tv *TableValue) (*table.Table, error) {
	v, ok := globals["df"]
	if !ok {
		// Never rebound: the predeclared table, mutated in place, is the
		// result.
		return tv.Table(), nil
	}
	final, ok := v.(*TableValue)
	if !ok {
		return nil, &MissingResultVariableError{
			Message: fmt.Sprintf("script rebound df to a %s; the final df must be a table", v.Type()),
		}
	}
	return final.Table(), nil
}

// evalError splits a runtime error into a message and a backtrace.
func evalError(err error) (msg, trace string) {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Msg, evalErr.Backtrace()
	}
	return err.Error(), ""
}
