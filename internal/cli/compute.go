package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marinad-syro/inferra/internal/dataset"
	"github.com/marinad-syro/inferra/pkg/derive"
	"github.com/marinad-syro/inferra/pkg/sandbox"
)

// ComputeOptions holds options for the compute command.
type ComputeOptions struct {
	Vars []string
	Kind string
	Rows int
}

// NewComputeCommand creates the compute command.
func NewComputeCommand() *cobra.Command {
	opts := &ComputeOptions{}

	cmd := &cobra.Command{
		Use:   "compute <dataset>",
		Short: "Compute derived variables against a dataset",
		Long: `Load a CSV or JSON dataset, compute the requested derived variables,
and print a sample of the result.

Each --var takes name=formula. The formula kind defaults to --kind and can
be overridden per variable with name:kind=formula.`,
		Example: `  # A transformation call
  inferra compute data.csv --var "age_z=z_score('age')"

  # A row-wise expression
  inferra compute data.csv --var "bmi:eval=weight / (height ** 2)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompute(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Vars, "var", nil, "Derived variable as name=formula (repeatable)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "transform", "Default formula kind (eval|transform|script)")
	cmd.Flags().IntVar(&opts.Rows, "rows", 10, "Sample rows to print")

	return cmd
}

func runCompute(cmd *cobra.Command, path string, opts *ComputeOptions) error {
	cfg := GetConfig(cmd.Context())
	logger := GetLogger(cmd.Context())

	if len(opts.Vars) == 0 {
		return fmt.Errorf("no variables given: use --var name=formula")
	}
	specs := make([]derive.Spec, 0, len(opts.Vars))
	for _, raw := range opts.Vars {
		spec, err := parseVarSpec(raw, derive.Kind(opts.Kind))
		if err != nil {
			return err
		}
		specs = append(specs, spec)
	}

	loader := &dataset.Loader{Dir: cfg.Dataset.Dir, MaxRows: cfg.Dataset.MaxRows}
	tbl, err := loader.LoadFile(path)
	if err != nil {
		return err
	}

	exec := sandbox.NewExecutor(sandbox.Config{
		MaxSteps: cfg.Sandbox.MaxSteps,
		Timeout:  cfg.Sandbox.Timeout,
		Logger:   logger,
	})
	res := derive.NewEvaluator(exec, logger).ComputeBatch(cmd.Context(), tbl, specs)

	out := cmd.OutOrStdout()
	if len(res.Computed) > 0 {
		fmt.Fprintf(out, "Computed: %s\n", strings.Join(res.Computed, ", "))
	}
	for _, f := range res.Failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "Failed %s: %s\n", f.Name, f.Message)
	}
	renderSample(out, res.Table, opts.Rows)

	if len(res.Computed) == 0 {
		return fmt.Errorf("no variable computed")
	}
	return nil
}

// parseVarSpec parses name=formula with an optional name:kind prefix.
func parseVarSpec(raw string, defaultKind derive.Kind) (derive.Spec, error) {
	name, formula, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(formula) == "" {
		return derive.Spec{}, fmt.Errorf("invalid --var %q: want name=formula", raw)
	}
	kind := defaultKind
	if base, k, ok := strings.Cut(name, ":"); ok {
		name = base
		kind = derive.Kind(k)
	}
	return derive.Spec{
		Name:    strings.TrimSpace(name),
		Kind:    kind,
		Formula: strings.TrimSpace(formula),
	}, nil
}
