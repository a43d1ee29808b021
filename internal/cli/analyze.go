package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marinad-syro/inferra/internal/dataset"
	"github.com/marinad-syro/inferra/pkg/analysis"
)

// AnalyzeOptions holds options for the analyze command.
type AnalyzeOptions struct {
	Function string
	Params   []string
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <dataset>",
		Short: "Run a statistical analysis against a dataset",
		Long: `Run one of the supported statistical functions against a CSV or JSON
dataset and print the results as JSON.

Parameters name the columns directly (--param value=score) or give a role
hint that is resolved against the dataset (--param group=group).`,
		Example: `  inferra analyze data.csv --function ttest_ind --param group=treatment --param value=score
  inferra analyze data.csv --function pearsonr --param x=height --param y=weight`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Function, "function", "f", "", "Analysis function (one of: "+strings.Join(analysis.Functions(), ", ")+")")
	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "Parameter as role=column (repeatable)")
	_ = cmd.MarkFlagRequired("function")

	return cmd
}

func runAnalyze(cmd *cobra.Command, path string, opts *AnalyzeOptions) error {
	cfg := GetConfig(cmd.Context())

	loader := &dataset.Loader{Dir: cfg.Dataset.Dir, MaxRows: cfg.Dataset.MaxRows}
	tbl, err := loader.LoadFile(path)
	if err != nil {
		return err
	}

	// --param role=column pins a column; a bare --param role lets the
	// role be resolved against the dataset.
	hints := make(map[string]analysis.ParamHint, len(opts.Params))
	for _, raw := range opts.Params {
		role, column, _ := strings.Cut(raw, "=")
		role = strings.TrimSpace(role)
		if role == "" {
			return fmt.Errorf("invalid --param %q: want role=column", raw)
		}
		hints[role] = analysis.ParamHint{Type: role, Column: strings.TrimSpace(column)}
	}

	params, err := analysis.MapParameters(hints, tbl)
	if err != nil {
		return err
	}
	results, err := analysis.Run(tbl, opts.Function, params)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"function":   opts.Function,
		"parameters": params,
		"results":    results,
	})
}
