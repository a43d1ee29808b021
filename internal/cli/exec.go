package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marinad-syro/inferra/internal/dataset"
	"github.com/marinad-syro/inferra/pkg/sandbox"
)

// ExecOptions holds options for the exec command.
type ExecOptions struct {
	Dataset string
	PlotDir string
	Rows    int
}

// NewExecCommand creates the exec command.
func NewExecCommand() *cobra.Command {
	opts := &ExecOptions{}

	cmd := &cobra.Command{
		Use:   "exec <script>",
		Short: "Run a script in the sandbox",
		Long: `Execute a script file in the sandbox against a dataset. The script sees
the dataset as df plus the registered transformation functions; its final
df is printed as the result.`,
		Example: `  inferra exec analysis.star --dataset data.csv

  # Save captured plots as PNG files
  inferra exec analysis.star --dataset data.csv --plot-dir ./plots`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Dataset, "dataset", "", "CSV or JSON dataset the script runs against")
	cmd.Flags().StringVar(&opts.PlotDir, "plot-dir", "", "Directory to write captured plots into")
	cmd.Flags().IntVar(&opts.Rows, "rows", 10, "Sample rows to print")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

func runExec(cmd *cobra.Command, scriptPath string, opts *ExecOptions) error {
	cfg := GetConfig(cmd.Context())
	logger := GetLogger(cmd.Context())

	code, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	loader := &dataset.Loader{Dir: cfg.Dataset.Dir, MaxRows: cfg.Dataset.MaxRows}
	tbl, err := loader.LoadFile(opts.Dataset)
	if err != nil {
		return err
	}

	exec := sandbox.NewExecutor(sandbox.Config{
		MaxSteps: cfg.Sandbox.MaxSteps,
		Timeout:  cfg.Sandbox.Timeout,
		Logger:   logger,
	})
	res, err := exec.Execute(cmd.Context(), tbl, string(code))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.Console != "" {
		fmt.Fprint(out, res.Console)
	}
	if !res.Success {
		if res.Trace != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), res.Trace)
		}
		return fmt.Errorf("script failed: %s", res.Error)
	}

	renderSample(out, res.Table, opts.Rows)

	if opts.PlotDir != "" && len(res.Images) > 0 {
		if err := os.MkdirAll(opts.PlotDir, 0750); err != nil {
			return fmt.Errorf("failed to create plot directory: %w", err)
		}
		for i, img := range res.Images {
			name := filepath.Join(opts.PlotDir, fmt.Sprintf("plot_%d.png", i+1))
			if err := os.WriteFile(name, img, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", name, err)
			}
			fmt.Fprintf(out, "Wrote %s\n", name)
		}
	}
	return nil
}
