package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marinad-syro/inferra/pkg/cleaning"
	"github.com/marinad-syro/inferra/pkg/codegen"
	"github.com/marinad-syro/inferra/pkg/derive"
)

// GenerateOptions holds options for the generate command.
type GenerateOptions struct {
	Language string
	Output   string
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	opts := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate <request.json>",
		Short: "Generate an equivalent Python or R script",
		Long: `Generate a standalone analysis script from a JSON request describing
cleaning, derived variables, and analyses. The script reproduces the same
operations with pandas/scipy or dplyr/base R.`,
		Example: `  inferra generate session.json --language python
  inferra generate session.json --language r --output analysis.R`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Language, "language", "l", "python", "Target language (python|r)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Write the script to a file instead of stdout")

	return cmd
}

func runGenerate(cmd *cobra.Command, path string, opts *GenerateOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}
	var req struct {
		SessionID string                 `json:"session_id"`
		Cleaning  *cleaning.Config       `json:"cleaning,omitempty"`
		Variables []derive.Spec          `json:"variables,omitempty"`
		Analyses  []codegen.AnalysisSpec `json:"analyses,omitempty"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("invalid request file: %w", err)
	}

	script, err := codegen.Generate(codegen.Language(opts.Language), codegen.Request{
		SessionID: req.SessionID,
		Cleaning:  req.Cleaning,
		Variables: req.Variables,
		Analyses:  req.Analyses,
	})
	if err != nil {
		return err
	}

	for _, skipped := range script.Skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "Skipped (no %s template): %s\n", script.Language, skipped)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(script.Code), 0644); err != nil {
			return fmt.Errorf("failed to write script: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s script to %s\n", script.Language, opts.Output)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), script.Code)
	return nil
}
