package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display Inferra version and build information.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Inferra v%s\n", version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Build date: %s, commit: %s\n", BuildDate, GitCommit)
		},
	}
}
