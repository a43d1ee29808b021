package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marinad-syro/inferra/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP analysis service",
		Long: `Start the HTTP server exposing variable computation, data cleaning,
sandboxed script execution, script generation, and statistical analysis.`,
		Example: `  # Start on the configured address
  inferra serve

  # Start on a custom address
  inferra serve --addr :9000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := GetConfig(cmd.Context())
			logger := GetLogger(cmd.Context())

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return server.New(cfg, logger).Serve(ctx)
		},
	}
}
