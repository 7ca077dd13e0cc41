// Command admin runs operational tasks against the minimarket database:
// schema migrations, user seeding and password hashing.
package main

import (
	"fmt"
	"os"

	"minimarket/internal/config"
	"minimarket/internal/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Herramientas de administracion del backend minimarket",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		return logger.Setup(logger.Config{Level: level, Format: "console"})
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "nivel de log (debug, info, warn, error)")
	rootCmd.AddCommand(newMigrateCmd(), newSeedUserCmd(), newHashCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		lg := logger.WithComponent("admin")
		lg.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the same environment as the server.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
