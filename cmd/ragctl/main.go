// Command ragctl administers a rag-lab deployment: credential table
// maintenance and database migrations.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/rag-lab/internal/config"
	"github.com/JaimeStill/rag-lab/pkg/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "ragctl",
	Short:         "Administer a rag-lab deployment",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file: %w", err)
		}

		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := loaded.Finalize(); err != nil {
			return fmt.Errorf("finalize config: %w", err)
		}

		// Command output owns stdout.
		cfg = loaded
		logger = logging.NewWithWriter(&cfg.Logging, cmd.ErrOrStderr())
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
