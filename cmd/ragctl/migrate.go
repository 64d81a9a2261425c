package main

import (
	"github.com/JaimeStill/rag-lab/internal/migrations"
	"github.com/JaimeStill/rag-lab/pkg/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the document store schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrateUp,
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	rootCmd.AddCommand(migrateCmd)
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	db, err := database.Open(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Up(db, cfg.Database.Driver); err != nil {
		return err
	}

	cmd.Println("migrations applied")
	return nil
}
