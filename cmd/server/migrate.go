package main

import (
	"context"

	"github.com/spf13/cobra"

	internaldb "shape/internal/database"
	"shape/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(ctx context.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	cm, err := database.NewConnectionManager(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer cm.Close()

	applied, err := internaldb.NewMigrationService(cm.GetDB(), cm.Dialect(), log).RunMigrations(ctx)
	if err != nil {
		return err
	}

	log.Info("Migrations finished", map[string]interface{}{"applied": applied})
	return nil
}
