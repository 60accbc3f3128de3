package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shape/internal/config"
	"shape/pkg/logger"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "shape",
	Short: "User management REST API",
	Long: `Shape serves a small user-management REST API backed by PostgreSQL
or SQLite. Running it without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before reading the environment")
}

func loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}

	log := logger.New(logger.Options{
		Level:  logger.LogLevel(cfg.LogLevel),
		Pretty: cfg.IsDevelopment(),
	}).WithFields(map[string]interface{}{
		"app": cfg.App.Name,
		"env": cfg.App.Environment,
	})

	return cfg, log, nil
}
