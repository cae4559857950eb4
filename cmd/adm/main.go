// Package main provides the main entry point for the Borneo admin CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"borneo/cmd/adm/commands"
	"borneo/internal/config"
	"borneo/internal/observability"

	"github.com/spf13/cobra"
)

func main() {
	ctx := context.Background()

	// Set default config file if not already set
	if os.Getenv("BORNEO_CONFIG_FILE") == "" {
		for _, path := range []string{"config.yaml", "../config.yaml", "../../config.yaml"} {
			if _, err := os.Stat(path); err == nil {
				if err := os.Setenv("BORNEO_CONFIG_FILE", path); err != nil {
					fmt.Fprintf(os.Stderr, "Failed to set BORNEO_CONFIG_FILE environment variable: %v\n", err)
					os.Exit(1)
				}
				break
			}
		}
	}

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Override log level for admin tool
	cfg.Server.LogLevel = "error"

	// Disable all OpenTelemetry features for admin CLI to avoid connection errors
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	_, _, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "borneo-admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}

	env := commands.NewEnv(cfg, logger)
	defer env.Close(ctx)

	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "Borneo Administration Tool",
		Long: `Borneo Administration Tool

Manages the override dictionary, translation history and provider credentials,
and runs one-shot translations against the configured providers.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, _ []string) {
			// Show help if no subcommand provided
			if err := cmd.Help(); err != nil {
				fmt.Printf("Error showing help: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(commands.DictionaryCommands(env))
	rootCmd.AddCommand(commands.HistoryCommands(env))
	rootCmd.AddCommand(commands.TranslateCommand(env))
	rootCmd.AddCommand(commands.FactsCommand(env))
	rootCmd.AddCommand(commands.CredentialsCommands(env))
	rootCmd.AddCommand(commands.DatabaseCommands(env))
	rootCmd.AddCommand(commands.HashPasswordCommand())
	rootCmd.AddCommand(commands.VersionCommand())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		env.Close(ctx)
		os.Exit(1)
	}
}
