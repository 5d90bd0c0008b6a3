package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JamesPrial/pokeflow/pkg/config"
	"github.com/JamesPrial/pokeflow/pkg/logging"
)

var (
	configPath string
	envFile    string
	logLevel   string
	verbose    bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pokeflow",
		Short:         "Browse Pokémon as a node graph",
		Long:          "pokeflow serves a graph of Pokémon to a flow-diagram widget and loads details for the selected node.",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	root.PersistentFlags().StringVarP(&envFile, "env", "e", ".env", "Environment file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging in text format")

	root.AddCommand(newServeCmd(), newGraphCmd(), newShowCmd())
	return root
}

// loadSettings reads the env file and configuration and starts logging
func loadSettings() (*config.Settings, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.UseDevelopment()
	}
	if logLevel != "" {
		cfg.Logging.Level = logging.LogLevel(logLevel)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	if err := logging.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %s", err))
		os.Exit(1)
	}
}
