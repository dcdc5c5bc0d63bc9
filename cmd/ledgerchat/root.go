package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/ledgerchat/internal/cli"
	"github.com/aretw0/ledgerchat/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "ledgerchat",
	Short: "ledgerchat runs chat-driven ledger flows",
	Long: `ledgerchat keeps one session per chat channel and walks it through
multi-step flows (send an offer, accept it, view the ledger), submitting the
collected data to the ledger API when a flow completes.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringSlice("env", nil, "dotenv files to load (default .env)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging to stderr")
	rootCmd.PersistentFlags().Bool("quiet", false, "Disable logging")
}

// loadConfig reads dotenv files, then the config file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFiles, _ := cmd.Flags().GetStringSlice("env")
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// loadApp builds the engine for a command. quiet is the command's default;
// --debug overrides it.
func loadApp(cmd *cobra.Command, quiet bool) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	debug, _ := cmd.Flags().GetBool("debug")
	if q, _ := cmd.Flags().GetBool("quiet"); q {
		quiet = true
	}
	logger := cli.NewLogger(cfg.Log, os.Stderr, debug, quiet)
	return cli.Build(cfg, logger)
}
