// Package main provides the sourcing-bot entry point.
package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/conf"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/logging"
)

// Global flags and state.
var (
	cfgFile string
	debug   bool

	cfg *conf.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sourcing-bot",
	Short: "Lark sourcing bot",
	Long: `sourcing-bot watches Lark group chats for product posts, looks up
reference prices and records every find in the product sheet. It also posts
a daily digest of yesterday's finds and a daily chat report.

  sourcing-bot serve                    run the bot
  sourcing-bot digest                   post yesterday's digest now
  sourcing-bot report                   post the chat report now
  sourcing-bot extract "B0… 1980円"     show what a message would yield
  sourcing-bot send bot-log "hello"     send a message to a chat`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		if cfgFile != "" {
			os.Setenv("CONFIG_PATH", cfgFile)
		}

		var err error
		cfg, err = conf.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if debug {
			cfg.Debug = true
		}

		level := cfg.Log.Level
		if cfg.Debug {
			level = "debug"
		}
		log = logging.New(logging.Config{
			Level:       level,
			ServiceName: "sourcing-bot",
			JSON:        cfg.Log.JSON,
			Output:      os.Stderr,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (overrides CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, digestCmd, reportCmd, extractCmd, sendCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
