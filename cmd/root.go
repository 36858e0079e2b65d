// Package cmd provides the eforms command-line interface. Configuration
// follows the usual precedence: command-line flags first, then EFORMS_*
// environment variables, then the drop-in file (eforms.config.yaml by
// default, or EFORMS_CONFIG_FILE / --config).
package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/eforms/eforms/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "eforms",
	Short: "Self-hosted form submission pipeline",
	Long: `eforms serves template-driven forms with spam and bot defense:
one-time submission tokens, origin and timing checks, honeypot fields,
per-IP throttling, and a deterministic validation pipeline.

Quick start:
  eforms validate form.json       Preflight a template document
  eforms serve                    Start the HTTP endpoints
  eforms doctor                   Probe the storage backing store
  eforms mint -f contact          Mint a token locally for testing`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	addGlobalFlags(rootCmd.PersistentFlags())
}

// addGlobalFlags registers the flags shared by every subcommand and binds
// the viper-backed ones.
func addGlobalFlags(fs *pflag.FlagSet) {
	fs.StringVar(&cfgFile, "config", "", "drop-in config file (default eforms.config.yaml, or EFORMS_CONFIG_FILE)")
	fs.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log-level", fs.Lookup("log-level"))
	fs.String("log-format", "text", "log format (text, json)")
	_ = viper.BindPFlag("log-format", fs.Lookup("log-format"))
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = os.Getenv("EFORMS_CONFIG_FILE")
	}
	viper.SetEnvPrefix("EFORMS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

// dropinPath resolves the drop-in file the config provider should read.
func dropinPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return "eforms.config.yaml"
}

// newLogger builds the process logger from the persistent flags.
func newLogger() logging.Logger {
	level := slog.LevelInfo
	switch viper.GetString("log-level") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return logging.New(&logging.Config{
		Level:  level,
		Format: viper.GetString("log-format"),
		Output: os.Stderr,
	})
}
