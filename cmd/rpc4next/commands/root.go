// Package commands provides the CLI commands for rpc4next.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/watanabe-1/rpc4next-sub000/internal/version"
	"github.com/watanabe-1/rpc4next-sub000/pkg/config"
	"github.com/watanabe-1/rpc4next-sub000/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "rpc4next",
	Short: "rpc4next - type-safe RPC paths for Next.js App Router",
	Long: `rpc4next scans a Next.js app directory for page.tsx and route.ts files
and generates a TypeScript declaration describing every reachable path,
its route params, query contracts and HTTP handlers.

Quick Start:
  rpc4next generate            Generate src/generated/rpc.ts
  rpc4next generate --watch    Regenerate on every change
  rpc4next routes              List discovered endpoints
  rpc4next openapi             Export route handlers as OpenAPI`,
	Version: version.GetVersion(),
}

var (
	configFile string
	logLevel   string
)

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("rpc4next {{.Version}} (schema v%d)\n", version.GetGeneratorSchemaVersion()))

	// Global flags
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for automation)")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: ./rpc4next.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug|info|warn|error|off)")
}

// flagKeys maps command flags onto config keys.
var flagKeys = map[string]string{
	"base-dir":    config.KeyBaseDir,
	"output":      config.KeyOutput,
	"params-file": config.KeyParamsFile,
	"debounce":    config.KeyDebounce,
	"log-level":   config.KeyLogLevel,
	"watch":       config.KeyWatch,
}

// loadConfig merges rpc4next.yaml, RPC4NEXT_* variables and the flags the
// command defines, in increasing precedence.
func loadConfig(flags *pflag.FlagSet, dir, file string) (*config.Config, error) {
	v := config.New(dir)
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind --%s: %w", name, err)
			}
		}
	}
	return config.Load(v, file)
}

// newLogger builds the command logger. JSON mode keeps stdout for the
// response and moves progress lines to stderr.
func newLogger(cfg *config.Config) *logger.Logger {
	out := os.Stdout
	if jsonOutput {
		out = os.Stderr
	}
	return logger.New(logger.Config{
		Level:  logger.ParseLogLevel(cfg.LogLevel),
		Output: out,
	})
}

// mustLoadConfig loads the config for cmd or exits.
func mustLoadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := loadConfig(cmd.Flags(), ".", configFile)
	if err != nil {
		fail("invalid configuration", err)
	}
	return cfg
}
