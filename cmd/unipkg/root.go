package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ochairo/unipkg/internal/domain-adapters/gateways"
	"github.com/ochairo/unipkg/internal/domain/interfaces"
	"github.com/ochairo/unipkg/internal/external-adapters/zaplog"
)

const envPrefix = "UNIPKG"

// Config keys shared by flags, UNIPKG_* variables and the config file
const (
	keyLogLevel    = "log-level"
	keyLogFormat   = "log-format"
	keyWorkDir     = "work-dir"
	keyToolTimeout = "tool-timeout"
	keyParallel    = "parallel"
	keyChecksum    = "checksum"
	keyKeyring     = "keyring"
	keyFallbackDir = "fallback-dir"
	keyRecipesDir  = "recipes-dir"
)

// cli carries the merged configuration and the logger built from it
type cli struct {
	v       *viper.Viper
	cfgFile string
	stdout  io.Writer
	stderr  io.Writer
	logger  *zaplog.Logger
}

func newRootCmd() *cobra.Command {
	return newCLI(os.Stdout, os.Stderr).rootCmd()
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{v: viper.New(), stdout: stdout, stderr: stderr}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "unipkg",
		Short: "Universal macOS installer builder",
		Long: `unipkg - Universal macOS installer builder

Combines an Apple silicon (arm64) and an Intel (x86_64) build of the same
application into one installer package that installs the matching variant
into /Applications.

Inputs may be .app bundles, .zip, .tar.bz2, .bz2, .tar.xz or .dmg files,
given as local paths or http(s) URLs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.initialize(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "Config file (YAML)")
	pf.String(keyLogLevel, "info", "Log level (debug, info, warn, error)")
	pf.String(keyLogFormat, "console", "Log format (console, json)")
	pf.String(keyWorkDir, "", "Parent directory for working areas (default: system temp)")
	pf.Duration(keyToolTimeout, gateways.DefaultToolTimeout, "Timeout for each external tool invocation")
	pf.String(keyRecipesDir, "recipes", "Path to pair recipes directory")
	_ = c.v.BindPFlags(pf)

	root.AddCommand(
		c.buildCmd(),
		c.inspectCmd(),
		c.listCmd(),
		c.versionCmd(),
	)
	return root
}

// initialize merges the config sources and builds the logger
func (c *cli) initialize(cmd *cobra.Command) error {
	if err := c.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
		c.v.SetConfigType("yaml")
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", c.cfgFile, err)
		}
	}

	logger, err := zaplog.New(zaplog.Options{
		Level:  c.v.GetString(keyLogLevel),
		Format: c.v.GetString(keyLogFormat),
		Output: c.stderr,
	})
	if err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	c.logger = logger
	if c.cfgFile != "" {
		logger.Debug("using config file", interfaces.F("file", c.v.ConfigFileUsed()))
	}
	return nil
}

func (c *cli) toolTimeout() time.Duration {
	if d := c.v.GetDuration(keyToolTimeout); d > 0 {
		return d
	}
	return gateways.DefaultToolTimeout
}

func (c *cli) fallbackDirs() func() []string {
	dir := strings.TrimSpace(c.v.GetString(keyFallbackDir))
	if dir == "" {
		return gateways.DefaultFallbackDirs
	}
	return func() []string { return []string{dir} }
}
