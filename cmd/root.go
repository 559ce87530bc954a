package main

import (
	"fmt"
	"os"

	"github.com/okian/visionauth/internal/config"
	"github.com/okian/visionauth/pkg/logger"
	"github.com/spf13/cobra"
)

// Version is the application version.
const Version = "0.1.0"

// cli holds state shared by subcommands once the root pre-run has loaded it.
type cli struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "visionauth",
		Short:         "Live face landmark overlay with a placeholder analysis readout",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd)
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML config file (overrides $"+config.EnvConfigFile+")")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level override: debug, info, warn, error")

	root.AddCommand(newServeCmd(c), newSnapshotCmd(c), newSidecarSimCmd(c))
	return root
}

// init loads configuration and sets up logging. Load order is defaults,
// then the YAML file, then VISIONAUTH_* env vars; flags win over all three.
func (c *cli) init(cmd *cobra.Command) error {
	if c.configPath != "" {
		if err := os.Setenv(config.EnvConfigFile, c.configPath); err != nil {
			return fmt.Errorf("set config path: %w", err)
		}
	}
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	c.cfg = cfg
	return nil
}
