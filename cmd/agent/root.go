package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"autonomous-agent/internal/config"
	"autonomous-agent/internal/logging"
	"autonomous-agent/internal/secrets"
)

const defaultConfigPath = "config.yml"

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "agent",
		Short:         "Autonomous agent: inbox replies, Bluesky posts, MySQL log",
		Long:          "Runs one agent cycle by default: check the inbox, answer messages, publish a thought to Bluesky and record everything in the database.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, g)
		},
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", defaultConfigPath, "path to the YAML config file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "log format: json|text (overrides config)")

	root.AddCommand(newRunCmd(g))
	root.AddCommand(newDaemonCmd(g))
	root.AddCommand(newMigrateCmd(g))
	root.AddCommand(newUpdatesCmd(g))
	root.AddCommand(newEventsCmd(g))
	root.AddCommand(newProfileCmd(g))
	root.AddCommand(newSecretsCmd(g))
	root.AddCommand(newConfigCmd(g))
	return root
}

// load resolves config and logger for a command. The file is only required
// when --config was given explicitly.
func (g *globalFlags) load(cmd *cobra.Command) (config.Config, *logrus.Logger, error) {
	required := cmd.Flags().Changed("config")
	cfg, res, err := config.Load(g.configPath, required)

	level, format := cfg.Log.Level, cfg.Log.Format
	if g.logLevel != "" {
		level = g.logLevel
	}
	if g.logFormat != "" {
		format = g.logFormat
	}
	logger := logging.New(level, format)

	for _, w := range res.Warnings {
		logger.Warn(w)
	}
	if err != nil {
		return cfg, logger, err
	}

	for _, kind := range secrets.Fill(&cfg) {
		logger.WithField("kind", kind).Debug("password loaded from keyring")
	}
	return cfg, logger, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
