package main

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"autonomous-agent/internal/agent"
	"autonomous-agent/internal/httpapi"
	"autonomous-agent/internal/scheduler"
)

const pushTimeout = 10 * time.Second

func newRunCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a single agent cycle and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, g)
		},
	}
}

func runOnce(cmd *cobra.Command, g *globalFlags) error {
	cfg, logger, err := g.load(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := buildAgent(cfg, logger, false)
	if err != nil {
		return err
	}

	rep, runErr := a.agent.Run(ctx)
	if runErr == nil {
		if err := printJSON(cmd.OutOrStdout(), rep); err != nil {
			return err
		}
	}

	// A fresh context so an interrupted run still reports what it did.
	pushCtx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := a.metrics.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
		logger.WithError(err).Warn("metrics push failed")
	}
	return runErr
}

func newDaemonCmd(g *globalFlags) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run cycles on an interval and serve the status API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("interval") && interval > 0 {
				cfg.Agent.Interval = interval
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := buildAgent(cfg, logger, true)
			if err != nil {
				return err
			}

			eg, ctx := errgroup.WithContext(ctx)
			if cfg.HTTP.Addr != "" {
				reader, err := openStore(cfg, logger)
				if err != nil {
					return err
				}
				defer reader.Close()

				router := httpapi.NewRouter(httpapi.Deps{
					Store:   reader,
					Hub:     a.hub,
					Metrics: a.metrics,
					Logger:  logger,
					Status:  a.agent.Status,
				})
				eg.Go(func() error {
					return httpapi.Serve(ctx, cfg.HTTP.Addr, router, logger)
				})
			}

			eg.Go(func() error {
				scheduler.Every(ctx, logger, cfg.Agent.Interval, "agent-cycle", func(ctx context.Context) error {
					_, err := a.agent.Run(ctx)
					if errors.Is(err, agent.ErrCycleInProgress) {
						return nil
					}
					return err
				})
				return nil
			})

			logger.WithFields(logrus.Fields{
				"interval": cfg.Agent.Interval.String(),
				"http":     cfg.HTTP.Addr,
			}).Info("daemon started")
			return eg.Wait()
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "time between cycles (overrides agent.interval)")
	return cmd
}
