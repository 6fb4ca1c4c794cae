package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"autonomous-agent/internal/social"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMigrateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database (if allowed) and its tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			st, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Initialize(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", cfg.Store.Driver)
			return nil
		},
	}
}

func newUpdatesCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "updates",
		Short: "List recent content updates, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			st, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Initialize(cmd.Context()); err != nil {
				return err
			}
			rows, err := st.GetContentUpdates(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of rows")
	return cmd
}

func newEventsCmd(g *globalFlags) *cobra.Command {
	var (
		eventType string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recent analytics events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			st, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Initialize(cmd.Context()); err != nil {
				return err
			}
			rows, err := st.GetAnalytics(cmd.Context(), eventType, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringVar(&eventType, "type", "", "only this event type (e.g. social_post)")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of rows")
	return cmd
}

func newProfileCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Log in to Bluesky and show the account profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			p := social.New(cfg.Bluesky, social.WithLogger(logger))
			if !p.Enabled() {
				return fmt.Errorf("bluesky is not configured")
			}
			prof, err := p.Profile(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), prof)
		},
	}
}
