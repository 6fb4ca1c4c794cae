package main

import (
	"path/filepath"

	"github.com/sirupsen/logrus"

	"autonomous-agent/internal/agent"
	"autonomous-agent/internal/config"
	"autonomous-agent/internal/content"
	"autonomous-agent/internal/events"
	"autonomous-agent/internal/mailbox"
	"autonomous-agent/internal/metrics"
	"autonomous-agent/internal/social"
	"autonomous-agent/internal/store"
)

type app struct {
	agent   *agent.Agent
	metrics *metrics.Collector
	hub     *events.Hub
	poster  *social.Poster
}

func buildAgent(cfg config.Config, logger *logrus.Logger, withRuntime bool) (*app, error) {
	st, err := store.New(cfg.Store, store.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	mc := metrics.New(withRuntime)
	hub := events.NewHub()
	poster := social.New(cfg.Bluesky, social.WithLogger(logger))

	var opts []content.Option
	if len(cfg.Replies.Rules) > 0 {
		opts = append(opts, content.WithRules(replyRules(cfg.Replies.Rules)))
	}

	a := agent.New(agent.Config{
		SendReplies: cfg.Agent.SendReplies,
		CreatedBy:   cfg.Agent.CreatedBy,
		LockPath:    filepath.Join(cfg.Agent.DataDir, "agent.lock"),
	},
		mailbox.New(cfg.Email, mailbox.WithLogger(logger)),
		poster,
		content.New(opts...),
		st,
		agent.WithLogger(logger),
		agent.WithMetrics(mc),
		agent.WithHub(hub),
	)
	return &app{agent: a, metrics: mc, hub: hub, poster: poster}, nil
}

func replyRules(in []config.ReplyRule) []content.Rule {
	out := make([]content.Rule, 0, len(in))
	for _, r := range in {
		out = append(out, content.Rule{Any: r.Any, Response: r.Response})
	}
	return out
}

func openStore(cfg config.Config, logger *logrus.Logger) (*store.Store, error) {
	return store.New(cfg.Store, store.WithLogger(logger))
}
