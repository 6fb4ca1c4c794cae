package agent

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"autonomous-agent/internal/domain"
	"autonomous-agent/internal/events"
)

const (
	snippetLength = 100
	platform      = "bluesky"
)

// Report summarises one cycle.
type Report struct {
	CycleID           string    `json:"cycleId"`
	StartedAt         time.Time `json:"startedAt"`
	FinishedAt        time.Time `json:"finishedAt"`
	MessagesProcessed int       `json:"messagesProcessed"`
	RepliesSent       int       `json:"repliesSent"`
	Thought           string    `json:"thought"`
	Posted            bool      `json:"posted"`
	PostURI           string    `json:"postUri,omitempty"`
	ContentUpdateID   int64     `json:"contentUpdateId,omitempty"`
}

// Duration is how long the cycle took.
func (r Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Run performs one cycle: initialise the store, answer unseen mail, publish a
// thought and record it. The store is closed on every exit path. Store errors
// and panics are returned; mail and social failures are recorded as data.
func (a *Agent) Run(ctx context.Context) (rep Report, err error) {
	release, err := a.lock.acquire()
	if err != nil {
		if errors.Is(err, ErrCycleInProgress) {
			a.log.Info("another cycle is running, skipping")
			a.status.skipped()
			a.metrics.CycleResult(OutcomeSkipped, 0)
			a.hub.Publish(events.MakeEvent(events.TypeCycleSkipped, "", nil))
		}
		return Report{}, err
	}
	defer release()

	rep = Report{CycleID: uuid.NewString(), StartedAt: a.now()}
	log := a.log.WithField("cycle_id", rep.CycleID)
	a.status.started(rep.StartedAt)

	defer func() {
		if r := recover(); r != nil {
			log.WithField("stack", string(debug.Stack())).Errorf("panic in cycle: %v", r)
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
		if cerr := a.store.Close(); cerr != nil {
			log.WithError(cerr).Warn("error closing store")
		}
		rep.FinishedAt = a.now()
		a.finish(log, rep, err)
	}()

	log.Info("autonomous agent starting")
	err = a.cycle(ctx, log, &rep)
	return rep, err
}

func (a *Agent) cycle(ctx context.Context, log *logrus.Entry, rep *Report) error {
	if err := a.store.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}

	msgs := a.mail.CheckUnseenMessages(ctx)
	log.WithField("count", len(msgs)).Info("checked email")

	for _, m := range msgs {
		reply := a.gen.Reply(m.Body())
		log.WithFields(logrus.Fields{"from": m.From, "subject": m.Subject}).
			Infof("generated reply: %s", reply)

		if _, err := a.store.TrackAnalytics(ctx, domain.EventEmailReceived, map[string]any{
			"from":     m.From,
			"subject":  m.Subject,
			"snippet":  m.Snippet(snippetLength),
			"cycle_id": rep.CycleID,
		}); err != nil {
			return fmt.Errorf("record email analytics: %w", err)
		}
		rep.MessagesProcessed++
		a.metrics.EmailProcessed()

		if a.cfg.SendReplies {
			if err := a.sendReply(ctx, log, rep, m, reply); err != nil {
				return err
			}
		}
	}

	thought := a.gen.Thought()
	rep.Thought = thought
	log.Infof("generated thought: %s", thought)

	res := a.poster.Publish(ctx, thought)
	a.metrics.PostResult(res.Success)

	status := domain.StatusPublished
	if !res.Success {
		status = domain.StatusFailed
	}
	id, err := a.store.AddContentUpdate(ctx, domain.NewContentUpdate{
		ContentType: domain.ContentTypeBlueskyPost,
		Content:     thought,
		Status:      status,
		CreatedBy:   a.cfg.CreatedBy,
	})
	if err != nil {
		return fmt.Errorf("record content update: %w", err)
	}
	rep.ContentUpdateID = id

	eventType := domain.EventSocialPost
	data := map[string]any{"platform": platform, "cycle_id": rep.CycleID}
	if res.Success {
		data["uri"] = res.URI
		data["cid"] = res.CID
	} else {
		eventType = domain.EventSocialPostFailed
		data["error"] = res.ErrorString()
	}
	if _, err := a.store.TrackAnalytics(ctx, eventType, data); err != nil {
		return fmt.Errorf("record publish outcome: %w", err)
	}

	rep.Posted = res.Success
	rep.PostURI = res.URI
	if res.Success {
		log.WithField("uri", res.URI).Info("posted thought")
	} else {
		log.WithError(res.Err).Warn("thought not posted")
	}
	return nil
}

func (a *Agent) sendReply(ctx context.Context, log *logrus.Entry, rep *Report, m domain.InboundMessage, reply string) error {
	if m.FromAddress == "" {
		log.WithField("from", m.From).Warn("no sender address, not replying")
		return nil
	}

	subject := replySubject(m.Subject)
	res := a.mail.Send(ctx, m.FromAddress, subject, reply)
	a.metrics.ReplyResult(res.Success)

	eventType := domain.EventEmailReplySent
	data := map[string]any{"to": m.FromAddress, "subject": subject, "cycle_id": rep.CycleID}
	if res.Success {
		data["message_id"] = res.MessageID
		rep.RepliesSent++
	} else {
		eventType = domain.EventEmailReplyFailed
		if res.Err != nil {
			data["error"] = res.Err.Error()
		}
	}
	if _, err := a.store.TrackAnalytics(ctx, eventType, data); err != nil {
		return fmt.Errorf("record reply analytics: %w", err)
	}
	return nil
}

func replySubject(subject string) string {
	s := strings.TrimSpace(subject)
	if len(s) >= 3 && strings.EqualFold(s[:3], "re:") {
		return s
	}
	return "Re: " + s
}

func (a *Agent) finish(log *logrus.Entry, rep Report, err error) {
	a.status.finished(rep, err)

	if err != nil {
		log.WithError(err).Error("cycle failed")
		a.metrics.CycleResult(OutcomeFailure, rep.Duration())
		a.hub.Publish(events.MakeEvent(events.TypeCycleFailed, rep.CycleID, map[string]any{
			"error":  err.Error(),
			"report": rep,
		}))
		return
	}

	log.WithFields(logrus.Fields{
		"messages": rep.MessagesProcessed,
		"replies":  rep.RepliesSent,
		"posted":   rep.Posted,
		"duration": rep.Duration().String(),
	}).Info("autonomous agent cycle complete")
	a.metrics.CycleResult(OutcomeSuccess, rep.Duration())
	a.hub.Publish(events.MakeEvent(events.TypeCycleCompleted, rep.CycleID, rep))
}
