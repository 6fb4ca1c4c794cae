package mailbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"autonomous-agent/internal/domain"
)

// fetchUnseen runs one IMAP session: login, select, search, fetch, mark seen.
func (g *Gateway) fetchUnseen(ctx context.Context) ([]domain.InboundMessage, error) {
	c, err := dialAndLogin(ctx, g.cfg)
	if err != nil {
		return nil, err
	}
	defer g.logoutAndClose(c)

	if _, err := c.Select(g.cfg.Mailbox, &imap.SelectOptions{ReadOnly: false}).Wait(); err != nil {
		return nil, fmt.Errorf("imap select %s: %w", g.cfg.Mailbox, err)
	}

	searchData, err := c.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap uid search unseen: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return []domain.InboundMessage{}, nil
	}
	// oldest first, so replies go out in arrival order
	if len(uids) > g.cfg.MaxMessages {
		uids = uids[:g.cfg.MaxMessages]
	}

	bodyAll := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierNone,
		Peek:      true,
	}
	fetchCmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	out := make([]domain.InboundMessage, 0, len(uids))
	fetched := make([]imap.UID, 0, len(uids))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}

		fetched = append(fetched, buf.UID)
		msg, err := parseMessage(buf.FindBodySection(bodyAll), buf.Envelope)
		if err != nil {
			g.log.WithError(err).WithField("uid", buf.UID).Warn("skipping unparsable message")
			continue
		}
		out = append(out, msg)
	}
	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}

	if err := markSeen(c, fetched); err != nil {
		g.log.WithError(err).Warn("could not mark messages seen")
	}
	return out, nil
}

func dialAndLogin(ctx context.Context, cfg Config) (*imapclient.Client, error) {
	addr := net.JoinHostPort(cfg.IMAPHost, strconv.Itoa(cfg.IMAPPort))
	c, err := imapclient.DialTLS(addr, &imapclient.Options{
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: cfg.IMAPHost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("imap dial tls: %w", err)
	}

	// Close on cancel unblocks any pending command.
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	if err := c.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return c, nil
}

// markSeen sets \Seen on the given UIDs.
// Store returns a *FetchCommand; Close() gives the final status.
func markSeen(c *imapclient.Client, uids []imap.UID) error {
	if c == nil {
		return errors.New("imap client is nil")
	}
	if len(uids) == 0 {
		return nil
	}
	cmd := c.Store(imap.UIDSetNum(uids...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("imap store add seen: %w", err)
	}
	return nil
}

func (g *Gateway) logoutAndClose(c *imapclient.Client) {
	if c == nil {
		return
	}
	if err := c.Logout().Wait(); err != nil {
		g.log.WithError(err).Debug("imap logout")
	}
	_ = c.Close()
}
