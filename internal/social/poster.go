// Package social publishes the agent's posts to Bluesky.
package social

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"autonomous-agent/internal/config"
	"autonomous-agent/internal/domain"
	"autonomous-agent/internal/logging"
)

var (
	ErrLoginFailed = errors.New("login failed")
	ErrPostTooLong = errors.New("post too long")
)

// MaxPostLength is the Bluesky post limit in characters.
const MaxPostLength = 300

const (
	nsidCreateSession = "com.atproto.server.createSession"
	nsidCreateRecord  = "com.atproto.repo.createRecord"
	nsidGetProfile    = "app.bsky.actor.getProfile"

	collectionPost = "app.bsky.feed.post"

	defaultService = "https://bsky.social"
	defaultTimeout = 15 * time.Second
)

type Config = config.BlueskyConfig

type session struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	DID        string `json:"did"`
	Handle     string `json:"handle"`
}

type Profile struct {
	DID            string `json:"did"`
	Handle         string `json:"handle"`
	DisplayName    string `json:"displayName,omitempty"`
	Description    string `json:"description,omitempty"`
	FollowersCount int64  `json:"followersCount"`
	FollowsCount   int64  `json:"followsCount"`
	PostsCount     int64  `json:"postsCount"`
}

type postRecord struct {
	Type      string   `json:"$type"`
	Text      string   `json:"text"`
	CreatedAt string   `json:"createdAt"`
	Facets    []Facet  `json:"facets,omitempty"`
	Langs     []string `json:"langs,omitempty"`
}

type createRecordInput struct {
	Repo       string     `json:"repo"`
	Collection string     `json:"collection"`
	Record     postRecord `json:"record"`
}

type createRecordOutput struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

type Option func(*options)

type options struct {
	logger *logrus.Logger
	http   *http.Client
	retry  RetryConfig
	now    func() time.Time
}

func WithLogger(logger *logrus.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.http = hc }
}

func WithRetry(cfg RetryConfig) Option {
	return func(o *options) { o.retry = cfg }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Poster owns the Bluesky session. Safe for concurrent use.
type Poster struct {
	cfg    Config
	client *xrpcClient
	log    *logrus.Entry
	now    func() time.Time

	login singleflight.Group

	mu      sync.Mutex
	session *session
}

func New(cfg Config, opts ...Option) *Poster {
	o := options{retry: DefaultRetryConfig(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.Service == "" {
		cfg.Service = defaultService
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if o.http == nil {
		o.http = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Poster{
		cfg:    cfg,
		client: newXRPCClient(cfg.Service, o.http, rate.NewLimiter(limit, burst), o.retry),
		log:    logging.Component(o.logger, "social"),
		now:    o.now,
	}
}

// Enabled reports whether credentials are configured.
func (p *Poster) Enabled() bool {
	return p.cfg.Identifier != "" && p.cfg.Password != ""
}

// Authenticate makes sure a session exists. It never returns an error;
// false means there is no usable session.
func (p *Poster) Authenticate(ctx context.Context) bool {
	if !p.Enabled() {
		p.log.Info("bluesky credentials not configured")
		return false
	}
	if p.currentSession() != nil {
		return true
	}

	v, err, _ := p.login.Do("login", func() (any, error) {
		if s := p.currentSession(); s != nil {
			return s, nil
		}
		var s session
		err := p.client.procedure(ctx, nsidCreateSession, "", map[string]string{
			"identifier": p.cfg.Identifier,
			"password":   p.cfg.Password,
		}, &s, true)
		if err != nil {
			return nil, err
		}
		if s.AccessJwt == "" || s.DID == "" {
			return nil, errors.New("createSession returned no session")
		}
		p.setSession(&s)
		p.log.WithField("handle", s.Handle).Info("logged in to bluesky")
		return &s, nil
	})
	if err != nil {
		p.log.WithError(err).Error("bluesky login failed")
		return false
	}
	return v != nil
}

// Publish posts text as a new app.bsky.feed.post record.
func (p *Poster) Publish(ctx context.Context, text string) domain.PostResult {
	if !p.Authenticate(ctx) {
		return domain.PostResult{Err: ErrLoginFailed}
	}
	if n := utf8.RuneCountInString(text); n > MaxPostLength {
		return domain.PostResult{Err: fmt.Errorf("%w: %d characters, limit %d", ErrPostTooLong, n, MaxPostLength)}
	}

	out, err := p.createPost(ctx, text)
	if isExpiredSession(err) {
		p.log.WithError(err).Warn("bluesky session expired, logging in again")
		p.dropSession()
		if !p.Authenticate(ctx) {
			return domain.PostResult{Err: ErrLoginFailed}
		}
		out, err = p.createPost(ctx, text)
	}
	if err != nil {
		p.log.WithError(err).Error("error posting to bluesky")
		return domain.PostResult{Err: err}
	}

	p.log.WithField("uri", out.URI).Info("posted to bluesky")
	return domain.PostResult{Success: true, URI: out.URI, CID: out.CID}
}

func (p *Poster) createPost(ctx context.Context, text string) (*createRecordOutput, error) {
	s := p.currentSession()
	if s == nil {
		return nil, ErrLoginFailed
	}
	in := createRecordInput{
		Repo:       s.DID,
		Collection: collectionPost,
		Record: postRecord{
			Type:      collectionPost,
			Text:      text,
			CreatedAt: p.now().UTC().Format("2006-01-02T15:04:05.000Z"),
			Facets:    DetectFacets(text),
		},
	}
	var out createRecordOutput
	// not retried: a lost response must not turn into a duplicate post
	if err := p.client.procedure(ctx, nsidCreateRecord, s.AccessJwt, in, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile fetches the logged-in account's profile.
func (p *Poster) Profile(ctx context.Context) (*Profile, error) {
	if !p.Authenticate(ctx) {
		return nil, ErrLoginFailed
	}

	prof, err := p.getProfile(ctx)
	if isExpiredSession(err) {
		p.dropSession()
		if !p.Authenticate(ctx) {
			return nil, ErrLoginFailed
		}
		prof, err = p.getProfile(ctx)
	}
	return prof, err
}

func (p *Poster) getProfile(ctx context.Context) (*Profile, error) {
	s := p.currentSession()
	if s == nil {
		return nil, ErrLoginFailed
	}
	actor := s.Handle
	if actor == "" {
		actor = s.DID
	}
	var out Profile
	if err := p.client.query(ctx, nsidGetProfile, s.AccessJwt, url.Values{"actor": {actor}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func isExpiredSession(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == "ExpiredToken" || apiErr.Code == "InvalidToken"
}

func (p *Poster) currentSession() *session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

func (p *Poster) setSession(s *session) {
	p.mu.Lock()
	p.session = s
	p.mu.Unlock()
}

func (p *Poster) dropSession() {
	p.setSession(nil)
}
