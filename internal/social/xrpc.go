package social

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"golang.org/x/time/rate"
)

const (
	userAgent       = "autonomous-agent/1.0"
	maxResponseBody = 1 << 20
)

// APIError is an XRPC error response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("xrpc %d %s: %s", e.Status, e.Code, e.Message)
	case e.Code != "":
		return fmt.Sprintf("xrpc %d %s", e.Status, e.Code)
	default:
		return fmt.Sprintf("xrpc %d", e.Status)
	}
}

// RetryConfig shapes the retry policy used for idempotent calls.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}
}

// shouldRetry retries transport errors, 429 and 5xx.
func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp == nil {
		return false
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
}

//nolint:bodyclose // *http.Response is a type parameter here
func newRetryPolicy(cfg RetryConfig) retrypolicy.RetryPolicy[*http.Response] {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 200 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	return retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(shouldRetry).
		ReturnLastFailure().
		Build()
}

// xrpcClient speaks the small slice of XRPC the poster needs.
type xrpcClient struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	retry   failsafe.Executor[*http.Response]
}

func newXRPCClient(service string, hc *http.Client, limiter *rate.Limiter, retry RetryConfig) *xrpcClient {
	return &xrpcClient{
		base:    strings.TrimRight(service, "/"),
		http:    hc,
		limiter: limiter,
		retry:   failsafe.With(newRetryPolicy(retry)),
	}
}

// procedure POSTs a JSON body. Only idempotent procedures should set retry.
func (c *xrpcClient) procedure(ctx context.Context, nsid, token string, in, out any, retry bool) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s: %w", nsid, err)
	}
	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/xrpc/"+nsid, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}
	return c.do(ctx, nsid, token, build, out, retry)
}

// query GETs with parameters. Queries are always retried.
func (c *xrpcClient) query(ctx context.Context, nsid, token string, params url.Values, out any) error {
	build := func(ctx context.Context) (*http.Request, error) {
		u := c.base + "/xrpc/" + nsid
		if len(params) > 0 {
			u += "?" + params.Encode()
		}
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}
	return c.do(ctx, nsid, token, build, out, true)
}

func (c *xrpcClient) do(ctx context.Context, nsid, token string, build func(context.Context) (*http.Request, error), out any, retry bool) error {
	send := func() (*http.Response, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		// Buffer the body so attempts the policy throws away don't hold connections.
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return nil, err
		}
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return resp, nil
	}

	var (
		resp *http.Response
		err  error
	)
	if retry {
		resp, err = c.retry.WithContext(ctx).Get(send)
	} else {
		resp, err = send()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", nsid, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", nsid, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		return apiErr
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", nsid, err)
	}
	return nil
}
