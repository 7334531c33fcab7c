package client

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

	"github.com/sirupsen/logrus"

	"github.com/JasonKing5/ifs/internal/obs"
)

const (
	// MsgTokenExpired is shown once when a refresh fails.
	MsgTokenExpired = "Token expired, please login again"

	defaultServerError    = "Server error"
	defaultRefreshTimeout = 15 * time.Second
	maxResponseBytes      = 4 << 20
)

type noRefreshKey struct{}

// WithoutRefresh marks requests that must not trigger a token refresh on 401.
func WithoutRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRefreshKey{}, true)
}

func refreshDisabled(ctx context.Context) bool {
	v, _ := ctx.Value(noRefreshKey{}).(bool)
	return v
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithSessionStore(s SessionStore) Option {
	return func(c *Client) { c.sessions = s }
}

func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notify = n }
}

// WithLoginRequired sets the callback run once when a refresh fails.
func WithLoginRequired(fn func()) Option {
	return func(c *Client) { c.onLoginRequired = fn }
}

// WithWaitTimeout bounds how long a request waits for a refresh.
func WithWaitTimeout(d time.Duration) Option {
	return func(c *Client) { c.waitTimeout = d }
}

// WithRefreshTimeout bounds the refresh call itself.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) { c.refreshTimeout = d }
}

// Client talks to the ifs API. Concurrent requests that hit an expired access
// token share a single refresh and are replayed in the order they failed.
type Client struct {
	baseURL *url.URL
	http    *http.Client

	sessions        SessionStore
	notify          Notifier
	onLoginRequired func()
	waitTimeout     time.Duration
	refreshTimeout  time.Duration

	gate refreshGate
	log  *logrus.Entry
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client: base url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL:        u,
		http:           &http.Client{Timeout: 10 * time.Second},
		sessions:       &MemorySessions{},
		notify:         nopNotifier{},
		refreshTimeout: defaultRefreshTimeout,
		log:            obs.Logger().WithField("component", "client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromConfig builds a Client with file-backed sessions.
func NewFromConfig(cfg Config, opts ...Option) (*Client, error) {
	base := []Option{
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		WithWaitTimeout(cfg.RefreshWait),
	}
	if cfg.SessionFile != "" {
		base = append(base, WithSessionStore(&FileSessions{Path: cfg.SessionFile}))
	}
	return New(cfg.BaseURL, append(base, opts...)...)
}

// Session returns the stored session.
func (c *Client) Session() (Session, error) {
	return c.sessions.Load()
}

// Do sends a JSON request and decodes the response payload into out.
// A 401 on an authenticated request waits for a shared refresh and is
// replayed once.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
	}
	send := func(ctx context.Context) (*http.Response, error) {
		return c.roundTrip(ctx, method, path, payload, true)
	}

	resp, err := send(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.notify.Error(defaultServerError)
		}
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized && !refreshDisabled(ctx) {
		drain(resp)
		if resp, err = c.awaitRefresh(ctx, send); err != nil {
			return err
		}
	}

	err = readResponse(resp, out)
	var apiErr *APIError
	var httpErr *HTTPError
	switch {
	case errors.As(err, &apiErr):
		c.notify.Warning(apiErr.Message)
	case errors.As(err, &httpErr):
		c.notify.Error(httpErr.Message)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, withToken bool) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withToken {
		sess, err := c.sessions.Load()
		if err != nil {
			return nil, err
		}
		if sess.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *Client) awaitRefresh(ctx context.Context, send func(context.Context) (*http.Response, error)) (*http.Response, error) {
	cont := newContinuation(ctx, send)
	if c.gate.acquireOrWait(cont) {
		go c.refreshAndReplay()
	}

	var timeout <-chan time.Time
	if c.waitTimeout > 0 {
		t := time.NewTimer(c.waitTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case r := <-cont.result:
		return r.resp, r.err
	case <-ctx.Done():
		if cont.abandon() {
			return nil, ctx.Err()
		}
	case <-timeout:
		if cont.abandon() {
			return nil, ErrSessionExpired
		}
	}
	// Already claimed by the replay loop.
	r := <-cont.result
	return r.resp, r.err
}

func (c *Client) refreshAndReplay() {
	err := errors.New("refresh aborted")
	defer func() { c.settle(err) }()

	ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
	defer cancel()
	err = c.refreshSession(ctx)
}

func (c *Client) settle(err error) {
	queue := c.gate.release()
	if err != nil {
		c.log.WithError(err).WithField("waiting", len(queue)).Warn("token refresh failed")
		c.expireSession()
		for _, cont := range queue {
			cont.fail(ErrSessionExpired)
		}
		return
	}
	c.log.WithField("waiting", len(queue)).Debug("token refreshed")
	for _, cont := range queue {
		cont.replay()
	}
}

func (c *Client) expireSession() {
	if err := c.sessions.Clear(); err != nil {
		c.log.WithError(err).Warn("clear session")
	}
	if c.onLoginRequired != nil {
		c.onLoginRequired()
	}
	c.notify.Warning(MsgTokenExpired)
}

func (c *Client) refreshSession(ctx context.Context) error {
	sess, err := c.sessions.Load()
	if err != nil {
		return err
	}
	if sess.RefreshToken == "" {
		return errors.New("no refresh token")
	}
	payload, err := json.Marshal(map[string]string{"refreshToken": sess.RefreshToken})
	if err != nil {
		return err
	}
	resp, err := c.roundTrip(ctx, http.MethodPost, "/auth/refresh", payload, false)
	if err != nil {
		return err
	}
	var out sessionPayload
	if err := readResponse(resp, &out); err != nil {
		return err
	}
	if out.AccessToken == "" {
		return errors.New("refresh returned no access token")
	}
	return c.sessions.Save(out.session())
}

type envelope struct {
	Code      *int   `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// readResponse enforces the envelope contract and closes the body.
func readResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}
	var env envelope
	jsonErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Message
		if jsonErr != nil || msg == "" {
			msg = defaultServerError
		}
		return &HTTPError{Status: resp.StatusCode, Message: msg, RequestID: env.RequestID}
	}
	if jsonErr != nil || env.Code == nil {
		return &APIError{Status: resp.StatusCode, Code: -1, Message: "response is missing code"}
	}
	if *env.Code != 0 {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("request failed with code %d", *env.Code)
		}
		return &APIError{Status: resp.StatusCode, Code: *env.Code, Message: msg}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("client: decode response: %w", err)
		}
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
}
