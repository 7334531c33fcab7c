package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu       sync.Mutex
	warnings []string
	errors   []string
}

func (n *recordingNotifier) Warning(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warnings = append(n.warnings, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *recordingNotifier) snapshot() ([]string, []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.warnings...), append([]string(nil), n.errors...)
}

// fakeAPI accepts "Bearer new" on /poetry/{id} and answers 401 otherwise.
type fakeAPI struct {
	mu           sync.Mutex
	replayed     []string
	refreshCalls atomic.Int32
	refreshGate  chan struct{}
	refreshFails bool
	alwaysDeny   bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	write := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	switch {
	case r.URL.Path == "/auth/refresh":
		f.refreshCalls.Add(1)
		if f.refreshGate != nil {
			<-f.refreshGate
		}
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if f.refreshFails || body.RefreshToken != "r1" {
			write(http.StatusUnauthorized, map[string]any{"code": 401, "message": "invalid or expired token"})
			return
		}
		write(http.StatusOK, map[string]any{
			"code":         0,
			"user":         map[string]any{"id": "u1", "email": "li.bai@example.com"},
			"roles":        []string{"USER"},
			"accessToken":  "new",
			"refreshToken": "r2",
		})
	case strings.HasPrefix(r.URL.Path, "/poetry/"):
		id := strings.TrimPrefix(r.URL.Path, "/poetry/")
		if f.alwaysDeny || r.Header.Get("Authorization") != "Bearer new" {
			write(http.StatusUnauthorized, map[string]any{"code": 401, "message": "invalid token"})
			return
		}
		f.mu.Lock()
		f.replayed = append(f.replayed, id)
		f.mu.Unlock()
		write(http.StatusOK, map[string]any{"code": 0, "poem": map[string]any{"id": id, "title": "静夜思"}})
	case r.URL.Path == "/warn":
		write(http.StatusOK, map[string]any{"code": 1001, "message": "title already taken"})
	case r.URL.Path == "/nocode":
		write(http.StatusOK, map[string]any{"ok": true})
	case r.URL.Path == "/boom":
		write(http.StatusInternalServerError, map[string]any{"code": 500, "message": "database unavailable", "request_id": "req-1"})
	case r.URL.Path == "/gateway":
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) replays() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.replayed...)
}

type fixture struct {
	api      *fakeAPI
	client   *Client
	sessions *MemorySessions
	notes    *recordingNotifier
	logins   *atomic.Int32
}

func newFixture(t *testing.T, api *fakeAPI, opts ...Option) fixture {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	sessions := &MemorySessions{}
	require.NoError(t, sessions.Save(Session{AccessToken: "old", RefreshToken: "r1"}))
	notes := &recordingNotifier{}
	logins := &atomic.Int32{}

	base := []Option{
		WithHTTPClient(srv.Client()),
		WithSessionStore(sessions),
		WithNotifier(notes),
		WithLoginRequired(func() { logins.Add(1) }),
	}
	c, err := New(srv.URL, append(base, opts...)...)
	require.NoError(t, err)
	return fixture{api: api, client: c, sessions: sessions, notes: notes, logins: logins}
}

func (f fixture) queued() int {
	f.client.gate.mu.Lock()
	defer f.client.gate.mu.Unlock()
	return len(f.client.gate.queue)
}

type poemResult struct {
	poem Poem
	err  error
}

// startQueued launches GetPoem for each id and waits until each one is
// parked on the gate before starting the next, fixing the queue order.
func (f fixture) startQueued(t *testing.T, ids ...string) []chan poemResult {
	t.Helper()
	out := make([]chan poemResult, len(ids))
	for i, id := range ids {
		ch := make(chan poemResult, 1)
		out[i] = ch
		go func(id string) {
			p, err := f.client.GetPoem(context.Background(), id)
			ch <- poemResult{poem: p, err: err}
		}(id)
		want := i + 1
		require.Eventually(t, func() bool { return f.queued() == want }, 2*time.Second, 5*time.Millisecond)
	}
	return out
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	api := &fakeAPI{refreshGate: make(chan struct{})}
	f := newFixture(t, api)

	results := f.startQueued(t, "a", "b", "c")
	close(api.refreshGate)

	for i, id := range []string{"a", "b", "c"} {
		r := <-results[i]
		require.NoError(t, r.err)
		require.Equal(t, id, r.poem.ID)
	}
	require.Equal(t, int32(1), api.refreshCalls.Load())
	require.Equal(t, []string{"a", "b", "c"}, api.replays())

	sess, err := f.client.Session()
	require.NoError(t, err)
	require.Equal(t, "new", sess.AccessToken)
	require.Equal(t, "r2", sess.RefreshToken)
	require.Equal(t, "u1", sess.User.ID)

	warnings, errs := f.notes.snapshot()
	require.Empty(t, warnings)
	require.Empty(t, errs)
	require.Zero(t, f.logins.Load())
}

func TestRefreshFailureExpiresSessionOnce(t *testing.T) {
	api := &fakeAPI{refreshGate: make(chan struct{}), refreshFails: true}
	f := newFixture(t, api)

	results := f.startQueued(t, "a", "b", "c")
	close(api.refreshGate)

	for _, ch := range results {
		r := <-ch
		require.ErrorIs(t, r.err, ErrSessionExpired)
	}
	require.Equal(t, int32(1), api.refreshCalls.Load())
	require.Equal(t, int32(1), f.logins.Load())
	require.Empty(t, api.replays())

	warnings, errs := f.notes.snapshot()
	require.Equal(t, []string{MsgTokenExpired}, warnings)
	require.Empty(t, errs)

	sess, err := f.client.Session()
	require.NoError(t, err)
	require.Equal(t, Session{}, sess)
}

func TestReplayIsNotInterceptedAgain(t *testing.T) {
	api := &fakeAPI{alwaysDeny: true}
	f := newFixture(t, api)

	_, err := f.client.GetPoem(context.Background(), "a")
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.Status)
	require.Equal(t, int32(1), api.refreshCalls.Load())
}

func TestWithoutRefreshSkipsInterception(t *testing.T) {
	api := &fakeAPI{}
	f := newFixture(t, api)

	err := f.client.Do(WithoutRefresh(context.Background()), http.MethodGet, "/poetry/a", nil, nil)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.Status)
	require.Zero(t, api.refreshCalls.Load())

	_, errs := f.notes.snapshot()
	require.Equal(t, []string{"invalid token"}, errs)
}

func TestWaitTimeoutAbandonsContinuation(t *testing.T) {
	api := &fakeAPI{refreshGate: make(chan struct{})}
	f := newFixture(t, api, WithWaitTimeout(50*time.Millisecond))

	_, err := f.client.GetPoem(context.Background(), "slow")
	require.ErrorIs(t, err, ErrSessionExpired)

	close(api.refreshGate)
	require.Eventually(t, func() bool {
		sess, _ := f.client.Session()
		return sess.AccessToken == "new"
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		f.client.gate.mu.Lock()
		defer f.client.gate.mu.Unlock()
		return !f.client.gate.inflight
	}, 2*time.Second, 5*time.Millisecond)
	require.Empty(t, api.replays())
}

func TestCancelledWaiterReturnsContextError(t *testing.T) {
	api := &fakeAPI{refreshGate: make(chan struct{})}
	f := newFixture(t, api)
	t.Cleanup(func() { close(api.refreshGate) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.client.GetPoem(ctx, "a")
		done <- err
	}()
	require.Eventually(t, func() bool { return f.queued() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestNonZeroCodeIsWarning(t *testing.T) {
	f := newFixture(t, &fakeAPI{})

	err := f.client.Do(context.Background(), http.MethodGet, "/warn", nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 1001, apiErr.Code)

	err = f.client.Do(context.Background(), http.MethodGet, "/nocode", nil, nil)
	require.ErrorAs(t, err, &apiErr)

	warnings, errs := f.notes.snapshot()
	require.Equal(t, []string{"title already taken", "response is missing code"}, warnings)
	require.Empty(t, errs)
}

func TestServerErrorsNotify(t *testing.T) {
	f := newFixture(t, &fakeAPI{})

	err := f.client.Do(context.Background(), http.MethodGet, "/boom", nil, nil)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, "database unavailable", httpErr.Message)
	require.Equal(t, "req-1", httpErr.RequestID)

	err = f.client.Do(context.Background(), http.MethodGet, "/gateway", nil, nil)
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusBadGateway, httpErr.Status)

	_, errs := f.notes.snapshot()
	require.Equal(t, []string{"database unavailable", defaultServerError}, errs)
}

func TestUnreachableServerNotifies(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	notes := &recordingNotifier{}
	c, err := New(srv.URL, WithNotifier(notes))
	require.NoError(t, err)

	err = c.Do(context.Background(), http.MethodGet, "/poetry/1", nil, nil)
	require.Error(t, err)
	var httpErr *HTTPError
	require.False(t, errors.As(err, &httpErr))

	warnings, errs := notes.snapshot()
	require.Empty(t, warnings)
	require.Equal(t, []string{defaultServerError}, errs)
}

func TestListPoemsEncodesRepeatedTags(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()["tags"]
		_, _ = w.Write([]byte(`{"code":0,"items":[],"total":0,"page":2,"pageSize":5}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	page, err := c.ListPoems(context.Background(), PoemFilter{Tags: []string{"moon", "river"}, Page: 2, PageSize: 5})
	require.NoError(t, err)
	require.Equal(t, []string{"moon", "river"}, got)
	require.Equal(t, 2, page.Page)
}

func TestLogoutClearsSessionOnFailure(t *testing.T) {
	f := newFixture(t, &fakeAPI{})

	err := f.client.Logout(context.Background())
	require.Error(t, err)
	sess, loadErr := f.client.Session()
	require.NoError(t, loadErr)
	require.Equal(t, Session{}, sess)
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("/api")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrSessionExpired))
}
