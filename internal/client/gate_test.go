package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func noopRun(context.Context) (*http.Response, error) { return nil, nil }

func TestGateElectsSingleLeader(t *testing.T) {
	var g refreshGate
	a := newContinuation(context.Background(), noopRun)
	b := newContinuation(context.Background(), noopRun)

	require.True(t, g.acquireOrWait(a))
	require.False(t, g.acquireOrWait(b))

	q := g.release()
	require.Equal(t, []*continuation{a, b}, q)
	require.False(t, g.inflight)

	require.True(t, g.acquireOrWait(newContinuation(context.Background(), noopRun)))
}

func TestContinuationClaimAndAbandonAreExclusive(t *testing.T) {
	c := newContinuation(context.Background(), noopRun)
	require.True(t, c.abandon())
	require.False(t, c.claim())

	c.replay()
	select {
	case <-c.result:
		t.Fatal("abandoned continuation must not run")
	default:
	}

	d := newContinuation(context.Background(), noopRun)
	d.fail(ErrSessionExpired)
	require.False(t, d.abandon())
	r := <-d.result
	require.ErrorIs(t, r.err, ErrSessionExpired)
}
