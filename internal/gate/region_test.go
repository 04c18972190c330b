package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kmkrofficial/signature/internal/core"
	"github.com/kmkrofficial/signature/internal/session"
)

func waitFor(t *testing.T, r *Region, pred func(Result) bool) Result {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case res, ok := <-r.Results():
			if !ok {
				t.Fatal("results closed before condition was met")
			}
			if pred(res) {
				return res
			}
		case <-timeout:
			t.Fatalf("condition not met, last result: %+v", r.Result())
		}
	}
}

func isDecision(d Decision) func(Result) bool {
	return func(r Result) bool { return r.Decision == d }
}

func TestRegion_PendingUntilFirstNotification(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, "a@x.com")
	states := make(chan core.AuthState, 1)
	r := f.gate.Mount(context.Background(), MountOptions{Path: "/admin", SessionID: "s1", States: states})

	assert.Equal(t, Pending, r.Result().Decision)
	assert.Equal(t, ViewVerifying, r.Result().View)
	assert.ErrorIs(t, r.Activity(ActivityClick), ErrNotAuthorized)

	r.Close()
	_, open := <-r.Results()
	for open {
		_, open = <-r.Results()
	}
}

func TestRegion_PeriodicCheckExpires(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, "a@x.com")
	p := f.seed(t, "s1", "a@x.com", time.Hour)

	states := make(chan core.AuthState, 1)
	r := f.gate.Mount(context.Background(), MountOptions{Path: "/admin", SessionID: "s1", States: states})
	defer r.Close()

	states <- core.AuthState{SessionID: "s1", Principal: p}
	waitFor(t, r, isDecision(Authorized))

	f.clock.Advance(7 * time.Hour)
	res := waitFor(t, r, isDecision(Denied))
	assert.Equal(t, ReasonSessionExpired, res.Reason)
	assert.Equal(t, "/admin/login", res.Redirect)
	assert.EqualValues(t, 1, f.provider.calls.Load())

	_, err := f.store.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, session.ErrNotFound)

	// detached
	assert.ErrorIs(t, r.Activity(ActivityKey), ErrNotAuthorized)
}

func TestRegion_ActivityRefreshes(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, "a@x.com")
	p := f.seed(t, "s1", "a@x.com", time.Hour)

	states := make(chan core.AuthState, 1)
	r := f.gate.Mount(context.Background(), MountOptions{Path: "/admin", SessionID: "s1", States: states})

	states <- core.AuthState{SessionID: "s1", Principal: p}
	waitFor(t, r, isDecision(Authorized))

	f.clock.Advance(5 * time.Hour)
	require.NoError(t, r.Activity(ActivityPointer))

	assert.Eventually(t, func() bool {
		rec, err := f.store.Get(context.Background(), "s1")
		return err == nil && rec.LastActivity.Equal(f.clock.Now())
	}, 2*time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, r.Activity("scroll"), ErrUnknownActivity)

	r.Close()
	assert.ErrorIs(t, r.Activity(ActivityPointer), ErrRegionClosed)
}

func TestRegion_SignOutNotification(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, "a@x.com")
	p := f.seed(t, "s1", "a@x.com", time.Minute)

	states := make(chan core.AuthState, 1)
	r := f.gate.Mount(context.Background(), MountOptions{Path: "/admin", SessionID: "s1", States: states})
	defer r.Close()

	states <- core.AuthState{SessionID: "s1", Principal: p}
	waitFor(t, r, isDecision(Authorized))

	states <- core.AuthState{SessionID: "s1"}
	res := waitFor(t, r, isDecision(Denied))
	assert.Equal(t, ReasonUnauthenticated, res.Reason)
}

func TestRegion_UnauthorizedNeverStartsTicker(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, "a@x.com")
	p := f.seed(t, "s1", "b@x.com", 7*time.Hour)

	states := make(chan core.AuthState, 1)
	r := f.gate.Mount(context.Background(), MountOptions{Path: "/admin", SessionID: "s1", States: states})
	defer r.Close()

	states <- core.AuthState{SessionID: "s1", Principal: p}
	res := waitFor(t, r, isDecision(Denied))
	assert.Equal(t, ReasonUnauthorized, res.Reason)
	assert.Equal(t, "b@x.com", res.Email)

	// no periodic check runs for an unauthorized principal
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, f.provider.calls.Load())
	_, err := f.store.Get(context.Background(), "s1")
	assert.NoError(t, err)
}

func TestRegion_FailsClosed(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("Verify Timeout", func(t *testing.T) {
		f := newFixture(t, "a@x.com")
		f.gate.opts.VerifyTimeout = 20 * time.Millisecond

		r := f.gate.Mount(context.Background(), MountOptions{Path: "/admin", SessionID: "s1", States: make(chan core.AuthState)})
		defer r.Close()

		res := waitFor(t, r, isDecision(Denied))
		assert.Equal(t, ReasonProviderFailure, res.Reason)
		assert.Equal(t, "/admin/login", res.Redirect)
	})

	t.Run("Subscription Error", func(t *testing.T) {
		f := newFixture(t, "a@x.com")
		states := make(chan core.AuthState, 1)
		r := f.gate.Mount(context.Background(), MountOptions{Path: "/admin", SessionID: "s1", States: states})
		defer r.Close()

		states <- core.AuthState{SessionID: "s1", Err: errors.New("boom")}
		res := waitFor(t, r, isDecision(Denied))
		assert.Equal(t, ReasonProviderFailure, res.Reason)
		assert.Len(t, f.actions(t, core.ActionProviderFailed), 1)
	})

	t.Run("Subscription Ended", func(t *testing.T) {
		f := newFixture(t, "a@x.com")
		p := f.seed(t, "s1", "a@x.com", time.Minute)
		states := make(chan core.AuthState, 1)
		r := f.gate.Mount(context.Background(), MountOptions{Path: "/admin", SessionID: "s1", States: states})
		defer r.Close()

		states <- core.AuthState{SessionID: "s1", Principal: p}
		waitFor(t, r, isDecision(Authorized))

		close(states)
		res := waitFor(t, r, isDecision(Denied))
		assert.Equal(t, ReasonProviderFailure, res.Reason)
	})
}

func TestRegion_CloseStopsEverything(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, "a@x.com")
	p := f.seed(t, "s1", "a@x.com", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	states := make(chan core.AuthState, 1)
	r := f.gate.Mount(ctx, MountOptions{Path: "/admin", SessionID: "s1", States: states})
	states <- core.AuthState{SessionID: "s1", Principal: p}
	waitFor(t, r, isDecision(Authorized))

	r.Close()
	r.Close()

	// nothing fires after Close
	f.clock.Advance(7 * time.Hour)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, f.provider.calls.Load())

	select {
	case <-r.Done():
	default:
		t.Fatal("region not done after Close")
	}
}
