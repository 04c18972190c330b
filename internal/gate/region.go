package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kmkrofficial/signature/internal/core"
	"github.com/kmkrofficial/signature/internal/session"
)

// Activity kinds accepted by a region.
const (
	ActivityPointer = "pointer"
	ActivityKey     = "key"
	ActivityClick   = "click"
)

var (
	ErrRegionClosed    = errors.New("region closed")
	ErrNotAuthorized   = errors.New("region not authorized")
	ErrUnknownActivity = errors.New("unknown activity kind")
	errVerifyTimeout   = errors.New("identity provider did not answer in time")
	errStreamEnded     = errors.New("identity provider subscription ended")
)

func IsActivityKind(kind string) bool {
	switch kind {
	case ActivityPointer, ActivityKey, ActivityClick:
		return true
	}
	return false
}

type MountOptions struct {
	Path      string
	SessionID string

	// States delivers principal changes for the session. The region re-evaluates
	// on every value.
	States <-chan core.AuthState
}

// Region is a long-lived guarded area, e.g. an open admin page.
// While authorized it re-checks the idle timeout every CheckInterval and accepts
// activity signals; both stop when authorization is lost and on Close.
type Region struct {
	gate *Gate
	opts MountOptions

	mu      sync.RWMutex
	current Result
	closed  bool

	results  chan Result
	activity chan string

	cancel context.CancelFunc
	done   chan struct{}
}

// Mount starts a region. It reports Pending until the first principal notification.
func (g *Gate) Mount(ctx context.Context, opts MountOptions) *Region {
	ctx, cancel := context.WithCancel(ctx)
	r := &Region{
		gate:     g,
		opts:     opts,
		current:  pendingResult,
		results:  make(chan Result, 1),
		activity: make(chan string, 16),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	r.results <- pendingResult
	go r.run(ctx)
	return r
}

// Result returns the latest decision.
func (r *Region) Result() Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Results delivers decision changes, latest first. It is closed after Close.
func (r *Region) Results() <-chan Result {
	return r.results
}

// Done is closed once the region stopped.
func (r *Region) Done() <-chan struct{} {
	return r.done
}

// Activity reports user activity. It is only accepted while authorized.
func (r *Region) Activity(kind string) error {
	if !IsActivityKind(kind) {
		return fmt.Errorf("%w: %q", ErrUnknownActivity, kind)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrRegionClosed
	}
	if !r.current.Authorized() {
		return ErrNotAuthorized
	}
	select {
	case r.activity <- kind:
	default:
		// a refresh is already queued
	}
	return nil
}

// Close stops the region. Nothing runs after Close returns.
func (r *Region) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	<-r.done
}

func (r *Region) run(ctx context.Context) {
	defer close(r.done)
	defer close(r.results)

	l := log.Ctx(ctx).With().Str("session_id", r.opts.SessionID).Logger()
	ctx = l.WithContext(ctx)

	verify := time.NewTimer(r.gate.opts.VerifyTimeout)
	defer verify.Stop()
	verifyC := verify.C

	var (
		ticker    *time.Ticker
		tick      <-chan time.Time
		principal *core.Principal
	)
	attach := func() {
		if ticker == nil {
			ticker = time.NewTicker(r.gate.opts.CheckInterval)
			tick = ticker.C
		}
	}
	detach := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
		// drop activity queued while authorized
		for {
			select {
			case <-r.activity:
			default:
				return
			}
		}
	}
	defer detach()

	apply := func(res Result) {
		if res.Authorized() {
			attach()
		} else {
			detach()
		}
		r.publish(res)
	}

	states := r.opts.States
	for {
		select {
		case <-ctx.Done():
			return

		case <-verifyC:
			verifyC = nil
			apply(r.gate.ProviderFailure(ctx, r.opts.SessionID, errVerifyTimeout))

		case st, ok := <-states:
			if verifyC != nil {
				verify.Stop()
				verifyC = nil
			}
			if !ok {
				states = nil
				if ctx.Err() != nil {
					return
				}
				principal = nil
				apply(r.gate.ProviderFailure(ctx, r.opts.SessionID, errStreamEnded))
				continue
			}
			if st.Err != nil {
				principal = nil
				apply(r.gate.ProviderFailure(ctx, r.opts.SessionID, st.Err))
				continue
			}
			principal = st.Principal
			apply(r.gate.Evaluate(ctx, Request{
				Path:      r.opts.Path,
				Principal: principal,
				SessionID: r.opts.SessionID,
			}))

		case <-tick:
			if res := r.gate.Check(ctx, r.opts.SessionID, principal); !res.Authorized() {
				apply(res)
			}

		case <-r.activity:
			if tick == nil {
				continue
			}
			err := r.gate.RecordActivity(ctx, r.opts.SessionID)
			if errors.Is(err, session.ErrExpired) || errors.Is(err, session.ErrNotFound) {
				apply(r.gate.Check(ctx, r.opts.SessionID, principal))
			} else if err != nil {
				l.Warn().Err(err).Msg("session.activity_failed")
			}
		}
	}
}

func (r *Region) publish(res Result) {
	r.mu.Lock()
	r.current = res
	r.mu.Unlock()

	select {
	case r.results <- res:
	default:
		select {
		case <-r.results:
		default:
		}
		r.results <- res
	}
}
