package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kmkrofficial/signature/internal/api/presenter"
	"github.com/kmkrofficial/signature/internal/gate"
)

const eventsKeepAlive = 25 * time.Second

// regionRegistry tracks the regions mounted by open event streams so activity
// posted on a separate request reaches them.
type regionRegistry struct {
	mu      sync.Mutex
	regions map[string]map[*gate.Region]struct{}
}

func newRegionRegistry() *regionRegistry {
	return &regionRegistry{regions: make(map[string]map[*gate.Region]struct{})}
}

func (rr *regionRegistry) add(sessionID string, region *gate.Region) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	set, ok := rr.regions[sessionID]
	if !ok {
		set = make(map[*gate.Region]struct{})
		rr.regions[sessionID] = set
	}
	set[region] = struct{}{}
}

func (rr *regionRegistry) remove(sessionID string, region *gate.Region) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	set := rr.regions[sessionID]
	delete(set, region)
	if len(set) == 0 {
		delete(rr.regions, sessionID)
	}
}

func (rr *regionRegistry) count(sessionID string) int {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	return len(rr.regions[sessionID])
}

// activity forwards kind to every authorized region of the session and reports
// whether any region took it.
func (rr *regionRegistry) activity(sessionID, kind string) bool {
	rr.mu.Lock()
	targets := make([]*gate.Region, 0, len(rr.regions[sessionID]))
	for region := range rr.regions[sessionID] {
		targets = append(targets, region)
	}
	rr.mu.Unlock()

	accepted := false
	for _, region := range targets {
		if region.Activity(kind) == nil {
			accepted = true
		}
	}
	return accepted
}

// handleEvents mounts a guarded region for the caller's session and streams its
// decisions as server-sent events until the region is denied or the client leaves.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	_, sessionID, ok := gate.PrincipalFromContext(ctx)
	if !ok {
		presenter.Error(w, r, "not signed in", http.StatusUnauthorized)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		presenter.Error(w, r, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	states, unsubscribe, err := s.provider.Subscribe(ctx, gate.TokenFromRequest(r, s.cookie.Name))
	if err != nil {
		presenter.Err(w, r, err, "subscription failed")
		return
	}
	defer unsubscribe()

	path := r.URL.Query().Get("path")
	if path == "" {
		path = AdminRoot
	}
	region := s.gate.Mount(ctx, gate.MountOptions{
		Path:      path,
		SessionID: sessionID,
		States:    states,
	})
	defer region.Close()

	s.regions.add(sessionID, region)
	defer s.regions.remove(sessionID, region)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger.Debug().Str("path", path).Msg("events.opened")
	defer logger.Debug().Msg("events.closed")

	keepAlive := time.NewTicker(eventsKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case res, ok := <-region.Results():
			if !ok {
				return
			}
			if err := writeEvent(w, "decision", res); err != nil {
				logger.Debug().Err(err).Msg("events.write_failed")
				return
			}
			flusher.Flush()
			if res.Decision == gate.Denied {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
	return err
}
