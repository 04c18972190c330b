package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/kmkrofficial/signature/internal/api/presenter"
	"github.com/kmkrofficial/signature/internal/buildinfo"
	"github.com/kmkrofficial/signature/internal/service"
)

const maxJSONBody = 1 << 20

// handleHealth responds with a simple OK status to indicate the server is healthy.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleAbout responds with service information including version and commit hash.
func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, buildinfo.GetBuildInfo(), http.StatusOK)
}

func DecodePayload(r *http.Request, dest any, allowEmpty bool) error {
	switch r.Header.Get("Content-Type") {
	case "application/json", "":
		dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
		if err := dec.Decode(dest); err != nil {
			if !errors.Is(err, io.EOF) || !allowEmpty {
				return err
			}
		}
		// ensure there's no extra data
		if dec.More() {
			return errors.New("extra data in request body")
		}
		return nil
	default:
		return errors.New("unsupported content type")
	}
}

// handlePortfolio serves everything the public site renders.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := s.content.Portfolio(r.Context())
	if err != nil {
		presenter.Err(w, r, err, "failed to load portfolio")
		return
	}
	presenter.JSON(w, r, p, http.StatusOK)
}

// handleContact accepts a message from the contact form.
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	var req service.ContactRequest
	if err := DecodePayload(r, &req, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode contact payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	resp, err := s.contact.Submit(r.Context(), req)
	if err != nil {
		presenter.Err(w, r, err, "message rejected")
		return
	}
	logger.Info().Str("message_id", resp.ID).Msg("contact.received")
	presenter.JSON(w, r, resp, http.StatusCreated)
}
