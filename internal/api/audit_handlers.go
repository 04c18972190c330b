package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/kmkrofficial/signature/internal/api/presenter"
	"github.com/kmkrofficial/signature/internal/audit"
	"github.com/kmkrofficial/signature/internal/core"
)

// handleAdminAudit processes requests to retrieve audit log entries.
func (s *Server) handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	// filters
	q := r.URL.Query()
	limitStr := q.Get("limit")

	filterCorrelationID := q.Get("correlation_id")
	filterPrincipalID := q.Get("principal_id")
	filterAction := q.Get("action")
	filterExpr := q.Get("filter")

	limit := 50
	if limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err != nil || v <= 0 {
			logger.Warn().Err(err).Str("limit", limitStr).Msg("invalid limit parameter")
			presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
			return
		} else {
			limit = v
		}
	}

	var compiled *audit.Filter
	if filterExpr != "" {
		f, err := audit.CompileFilter(filterExpr)
		if err != nil {
			logger.Warn().Err(err).Msg("invalid audit filter")
			presenter.Error(w, r, "invalid filter: "+err.Error(), http.StatusBadRequest)
			return
		}
		compiled = f
	}

	var entries []core.AuditEntry
	var err error

	if filterCorrelationID != "" || filterPrincipalID != "" || filterAction != "" || compiled != nil {
		logger.Info().Msgf("applying audit log filters")
		entries, err = s.auditor.Find(func(entry core.AuditEntry) bool {
			if filterCorrelationID != "" && entry.ID != filterCorrelationID {
				return false
			}
			if filterAction != "" && entry.Action != filterAction {
				return false
			}
			if filterPrincipalID != "" && (entry.Principal == nil || entry.Principal.ID != filterPrincipalID) {
				return false
			}
			if compiled != nil && !compiled.Match(entry) {
				return false
			}
			return true
		}, limit)
	} else {
		logger.Debug().Msgf("retrieving recent audit log entries")
		entries, err = s.auditor.GetRecent(limit)
	}

	if err != nil {
		logger.Error().Err(err).Msg("failed to retrieve audit logs")
		presenter.Error(w, r, "failed to retrieve audit logs", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []core.AuditEntry{}
	}

	presenter.JSON(w, r, entries, http.StatusOK)
}
