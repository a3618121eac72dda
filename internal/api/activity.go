package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hearthwire/hearth-core/internal/audit"
)

// recordActivity writes a best-effort activity log entry. A failed write
// is logged but never fails the request it describes.
func (s *Server) recordActivity(ctx context.Context, entry audit.Entry) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Create(ctx, &entry); err != nil {
		s.logger.Warn("activity log write failed", "action", entry.Action, "error", err)
	}
}

// handleListActivity returns recent activity entries, most recent first.
//
// Query parameters: action, user_id, device_id, limit, offset.
func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := audit.Filter{
		Action:   q.Get("action"),
		UserID:   q.Get("user_id"),
		DeviceID: q.Get("device_id"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.activity.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing activity failed", "error", err)
		writeInternalError(w, "ListFailed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
