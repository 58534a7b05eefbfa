package http

import (
	"net/http"

	"ledger/internal/log"
)

func (s *Server) handleCacheMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Analytics.GetCacheMetrics())
}

func (s *Server) handleResetCacheMetrics(w http.ResponseWriter, r *http.Request) {
	s.svc.Analytics.ResetCacheMetrics()
	log.FromContext(r.Context()).InfoContext(r.Context(), "Cache metrics reset")
	w.WriteHeader(http.StatusNoContent)
}

// handleWarmCache warms the caller's entries synchronously.
func (s *Server) handleWarmCache(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Analytics.WarmCache(r.Context(), uid); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
