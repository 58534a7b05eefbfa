package http

import (
	"net/http"

	"ledger/internal/core"
)

const defaultTrendMonths = 6

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	period, err := core.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.svc.Analytics.GetAnalyticsSummary(r.Context(), uid, period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSummaryRange(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var rng core.DateRange
	if rng.Start, err = dateParam(r, "start"); err != nil {
		writeError(w, r, err)
		return
	}
	if rng.End, err = dateParam(r, "end"); err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.svc.Analytics.GetAnalyticsSummaryForRange(r.Context(), uid, rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleMonthlyTrends(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	months, err := intParam(r, "months", defaultTrendMonths)
	if err != nil {
		writeError(w, r, err)
		return
	}
	trends, err := s.svc.Analytics.GetMonthlyTrends(r.Context(), uid, months)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trends)
}

// handleCategoryTrends without categoryId reports uncategorized expenses.
func (s *Server) handleCategoryTrends(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	categoryID, err := optionalID(r, "categoryId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	months, err := intParam(r, "months", defaultTrendMonths)
	if err != nil {
		writeError(w, r, err)
		return
	}
	trends, err := s.svc.Analytics.GetCategoryTrends(r.Context(), uid, categoryID, months)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trends)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	period, err := core.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	comparison, err := s.svc.Analytics.GetBudgetComparison(r.Context(), uid, period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comparison)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	insights, err := s.svc.Analytics.GetFinancialInsights(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, insights)
}
