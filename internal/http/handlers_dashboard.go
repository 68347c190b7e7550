package http

import (
	"net/http"
	"strconv"
	"strings"

	"finpilot/internal/core"
	"finpilot/internal/services"
)

// handleDashboard serves recent transactions, totals, the summary series and
// goal progress in one response.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	rng, err := ParseRange(q, s.now())
	if err != nil {
		writeError(w, r, "dashboard", err)
		return
	}
	g, err := core.ParseGranularity(q.Get("group"))
	if err != nil {
		writeError(w, r, "dashboard", err)
		return
	}
	year, err := ParseYear(q)
	if err != nil {
		writeError(w, r, "dashboard", err)
		return
	}
	recent := 0
	if v := strings.TrimSpace(q.Get("recent")); v != "" {
		if recent, err = strconv.Atoi(v); err != nil || recent < 1 {
			writeError(w, r, "dashboard", errInvalidLimit)
			return
		}
	}

	d, err := s.svc.Dashboard.Load(r.Context(), services.DashboardQuery{
		UserID:      s.owner(r, q.Get("userId")),
		Range:       rng,
		Granularity: g,
		Recent:      recent,
		Year:        year,
	})
	if err != nil {
		writeError(w, r, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
