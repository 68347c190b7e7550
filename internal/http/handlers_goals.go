package http

import (
	"net/http"

	"finpilot/internal/core"
)

// GoalRequest is the body accepted by POST /api/goals.
type GoalRequest struct {
	UserID string     `json:"userId"`
	Year   int        `json:"year"`
	Amount core.Money `json:"amount"`
	Title  string     `json:"title"`
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := ParseYear(q)
	if err != nil {
		writeError(w, r, "get_goal", err)
		return
	}
	g, err := s.svc.Goals.Get(r.Context(), s.owner(r, q.Get("userId")), year)
	if err != nil {
		writeError(w, r, "get_goal", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleUpsertGoal(w http.ResponseWriter, r *http.Request) {
	var req GoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "upsert_goal", err)
		return
	}
	g, err := s.svc.Goals.Upsert(r.Context(), core.Goal{
		UserID: s.owner(r, req.UserID),
		Year:   req.Year,
		Amount: req.Amount,
		Title:  sanitizeInput(req.Title),
	})
	if err != nil {
		writeError(w, r, "upsert_goal", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := ParseYear(q)
	if err != nil {
		writeError(w, r, "goal_progress", err)
		return
	}
	p, err := s.svc.Goals.Progress(r.Context(), s.owner(r, q.Get("userId")), year)
	if err != nil {
		writeError(w, r, "goal_progress", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
