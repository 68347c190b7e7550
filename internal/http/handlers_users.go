package http

import (
	"net/http"

	"finpilot/internal/services"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, "register", err)
		return
	}
	in.Name = sanitizeInput(in.Name)
	in.UPIID = sanitizeInput(in.UPIID)
	in.Phone = sanitizeInput(in.Phone)

	u, err := s.svc.Users.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, "login", err)
		return
	}
	in.UPIID = sanitizeInput(in.UPIID)
	in.Phone = sanitizeInput(in.Phone)

	session, err := s.svc.Users.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleForgot(w http.ResponseWriter, r *http.Request) {
	var in services.ResetPasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, "reset_password", err)
		return
	}
	in.Name = sanitizeInput(in.Name)
	in.UPIID = sanitizeInput(in.UPIID)

	if err := s.svc.Users.ResetPassword(r.Context(), in); err != nil {
		writeError(w, r, "reset_password", err)
		return
	}
	writeMessage(w, http.StatusOK, "Password updated")
}

// handleListUsers returns every registered user. Password hashes never
// serialize.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Users.List(r.Context())
	if err != nil {
		writeError(w, r, "list_users", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
