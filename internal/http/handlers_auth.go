package http

import (
	"net/http"
	"time"

	applog "trackify/internal/log"
)

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

// handleRegister creates an account from name, email and password.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpRegister, err)
		return
	}

	email := p.Get("email")
	if err := s.svc.Credentials.Register(r.Context(), p.Get("name"), email, p.GetRaw("password")); err != nil {
		writeError(w, r, applog.OpRegister, err)
		return
	}

	u, err := s.svc.Credentials.Lookup(r.Context(), email)
	if err != nil {
		writeError(w, r, applog.OpRegister, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(toUserResponse(u)).Write(w)
}

// handleLogin checks credentials and issues a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpLogin, err)
		return
	}

	u, err := s.svc.Credentials.Login(r.Context(), p.Get("email"), p.GetRaw("password"))
	if err != nil {
		writeError(w, r, applog.OpLogin, err)
		return
	}

	token, exp, err := s.issuer.Issue(u.Email, u.Name)
	if err != nil {
		writeError(w, r, applog.OpLogin, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "User logged in", applog.FieldUserEmail, u.Email)
	NewJSONResponse().Data(loginResponse{
		Token:     token,
		ExpiresAt: exp.UTC(),
		User:      toUserResponse(u),
	}).Write(w)
}

// handleProfile returns the caller's public profile.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	email, err := currentEmail(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	u, err := s.svc.Credentials.Lookup(r.Context(), email)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Data(toUserResponse(u)).Write(w)
}
