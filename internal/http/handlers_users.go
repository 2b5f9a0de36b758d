package http

import (
	"net/http"

	"billbook/internal/services"
)

// parseBody parses the request body, writing a 400 on failure.
func parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return p, true
}

func authView(res services.AuthResult) userView {
	return userView{ID: res.User.ID, Username: res.User.Username, Token: res.Token}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	res, err := s.svc.Users.Register(r.Context(), p.Get("username"), p.Raw("password"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	Success(http.StatusCreated, "registered", authView(res)).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	res, err := s.svc.Users.Login(r.Context(), p.Get("username"), p.Raw("password"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	Success(http.StatusOK, "logged in", authView(res)).Write(w)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.Users.Profile(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	Success(http.StatusOK, "ok", userView{ID: u.ID, Username: u.Username}).Write(w)
}

// handleUpdateProfile changes the username and/or password. A blank
// password leaves it unchanged.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	upd := services.ProfileUpdate{Username: p.OptString("username")}
	if pw, ok := p.LookupRaw("password"); ok && pw != "" {
		upd.Password = &pw
	}
	res, err := s.svc.Users.UpdateProfile(r.Context(), userIDFromContext(r.Context()), upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	Success(http.StatusOK, "profile updated", authView(res)).Write(w)
}
