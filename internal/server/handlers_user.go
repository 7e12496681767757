package server

import (
	"net/http"
	"time"

	"calshare/internal/domain"
	"calshare/internal/service"
)

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	IsActive  bool      `json:"is_active"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func userToResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
		IsActive:  u.IsActive,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		s.jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := s.users.Login(req.Email)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	// The placeholder token scheme has nothing to revoke.
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		FullName  string `json:"full_name"`
		AvatarURL string `json:"avatar_url"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	user, err := s.users.Register(service.UserCreate{
		Email:     req.Email,
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, userToResponse(user))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	user, err := s.users.Get(actor, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, userToResponse(user))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	var req struct {
		FullName  *string `json:"full_name"`
		AvatarURL *string `json:"avatar_url"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	user, err := s.users.Update(actor, id, service.UserUpdate{
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, userToResponse(user))
}

func (s *Server) handleDeactivateUser(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	if err := s.users.Deactivate(actor, id); err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"id": id.String(), "is_active": false})
}

func (s *Server) handleSetUserRole(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.users.SetRole(actor, id, domain.UserRole(req.Role)); err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"id": id.String(), "role": req.Role})
}
