// Package server is the HTTP layer. It authenticates the actor, decodes
// requests, calls the services, and maps the error taxonomy to status
// codes. No access decision is made here; that is the access package's
// job.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"calshare/internal/domain"
	"calshare/internal/service"
)

type Server struct {
	users     *service.UserService
	calendars *service.CalendarService
	events    *service.EventService
	mux       *http.ServeMux
}

func New(users *service.UserService, calendars *service.CalendarService, events *service.EventService) *Server {
	s := &Server{
		users:     users,
		calendars: calendars,
		events:    events,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Auth and users. Registration and login are the only open routes.
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("POST /logout", s.withActor(s.handleLogout))
	s.mux.HandleFunc("POST /users", s.handleCreateUser)
	s.mux.HandleFunc("GET /users/{id}", s.withActor(s.handleGetUser))
	s.mux.HandleFunc("PUT /users/{id}", s.withActor(s.handleUpdateUser))
	s.mux.HandleFunc("PUT /admin/users/{id}/deactivate", s.withActor(s.handleDeactivateUser))
	s.mux.HandleFunc("PUT /admin/users/{id}/role", s.withActor(s.handleSetUserRole))

	// Calendars, shares, subscriptions.
	s.mux.HandleFunc("POST /calendars", s.withActor(s.handleCreateCalendar))
	s.mux.HandleFunc("GET /calendars", s.withActor(s.handleListCalendars))
	s.mux.HandleFunc("GET /calendars/{id}", s.withActor(s.handleGetCalendar))
	s.mux.HandleFunc("PATCH /calendars/{id}", s.withActor(s.handleUpdateCalendar))
	s.mux.HandleFunc("DELETE /calendars/{id}", s.withActor(s.handleDeleteCalendar))
	s.mux.HandleFunc("POST /calendars/{id}/share", s.withActor(s.handleShareCalendar))
	s.mux.HandleFunc("DELETE /calendars/{id}/share/{userID}", s.withActor(s.handleUnshareCalendar))
	s.mux.HandleFunc("POST /calendars/{id}/subscribe", s.withActor(s.handleSubscribe))
	s.mux.HandleFunc("PATCH /calendars/{id}/subscription", s.withActor(s.handleUpdateSubscription))
	s.mux.HandleFunc("DELETE /calendars/{id}/subscription", s.withActor(s.handleUnsubscribe))

	// Events.
	s.mux.HandleFunc("GET /calendars/{id}/events", s.withActor(s.handleListEvents))
	s.mux.HandleFunc("POST /calendars/{id}/events", s.withActor(s.handleCreateEvent))
	s.mux.HandleFunc("GET /calendars/{id}/export.ics", s.withActor(s.handleExportCalendar))
	s.mux.HandleFunc("GET /events/{id}", s.withActor(s.handleGetEvent))
	s.mux.HandleFunc("PUT /events/{id}", s.withActor(s.handleUpdateEvent))
	s.mux.HandleFunc("DELETE /events/{id}", s.withActor(s.handleDeleteEvent))
	s.mux.HandleFunc("POST /events/{id}/share", s.withActor(s.handleShareEvent))
	s.mux.HandleFunc("DELETE /events/{id}/share/{userID}", s.withActor(s.handleUnshareEvent))
	s.mux.HandleFunc("POST /events/{id}/copy", s.withActor(s.handleCopyEvent))
}

type actorHandler func(w http.ResponseWriter, r *http.Request, actor *domain.User)

// withActor resolves the bearer token to an active user before calling
// the handler. The token is the bare user id (see UserService.Login).
func (s *Server) withActor(next actorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.jsonError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		actor, err := s.users.Authenticate(token)
		if err != nil {
			s.writeError(w, err)
			return
		}
		next(w, r, actor)
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeError maps the service error taxonomy onto transport status codes:
// NotFound→404, Forbidden→403, Unauthenticated→401, Conflict→409,
// Invalid→400. Anything else is a 500 with the detail kept server-side.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		s.jsonError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		s.jsonError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrConflict):
		s.jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalid):
		s.jsonError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("internal error: %v", err)
		s.jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// pathUUID parses the named path segment as a UUID. A malformed id reads
// as "no such entity" rather than a validation error, matching how the
// store would answer for an id that cannot exist.
func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	return id, err == nil
}

func parseUUIDField(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}
