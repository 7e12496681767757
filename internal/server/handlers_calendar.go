package server

import (
	"net/http"
	"time"

	"calshare/internal/domain"
	"calshare/internal/service"
)

type calendarResponse struct {
	ID          string    `json:"id"`
	OwnerUserID string    `json:"owner_user_id"`
	Name        string    `json:"name"`
	Visibility  string    `json:"visibility"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func calendarToResponse(c *domain.Calendar) calendarResponse {
	return calendarResponse{
		ID:          c.ID.String(),
		OwnerUserID: c.OwnerUserID.String(),
		Name:        c.Name,
		Visibility:  string(c.Visibility),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func calendarsToResponse(calendars []*domain.Calendar) []calendarResponse {
	out := make([]calendarResponse, 0, len(calendars))
	for _, c := range calendars {
		out = append(out, calendarToResponse(c))
	}
	return out
}

func (s *Server) handleCreateCalendar(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	var req struct {
		Name       string `json:"name"`
		Visibility string `json:"visibility"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	cal, err := s.calendars.Create(actor, service.CalendarCreate{
		Name:       req.Name,
		Visibility: domain.CalendarVisibility(req.Visibility),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, calendarToResponse(cal))
}

func (s *Server) handleListCalendars(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	calendars, err := s.calendars.ListVisible(actor)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, calendarsToResponse(calendars))
}

func (s *Server) handleGetCalendar(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "calendar not found")
		return
	}
	cal, err := s.calendars.Get(actor, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, calendarToResponse(cal))
}

func (s *Server) handleUpdateCalendar(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "calendar not found")
		return
	}
	var req struct {
		Name       *string `json:"name"`
		Visibility *string `json:"visibility"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	input := service.CalendarUpdate{Name: req.Name}
	if req.Visibility != nil {
		v := domain.CalendarVisibility(*req.Visibility)
		input.Visibility = &v
	}
	cal, err := s.calendars.Update(actor, id, input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, calendarToResponse(cal))
}

func (s *Server) handleDeleteCalendar(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "calendar not found")
		return
	}
	if err := s.calendars.Delete(actor, id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleShareCalendar(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "calendar not found")
		return
	}
	var req struct {
		UserID string `json:"user_id"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	userID, err := parseUUIDField(req.UserID)
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	if err := s.calendars.Share(actor, id, userID); err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]string{
		"calendar_id": id.String(),
		"user_id":     userID.String(),
		"permission":  "view",
	})
}

func (s *Server) handleUnshareCalendar(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "calendar not found")
		return
	}
	userID, ok := pathUUID(r, "userID")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	if err := s.calendars.Unshare(actor, id, userID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "calendar not found")
		return
	}
	if err := s.calendars.Subscribe(actor, id); err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]any{
		"calendar_id":        id.String(),
		"subscriber_user_id": actor.ID.String(),
		"is_hidden":          false,
	})
}

func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "calendar not found")
		return
	}
	var req struct {
		IsHidden bool `json:"is_hidden"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.calendars.SetSubscriptionHidden(actor, id, req.IsHidden); err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"calendar_id":        id.String(),
		"subscriber_user_id": actor.ID.String(),
		"is_hidden":          req.IsHidden,
	})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "calendar not found")
		return
	}
	if err := s.calendars.Unsubscribe(actor, id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
