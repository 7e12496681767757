package server

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"calshare/internal/access"
	"calshare/internal/domain"
	"calshare/internal/ics"
	"calshare/internal/service"
)

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	calendarID, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "calendar not found")
		return
	}
	var req struct {
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Location    string    `json:"location"`
		StartAt     time.Time `json:"start_at"`
		EndAt       time.Time `json:"end_at"`
		Timezone    string    `json:"timezone"`
		AllDay      bool      `json:"all_day"`
		Visibility  string    `json:"visibility"`
		RRule       string    `json:"rrule"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	event, err := s.events.Create(actor, calendarID, service.EventCreate{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		Timezone:    req.Timezone,
		AllDay:      req.AllDay,
		Visibility:  domain.EventVisibility(req.Visibility),
		RRule:       req.RRule,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	// The creator owns the event, so the unredacted projection is theirs.
	s.jsonResponse(w, http.StatusCreated, access.Project(event, true))
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	calendarID, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "calendar not found")
		return
	}
	query := access.ListQuery{Text: r.URL.Query().Get("q")}
	for param, dst := range map[string]**time.Time{
		"start_from": &query.StartFrom,
		"start_to":   &query.StartTo,
	} {
		raw := r.URL.Query().Get(param)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.jsonError(w, http.StatusBadRequest, "invalid "+param+" (RFC 3339 expected)")
			return
		}
		*dst = &t
	}

	views, err := s.events.List(actor, calendarID, query)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, views)
}

func (s *Server) handleExportCalendar(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	calendarID, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "calendar not found")
		return
	}
	cal, err := s.calendars.Get(actor, calendarID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views, err := s.events.List(actor, calendarID, access.ListQuery{})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	if err := ics.Write(w, cal, views); err != nil {
		// Headers are already out; all that is left is to log.
		log.Printf("export calendar %s: %v", calendarID, err)
	}
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "event not found")
		return
	}
	view, err := s.events.Get(actor, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, view)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "event not found")
		return
	}
	var req struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		Location    *string    `json:"location"`
		StartAt     *time.Time `json:"start_at"`
		EndAt       *time.Time `json:"end_at"`
		Timezone    *string    `json:"timezone"`
		AllDay      *bool      `json:"all_day"`
		Visibility  *string    `json:"visibility"`
		RRule       *string    `json:"rrule"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	input := service.EventUpdate{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		Timezone:    req.Timezone,
		AllDay:      req.AllDay,
		RRule:       req.RRule,
	}
	if req.Visibility != nil {
		v := domain.EventVisibility(*req.Visibility)
		input.Visibility = &v
	}
	event, err := s.events.Update(actor, id, input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, access.Project(event, true))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "event not found")
		return
	}
	if err := s.events.Delete(actor, id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleShareEvent(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "event not found")
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
	if err := s.events.Share(actor, id, userID); err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]string{
		"event_id":   id.String(),
		"user_id":    userID.String(),
		"permission": "view",
	})
}

func (s *Server) handleUnshareEvent(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "event not found")
		return
	}
	userID, ok := pathUUID(r, "userID")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	if err := s.events.Unshare(actor, id, userID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCopyEvent(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.jsonError(w, http.StatusNotFound, "event not found")
		return
	}
	var target *uuid.UUID
	if raw := r.URL.Query().Get("target_calendar_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			s.jsonError(w, http.StatusBadRequest, "invalid target_calendar_id")
			return
		}
		target = &parsed
	}
	dup, err := s.events.Copy(actor, id, target)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]string{
		"source_event_id":    id.String(),
		"new_event_id":       dup.ID.String(),
		"target_calendar_id": dup.CalendarID.String(),
		"status":             "copied",
	})
}
