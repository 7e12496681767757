package access

import "calshare/internal/domain"

// Project produces the view of an event the actor is permitted to see.
// A busy event viewed by anyone but its owner keeps its schedule fields
// (times, timezone, all-day flag, visibility, rrule, timestamps) but has
// its title replaced with "Busy" and its description and location
// dropped. Every read path goes through here, single gets and list rows
// alike, so a busy title cannot leak through any endpoint.
func Project(e *domain.Event, isOwner bool) domain.EventView {
	view := domain.EventView{
		ID:          e.ID,
		CalendarID:  e.CalendarID,
		OwnerUserID: e.OwnerUserID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		StartAt:     e.StartAt,
		EndAt:       e.EndAt,
		Timezone:    e.Timezone,
		AllDay:      e.AllDay,
		Visibility:  e.Visibility,
		RRule:       e.RRule,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if e.Visibility == domain.EventBusy && !isOwner {
		view.Title = domain.BusyTitle
		view.Description = ""
		view.Location = ""
	}
	return view
}
