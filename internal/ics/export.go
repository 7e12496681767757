// Package ics renders a calendar's events as an iCalendar document.
// Callers pass EventViews, never raw events, so everything exported has
// already been through the redaction projection for the requesting actor.
package ics

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"calshare/internal/domain"
)

const productID = "-//calshare//calendar export//EN"

// Export builds an iCalendar document for the calendar and its visible
// events.
func Export(cal *domain.Calendar, views []domain.EventView) *ical.Calendar {
	out := ical.NewCalendar()
	out.Props.SetText(ical.PropVersion, "2.0")
	out.Props.SetText(ical.PropProductID, productID)
	name := ical.NewProp("X-WR-CALNAME")
	name.SetText(cal.Name)
	name.Params.Del(ical.ParamValue)
	out.Props.Set(name)

	now := time.Now().UTC()
	for _, view := range views {
		out.Children = append(out.Children, viewToComponent(view, now))
	}
	return out
}

// Write encodes the export to w.
func Write(w io.Writer, cal *domain.Calendar, views []domain.EventView) error {
	if err := ical.NewEncoder(w).Encode(Export(cal, views)); err != nil {
		return fmt.Errorf("encode calendar %s: %w", cal.ID, err)
	}
	return nil
}

func viewToComponent(view domain.EventView, stamp time.Time) *ical.Component {
	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, view.ID.String()+"@calshare")
	vevent.Props.SetText(ical.PropSummary, view.Title)
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp)

	if view.Description != "" {
		vevent.Props.SetText(ical.PropDescription, view.Description)
	}
	if view.Location != "" {
		vevent.Props.SetText(ical.PropLocation, view.Location)
	}

	if view.AllDay {
		vevent.Props.SetDate(ical.PropDateTimeStart, view.StartAt)
		if !view.EndAt.IsZero() {
			vevent.Props.SetDate(ical.PropDateTimeEnd, view.EndAt)
		}
	} else {
		vevent.Props.SetDateTime(ical.PropDateTimeStart, view.StartAt.UTC())
		if !view.EndAt.IsZero() {
			vevent.Props.SetDateTime(ical.PropDateTimeEnd, view.EndAt.UTC())
		}
	}

	if view.RRule != "" {
		rrule := ical.NewProp(ical.PropRecurrenceRule)
		rrule.Value = view.RRule
		vevent.Props.Set(rrule)
	}

	return vevent.Component
}
