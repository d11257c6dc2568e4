package domain

import (
	"fmt"
	"strings"
)

// CalendarActionKind is the operation a calendar action performs.
type CalendarActionKind string

// Calendar action kinds.
const (
	CalendarInsert CalendarActionKind = "insert"
	CalendarUpdate CalendarActionKind = "update"
	CalendarDelete CalendarActionKind = "delete"
)

// IsValid returns true if the action kind is recognised.
func (k CalendarActionKind) IsValid() bool {
	switch k {
	case CalendarInsert, CalendarUpdate, CalendarDelete:
		return true
	default:
		return false
	}
}

// EventTime is a Google Calendar style start or end time.
type EventTime struct {
	Date     string `json:"date,omitempty" jsonschema:"all-day date as yyyy-mm-dd"`
	DateTime string `json:"dateTime,omitempty" jsonschema:"RFC3339 timestamp"`
	TimeZone string `json:"timeZone,omitempty" jsonschema:"IANA time zone name"`
}

// IsZero reports whether neither date nor dateTime is set.
func (t EventTime) IsZero() bool {
	return t.Date == "" && t.DateTime == ""
}

// EventBody is the payload of an insert or update.
type EventBody struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
}

// CalendarEventRef addresses an event and optionally carries its new body.
type CalendarEventRef struct {
	CalendarID  string     `json:"calendarId" jsonschema:"id of the calendar to change"`
	EventID     string     `json:"eventId,omitempty" jsonschema:"id of the event; required for update and delete"`
	RequestBody *EventBody `json:"requestBody,omitempty"`
}

// CalendarAction is the structured answer of the calendar use case.
type CalendarAction struct {
	Action  CalendarActionKind `json:"action" jsonschema:"one of insert, update, delete"`
	Event   CalendarEventRef   `json:"event"`
	Message string             `json:"message" jsonschema:"short confirmation for the user"`
}

// Validate checks the invariants a schema cannot express.
func (a *CalendarAction) Validate() error {
	if !a.Action.IsValid() {
		return fmt.Errorf("%w: unknown calendar action %q", ErrSchemaValidation, a.Action)
	}
	if strings.TrimSpace(a.Event.CalendarID) == "" {
		return fmt.Errorf("%w: calendarId is required", ErrSchemaValidation)
	}
	switch a.Action {
	case CalendarUpdate, CalendarDelete:
		if strings.TrimSpace(a.Event.EventID) == "" {
			return fmt.Errorf("%w: eventId is required for %s", ErrSchemaValidation, a.Action)
		}
	}
	if a.Action != CalendarDelete {
		if a.Event.RequestBody == nil {
			return fmt.Errorf("%w: requestBody is required for %s", ErrSchemaValidation, a.Action)
		}
		if a.Event.RequestBody.Start.IsZero() || a.Event.RequestBody.End.IsZero() {
			return fmt.Errorf("%w: start and end are required for %s", ErrSchemaValidation, a.Action)
		}
	}
	return nil
}

// CalendarInfo describes a calendar the user can write to.
type CalendarInfo struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Primary bool   `json:"primary,omitempty"`
}

// CalendarEvent is an existing event offered as context.
type CalendarEvent struct {
	ID          string    `json:"id"`
	CalendarID  string    `json:"calendarId,omitempty"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
}

// CalendarCommand is the input of the calendar use case.
type CalendarCommand struct {
	Tenant    string
	Command   string
	Calendars []CalendarInfo
	Events    []CalendarEvent
	Metadata  map[string]any
}

// Validate rejects commands that cannot be processed.
func (c *CalendarCommand) Validate() error {
	if strings.TrimSpace(c.Tenant) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrMissingTenant)
	}
	if strings.TrimSpace(c.Command) == "" {
		return fmt.Errorf("%w: command is required", ErrValidation)
	}
	return nil
}
