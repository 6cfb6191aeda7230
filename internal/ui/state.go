// Package ui holds the modal state machine of the month view as a pure
// reducer, plus a Controller that runs the reducer's effects against the
// event store.
package ui

import (
	"time"

	"monthcal/internal/calendar"
	"monthcal/internal/model"
)

// Mode is the modal currently shown.
type Mode int

const (
	ModeIdle Mode = iota
	ModeViewing
	ModeEditing
	ModeCreating
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeViewing:
		return "viewing"
	case ModeEditing:
		return "editing"
	case ModeCreating:
		return "creating"
	default:
		return "unknown"
	}
}

// Focus targets the renderer can autofocus.
const (
	FocusNone      = ""
	FocusTitle     = "title"
	FocusEditTitle = "edit-title"
)

// State is everything the month view renders besides the event list.
type State struct {
	// Month is the first day of the displayed month.
	Month time.Time

	Mode Mode

	// Selected is the event open in Viewing and Editing.
	Selected model.Event

	// Draft is the form contents in Editing and Creating.
	Draft model.Draft

	// Focus names the input to focus on the next render. It is set when a
	// form opens and cleared by whatever transition comes next.
	Focus string
}

// NewState is the idle view of today's month.
func NewState(today time.Time) State {
	return State{Month: calendar.MonthStart(today), Mode: ModeIdle}
}

// Action is an input to Reduce.
type Action interface {
	action()
}

// Select opens an event from the grid or sidebar.
type Select struct{ Event model.Event }

// Edit switches the open event into its edit form.
type Edit struct{}

// Save commits the edit form.
type Save struct{ Draft model.Draft }

// Cancel leaves the current form without committing.
type Cancel struct{}

// Delete removes the open event.
type Delete struct{}

// Close dismisses the event modal.
type Close struct{}

// OpenCreate opens the "Add Event" form. Today seeds the draft date.
type OpenCreate struct{ Today time.Time }

// Create commits the "Add Event" form.
type Create struct{ Draft model.Draft }

// ChangeMonth moves the displayed month by Delta.
type ChangeMonth struct{ Delta int }

// GoToday jumps back to the month containing Today.
type GoToday struct{ Today time.Time }

func (Select) action()      {}
func (Edit) action()        {}
func (Save) action()        {}
func (Cancel) action()      {}
func (Delete) action()      {}
func (Close) action()       {}
func (OpenCreate) action()  {}
func (Create) action()      {}
func (ChangeMonth) action() {}
func (GoToday) action()     {}

// Effect is a store mutation the reducer asks for.
type Effect interface {
	effect()
}

type CreateEffect struct{ Draft model.Draft }

type UpdateEffect struct{ Event model.Event }

type DeleteEffect struct{ ID int64 }

func (CreateEffect) effect() {}
func (UpdateEffect) effect() {}
func (DeleteEffect) effect() {}
