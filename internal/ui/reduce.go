package ui

import (
	"monthcal/internal/calendar"
	"monthcal/internal/model"
)

// Reduce applies a to s. Pairs that are not a transition of the current mode
// return s unchanged (apart from the focus hint) and no effects.
func Reduce(s State, a Action) (State, []Effect) {
	// A pending focus only survives until the next transition.
	s.Focus = FocusNone

	switch a := a.(type) {
	case ChangeMonth:
		s.Month = calendar.AddMonths(s.Month, a.Delta)
		return s, nil
	case GoToday:
		s.Month = calendar.MonthStart(a.Today)
		return s, nil
	}

	switch s.Mode {
	case ModeIdle:
		return reduceIdle(s, a)
	case ModeViewing:
		return reduceViewing(s, a)
	case ModeEditing:
		return reduceEditing(s, a)
	case ModeCreating:
		return reduceCreating(s, a)
	}
	return s, nil
}

func reduceIdle(s State, a Action) (State, []Effect) {
	switch a := a.(type) {
	case Select:
		s.Mode = ModeViewing
		s.Selected = a.Event
		s.Draft = model.Draft{}
	case OpenCreate:
		s.Mode = ModeCreating
		s.Selected = model.Event{}
		s.Draft = model.NewDraft(calendar.DayKey(a.Today))
		s.Focus = FocusTitle
	}
	return s, nil
}

func reduceViewing(s State, a Action) (State, []Effect) {
	switch a.(type) {
	case Edit:
		s.Mode = ModeEditing
		s.Draft = model.DraftOf(s.Selected)
		s.Focus = FocusEditTitle
	case Delete:
		id := s.Selected.ID
		s = toIdle(s)
		return s, []Effect{DeleteEffect{ID: id}}
	case Close:
		s = toIdle(s)
	}
	return s, nil
}

func reduceEditing(s State, a Action) (State, []Effect) {
	switch a := a.(type) {
	case Save:
		if !a.Draft.HasTitle() {
			// Keep the user's input on screen.
			s.Draft = a.Draft
			return s, nil
		}
		updated := a.Draft.Apply(s.Selected)
		updated.Time = calendar.FormatTime12(updated.Time24)
		updated.Color = updated.Color.OrDefault()
		s.Mode = ModeViewing
		s.Selected = updated
		s.Draft = model.Draft{}
		return s, []Effect{UpdateEffect{Event: updated}}
	case Cancel:
		s.Mode = ModeViewing
		s.Draft = model.Draft{}
	case Close:
		s = toIdle(s)
	}
	return s, nil
}

func reduceCreating(s State, a Action) (State, []Effect) {
	switch a := a.(type) {
	case Create:
		if !a.Draft.HasTitle() {
			s.Draft = a.Draft
			return s, nil
		}
		s = toIdle(s)
		return s, []Effect{CreateEffect{Draft: a.Draft}}
	case Cancel, Close:
		s = toIdle(s)
	}
	return s, nil
}

func toIdle(s State) State {
	s.Mode = ModeIdle
	s.Selected = model.Event{}
	s.Draft = model.Draft{}
	return s
}
