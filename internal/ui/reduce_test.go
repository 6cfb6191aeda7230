package ui

import (
	"reflect"
	"testing"
	"time"

	"monthcal/internal/model"
)

var (
	today   = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	meeting = model.Event{ID: 7, Title: "Team Meeting", Date: "2024-03-05", Time24: "10:00", Time: "10:00 AM", Color: model.ColorBlue}
)

func viewing() State {
	s, _ := Reduce(NewState(today), Select{Event: meeting})
	return s
}

func editing() State {
	s, _ := Reduce(viewing(), Edit{})
	return s
}

func creating() State {
	s, _ := Reduce(NewState(today), OpenCreate{Today: today})
	return s
}

func TestTransitions(t *testing.T) {
	edited := model.Draft{Title: "Team Sync", Date: "2024-03-06", Time24: "09:30", Color: model.ColorOrange}
	newDraft := model.Draft{Title: "Standup", Date: "2024-03-05", Time24: "09:00", Color: model.ColorGreen}

	cases := []struct {
		name     string
		from     State
		action   Action
		wantMode Mode
		wantEff  []Effect
	}{
		{"idle select", NewState(today), Select{Event: meeting}, ModeViewing, nil},
		{"idle open create", NewState(today), OpenCreate{Today: today}, ModeCreating, nil},
		{"viewing edit", viewing(), Edit{}, ModeEditing, nil},
		{"viewing delete", viewing(), Delete{}, ModeIdle, []Effect{DeleteEffect{ID: 7}}},
		{"viewing close", viewing(), Close{}, ModeIdle, nil},
		{"editing cancel", editing(), Cancel{}, ModeViewing, nil},
		{"editing close", editing(), Close{}, ModeIdle, nil},
		{"editing save", editing(), Save{Draft: edited}, ModeViewing, []Effect{UpdateEffect{Event: model.Event{
			ID: 7, Title: "Team Sync", Date: "2024-03-06", Time24: "09:30", Time: "9:30 AM", Color: model.ColorOrange,
		}}}},
		{"editing save blank", editing(), Save{Draft: model.Draft{Title: " "}}, ModeEditing, nil},
		{"creating create", creating(), Create{Draft: newDraft}, ModeIdle, []Effect{CreateEffect{Draft: newDraft}}},
		{"creating create blank", creating(), Create{Draft: model.Draft{Title: ""}}, ModeCreating, nil},
		{"creating cancel", creating(), Cancel{}, ModeIdle, nil},

		// Not transitions: state stays put.
		{"idle edit", NewState(today), Edit{}, ModeIdle, nil},
		{"idle delete", NewState(today), Delete{}, ModeIdle, nil},
		{"viewing select", viewing(), Select{Event: model.Event{ID: 99}}, ModeViewing, nil},
		{"viewing open create", viewing(), OpenCreate{Today: today}, ModeViewing, nil},
		{"editing delete", editing(), Delete{}, ModeEditing, nil},
		{"creating select", creating(), Select{Event: meeting}, ModeCreating, nil},
		{"creating save", creating(), Save{Draft: newDraft}, ModeCreating, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, eff := Reduce(tc.from, tc.action)
			if got.Mode != tc.wantMode {
				t.Errorf("mode = %s, want %s", got.Mode, tc.wantMode)
			}
			if !reflect.DeepEqual(eff, tc.wantEff) {
				t.Errorf("effects = %#v, want %#v", eff, tc.wantEff)
			}
		})
	}
}

func TestSelectedEventFollowsFlow(t *testing.T) {
	s := viewing()
	if s.Selected != meeting {
		t.Fatalf("selected = %+v", s.Selected)
	}

	s, _ = Reduce(s, Edit{})
	if s.Draft != model.DraftOf(meeting) {
		t.Errorf("edit draft = %+v", s.Draft)
	}

	// Cancel reverts to the original event.
	s, _ = Reduce(s, Cancel{})
	if s.Selected != meeting || s.Draft != (model.Draft{}) {
		t.Errorf("after cancel: selected %+v draft %+v", s.Selected, s.Draft)
	}

	s, _ = Reduce(s, Edit{})
	s, _ = Reduce(s, Save{Draft: model.Draft{Title: "Renamed", Date: "2024-03-05", Time24: "13:15", Color: model.ColorRed}})
	if s.Selected.Title != "Renamed" || s.Selected.Time != "1:15 PM" || s.Selected.ID != meeting.ID {
		t.Errorf("after save: %+v", s.Selected)
	}
}

func TestBlankSaveKeepsInput(t *testing.T) {
	typed := model.Draft{Title: "   ", Date: "2024-03-09", Time24: "08:00", Color: model.ColorRed}
	s, _ := Reduce(editing(), Save{Draft: typed})
	if s.Draft != typed {
		t.Errorf("draft = %+v, want %+v", s.Draft, typed)
	}
	if s.Selected != meeting {
		t.Error("selected event must be untouched")
	}
}

func TestOpenCreateDraft(t *testing.T) {
	s := creating()
	want := model.Draft{Title: "", Date: "2024-03-05", Time24: "10:00", Color: model.ColorBlue}
	if s.Draft != want {
		t.Errorf("draft = %+v, want %+v", s.Draft, want)
	}
}

func TestFocusHint(t *testing.T) {
	if s := creating(); s.Focus != FocusTitle {
		t.Errorf("create focus = %q", s.Focus)
	}
	s := editing()
	if s.Focus != FocusEditTitle {
		t.Errorf("edit focus = %q", s.Focus)
	}
	// Any later action cancels the pending focus, even a non-transition.
	s, _ = Reduce(s, Delete{})
	if s.Focus != FocusNone {
		t.Errorf("focus survived: %q", s.Focus)
	}
	if s, _ := Reduce(creating(), Cancel{}); s.Focus != FocusNone {
		t.Errorf("focus after cancel = %q", s.Focus)
	}
}

func TestMonthNavigation(t *testing.T) {
	s := NewState(today)
	s, _ = Reduce(s, ChangeMonth{Delta: -3})
	if got := s.Month.Format("2006-01"); got != "2023-12" {
		t.Errorf("month = %s, want 2023-12", got)
	}

	// Navigation does not disturb an open modal.
	s.Mode = ModeViewing
	s.Selected = meeting
	s, _ = Reduce(s, GoToday{Today: today})
	if got := s.Month.Format("2006-01"); got != "2024-03" {
		t.Errorf("month = %s, want 2024-03", got)
	}
	if s.Mode != ModeViewing || s.Selected != meeting {
		t.Error("navigation changed the modal")
	}
}
