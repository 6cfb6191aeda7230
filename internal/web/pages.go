package web

import (
	"bytes"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"monthcal/internal/calendar"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/ui"
)

var weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// colorClasses maps each swatch to its chip and dot classes in app.css.
var colorClasses = map[model.Color]struct{ Chip, Dot string }{
	model.ColorBlue:   {"chip chip-blue", "dot dot-blue"},
	model.ColorGreen:  {"chip chip-green", "dot dot-green"},
	model.ColorPurple: {"chip chip-purple", "dot dot-purple"},
	model.ColorRed:    {"chip chip-red", "dot dot-red"},
	model.ColorOrange: {"chip chip-orange", "dot dot-orange"},
}

var templateFuncs = template.FuncMap{
	"chipClass": func(c model.Color) string { return colorClasses[c.OrDefault()].Chip },
	"dotClass":  func(c model.Color) string { return colorClasses[c.OrDefault()].Dot },
	"shortDate": func(key string) string { return formatDayKey(key, "Jan 2") },
	"fullDate":  func(key string) string { return formatDayKey(key, "Monday, January 2, 2006") },
	"initial":   func(s string) string { return s[:1] },
	"fieldsOf":  newFieldsView,
}

// fieldsView feeds the shared edit/create form fields.
type fieldsView struct {
	Draft  model.Draft
	Colors []model.Color
	Focus  bool
}

func newFieldsView(d model.Draft, colors []model.Color, focus bool) fieldsView {
	return fieldsView{Draft: d, Colors: colors, Focus: focus}
}

func formatDayKey(key, layout string) string {
	t, err := calendar.ParseDayKey(key)
	if err != nil {
		return key
	}
	return t.Format(layout)
}

// calendarPage is the data behind templates/calendar.html.
type calendarPage struct {
	MonthLabel string
	MonthKey   string
	Weekdays   []string
	Weeks      [][]calendar.Cell
	Upcoming   []model.Event
	Colors     []model.Color

	State ui.State
	// Draft is the form model for Editing and Creating.
	Draft model.Draft
	// CanSubmit disables the create button for a blank title.
	CanSubmit bool
}

func (p calendarPage) Viewing() bool  { return p.State.Mode == ui.ModeViewing }
func (p calendarPage) Editing() bool  { return p.State.Mode == ui.ModeEditing }
func (p calendarPage) Creating() bool { return p.State.Mode == ui.ModeCreating }

// Focus reports whether the named input should carry autofocus.
func (p calendarPage) Focus(name string) bool { return p.State.Focus == name }

func (s *Server) buildPage(st ui.State, month time.Time) calendarPage {
	today := s.store.Today()
	cells := calendar.MonthCells(month, today, s.store.EventsOn)
	return calendarPage{
		MonthLabel: month.Format("January 2006"),
		MonthKey:   calendar.MonthKey(month),
		Weekdays:   weekdays,
		Weeks:      calendar.Weeks(cells),
		Upcoming:   s.store.Upcoming(today, calendar.UpcomingLimit),
		Colors:     model.Colors(),
		State:      st,
		Draft:      st.Draft,
		CanSubmit:  st.Draft.HasTitle(),
	}
}

// handleCalendar renders the month view for the caller's session.
//
// GET /calendar?month=YYYY-MM
//   - month: render that month without changing the session (used by captures)
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	st := s.ctrl.ConsumeFocus(id)

	month := st.Month
	if q := r.URL.Query().Get("month"); q != "" {
		m, err := calendar.ParseMonthKey(q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		month = m
	}

	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "calendar", s.buildPage(st, month)); err != nil {
		appLog.Error("render calendar failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// handleAction decodes one form action, dispatches it and redirects back to
// the month view.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	id := s.sessionID(w, r)

	a, ok := s.formAction(r)
	if ok {
		if _, err := s.ctrl.Dispatch(r.Context(), id, a); err != nil {
			appLog.Error("calendar action failed", err, "action", r.PostForm.Get("action"))
			http.Error(w, "failed to save events", http.StatusInternalServerError)
			return
		}
	} else {
		appLog.Debug("unknown calendar action", "action", r.PostForm.Get("action"))
	}
	http.Redirect(w, r, "/calendar", http.StatusSeeOther)
}

func (s *Server) formAction(r *http.Request) (ui.Action, bool) {
	f := r.PostForm
	switch f.Get("action") {
	case "select":
		id, err := strconv.ParseInt(f.Get("id"), 10, 64)
		if err != nil {
			return nil, false
		}
		e, found := s.store.Get(id)
		if !found {
			return nil, false
		}
		return ui.Select{Event: e}, true
	case "edit":
		return ui.Edit{}, true
	case "save":
		return ui.Save{Draft: formDraft(r)}, true
	case "cancel":
		return ui.Cancel{}, true
	case "delete":
		return ui.Delete{}, true
	case "close":
		return ui.Close{}, true
	case "open-create":
		return ui.OpenCreate{Today: s.store.Today()}, true
	case "create":
		return ui.Create{Draft: formDraft(r)}, true
	case "prev":
		return ui.ChangeMonth{Delta: -1}, true
	case "next":
		return ui.ChangeMonth{Delta: 1}, true
	case "today":
		return ui.GoToday{Today: s.store.Today()}, true
	}
	return nil, false
}

func formDraft(r *http.Request) model.Draft {
	f := r.PostForm
	return model.Draft{
		Title:  f.Get("title"),
		Date:   f.Get("date"),
		Time24: f.Get("time24"),
		Color:  model.Color(f.Get("color")),
	}
}
