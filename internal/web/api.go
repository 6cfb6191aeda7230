package web

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"monthcal/internal/calendar"
	"monthcal/internal/ics"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

// maxJSONBody bounds event payloads.
const maxJSONBody = 64 << 10

type cellDTO struct {
	Date      string        `json:"date"`
	Day       int           `json:"day"`
	InMonth   bool          `json:"in_month"`
	IsToday   bool          `json:"is_today"`
	Events    []model.Event `json:"events"`
	MoreCount int           `json:"more_count"`
}

type gridDTO struct {
	Month string    `json:"month"`
	Label string    `json:"label"`
	Cells []cellDTO `json:"cells"`
}

// eventPayload is the body of POST and PUT /api/events. id and time are
// accepted so an event read from the API can be sent back as is; time is
// recomputed by the store.
type eventPayload struct {
	ID   *int64 `json:"id,omitempty"`
	Time string `json:"time,omitempty"`
	model.Draft
}

type importResult struct {
	Created []model.Event `json:"created"`
	Skipped int           `json:"skipped"`
	Source  string        `json:"source,omitempty"`
	Cached  bool          `json:"cached,omitempty"`
}

// handleListEvents returns all events in storage order.
//
// GET /api/events?date=YYYY-MM-DD
//   - date: only events on that day
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events := s.store.List()
	if date := r.URL.Query().Get("date"); date != "" {
		if !calendar.ValidDayKey(date) {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		events = s.store.EventsOn(date)
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	p := eventPayload{Draft: model.NewDraft(calendar.DayKey(s.store.Today()))}
	if !decodeJSON(w, r, &p) {
		return
	}
	e, err := s.store.Create(r.Context(), p.Draft)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(w, r)
	if !ok {
		return
	}
	e, found := s.store.Get(id)
	if !found {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleUpdateEvent merges the posted fields into the stored event; fields
// missing from the body keep their current value.
func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(w, r)
	if !ok {
		return
	}
	cur, found := s.store.Get(id)
	if !found {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	p := eventPayload{Draft: model.DraftOf(cur)}
	if !decodeJSON(w, r, &p) {
		return
	}
	if p.ID != nil && *p.ID != id {
		writeError(w, http.StatusBadRequest, "id in body does not match the url")
		return
	}
	e, err := s.store.Update(r.Context(), p.Draft.Apply(cur))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpcoming lists events on or after today.
//
// GET /api/upcoming?limit=N
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), calendar.UpcomingLimit)
	events := s.store.Upcoming(s.store.Today(), limit)
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// handleGrid returns the 42 tagged cells of a month.
//
// GET /api/grid?month=YYYY-MM
//   - month: defaults to the current month
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	today := s.store.Today()
	month := calendar.MonthStart(today)
	if q := r.URL.Query().Get("month"); q != "" {
		m, err := calendar.ParseMonthKey(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		month = m
	}

	cells := calendar.MonthCells(month, today, s.store.EventsOn)
	out := gridDTO{
		Month: calendar.MonthKey(month),
		Label: month.Format("January 2006"),
		Cells: make([]cellDTO, 0, len(cells)),
	}
	for _, c := range cells {
		evs := c.Events
		if evs == nil {
			evs = []model.Event{}
		}
		out.Cells = append(out.Cells, cellDTO{
			Date:      c.Key,
			Day:       c.Day,
			InMonth:   c.InMonth,
			IsToday:   c.IsToday,
			Events:    evs,
			MoreCount: c.MoreCount,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleExport serves every event as an iCalendar feed.
func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	body := ics.Export(s.store.List(), s.store.Location(), time.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="monthcal.ics"`)
	_, _ = io.WriteString(w, body)
}

// handleImport creates events from an iCalendar document.
//
// POST /api/import           body is the ICS document (Content-Type: text/calendar)
// POST /api/import?feed=id   fetch a feed listed in ics_feeds
// POST /api/import?url=...   same, matched by the feed's exact URL
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var (
		body []byte
		res  importResult
	)
	q := r.URL.Query()
	if feedID, rawURL := q.Get("feed"), q.Get("url"); feedID != "" || rawURL != "" {
		feed, ok := s.cfg.Feed(feedID, rawURL)
		if !ok {
			writeError(w, http.StatusBadRequest, "feed is not configured")
			return
		}
		fetched, err := s.fetcher.Fetch(r.Context(), feed.URL)
		if err != nil {
			appLog.Warn("ics import fetch failed", "feed", feed.ID, "error", err)
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		body = fetched.Body
		res.Source = feed.ID
		res.Cached = fetched.FromCache
	} else {
		if !hasMediaType(r, "text/calendar") {
			writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be text/calendar")
			return
		}
		b, err := io.ReadAll(io.LimitReader(r.Body, ics.MaxFeedBytes+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read body")
			return
		}
		if len(b) > ics.MaxFeedBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "calendar too large")
			return
		}
		body = b
	}

	drafts, err := ics.ParseDrafts(body, s.store.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, skipped, err := s.store.Import(r.Context(), drafts)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if created == nil {
		created = []model.Event{}
	}
	res.Created = created
	res.Skipped = skipped
	appLog.Info("ics import done", "created", len(created), "skipped", skipped)
	writeJSON(w, http.StatusOK, res)
}

func eventID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return 0, false
	}
	return id, true
}

// hasMediaType reports whether the request body is declared as want.
// Cross-site forms can only send form and text/plain bodies.
func hasMediaType(r *http.Request, want string) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == want
}

// decodeJSON decodes an application/json body into v, writing the error
// response itself when it fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if !hasMediaType(r, "application/json") {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		msg := err.Error()
		if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		writeError(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}
