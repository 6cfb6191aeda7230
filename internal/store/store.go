// Package store owns the in-memory event collection and mirrors it to a
// Storage after every mutation.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"monthcal/internal/calendar"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

var (
	ErrEmptyTitle  = errors.New("store: event title is empty")
	ErrInvalidDate = errors.New("store: event date is not a valid YYYY-MM-DD day")
	ErrInvalidTime = errors.New("store: event time is not a valid HH:MM time")
	ErrNotFound    = errors.New("store: event not found")
)

// Clock returns the current time. Tests inject a fixed one.
type Clock func() time.Time

// Store is the single owner of the event collection.
type Store struct {
	mu      sync.RWMutex
	events  []model.Event
	storage Storage
	now     Clock
	loc     *time.Location
	lastID  int64
}

// Options tunes Open. Zero values pick time.Now and time.Local.
type Options struct {
	Clock    Clock
	Location *time.Location
}

// Open loads the collection from storage. When storage has never been
// written, the default seed events are stored instead. Any other load error
// (including undecodable data) is returned and the store is not usable.
func Open(ctx context.Context, storage Storage, opts Options) (*Store, error) {
	if storage == nil {
		return nil, errors.New("store: storage is nil")
	}
	s := &Store{
		storage: storage,
		now:     opts.Clock,
		loc:     opts.Location,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}

	events, err := storage.Load(ctx)
	switch {
	case errors.Is(err, ErrNoData):
		events = SeedEvents(s.Today())
		if err := storage.Save(ctx, events); err != nil {
			return nil, fmt.Errorf("store: save seed events: %w", err)
		}
		appLog.Info("store seeded with default events", "count", len(events))
	case err != nil:
		return nil, fmt.Errorf("store: load: %w", err)
	default:
		appLog.Info("store loaded", "count", len(events))
	}

	for _, e := range events {
		if e.ID > s.lastID {
			s.lastID = e.ID
		}
	}
	s.events = events
	return s, nil
}

// SeedEvents returns the two events a fresh calendar starts with.
func SeedEvents(today time.Time) []model.Event {
	return []model.Event{
		{
			ID:     1,
			Title:  "Team Meeting",
			Date:   calendar.DayKey(today),
			Time24: "10:00",
			Time:   calendar.FormatTime12("10:00"),
			Color:  model.ColorBlue,
		},
		{
			ID:     2,
			Title:  "Project Review",
			Date:   calendar.DayKey(today.AddDate(0, 0, 1)),
			Time24: "14:00",
			Time:   calendar.FormatTime12("14:00"),
			Color:  model.ColorGreen,
		},
	}
}

// Today is the current calendar date in the store's location.
func (s *Store) Today() time.Time {
	return calendar.Today(s.now(), s.loc)
}

// Location is the zone used to decide what "today" is.
func (s *Store) Location() *time.Location {
	return s.loc
}

// List returns a copy of every event in insertion order.
func (s *Store) List() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Get returns the event with id.
func (s *Store) Get(id int64) (model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.Event{}, false
	}
	return s.events[i], true
}

// EventsOn returns the events whose date equals dayKey, in insertion order.
func (s *Store) EventsOn(dayKey string) []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Event
	for _, e := range s.events {
		if e.Date == dayKey {
			out = append(out, e)
		}
	}
	return out
}

// Upcoming returns events dated today or later, ascending by date, at most
// limit of them (limit <= 0 means no cap). Events sharing a date keep their
// insertion order.
func (s *Store) Upcoming(today time.Time, limit int) []model.Event {
	todayKey := calendar.DayKey(today)

	s.mu.RLock()
	out := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		// Day keys are fixed-width, so string order is date order.
		if e.Date >= todayKey {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b model.Event) int {
		return strings.Compare(a.Date, b.Date)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Create validates d, assigns a fresh id, appends and persists.
func (s *Store) Create(ctx context.Context, d model.Draft) (model.Event, error) {
	if err := validate(d); err != nil {
		return model.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := d.Apply(model.Event{ID: s.nextID()})
	e = normalize(e)

	next := append(slices.Clone(s.events), e)
	if err := s.persist(ctx, next); err != nil {
		return model.Event{}, err
	}
	appLog.Debug("event created", "id", e.ID, "date", e.Date)
	return e, nil
}

// Import creates every valid draft with one persist for the whole batch.
// Drafts that fail validation are skipped and counted.
func (s *Store) Import(ctx context.Context, drafts []model.Draft) (created []model.Event, skipped int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(s.events)
	for _, d := range drafts {
		if verr := validate(d); verr != nil {
			appLog.Debug("import: skipping draft", "title", d.Title, "reason", verr)
			skipped++
			continue
		}
		e := normalize(d.Apply(model.Event{ID: s.nextID()}))
		next = append(next, e)
		created = append(created, e)
	}
	if len(created) == 0 {
		return nil, skipped, nil
	}
	if err := s.persist(ctx, next); err != nil {
		return nil, skipped, err
	}
	return created, skipped, nil
}

// Update replaces the stored event with the same id.
func (s *Store) Update(ctx context.Context, e model.Event) (model.Event, error) {
	if err := validate(model.DraftOf(e)); err != nil {
		return model.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(e.ID)
	if i < 0 {
		return model.Event{}, ErrNotFound
	}
	e = normalize(e)

	next := slices.Clone(s.events)
	next[i] = e
	if err := s.persist(ctx, next); err != nil {
		return model.Event{}, err
	}
	appLog.Debug("event updated", "id", e.ID)
	return e, nil
}

// Delete removes the event with id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	next := slices.Delete(slices.Clone(s.events), i, i+1)
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	appLog.Debug("event deleted", "id", id)
	return nil
}

// persist saves next and only then makes it the live collection, so a failed
// save leaves memory and storage in agreement. Callers hold s.mu.
func (s *Store) persist(ctx context.Context, next []model.Event) error {
	if err := s.storage.Save(ctx, next); err != nil {
		appLog.Error("store save failed", err, "count", len(next))
		return fmt.Errorf("store: save: %w", err)
	}
	s.events = next
	return nil
}

// nextID hands out the creation timestamp in milliseconds, bumped past the
// last id when two creations land in the same millisecond. Callers hold s.mu.
func (s *Store) nextID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	for s.indexOf(id) >= 0 {
		id++
	}
	s.lastID = id
	return id
}

func (s *Store) indexOf(id int64) int {
	return slices.IndexFunc(s.events, func(e model.Event) bool { return e.ID == id })
}

func validate(d model.Draft) error {
	if !d.HasTitle() {
		return ErrEmptyTitle
	}
	if !calendar.ValidDayKey(d.Date) {
		return ErrInvalidDate
	}
	if _, err := calendar.ParseTime24(d.Time24); err != nil {
		return ErrInvalidTime
	}
	return nil
}

// normalize recomputes the derived display time and pins the color to a
// known swatch.
func normalize(e model.Event) model.Event {
	e.Time = calendar.FormatTime12(e.Time24)
	e.Color = e.Color.OrDefault()
	return e
}

// IsValidation reports whether err is a draft validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyTitle) || errors.Is(err, ErrInvalidDate) || errors.Is(err, ErrInvalidTime)
}
