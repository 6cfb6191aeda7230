package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	appLog "monthcal/internal/log"
	"monthcal/internal/store"
)

// SessionTTL is how long an untouched session keeps its modal state.
const SessionTTL = 24 * time.Hour

type session struct {
	state    State
	lastSeen time.Time
}

// Controller keeps one State per browser session and runs reducer effects
// against the store.
type Controller struct {
	store *store.Store

	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

// NewController returns a Controller backed by st.
func NewController(st *store.Store) *Controller {
	return &Controller{
		store:    st,
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// Store exposes the backing store to the renderer.
func (c *Controller) Store() *store.Store {
	return c.store
}

// Today is the store's notion of the current date.
func (c *Controller) Today() time.Time {
	return c.store.Today()
}

// NewSession allocates a session id with an idle state.
func (c *Controller) NewSession() string {
	id := uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
	c.sessions[id] = &session{state: NewState(c.Today()), lastSeen: c.now()}
	return id
}

// HasSession reports whether id is a live session.
func (c *Controller) HasSession(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sessions[id]
	return ok
}

// State returns the session's state. Unknown ids get a fresh idle state,
// which is not stored until the first Dispatch.
func (c *Controller) State(id string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sess, ok := c.sessions[id]; ok {
		sess.lastSeen = c.now()
		return sess.state
	}
	return NewState(c.Today())
}

// ConsumeFocus returns the session's state and clears its focus hint, so the
// autofocus is rendered exactly once.
func (c *Controller) ConsumeFocus(id string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, ok := c.sessions[id]
	if !ok {
		return NewState(c.Today())
	}
	sess.lastSeen = c.now()
	st := sess.state
	sess.state.Focus = FocusNone
	return st
}

// Dispatch reduces a into the session's state and applies the resulting
// effects. Validation failures from the store are swallowed and the session
// keeps its pre-action state; storage failures are returned.
func (c *Controller) Dispatch(ctx context.Context, id string, a Action) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.sessions[id]
	if !ok {
		sess = &session{state: NewState(c.Today())}
		c.sessions[id] = sess
	}
	sess.lastSeen = c.now()

	prev := sess.state
	next, effects := Reduce(prev, a)

	for _, eff := range effects {
		var err error
		next, err = c.apply(ctx, next, eff)
		if err == nil {
			continue
		}
		if store.IsValidation(err) {
			appLog.Debug("ui action ignored", "session", id, "action", fmt.Sprintf("%T", a), "reason", err)
			sess.state = keepDraft(prev, a)
			return sess.state, nil
		}
		sess.state = prev
		return prev, err
	}

	sess.state = next
	return next, nil
}

func (c *Controller) apply(ctx context.Context, s State, eff Effect) (State, error) {
	switch eff := eff.(type) {
	case CreateEffect:
		e, err := c.store.Create(ctx, eff.Draft)
		if err != nil {
			return s, err
		}
		appLog.Info("event created", "id", e.ID, "title", e.Title, "date", e.Date)
	case UpdateEffect:
		e, err := c.store.Update(ctx, eff.Event)
		if errors.Is(err, store.ErrNotFound) {
			// Removed through the API while the form was open.
			return toIdle(s), nil
		}
		if err != nil {
			return s, err
		}
		s.Selected = e
		appLog.Info("event updated", "id", e.ID)
	case DeleteEffect:
		err := c.store.Delete(ctx, eff.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return s, err
		}
		appLog.Info("event deleted", "id", eff.ID)
	}
	return s, nil
}

// keepDraft restores prev with the submitted form contents, so a rejected
// submit leaves the form open as the user typed it.
func keepDraft(prev State, a Action) State {
	prev.Focus = FocusNone
	switch a := a.(type) {
	case Save:
		prev.Draft = a.Draft
	case Create:
		prev.Draft = a.Draft
	}
	return prev
}

// pruneLocked drops sessions idle for longer than SessionTTL.
func (c *Controller) pruneLocked() {
	cutoff := c.now().Add(-SessionTTL)
	for id, sess := range c.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(c.sessions, id)
		}
	}
}
