package model

import "strings"

// Color is the semantic swatch key of an event. The renderer maps each key to
// its own CSS classes; the stored value is always the key.
type Color string

const (
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorPurple Color = "purple"
	ColorRed    Color = "red"
	ColorOrange Color = "orange"
)

// DefaultColor is used for new drafts and for unknown stored colors.
const DefaultColor = ColorBlue

// DefaultTime24 is the time a new draft starts with.
const DefaultTime24 = "10:00"

// Colors lists every swatch in picker order.
func Colors() []Color {
	return []Color{ColorBlue, ColorGreen, ColorPurple, ColorRed, ColorOrange}
}

// Valid reports whether c is one of the known swatches.
func (c Color) Valid() bool {
	switch c {
	case ColorBlue, ColorGreen, ColorPurple, ColorRed, ColorOrange:
		return true
	}
	return false
}

// OrDefault returns c, or DefaultColor when c is unknown.
func (c Color) OrDefault() Color {
	if c.Valid() {
		return c
	}
	return DefaultColor
}

// Event is a single calendar entry. The JSON shape is also the persisted
// shape, so field tags must stay stable.
type Event struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`

	// Date is the day key, YYYY-MM-DD.
	Date string `json:"date"`

	// Time24 is the source of truth for the time of day (HH:MM).
	// Time is the 12-hour display string derived from it.
	Time24 string `json:"time24"`
	Time   string `json:"time"`

	Color Color `json:"color"`
}

// Draft holds the editable fields of an event while a form is open.
type Draft struct {
	Title  string `json:"title"`
	Date   string `json:"date"`
	Time24 string `json:"time24"`
	Color  Color  `json:"color"`
}

// HasTitle reports whether the draft carries a non-blank title.
func (d Draft) HasTitle() bool {
	return strings.TrimSpace(d.Title) != ""
}

// DraftOf copies the editable fields of e.
func DraftOf(e Event) Draft {
	return Draft{
		Title:  e.Title,
		Date:   e.Date,
		Time24: e.Time24,
		Color:  e.Color,
	}
}

// NewDraft is the blank form shown by "Add Event".
func NewDraft(today string) Draft {
	return Draft{
		Title:  "",
		Date:   today,
		Time24: DefaultTime24,
		Color:  DefaultColor,
	}
}

// Apply returns e with the draft's fields copied over. Time is left for the
// caller to recompute.
func (d Draft) Apply(e Event) Event {
	e.Title = d.Title
	e.Date = d.Date
	e.Time24 = d.Time24
	e.Color = d.Color
	return e
}
