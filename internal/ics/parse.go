package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

// ParseDrafts reads every VEVENT of an ICS payload into a draft dated in
// loc. All-day events start at 00:00. Recurrence rules are not expanded;
// only the first occurrence is imported.
func ParseDrafts(body []byte, loc *time.Location) ([]model.Draft, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics: parse: %w", err)
	}

	drafts := make([]model.Draft, 0)
	for _, ve := range cal.Events() {
		d, err := parseVEvent(ve, loc)
		if err != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Warn("ics vevent skipped", "reason", err)
			continue
		}
		drafts = append(drafts, d)
	}

	appLog.Info("ics parse completed", "event_count", len(drafts))
	return drafts, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (model.Draft, error) {
	var d model.Draft

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		d.Title = strings.TrimSpace(p.Value)
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return d, errors.New("missing DTSTART")
	}

	var start time.Time
	if isDateOnly(dtStart) {
		t, err := time.ParseInLocation("20060102", strings.TrimSpace(dtStart.Value), loc)
		if err != nil {
			return d, fmt.Errorf("DTSTART %q: %w", dtStart.Value, err)
		}
		start = t
	} else {
		t, err := ve.GetStartAt()
		if err != nil {
			return d, fmt.Errorf("DTSTART %q: %w", dtStart.Value, err)
		}
		start = t.In(loc)
	}

	d.Date = start.Format("2006-01-02")
	d.Time24 = start.Format("15:04")

	d.Color = model.DefaultColor
	if p := ve.GetProperty(propColor); p != nil {
		d.Color = model.Color(strings.ToLower(strings.TrimSpace(p.Value))).OrDefault()
	}
	return d, nil
}

// isDateOnly detects VALUE=DATE or a bare YYYYMMDD value.
func isDateOnly(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}
