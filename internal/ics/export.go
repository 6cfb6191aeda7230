// Package ics converts calendar events to and from iCalendar feeds.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"monthcal/internal/model"
)

const (
	productID = "-//monthcal//month view calendar//EN"

	// uidSuffix scopes exported UIDs to this application.
	uidSuffix = "@monthcal"

	// exportDuration is the DTEND offset; events only carry a start time.
	exportDuration = time.Hour

	propColor = ical.ComponentProperty("COLOR")
)

// Export renders events as a VCALENDAR. Start times are wall-clock times in
// loc. Events whose date or time does not parse are skipped.
func Export(events []model.Event, loc *time.Location, stamp time.Time) string {
	if loc == nil {
		loc = time.Local
	}

	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)

	for _, e := range events {
		start, err := startOf(e, loc)
		if err != nil {
			continue
		}
		ev := cal.AddEvent(fmt.Sprintf("%d%s", e.ID, uidSuffix))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetStartAt(start)
		ev.SetEndAt(start.Add(exportDuration))
		ev.SetSummary(e.Title)
		ev.SetProperty(propColor, string(e.Color.OrDefault()))
	}

	return cal.Serialize()
}

func startOf(e model.Event, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", e.Date+" "+e.Time24, loc)
}
