// Package availability computes bookable slots and provider conflicts.
//
// Everything here is a pure function of its arguments: the caller loads
// service definitions, working hours, bookings and time off, and passes the
// current time explicitly. Hold expiry is therefore always evaluated against
// the "now" of the call, never against a cached view.
package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"clinicbook/pkg/interval"
	"clinicbook/pkg/model"
)

var ErrInvalidClock = errors.New("time of day must be HH:MM")

// ParseClock parses "HH:MM" (00:00-23:59) into hour and minute.
func ParseClock(s string) (int, int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return hour, minute, nil
}

// DayWindow combines the calendar day of date (read in loc) with the
// provider's working hours. ok is false when the day is closed, the row is
// missing, or the row is malformed.
func DayWindow(date time.Time, hours *model.WorkingHours, loc *time.Location) (interval.Interval, bool) {
	if hours == nil || !hours.IsOpen {
		return interval.Interval{}, false
	}
	date = date.In(loc)
	if int(date.Weekday()) != hours.Weekday {
		return interval.Interval{}, false
	}

	sh, sm, err := ParseClock(hours.StartLocal)
	if err != nil {
		return interval.Interval{}, false
	}
	eh, em, err := ParseClock(hours.EndLocal)
	if err != nil {
		return interval.Interval{}, false
	}

	y, m, d := date.Date()
	window, err := interval.New(
		time.Date(y, m, d, sh, sm, 0, 0, loc),
		time.Date(y, m, d, eh, em, 0, 0, loc),
	)
	if err != nil {
		return interval.Interval{}, false
	}
	return window, true
}

// FetchWindow is the span that bookings and time off must be loaded for so
// that every candidate of the day, buffers included, can be checked.
func FetchWindow(day interval.Interval, svc *model.ServiceDefinition) interval.Interval {
	return interval.Interval{
		Start: day.Start.Add(-svc.BufferBefore()),
		End:   day.End.Add(svc.BufferAfter()),
	}
}

type SlotQuery struct {
	ProviderID string
	Service    *model.ServiceDefinition
	Hours      *model.WorkingHours
	Date       time.Time
	Location   *time.Location
	LeadTime   time.Duration
	Now        time.Time
}

// GenerateSlots walks the provider's working window in SlotStep increments
// and returns, in order, every start time whose occupied interval is free.
// An empty result is a valid outcome: inactive services, closed days and
// fully booked days all yield no slots rather than an error.
func GenerateSlots(q SlotQuery, bookings []*model.Appointment, timeOffs []*model.TimeOff) []time.Time {
	svc := q.Service
	if svc == nil || !svc.IsActive || svc.Duration() <= 0 || svc.SlotStep() <= 0 {
		return nil
	}
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}

	day, ok := DayWindow(q.Date, q.Hours, loc)
	if !ok {
		return nil
	}

	earliest := q.Now.Add(q.LeadTime)
	last := day.End.Add(-svc.Duration())

	var slots []time.Time
	for c := day.Start; !c.After(last); c = c.Add(svc.SlotStep()) {
		if c.Before(earliest) {
			continue
		}
		if IsProviderBusy(q.ProviderID, svc.Occupied(c), bookings, timeOffs, q.Now) {
			continue
		}
		slots = append(slots, c.In(loc))
	}
	return slots
}
