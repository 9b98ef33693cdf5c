// Package availability answers the booking-window questions of an itinerary:
// is it still bookable, does a requested slot exist, does it run inside a
// date window. All comparisons are by calendar day in UTC; the time of day
// stored on a date is ignored.
package availability

import (
	"sort"
	"time"

	"tripgenie/errs"
	"tripgenie/models"
)

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// IsAvailable reports whether at least one date is today or later.
func IsAvailable(dates []models.AvailableDate, now time.Time) bool {
	today := Day(now)
	for _, d := range dates {
		if !Day(d.Date).Before(today) {
			return true
		}
	}
	return false
}

// HasSlot reports whether slot is listed, start and end exactly, under the
// entry for date.
func HasSlot(dates []models.AvailableDate, date time.Time, slot models.TimeSlot) bool {
	for _, d := range dates {
		if !SameDay(d.Date, date) {
			continue
		}
		for _, t := range d.Times {
			if t.StartTime == slot.StartTime && t.EndTime == slot.EndTime {
				return true
			}
		}
	}
	return false
}

// WithinWindow reports whether some date falls inside [lower, upper]. A nil
// bound leaves that side of the window open.
func WithinWindow(dates []models.AvailableDate, lower, upper *time.Time) bool {
	if lower == nil && upper == nil {
		return true
	}
	for _, d := range dates {
		day := Day(d.Date)
		if lower != nil && day.Before(Day(*lower)) {
			continue
		}
		if upper != nil && day.After(Day(*upper)) {
			continue
		}
		return true
	}
	return false
}

var clockLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM"}

// SlotStart returns the instant slot starts on date.
func SlotStart(date time.Time, slot models.TimeSlot) (time.Time, error) {
	for _, layout := range clockLayouts {
		clock, err := time.Parse(layout, slot.StartTime)
		if err != nil {
			continue
		}
		day := Day(date)
		return day.Add(time.Duration(clock.Hour())*time.Hour +
			time.Duration(clock.Minute())*time.Minute +
			time.Duration(clock.Second())*time.Second), nil
	}
	return time.Time{}, errs.Validation("invalid start time %q", slot.StartTime)
}

// Normalize validates dates and returns a copy truncated to calendar days and
// sorted ascending. Each entry must carry at least one well-formed slot.
func Normalize(dates []models.AvailableDate) ([]models.AvailableDate, error) {
	out := make([]models.AvailableDate, 0, len(dates))
	for _, d := range dates {
		if d.Date.IsZero() {
			return nil, errs.Validation("available date is missing")
		}
		if len(d.Times) == 0 {
			return nil, errs.Validation("available date %s has no time slots", Day(d.Date).Format(time.DateOnly))
		}
		for _, t := range d.Times {
			if _, err := SlotStart(d.Date, t); err != nil {
				return nil, err
			}
			if t.EndTime == "" {
				return nil, errs.Validation("time slot %s has no end time", t.StartTime)
			}
		}
		times := make([]models.TimeSlot, len(d.Times))
		copy(times, d.Times)
		out = append(out, models.AvailableDate{Date: Day(d.Date), Times: times})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
