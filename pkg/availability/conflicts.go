package availability

import (
	"time"

	"clinicbook/pkg/interval"
	"clinicbook/pkg/model"
)

// IsProviderBusy reports whether occupied collides with any of the provider's
// time off, confirmed bookings or unexpired holds. Rows for other providers
// are ignored so callers may pass a mixed slice.
func IsProviderBusy(providerID string, occupied interval.Interval, bookings []*model.Appointment, timeOffs []*model.TimeOff, now time.Time) bool {
	for _, off := range timeOffs {
		if off == nil || off.ProviderID != providerID {
			continue
		}
		if interval.Overlaps(occupied, off.Interval()) {
			return true
		}
	}
	return FirstConflict(providerID, occupied, bookings, now) != nil
}

// FirstConflict returns the first busy booking overlapping occupied, or nil.
func FirstConflict(providerID string, occupied interval.Interval, bookings []*model.Appointment, now time.Time) *model.Appointment {
	for _, b := range bookings {
		if b == nil || b.ProviderID != providerID || !b.IsBusy(now) {
			continue
		}
		if interval.Overlaps(occupied, b.Occupied()) {
			return b
		}
	}
	return nil
}

// Without drops the appointment with the given id, used when an edit must
// not collide with the appointment's own current interval.
func Without(bookings []*model.Appointment, id string) []*model.Appointment {
	out := make([]*model.Appointment, 0, len(bookings))
	for _, b := range bookings {
		if b != nil && b.ID == id {
			continue
		}
		out = append(out, b)
	}
	return out
}

// RoomOccupancy counts appointments holding roomID during scheduled,
// regardless of provider.
func RoomOccupancy(roomID string, scheduled interval.Interval, appts []*model.Appointment, excludeID string, now time.Time) int {
	n := 0
	for _, a := range appts {
		if a == nil || a.RoomID != roomID || a.ID == excludeID || !a.OccupiesRoom(now) {
			continue
		}
		if interval.Overlaps(scheduled, a.Scheduled()) {
			n++
		}
	}
	return n
}
