package availability

import (
	"testing"
	"time"

	"clinicbook/pkg/interval"
	"clinicbook/pkg/model"

	"github.com/stretchr/testify/assert"
)

func span(start, end string) interval.Interval {
	return interval.Interval{Start: clock(start), End: clock(end)}
}

func TestIsProviderBusy(t *testing.T) {
	now := clock("08:00")
	live := now.Add(10 * time.Minute)
	expired := now.Add(-time.Minute)

	tests := []struct {
		name     string
		occupied interval.Interval
		bookings []*model.Appointment
		timeOffs []*model.TimeOff
		want     bool
	}{
		{name: "nothing booked", occupied: span("09:00", "09:40")},
		{name: "overlapping confirmed", occupied: span("09:00", "09:40"), bookings: []*model.Appointment{confirmed("b", "09:20", "10:00")}, want: true},
		{name: "touching confirmed", occupied: span("09:00", "09:40"), bookings: []*model.Appointment{confirmed("b", "09:40", "10:20")}},
		{name: "live hold", occupied: span("09:00", "09:40"), bookings: []*model.Appointment{hold("h", "09:00", "09:40", live)}, want: true},
		{name: "expired hold", occupied: span("09:00", "09:40"), bookings: []*model.Appointment{hold("h", "09:00", "09:40", expired)}},
		{name: "time off", occupied: span("09:00", "09:40"), timeOffs: []*model.TimeOff{{ProviderID: provider, Start: clock("09:30"), End: clock("12:00")}}, want: true},
		{name: "time off touching", occupied: span("09:00", "09:40"), timeOffs: []*model.TimeOff{{ProviderID: provider, Start: clock("09:40"), End: clock("12:00")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsProviderBusy(provider, tt.occupied, tt.bookings, tt.timeOffs, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsProviderBusy_ExcludingSelf(t *testing.T) {
	own := confirmed("self", "09:00", "09:40")
	bookings := []*model.Appointment{own, confirmed("other", "11:00", "11:40")}

	assert.True(t, IsProviderBusy(provider, span("09:20", "10:00"), bookings, nil, clock("08:00")))
	assert.False(t, IsProviderBusy(provider, span("09:20", "10:00"), Without(bookings, "self"), nil, clock("08:00")))
	assert.Len(t, bookings, 2, "Without must not modify its input")
}

func TestRoomOccupancy(t *testing.T) {
	now := clock("08:00")
	inRoom := func(id, start, end string) *model.Appointment {
		a := confirmed(id, start, end)
		a.RoomID = "gym"
		return a
	}
	cancelled := inRoom("c", "10:00", "10:40")
	cancelled.Status = model.StatusCancelled
	expiredHold := hold("x", "10:00", "10:40", now.Add(-time.Minute))
	expiredHold.RoomID = "gym"
	liveHold := hold("l", "10:00", "10:40", now.Add(time.Minute))
	liveHold.RoomID = "gym"
	otherProvider := inRoom("p", "10:10", "10:50")
	otherProvider.ProviderID = "prov-2"
	otherRoom := confirmed("r", "10:00", "10:40")
	otherRoom.RoomID = "studio"

	appts := []*model.Appointment{
		inRoom("a", "10:00", "10:40"),
		inRoom("touching", "10:40", "11:20"),
		cancelled, expiredHold, liveHold, otherProvider, otherRoom,
		inRoom("self", "10:00", "10:40"),
	}

	got := RoomOccupancy("gym", span("10:00", "10:40"), appts, "self", now)

	assert.Equal(t, 3, got, "a, live hold and the other provider's booking")
}
