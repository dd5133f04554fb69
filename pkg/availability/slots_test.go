package availability

import (
	"testing"
	"time"

	"clinicbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const provider = "prov-1"

// 2025-03-03 is a Monday.
var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func clock(hhmm string) time.Time {
	h, m, err := ParseClock(hhmm)
	if err != nil {
		panic(err)
	}
	return time.Date(2025, 3, 3, h, m, 0, 0, time.UTC)
}

func clocks(hhmm ...string) []time.Time {
	out := make([]time.Time, len(hhmm))
	for i, s := range hhmm {
		out[i] = clock(s)
	}
	return out
}

func mondayHours(start, end string) *model.WorkingHours {
	return &model.WorkingHours{ProviderID: provider, Weekday: int(time.Monday), IsOpen: true, StartLocal: start, EndLocal: end}
}

func service(duration, step, before, after int) *model.ServiceDefinition {
	return &model.ServiceDefinition{
		ID:                  "svc-1",
		DurationMinutes:     duration,
		SlotStepMinutes:     step,
		BufferBeforeMinutes: before,
		BufferAfterMinutes:  after,
		IsActive:            true,
	}
}

func baseQuery() SlotQuery {
	return SlotQuery{
		ProviderID: provider,
		Service:    service(40, 40, 0, 0),
		Hours:      mondayHours("09:00", "17:00"),
		Date:       monday,
		Location:   time.UTC,
		LeadTime:   0,
		Now:        monday,
	}
}

func confirmed(id, start, end string) *model.Appointment {
	return &model.Appointment{
		ID:            id,
		ProviderID:    provider,
		Status:        model.StatusConfirmed,
		StartTime:     clock(start),
		EndTime:       clock(end),
		OccupiedStart: clock(start),
		OccupiedEnd:   clock(end),
	}
}

func hold(id, start, end string, expires time.Time) *model.Appointment {
	a := confirmed(id, start, end)
	a.Status = model.StatusPendingHold
	a.HoldExpiresAt = &expires
	return a
}

func TestGenerateSlots_OpenDayNoBookings(t *testing.T) {
	slots := GenerateSlots(baseQuery(), nil, nil)

	want := clocks("09:00", "09:40", "10:20", "11:00", "11:40", "12:20",
		"13:00", "13:40", "14:20", "15:00", "15:40", "16:20")
	require.Len(t, slots, 12)
	assert.Equal(t, want, slots)
}

func TestGenerateSlots_ConfirmedBookingRemovesOverlappingCandidates(t *testing.T) {
	bookings := []*model.Appointment{confirmed("b1", "10:00", "10:40")}

	slots := GenerateSlots(baseQuery(), bookings, nil)

	// 09:40 and 10:20 both intersect 10:00-10:40 on a 40 minute grid.
	want := clocks("09:00", "11:00", "11:40", "12:20",
		"13:00", "13:40", "14:20", "15:00", "15:40", "16:20")
	assert.Equal(t, want, slots)
}

func TestGenerateSlots_TouchingBookingsDoNotConflict(t *testing.T) {
	q := baseQuery()
	q.Service = service(40, 20, 0, 0)
	bookings := []*model.Appointment{confirmed("b1", "10:00", "10:40")}

	slots := GenerateSlots(q, bookings, nil)

	assert.Contains(t, slots, clock("09:20"), "slot ending at 10:00 must stay")
	assert.Contains(t, slots, clock("10:40"), "slot starting at 10:40 must stay")
	assert.NotContains(t, slots, clock("10:00"))
	assert.NotContains(t, slots, clock("09:40"))
	assert.NotContains(t, slots, clock("10:20"))
}

func TestGenerateSlots_ExpiredHoldReleasesSlot(t *testing.T) {
	created := clock("08:00")
	bookings := []*model.Appointment{hold("h1", "09:00", "09:40", created.Add(15*time.Minute))}

	q := baseQuery()
	q.Now = created.Add(10 * time.Minute)
	assert.NotContains(t, GenerateSlots(q, bookings, nil), clock("09:00"), "live hold must block")

	q.Now = created.Add(15 * time.Minute)
	assert.Contains(t, GenerateSlots(q, bookings, nil), clock("09:00"), "hold expiring exactly now is released")

	q.Now = created.Add(16 * time.Minute)
	assert.Contains(t, GenerateSlots(q, bookings, nil), clock("09:00"))
}

func TestGenerateSlots_LeadTime(t *testing.T) {
	q := baseQuery()
	q.Now = clock("10:05")
	q.LeadTime = 120 * time.Minute

	slots := GenerateSlots(q, nil, nil)

	require.NotEmpty(t, slots)
	assert.Equal(t, clock("12:20"), slots[0])
	for _, s := range slots {
		assert.False(t, s.Before(q.Now.Add(q.LeadTime)), "slot %s is inside the lead time", s)
	}
}

func TestGenerateSlots_TimeOffBlocks(t *testing.T) {
	offs := []*model.TimeOff{{ID: "off", ProviderID: provider, Start: clock("12:00"), End: clock("14:00")}}

	slots := GenerateSlots(baseQuery(), nil, offs)

	for _, s := range slots {
		end := s.Add(40 * time.Minute)
		assert.False(t, s.Before(clock("14:00")) && end.After(clock("12:00")), "slot %s overlaps time off", s)
	}
	assert.Contains(t, slots, clock("11:00"))
	assert.Contains(t, slots, clock("14:20"))
	assert.NotContains(t, slots, clock("11:40"))
	assert.NotContains(t, slots, clock("13:40"))
}

func TestGenerateSlots_BuffersWidenTheOccupiedInterval(t *testing.T) {
	q := baseQuery()
	q.Service = service(40, 40, 10, 10)
	bookings := []*model.Appointment{confirmed("b1", "11:40", "12:20")}

	slots := GenerateSlots(q, bookings, nil)

	// 11:00 occupies 10:50-11:50 and 12:20 occupies 12:10-13:10.
	assert.NotContains(t, slots, clock("11:00"))
	assert.NotContains(t, slots, clock("12:20"))
	assert.Contains(t, slots, clock("10:20"))
	assert.Contains(t, slots, clock("13:00"))
}

func TestGenerateSlots_StepNotDividingWindow(t *testing.T) {
	q := baseQuery()
	q.Hours = mondayHours("09:00", "10:00")
	q.Service = service(25, 25, 0, 0)

	assert.Equal(t, clocks("09:00", "09:25"), GenerateSlots(q, nil, nil))
}

func TestGenerateSlots_IgnoresOtherProvidersAndCancelled(t *testing.T) {
	other := confirmed("o1", "09:00", "09:40")
	other.ProviderID = "prov-2"
	cancelled := confirmed("c1", "09:40", "10:20")
	cancelled.Status = model.StatusCancelled
	offOther := &model.TimeOff{ProviderID: "prov-2", Start: clock("09:00"), End: clock("17:00")}

	slots := GenerateSlots(baseQuery(), []*model.Appointment{other, cancelled}, []*model.TimeOff{offOther})

	assert.Len(t, slots, 12)
}

func TestGenerateSlots_EmptyOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(q *SlotQuery)
	}{
		{name: "missing service", mutate: func(q *SlotQuery) { q.Service = nil }},
		{name: "inactive service", mutate: func(q *SlotQuery) { q.Service.IsActive = false }},
		{name: "zero step", mutate: func(q *SlotQuery) { q.Service.SlotStepMinutes = 0 }},
		{name: "missing hours", mutate: func(q *SlotQuery) { q.Hours = nil }},
		{name: "closed day", mutate: func(q *SlotQuery) { q.Hours.IsOpen = false }},
		{name: "hours for another weekday", mutate: func(q *SlotQuery) { q.Hours.Weekday = int(time.Tuesday) }},
		{name: "malformed hours", mutate: func(q *SlotQuery) { q.Hours.EndLocal = "25:00" }},
		{name: "inverted hours", mutate: func(q *SlotQuery) { q.Hours.StartLocal, q.Hours.EndLocal = "17:00", "09:00" }},
		{name: "duration longer than day", mutate: func(q *SlotQuery) { q.Service.DurationMinutes = 600 }},
		{name: "day in the past", mutate: func(q *SlotQuery) { q.Now = monday.Add(48 * time.Hour) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := baseQuery()
			tt.mutate(&q)
			assert.Empty(t, GenerateSlots(q, nil, nil))
		})
	}
}

func TestGenerateSlots_ReturnsInstantsInRequestedZone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Jerusalem")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	q := baseQuery()
	q.Location = loc
	q.Date = time.Date(2025, 3, 3, 0, 0, 0, 0, loc)
	q.Now = q.Date

	slots := GenerateSlots(q, nil, nil)

	require.Len(t, slots, 12)
	assert.Equal(t, loc, slots[0].Location())
	assert.Equal(t, 9, slots[0].Hour())
	assert.Equal(t, time.Date(2025, 3, 3, 7, 0, 0, 0, time.UTC), slots[0].UTC())
}

func TestGenerateSlots_IsRestartable(t *testing.T) {
	bookings := []*model.Appointment{confirmed("b1", "13:00", "13:40")}

	first := GenerateSlots(baseQuery(), bookings, nil)
	second := GenerateSlots(baseQuery(), bookings, nil)

	assert.Equal(t, first, second)
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		hour    int
		minute  int
		wantErr bool
	}{
		{in: "00:00"},
		{in: "09:30", hour: 9, minute: 30},
		{in: "23:59", hour: 23, minute: 59},
		{in: "24:00", wantErr: true},
		{in: "9:30", wantErr: true},
		{in: "09:60", wantErr: true},
		{in: "0930", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, h)
			assert.Equal(t, tt.minute, m)
		})
	}
}
