package model

import "time"

// LocalDateTimeLayout is the wall-clock format clients send start times in.
const (
	LocalDateTimeLayout = "2006-01-02T15:04"
	DateLayout          = "2006-01-02"
)

type HoldRequest struct {
	ProviderID string  `json:"provider_id" validate:"required,max=64"`
	ServiceID  string  `json:"service_id" validate:"required,max=64"`
	StartLocal string  `json:"start_local" validate:"required,datetime=2006-01-02T15:04"`
	TimeZone   string  `json:"time_zone,omitempty" validate:"omitempty,timezone"`
	Customer   Contact `json:"customer"`
}

type HoldResponse struct {
	AppointmentID string    `json:"appointment_id"`
	HoldExpiresAt time.Time `json:"hold_expires_at"`
	StartTime     time.Time `json:"start_time"`
}

type ConfirmRequest struct {
	Patient Contact `json:"patient"`
}

type ScheduleChange struct {
	StartLocal string `json:"start_local" validate:"required,datetime=2006-01-02T15:04"`
	TimeZone   string `json:"time_zone,omitempty" validate:"omitempty,timezone"`
	RoomID     string `json:"room_id,omitempty" validate:"omitempty,max=64"`
}

type ManageCancelRequest struct {
	Token string `json:"token" validate:"required"`
}

type AvailabilityQuery struct {
	ProviderID  string `json:"provider_id" validate:"required,max=64"`
	ServiceID   string `json:"service_id" validate:"required,max=64"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	TimeZone    string `json:"zone" validate:"omitempty,timezone"`
	LeadMinutes *int   `json:"lead_minutes" validate:"omitempty,min=0,max=43200"`
}

type AvailabilityResponse struct {
	ProviderID string      `json:"provider_id"`
	ServiceID  string      `json:"service_id"`
	Date       string      `json:"date"`
	TimeZone   string      `json:"time_zone"`
	Slots      []time.Time `json:"slots"`
}

type TimeOffRequest struct {
	Start  time.Time `json:"start" validate:"required"`
	End    time.Time `json:"end" validate:"required,gtfield=Start"`
	Reason string    `json:"reason,omitempty" validate:"omitempty,max=200"`
}

// WeeklyHours replaces a provider's whole week at once.
type WeeklyHours struct {
	Days []WorkingHours `json:"days" validate:"required,min=1,max=7,dive"`
}
