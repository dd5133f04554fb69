package model

import (
	"time"

	"clinicbook/pkg/interval"
)

type ServiceDefinition struct {
	ID                  string    `json:"id" bson:"_id"`
	Name                string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	DurationMinutes     int       `json:"duration_minutes" bson:"duration_minutes" validate:"required,min=1,max=1440"`
	BufferBeforeMinutes int       `json:"buffer_before_minutes" bson:"buffer_before_minutes" validate:"min=0,max=720"`
	BufferAfterMinutes  int       `json:"buffer_after_minutes" bson:"buffer_after_minutes" validate:"min=0,max=720"`
	SlotStepMinutes     int       `json:"slot_step_minutes" bson:"slot_step_minutes" validate:"required,min=1,max=1440"`
	IsActive            bool      `json:"is_active" bson:"is_active"`
	UpdatedAt           time.Time `json:"updated_at" bson:"updated_at"`
}

func (s *ServiceDefinition) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

func (s *ServiceDefinition) BufferBefore() time.Duration {
	return time.Duration(s.BufferBeforeMinutes) * time.Minute
}

func (s *ServiceDefinition) BufferAfter() time.Duration {
	return time.Duration(s.BufferAfterMinutes) * time.Minute
}

func (s *ServiceDefinition) SlotStep() time.Duration {
	return time.Duration(s.SlotStepMinutes) * time.Minute
}

// Occupied returns [start - bufferBefore, start + duration + bufferAfter) in UTC.
func (s *ServiceDefinition) Occupied(start time.Time) interval.Interval {
	return interval.Around(start, s.Duration(), s.BufferBefore(), s.BufferAfter())
}

// WorkingHours is one weekday row of a provider's week. Weekday follows
// time.Weekday: 0 is Sunday.
type WorkingHours struct {
	ProviderID string `json:"provider_id" bson:"provider_id"`
	Weekday    int    `json:"weekday" bson:"weekday" validate:"min=0,max=6"`
	IsOpen     bool   `json:"is_open" bson:"is_open"`
	StartLocal string `json:"start_local,omitempty" bson:"start_local,omitempty" validate:"omitempty,clock"`
	EndLocal   string `json:"end_local,omitempty" bson:"end_local,omitempty" validate:"omitempty,clock"`
}

type TimeOff struct {
	ID         string    `json:"id" bson:"_id"`
	ProviderID string    `json:"provider_id" bson:"provider_id"`
	Start      time.Time `json:"start" bson:"start"`
	End        time.Time `json:"end" bson:"end"`
	Reason     string    `json:"reason,omitempty" bson:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

func (t *TimeOff) Interval() interval.Interval {
	return interval.Interval{Start: t.Start.UTC(), End: t.End.UTC()}
}

type Room struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Capacity  int       `json:"capacity" bson:"capacity" validate:"required,min=1,max=1000"`
	IsGym     bool      `json:"is_gym" bson:"is_gym"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
