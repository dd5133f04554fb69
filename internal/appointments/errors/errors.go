package errors

import "errors"

var (
	ErrNotFound = errors.New("appointment not found")

	ErrSlotTaken = errors.New("provider is busy during the requested interval")

	ErrHoldExpired = errors.New("appointment is not a live hold")

	ErrRoomAtCapacity = errors.New("room is at capacity during the requested interval")

	ErrInvalidTransition = errors.New("appointment status does not allow this transition")
)
