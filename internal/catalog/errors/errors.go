package errors

import "errors"

var (
	ErrServiceNotFound = errors.New("service not found")

	ErrWorkingHoursNotFound = errors.New("working hours not found")

	ErrTimeOffNotFound = errors.New("time off not found")

	ErrRoomNotFound = errors.New("room not found")
)
