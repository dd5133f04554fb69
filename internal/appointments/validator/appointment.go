package validator

import (
	"clinicbook/pkg/logger"
	"clinicbook/pkg/model"
	"clinicbook/pkg/validation"
)

type AppointmentValidator struct {
	validate *validation.Validator
}

func NewAppointmentValidator(log *logger.Logger) *AppointmentValidator {
	return &AppointmentValidator{
		validate: validation.New(log),
	}
}

func (v *AppointmentValidator) ValidateHold(req *model.HoldRequest) error {
	return v.validate.Struct(req)
}

func (v *AppointmentValidator) ValidateConfirm(req *model.ConfirmRequest) error {
	return v.validate.Struct(req)
}

func (v *AppointmentValidator) ValidateScheduleChange(req *model.ScheduleChange) error {
	return v.validate.Struct(req)
}

func (v *AppointmentValidator) ValidateManageCancel(req *model.ManageCancelRequest) error {
	return v.validate.Struct(req)
}
