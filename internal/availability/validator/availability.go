package validator

import (
	"clinicbook/pkg/logger"
	"clinicbook/pkg/model"
	"clinicbook/pkg/validation"
)

type AvailabilityValidator struct {
	validate *validation.Validator
	logger   *logger.Logger
}

func NewAvailabilityValidator(log *logger.Logger) *AvailabilityValidator {
	return &AvailabilityValidator{
		validate: validation.New(log),
		logger:   log,
	}
}

func (v *AvailabilityValidator) ValidateQuery(q *model.AvailabilityQuery) error {
	return v.validate.Struct(q)
}
