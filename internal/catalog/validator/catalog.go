package validator

import (
	"fmt"

	"clinicbook/pkg/availability"
	"clinicbook/pkg/logger"
	"clinicbook/pkg/model"
	"clinicbook/pkg/validation"
)

type CatalogValidator struct {
	validate *validation.Validator
	logger   *logger.Logger
}

func NewCatalogValidator(log *logger.Logger) *CatalogValidator {
	return &CatalogValidator{
		validate: validation.New(log),
		logger:   log,
	}
}

func (v *CatalogValidator) ValidateService(svc *model.ServiceDefinition) error {
	return v.validate.Struct(svc)
}

func (v *CatalogValidator) ValidateRoom(room *model.Room) error {
	return v.validate.Struct(room)
}

func (v *CatalogValidator) ValidateTimeOff(req *model.TimeOffRequest) error {
	return v.validate.Struct(req)
}

// ValidateWeek checks the tags and then the rules tags cannot express: one
// row per weekday, and open days need an opening time before the closing time.
func (v *CatalogValidator) ValidateWeek(week *model.WeeklyHours) error {
	if err := v.validate.Struct(week); err != nil {
		return err
	}

	var errs validation.ValidationErrors
	seen := make(map[int]bool, len(week.Days))
	for i, d := range week.Days {
		field := fmt.Sprintf("days[%d]", i)
		if seen[d.Weekday] {
			errs = errs.Add(field+".weekday", fmt.Sprintf("weekday %d appears more than once", d.Weekday))
		}
		seen[d.Weekday] = true

		if !d.IsOpen {
			continue
		}
		if d.StartLocal == "" || d.EndLocal == "" {
			errs = errs.Add(field, "open days need start_local and end_local")
			continue
		}
		sh, sm, _ := availability.ParseClock(d.StartLocal)
		eh, em, _ := availability.ParseClock(d.EndLocal)
		if sh*60+sm >= eh*60+em {
			errs = errs.Add(field+".end_local", "end_local must be after start_local")
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
