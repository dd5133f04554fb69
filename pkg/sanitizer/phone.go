package sanitizer

import (
	"strings"

	"clinicbook/pkg/model"

	"github.com/nyaruka/phonenumbers"
)

var fallbackRegions = []string{
	"IL",
	"US",
}

// NormalizePhone returns phone in E.164, or "" if it is not a valid number.
// region is tried first for numbers without a country code.
func NormalizePhone(phone, region string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	regions := fallbackRegions
	if region != "" {
		regions = append([]string{region}, fallbackRegions...)
	}

	for _, r := range regions {
		parsed, err := phonenumbers.Parse(phone, r)
		if err != nil || !phonenumbers.IsValidNumber(parsed) {
			continue
		}
		return phonenumbers.Format(parsed, phonenumbers.E164)
	}
	return ""
}

// NormalizeContact cleans every field of c. A phone that cannot be parsed is
// kept trimmed so validation reports it as malformed rather than missing.
func NormalizeContact(c model.Contact, region string) model.Contact {
	phone := NormalizePhone(c.Phone, region)
	if phone == "" {
		phone = TrimAndNormalize(c.Phone)
	}
	return model.Contact{
		Name:  NormalizeName(c.Name),
		Phone: phone,
		Email: NormalizeEmail(c.Email),
	}
}
