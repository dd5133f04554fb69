// Package locale maps IANA zones to the clinic's country, which is the hint
// used when normalizing national phone numbers.
package locale

import (
	"fmt"
	"strings"
	"time"
)

type Country struct {
	Code  string   // ISO 3166-1 alpha-2 country code (e.g., "IL", "US")
	Name  string   // Human-readable country name
	Zones []string // IANA zones that belong to the country
}

var Countries = map[string]Country{
	"IL": {
		Code:  "IL",
		Name:  "Israel",
		Zones: []string{"Asia/Jerusalem", "Israel", "Asia/Tel_Aviv"},
	},
	"US": {
		Code: "US",
		Name: "United States",
		Zones: []string{
			"America/New_York", "America/Chicago", "America/Denver", "America/Los_Angeles",
			"America/Phoenix", "US/Eastern", "US/Central", "US/Mountain", "US/Pacific",
		},
	},
	"GB": {
		Code:  "GB",
		Name:  "United Kingdom",
		Zones: []string{"Europe/London", "GB"},
	},
}

// DetectRegion returns the country code for zone, or "" when unknown.
func DetectRegion(zone string) string {
	for code, country := range Countries {
		for _, z := range country.Zones {
			if strings.EqualFold(zone, z) {
				return code
			}
		}
	}
	return ""
}

// LoadLocation resolves zone, falling back to fallback when zone is empty.
// The resolved name is returned alongside the location.
func LoadLocation(zone, fallback string) (*time.Location, string, error) {
	name := strings.TrimSpace(zone)
	if name == "" {
		name = fallback
	}
	if name == "" {
		name = "UTC"
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, "", fmt.Errorf("unknown time zone %q: %w", name, err)
	}
	return loc, name, nil
}
