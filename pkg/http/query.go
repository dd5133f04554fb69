package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "clinicbook/pkg/errors"
)

func RequiredQuery(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", apperrors.FieldInvalid(name, "is required")
	}
	return v, nil
}

// QueryInt returns nil when the parameter is absent.
func QueryInt(r *http.Request, name string) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperrors.FieldInvalid(name, fmt.Sprintf("must be an integer, got %q", raw))
	}
	return &n, nil
}

// QueryTime parses an RFC 3339 timestamp.
func QueryTime(r *http.Request, name string) (time.Time, error) {
	raw, err := RequiredQuery(r, name)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperrors.FieldInvalid(name, "must be an RFC 3339 timestamp")
	}
	return t, nil
}
