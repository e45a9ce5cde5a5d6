package models

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the format used for campaign window dates
const DateLayout = "2006-01-02"

// MonthLayout is the billing period tag stamped on earnings
const MonthLayout = "2006-01"

// ErrMissingDate is returned when a campaign window bound is empty
var ErrMissingDate = errors.New("date is missing")

// ParseTargetDate parses a campaign window date. Plain dates and RFC3339
// timestamps are accepted; timestamps are truncated to their calendar day.
func ParseTargetDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrMissingDate
	}

	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// IntersectsFold reports whether any value in a appears in b, ignoring case
// and surrounding whitespace
func IntersectsFold(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}

	seen := make(map[string]struct{}, len(b))
	for _, v := range b {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			seen[v] = struct{}{}
		}
	}

	for _, v := range a {
		if _, ok := seen[strings.ToLower(strings.TrimSpace(v))]; ok {
			return true
		}
	}
	return false
}
