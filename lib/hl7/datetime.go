package hl7

import (
	"fmt"
	"strings"
	"time"
)

// HL7 DT and TS layouts, longest first. Timestamps may carry fractional
// seconds or a timezone offset; both are ignored here because the pipeline
// only needs calendar-date and second precision.
const (
	layoutDateTime = "20060102150405"
	layoutDate     = "20060102"
)

// ParseDate parses an HL7 DT value (YYYYMMDD, optionally with more
// precision appended) into a calendar date in UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(value) < len(layoutDate) {
		return time.Time{}, fmt.Errorf("hl7: value %q is too short for a date", value)
	}
	t, err := time.ParseInLocation(layoutDate, value[:len(layoutDate)], time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("hl7: invalid date %q: %w", value, err)
	}
	return t, nil
}

// ParseDateTime parses an HL7 TS value (YYYYMMDDHHMMSS with optional
// fraction/offset) into a UTC timestamp. Date-only values are accepted and
// read as midnight, matching how senders commonly populate admit times.
func ParseDateTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(value) >= len(layoutDateTime) {
		t, err := time.ParseInLocation(layoutDateTime, value[:len(layoutDateTime)], time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("hl7: invalid timestamp %q: %w", value, err)
		}
		return t, nil
	}
	return ParseDate(value)
}
