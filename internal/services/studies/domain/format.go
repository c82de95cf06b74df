package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/studies/internal/platform/errors"
	"github.com/louisbranch/studies/internal/services/studies/storage"
)

// DisplayDateLayout is the day-first form shown to users.
const DisplayDateLayout = "02/01/2006"

// FormatDueDate renders an ISO due date as dd/MM/yyyy. Empty and
// unparseable values render as given.
func FormatDueDate(iso string) string {
	parsed, err := time.Parse(storage.DateLayout, iso)
	if err != nil {
		return iso
	}
	return parsed.Format(DisplayDateLayout)
}

// ParseDueDate accepts dd/MM/yyyy or ISO input and returns the ISO form.
// Empty input yields an empty date.
func ParseDueDate(value string) (string, error) {
	value = cleanString(value)
	if value == "" {
		return "", nil
	}
	for _, layout := range []string{DisplayDateLayout, storage.DateLayout} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.Format(storage.DateLayout), nil
		}
	}
	return "", apperrors.WithMetadata(apperrors.CodeValidationRejected,
		fmt.Sprintf("invalid due date %q", value), map[string]string{"due_date": "datetime"})
}

// DueDateOf returns the ISO date of t.
func DueDateOf(t time.Time) string {
	return t.Format(storage.DateLayout)
}

// DueTimeOf returns the HH:MM clock of t.
func DueTimeOf(t time.Time) string {
	return t.Format(storage.TimeLayout)
}

// canonicalClock zero-pads H:MM to HH:MM and leaves other input untouched
// for validation to reject.
func canonicalClock(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return value
	}
	return parsed.Format(storage.TimeLayout)
}
