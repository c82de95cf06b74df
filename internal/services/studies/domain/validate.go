// Package domain holds the input models accepted by the studies projections
// and their validation rules.
package domain

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/louisbranch/studies/internal/platform/errors"
	"github.com/louisbranch/studies/internal/services/studies/storage"
)

const (
	notBlankTag   = "notblank"
	weekdayTag    = "weekday"
	timeOrderTag  = "start_before_end"
	metadataField = "fields"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json names so errors match what callers send.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation(weekdayTag, func(fl validator.FieldLevel) bool {
		return storage.Weekday(fl.Field().String()).Valid()
	})
	v.RegisterStructValidation(scheduleStructValidation, NewSchedule{})
	return v
}

// scheduleStructValidation rejects slots that do not end after they start.
func scheduleStructValidation(sl validator.StructLevel) {
	schedule, ok := sl.Current().Interface().(NewSchedule)
	if !ok {
		return
	}
	start, startErr := time.Parse(storage.TimeLayout, schedule.StartTime)
	end, endErr := time.Parse(storage.TimeLayout, schedule.EndTime)
	if startErr != nil || endErr != nil {
		return
	}
	if !start.Before(end) {
		sl.ReportError(schedule.EndTime, "end_time", "EndTime", timeOrderTag, "")
	}
}

// Validate checks input against its struct tags. Failures come back as a
// VALIDATION_REJECTED error whose metadata maps field to failed rule.
func Validate(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Wrap(apperrors.CodeValidationRejected, "validate input", err)
	}
	metadata := make(map[string]string, len(fieldErrs))
	names := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		key := fieldPath(fieldErr)
		metadata[key] = fieldErr.Tag()
		names = append(names, key)
	}
	sort.Strings(names)
	metadata[metadataField] = strings.Join(names, ",")
	return apperrors.WithMetadata(apperrors.CodeValidationRejected,
		"invalid "+strings.Join(names, ", "), metadata)
}

// fieldPath drops the root struct name from the namespace, e.g.
// "NewDiscipline.schedules[0].end_time" becomes "schedules[0].end_time".
func fieldPath(fieldErr validator.FieldError) string {
	namespace := fieldErr.Namespace()
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return fieldErr.Field()
}

// cleanString trims surrounding whitespace.
func cleanString(value string) string {
	return strings.TrimSpace(value)
}
