package followup

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects field errors for one request; it is surfaced to
// the caller as a 400, never as a server fault.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}
	return strings.Join(parts, "; ")
}

// Input carries the staff-editable fields of a follow-up. Clinic and creator
// are never part of it: they always come from the authenticated caller.
type Input struct {
	PatientName string
	Phone       string
	Language    Language
	Notes       string
	DueDate     time.Time
	Status      Status
}

// Validate checks the input against today's date and returns every field
// failure at once.
func (in *Input) Validate(today time.Time) error {
	var errs ValidationErrors

	in.PatientName = strings.TrimSpace(in.PatientName)
	if in.PatientName == "" {
		errs = append(errs, FieldError{Field: "patient_name", Message: "patient name is required"})
	}

	in.Phone = strings.TrimSpace(in.Phone)
	if !phonePattern.MatchString(in.Phone) {
		errs = append(errs, FieldError{Field: "phone", Message: "enter a valid phone number (7-15 digits, optional +)"})
	}

	if in.Language == "" {
		in.Language = LanguageEN
	}
	if !ValidLanguage(in.Language) {
		errs = append(errs, FieldError{Field: "language", Message: "invalid language (use en/hi)"})
	}

	if in.DueDate.IsZero() {
		errs = append(errs, FieldError{Field: "due_date", Message: "due date is required"})
	} else if dateOnly(in.DueDate).Before(dateOnly(today)) {
		errs = append(errs, FieldError{Field: "due_date", Message: "due date cannot be in the past"})
	}

	if in.Status == "" {
		in.Status = StatusPending
	}
	if !ValidStatus(in.Status) {
		errs = append(errs, FieldError{Field: "status", Message: "invalid status (use pending/done)"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
