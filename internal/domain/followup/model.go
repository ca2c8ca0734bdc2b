package followup

import (
	"time"

	"github.com/google/uuid"
)

// Language selects the instruction set shown on the public page.
type Language string

const (
	LanguageEN Language = "en"
	LanguageHI Language = "hi"
)

// ValidLanguage reports whether l is a supported language code.
func ValidLanguage(l Language) bool {
	return l == LanguageEN || l == LanguageHI
}

// Status of a follow-up. The only transition staff perform in bulk is
// pending -> done.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

// ValidStatus reports whether s is a supported status value.
func ValidStatus(s Status) bool {
	return s == StatusPending || s == StatusDone
}

// FollowUp is a patient care-reminder record owned by one clinic.
// PublicToken is a bearer capability: anyone who holds it can read the
// public page for this record without authenticating.
type FollowUp struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ClinicID    uuid.UUID `db:"clinic_id" json:"clinic_id"`
	CreatedBy   uuid.UUID `db:"created_by" json:"created_by"`
	PatientName string    `db:"patient_name" json:"patient_name"`
	Phone       string    `db:"phone" json:"phone"`
	Language    Language  `db:"language" json:"language"`
	Notes       string    `db:"notes" json:"notes"`
	DueDate     time.Time `db:"due_date" json:"due_date"`
	Status      Status    `db:"status" json:"status"`
	PublicToken string    `db:"public_token" json:"public_token"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	// ViewCount is derived per query from public_view_log, never stored.
	ViewCount int `db:"view_count" json:"view_count"`
}

// dateOnly strips the time of day and zone, keeping the calendar date.
// Due dates are calendar values; comparing them as instants would shift
// them across zone boundaries.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsOverdue reports whether the due date is strictly before today.
func (f *FollowUp) IsOverdue(today time.Time) bool {
	return dateOnly(f.DueDate).Before(dateOnly(today))
}

// PublicViewLog records one anonymous access to a follow-up's public page.
// Rows are append-only and cascade-deleted with their follow-up.
type PublicViewLog struct {
	ID         uuid.UUID `db:"id" json:"id"`
	FollowUpID uuid.UUID `db:"followup_id" json:"followup_id"`
	ViewedAt   time.Time `db:"viewed_at" json:"viewed_at"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
}

var instructions = map[Language][]string{
	LanguageEN: {
		"Please follow the instructions from your clinic.",
		"If you have questions, contact the clinic using the phone number you already have.",
	},
	LanguageHI: {
		"कृपया अपने क्लिनिक के निर्देशों का पालन करें।",
		"यदि कोई सवाल हो, तो क्लिनिक से संपर्क करें।",
	},
}

// InstructionsFor returns the static instruction lines for a language,
// falling back to English for any unrecognized value.
func InstructionsFor(l Language) []string {
	if lines, ok := instructions[l]; ok {
		return lines
	}
	return instructions[LanguageEN]
}
