package clinic

import (
	"time"

	"github.com/google/uuid"
)

// Clinic is a tenant. All follow-ups and staff accounts hang off one clinic.
type Clinic struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	ClinicCode string    `db:"clinic_code" json:"clinic_code"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// StaffUser maps to the staff_user table.
type StaffUser struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// UserProfile links a staff user to exactly one clinic. A staff user without
// a profile cannot use any follow-up endpoint.
type UserProfile struct {
	ID       uuid.UUID `db:"id" json:"id"`
	UserID   uuid.UUID `db:"user_id" json:"user_id"`
	ClinicID uuid.UUID `db:"clinic_id" json:"clinic_id"`
}
