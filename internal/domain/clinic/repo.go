package clinic

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned for lookups that match no row.
var ErrNotFound = errors.New("not found")

// ClinicRepository defines the persistence interface for clinics.
type ClinicRepository interface {
	Create(ctx context.Context, c *Clinic) error
	GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error)
	GetByCode(ctx context.Context, code string) (*Clinic, error)
	CodeExists(ctx context.Context, code string) (bool, error)
}

// StaffRepository defines the persistence interface for staff users and
// their clinic profiles.
type StaffRepository interface {
	CreateUser(ctx context.Context, u *StaffUser) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*StaffUser, error)
	GetUserByUsername(ctx context.Context, username string) (*StaffUser, error)
	CreateProfile(ctx context.Context, p *UserProfile) error
	GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*UserProfile, error)
}
