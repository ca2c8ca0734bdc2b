package clinic

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinictrack/clinictrack/internal/platform/auth"
	"github.com/clinictrack/clinictrack/internal/platform/clock"
	"github.com/clinictrack/clinictrack/internal/platform/token"
)

type Service struct {
	clinics ClinicRepository
	staff   StaffRepository
	issuer  *auth.TokenIssuer
	clk     clock.Clock
}

func NewService(clinics ClinicRepository, staff StaffRepository, issuer *auth.TokenIssuer, clk clock.Clock) *Service {
	return &Service{clinics: clinics, staff: staff, issuer: issuer, clk: clk}
}

// CreateClinic provisions a new tenant. The clinic code is generated as an
// explicit pre-insert step and never regenerated once set.
func (s *Service) CreateClinic(ctx context.Context, name string) (*Clinic, error) {
	if name == "" {
		return nil, fmt.Errorf("clinic name is required")
	}

	c := &Clinic{Name: name}
	code, err := token.Generate(ctx, token.HexCode, s.clinics.CodeExists)
	if err != nil {
		return nil, fmt.Errorf("generate clinic code: %w", err)
	}
	c.ClinicCode = code

	if err := s.clinics.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) GetClinic(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return s.clinics.GetByID(ctx, id)
}

func (s *Service) GetClinicByCode(ctx context.Context, code string) (*Clinic, error) {
	return s.clinics.GetByCode(ctx, code)
}

// CreateStaff provisions a staff user linked to the clinic identified by
// clinicCode via a one-to-one profile.
func (s *Service) CreateStaff(ctx context.Context, username, password, clinicCode string) (*StaffUser, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	c, err := s.clinics.GetByCode(ctx, clinicCode)
	if err != nil {
		return nil, fmt.Errorf("clinic %q: %w", clinicCode, err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &StaffUser{Username: username, PasswordHash: hash}
	if err := s.staff.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	if err := s.staff.CreateProfile(ctx, &UserProfile{UserID: u.ID, ClinicID: c.ID}); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and returns a signed session token. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.staff.GetUserByUsername(ctx, username)
	if err != nil {
		return "", ErrNotFound
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return "", ErrNotFound
	}
	return s.issuer.Issue(u.ID.String(), u.Username, s.clk.Now())
}

// GetStaffByUsername returns the staff user with the given username.
func (s *Service) GetStaffByUsername(ctx context.Context, username string) (*StaffUser, error) {
	return s.staff.GetUserByUsername(ctx, username)
}

// ClinicIDForUser resolves the caller's clinic through their profile.
// A missing profile is a not-found condition: it indicates a misconfigured
// account, not a server fault.
func (s *Service) ClinicIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	p, err := s.staff.GetProfileByUserID(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	return p.ClinicID, nil
}
