package followup

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinictrack/clinictrack/internal/platform/clock"
	"github.com/clinictrack/clinictrack/internal/platform/token"
	"github.com/clinictrack/clinictrack/pkg/pagination"
)

type Service struct {
	repo Repository
	clk  clock.Clock
}

func NewService(repo Repository, clk clock.Clock) *Service {
	return &Service{repo: repo, clk: clk}
}

// Clock exposes the service clock so handlers render "today" consistently.
func (s *Service) Clock() clock.Clock { return s.clk }

// Create validates the input and persists a follow-up owned by the caller's
// clinic. The public token is generated here, as an explicit pre-insert step,
// and only because the record has none yet; it is never regenerated.
func (s *Service) Create(ctx context.Context, clinicID, createdBy uuid.UUID, in Input) (*FollowUp, error) {
	if err := in.Validate(clock.Today(s.clk)); err != nil {
		return nil, err
	}

	f := &FollowUp{
		ClinicID:    clinicID,
		CreatedBy:   createdBy,
		PatientName: in.PatientName,
		Phone:       in.Phone,
		Language:    in.Language,
		Notes:       in.Notes,
		DueDate:     in.DueDate,
		Status:      in.Status,
	}

	tok, err := token.Generate(ctx, token.URLToken, s.repo.TokenExists)
	if err != nil {
		return nil, fmt.Errorf("generate public token: %w", err)
	}
	f.PublicToken = tok

	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Get returns one follow-up scoped to the caller's clinic.
func (s *Service) Get(ctx context.Context, clinicID, id uuid.UUID) (*FollowUp, error) {
	return s.repo.GetByID(ctx, clinicID, id)
}

// Update validates and saves the editable fields of a follow-up within the
// caller's clinic. Clinic, creator and public token are never touched.
func (s *Service) Update(ctx context.Context, clinicID, id uuid.UUID, in Input) (*FollowUp, error) {
	f, err := s.repo.GetByID(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}

	if err := in.Validate(clock.Today(s.clk)); err != nil {
		return nil, err
	}

	f.PatientName = in.PatientName
	f.Phone = in.Phone
	f.Language = in.Language
	f.Notes = in.Notes
	f.DueDate = in.DueDate
	f.Status = in.Status

	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// MarkDone sets a follow-up's status to done. Repeated calls are harmless.
func (s *Service) MarkDone(ctx context.Context, clinicID, id uuid.UUID) (*FollowUp, error) {
	if _, err := s.repo.GetByID(ctx, clinicID, id); err != nil {
		return nil, err
	}
	return s.repo.UpdateStatus(ctx, clinicID, id, StatusDone)
}

// List returns one page of the clinic's follow-ups. The page number is
// clamped against the filtered total, so out-of-range requests land on the
// last page instead of failing.
func (s *Service) List(ctx context.Context, clinicID uuid.UUID, filter ListFilter, requestedPage int) ([]*FollowUp, pagination.Page, error) {
	total, err := s.repo.Count(ctx, clinicID, filter)
	if err != nil {
		return nil, pagination.Page{}, err
	}

	page := pagination.Resolve(requestedPage, total)
	items, err := s.repo.List(ctx, clinicID, filter, pagination.PageSize, page.Offset())
	if err != nil {
		return nil, pagination.Page{}, err
	}
	return items, page, nil
}

// Export returns the full filtered listing for CSV export, unpaginated.
func (s *Service) Export(ctx context.Context, clinicID uuid.UUID, filter ListFilter) ([]*FollowUp, error) {
	return s.repo.ListAll(ctx, clinicID, filter)
}

// Summary returns the unfiltered per-clinic counts.
func (s *Service) Summary(ctx context.Context, clinicID uuid.UUID) (*Summary, error) {
	return s.repo.Summary(ctx, clinicID)
}

// PublicView looks up a follow-up by its bearer token and appends exactly one
// view-log entry. The lookup is global: the token is the capability, and an
// unknown token is a plain not-found.
func (s *Service) PublicView(ctx context.Context, tok, userAgent, ipAddress string) (*FollowUp, []string, error) {
	f, err := s.repo.GetByToken(ctx, tok)
	if err != nil {
		return nil, nil, err
	}

	if len(userAgent) > 255 {
		userAgent = userAgent[:255]
	}
	if len(ipAddress) > 64 {
		ipAddress = ipAddress[:64]
	}

	if err := s.repo.AddViewLog(ctx, &PublicViewLog{
		FollowUpID: f.ID,
		UserAgent:  userAgent,
		IPAddress:  ipAddress,
	}); err != nil {
		return nil, nil, fmt.Errorf("record public view: %w", err)
	}
	f.ViewCount++

	return f, InstructionsFor(f.Language), nil
}
